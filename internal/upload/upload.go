// Package upload validates a document upload, encodes its content, and submits the
// metadata and content locator to the backend in one write.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docarchive/internal/model"
	"docarchive/internal/repository"
	"docarchive/internal/storage"
	"docarchive/internal/taxonomy"
)

const pkg = "upload/"

var tracer = otel.Tracer("docarchive/internal/upload")

// UnsupportedTypeMessage is shown to users who pick a file of the wrong type.
const UnsupportedTypeMessage = "Please select a PDF or image file (PNG/JPEG)"

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrMissingField    = errors.New("missing required field")
	ErrTooLarge        = errors.New("file too large")
)

// File is the content part of an upload.
type File struct {
	Name     string
	MimeType string
	Content  io.Reader
}

// Request is one document upload.
type Request struct {
	File            File
	CategoryID      string
	OfficeID        string
	Direction       model.Direction
	Title           string
	ReferenceNumber string
	DocumentDate    time.Time
}

// Result identifies the stored document.
type Result struct {
	ID       string `json:"id"`
	BlobID   string `json:"blob_id"`
	Locator  string `json:"-"`
	Filename string `json:"filename"`
	Size     int64  `json:"file_size"`
}

// CategoryLister provides the taxonomy used to validate the office selection.
type CategoryLister interface {
	List(ctx context.Context) ([]model.Category, error)
}

// Orchestrator runs uploads. It is safe for concurrent use.
type Orchestrator struct {
	docs       repository.DocumentRepository
	categories CategoryLister
	store      storage.Storage
	allowed    map[string]struct{}
	maxBytes   int64
	log        *slog.Logger
	uploads    *prometheus.CounterVec

	now    func() time.Time
	suffix func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObjectStore stores content in s instead of inlining it as a data URI.
func WithObjectStore(s storage.Storage) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithAllowedTypes replaces the accepted MIME types.
func WithAllowedTypes(types []string) Option {
	return func(o *Orchestrator) {
		o.allowed = make(map[string]struct{}, len(types))
		for _, t := range types {
			o.allowed[strings.ToLower(t)] = struct{}{}
		}
	}
}

// WithMaxBytes bounds the content size.
func WithMaxBytes(n int64) Option {
	return func(o *Orchestrator) { o.maxBytes = n }
}

// DefaultAllowedTypes are the MIME types accepted unless configured otherwise.
var DefaultAllowedTypes = []string{"application/pdf", "image/png", "image/jpeg"}

// NewOrchestrator creates an Orchestrator that writes through docs.
func NewOrchestrator(docs repository.DocumentRepository, categories CategoryLister, log *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		docs:       docs,
		categories: categories,
		maxBytes:   25 << 20,
		log:        log,
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "document_uploads_total",
				Help: "Document uploads by outcome.",
			},
			[]string{"result"},
		),
		now:    time.Now,
		suffix: randomSuffix,
	}
	WithAllowedTypes(DefaultAllowedTypes)(o)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Register exposes the upload counter on reg.
func (o *Orchestrator) Register(reg prometheus.Registerer) error {
	return reg.Register(o.uploads)
}

// Validate checks the request without side effects.
func (o *Orchestrator) Validate(req Request) error {
	if req.File.Content == nil || strings.TrimSpace(req.File.Name) == "" {
		return fmt.Errorf("%w: file", ErrMissingField)
	}
	if _, ok := o.allowed[strings.ToLower(req.File.MimeType)]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, req.File.MimeType)
	}
	switch {
	case strings.TrimSpace(req.Title) == "":
		return fmt.Errorf("%w: title", ErrMissingField)
	case req.CategoryID == "":
		return fmt.Errorf("%w: category", ErrMissingField)
	case req.OfficeID == "":
		return fmt.Errorf("%w: office", ErrMissingField)
	case !req.Direction.Valid():
		return fmt.Errorf("%w: direction", ErrMissingField)
	case req.DocumentDate.IsZero():
		return fmt.Errorf("%w: document date", ErrMissingField)
	}
	return nil
}

// Upload runs one upload, reporting progress to tr (which may be nil). Any failure
// aborts the upload with nothing left behind and progress back at zero.
func (o *Orchestrator) Upload(ctx context.Context, req Request, tr *Tracker) (*Result, error) {
	op := pkg + "Upload"
	log := o.log.With(slog.String("op", op))

	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("upload.mime_type", req.File.MimeType),
		attribute.String("upload.category_id", req.CategoryID),
		attribute.Bool("upload.object_store", o.store != nil),
	))
	defer span.End()

	if err := o.Validate(req); err != nil {
		o.uploads.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if err := o.checkOffice(ctx, req.CategoryID, req.OfficeID); err != nil {
		o.uploads.WithLabelValues("rejected").Inc()
		return nil, err
	}

	res, err := o.run(ctx, req, tr)
	if err != nil {
		tr.reset()
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		o.uploads.WithLabelValues("failed").Inc()
		log.Error("upload failed", slog.String("filename", req.File.Name), slog.String("error", err.Error()))
		return nil, err
	}

	tr.set(ProgressDone)
	tr.reset()
	span.SetAttributes(attribute.String("document.id", res.ID), attribute.Int64("document.size", res.Size))
	o.uploads.WithLabelValues("success").Inc()
	log.Info("document uploaded", slog.String("id", res.ID), slog.Int64("size", res.Size))
	return res, nil
}

func (o *Orchestrator) checkOffice(ctx context.Context, categoryID, officeID string) error {
	cats, err := o.categories.List(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	return taxonomy.NewResolver(cats).Check(categoryID, officeID)
}

func (o *Orchestrator) run(ctx context.Context, req Request, tr *Tracker) (*Result, error) {
	content, err := io.ReadAll(io.LimitReader(req.File.Content, o.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(content)) > o.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, o.maxBytes)
	}
	tr.set(ProgressRead)

	filename := filepath.Base(req.File.Name)
	id := fmt.Sprintf("%d-%s", o.now().UnixMilli(), o.suffix())
	blobID := id + "-" + filename
	mimeType := strings.ToLower(req.File.MimeType)

	var (
		locator   string
		objectKey string
	)
	if o.store == nil {
		locator = storage.DataURI(mimeType, content)
		tr.set(ProgressEncoded)
	} else {
		tr.set(ProgressEncoded)
		objectKey = filepath.ToSlash(filepath.Join("documents", blobID))
		if _, err := o.store.Put(ctx, objectKey, bytes.NewReader(content), storage.PutObjectOptions{
			Size:        int64(len(content)),
			ContentType: mimeType,
			Metadata:    map[string]string{"original-filename": filename, "document-id": id},
		}); err != nil {
			return nil, fmt.Errorf("upload to storage: %w", err)
		}
		locator = o.store.Locator(objectKey)
	}
	tr.set(ProgressStored)

	doc := model.NewDocument{
		ID:           id,
		CategoryID:   req.CategoryID,
		OfficeID:     req.OfficeID,
		Direction:    req.Direction,
		Title:        strings.TrimSpace(req.Title),
		DocumentDate: model.TimeOf(req.DocumentDate),
		Filename:     filename,
		MimeType:     mimeType,
		FileSize:     int64(len(content)),
		BlobID:       locator,
	}
	if ref := strings.TrimSpace(req.ReferenceNumber); ref != "" {
		doc.ReferenceNumber = &ref
	}
	tr.set(ProgressPrepared)

	if err := o.docs.Create(ctx, doc); err != nil {
		if objectKey != "" {
			if delErr := o.store.Delete(context.WithoutCancel(ctx), objectKey); delErr != nil {
				return nil, fmt.Errorf("save document failed: %w; rollback delete failed: %v", err, delErr)
			}
		}
		return nil, fmt.Errorf("save document: %w", err)
	}
	tr.set(ProgressSubmitted)

	return &Result{ID: id, BlobID: blobID, Locator: locator, Filename: filename, Size: doc.FileSize}, nil
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
