package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"docarchive/internal/config"
	"docarchive/internal/export"
	"docarchive/internal/model"
	"docarchive/internal/query"
	"docarchive/internal/repository"
	"docarchive/internal/storage"
	"docarchive/internal/taxonomy"
	"docarchive/internal/upload"
)

var (
	ErrIDRequired  = errors.New("id is required")
	ErrNotFound    = errors.New("document not found")
	ErrNoObject    = errors.New("document content is not in the object store")
	ErrNoStore     = errors.New("object store is not configured")
	ErrForeignBlob = errors.New("document content lives in another bucket")
)

// DocumentListResult is one visible window of a refined document listing.
type DocumentListResult = query.Page[model.Document]

// ListQuery selects documents: server-side filters, then text search, then pages revealed.
type ListQuery struct {
	Filter model.DocumentFilter
	Search string
	Pages  int
}

// ExportQuery is a ListQuery without paging, optionally narrowed to selected ids.
type ExportQuery struct {
	Filter model.DocumentFilter
	Search string
	IDs    []string
}

// Content is a document's binary content.
type Content struct {
	Body     io.ReadCloser
	MimeType string
	Filename string
	Size     int64
}

// DocumentService defines the document use cases.
type DocumentService interface {
	// List fetches, searches, sorts newest first, and reveals q.Pages pages.
	List(ctx context.Context, q ListQuery) (*DocumentListResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Content opens the binary content of a document.
	Content(ctx context.Context, id string) (*Content, error)

	// ContentURL returns a time-limited download URL for content held in the object store.
	ContentURL(ctx context.Context, id string, expiry time.Duration) (string, error)

	// Upload validates and stores a new document.
	Upload(ctx context.Context, req upload.Request, tr *upload.Tracker) (*upload.Result, error)

	// Delete removes a document and any object holding its content.
	Delete(ctx context.Context, id string) error

	// Export writes the documents selected by q as CSV.
	Export(ctx context.Context, w io.Writer, q ExportQuery) error

	// Metrics returns the dashboard counts.
	Metrics(ctx context.Context) (*model.DashboardMetrics, error)
}

type documentService struct {
	docs        repository.DocumentRepository
	categories  repository.CategoryRepository
	uploads     *upload.Orchestrator
	store       storage.Storage
	pageSize    int
	metricsMode string
	loc         *time.Location
	log         *slog.Logger
}

// DocumentOptions carries the tunables of a DocumentService.
type DocumentOptions struct {
	PageSize    int
	MetricsMode string
	Location    *time.Location
}

// NewDocumentService constructs a DocumentService. store may be nil when content is kept inline.
func NewDocumentService(
	docs repository.DocumentRepository,
	categories repository.CategoryRepository,
	uploads *upload.Orchestrator,
	store storage.Storage,
	opts DocumentOptions,
	log *slog.Logger,
) DocumentService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MetricsMode == "" {
		opts.MetricsMode = config.MetricsModeBackend
	}
	return &documentService{
		docs:        docs,
		categories:  categories,
		uploads:     uploads,
		store:       store,
		pageSize:    opts.PageSize,
		metricsMode: opts.MetricsMode,
		loc:         opts.Location,
		log:         log,
	}
}

func (s *documentService) List(ctx context.Context, q ListQuery) (*DocumentListResult, error) {
	docs, err := s.refined(ctx, q.Filter, q.Search)
	if err != nil {
		return nil, err
	}
	page := query.Paginate(docs, s.pageSize, q.Pages)
	return &page, nil
}

// refined fetches with a reconciled filter and applies search and ordering.
func (s *documentService) refined(ctx context.Context, f model.DocumentFilter, search string) ([]model.Document, error) {
	if f.OfficeID != "" {
		cats, err := s.categories.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("load categories: %w", err)
		}
		sel := taxonomy.NewResolver(cats).Reconcile(taxonomy.Selection{CategoryID: f.CategoryID, OfficeID: f.OfficeID})
		f.OfficeID = sel.OfficeID
	}
	docs, err := s.docs.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return query.Refine(docs, search), nil
}

func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (s *documentService) Content(ctx context.Context, id string) (*Content, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if storage.IsDataURI(doc.BlobID) {
		mimeType, data, err := storage.DecodeDataURI(doc.BlobID)
		if err != nil {
			return nil, fmt.Errorf("decode content of %s: %w", id, err)
		}
		if doc.MimeType != "" {
			mimeType = doc.MimeType
		}
		return &Content{
			Body:     io.NopCloser(bytes.NewReader(data)),
			MimeType: mimeType,
			Filename: doc.Filename,
			Size:     int64(len(data)),
		}, nil
	}

	key, err := s.objectKey(doc.BlobID)
	if err != nil {
		return nil, err
	}
	body, info, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get content of %s: %w", id, err)
	}
	mimeType := doc.MimeType
	if mimeType == "" {
		mimeType = info.ContentType
	}
	return &Content{Body: body, MimeType: mimeType, Filename: doc.Filename, Size: info.Size}, nil
}

func (s *documentService) ContentURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if storage.IsDataURI(doc.BlobID) {
		return "", ErrNoObject
	}
	key, err := s.objectKey(doc.BlobID)
	if err != nil {
		return "", err
	}
	return s.store.PresignGet(ctx, key, expiry)
}

// objectKey resolves an s3 locator to a key in the configured bucket.
func (s *documentService) objectKey(locator string) (string, error) {
	bucket, key, err := storage.ParseS3Locator(locator)
	if err != nil {
		return "", err
	}
	if s.store == nil {
		return "", ErrNoStore
	}
	if !s.store.Owns(bucket) {
		return "", fmt.Errorf("%w: %s", ErrForeignBlob, bucket)
	}
	return key, nil
}

func (s *documentService) Upload(ctx context.Context, req upload.Request, tr *upload.Tracker) (*upload.Result, error) {
	return s.uploads.Upload(ctx, req, tr)
}

// Delete removes the record before its object, so a delete refused by the backend
// leaves the content in place.
func (s *documentService) Delete(ctx context.Context, id string) error {
	op := "service.Document.Delete"

	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}

	if storage.IsDataURI(doc.BlobID) || s.store == nil {
		return nil
	}
	key, err := s.objectKey(doc.BlobID)
	if err != nil {
		s.log.Warn("document content not removed", slog.String("op", op), slog.String("id", id), slog.String("error", err.Error()))
		return nil
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn("orphaned document object", slog.String("op", op), slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

func (s *documentService) Export(ctx context.Context, w io.Writer, q ExportQuery) error {
	docs, err := s.refined(ctx, q.Filter, q.Search)
	if err != nil {
		return err
	}
	if len(q.IDs) > 0 {
		docs = slices.DeleteFunc(docs, func(d model.Document) bool {
			return !slices.Contains(q.IDs, d.ID)
		})
	}
	cats, err := s.categories.List(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	return export.NewWriter(taxonomy.NewResolver(cats), s.loc).Write(w, docs)
}

func (s *documentService) Metrics(ctx context.Context) (*model.DashboardMetrics, error) {
	if s.metricsMode == config.MetricsModeDerived {
		docs, err := s.docs.List(ctx, model.DocumentFilter{})
		if err != nil {
			return nil, err
		}
		m := model.DeriveMetrics(docs)
		return &m, nil
	}
	return s.docs.Metrics(ctx)
}
