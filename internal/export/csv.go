// Package export renders document listings as CSV downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"docarchive/internal/model"
)

const (
	// ContentType is the media type of an export.
	ContentType = "text/csv; charset=utf-8"

	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
	filenameLayout  = "2006-01-02_15-04-05"
	bytesPerMiB     = 1024 * 1024
)

// Header is the first row of every export.
var Header = []string{
	"Title",
	"Category",
	"Office",
	"Direction",
	"Document Date",
	"Reference Number",
	"Filename",
	"File Size (MB)",
	"Upload Date",
}

// Labeler renders taxonomy ids for humans.
type Labeler interface {
	CategoryLabel(categoryID string) string
	OfficeLabel(categoryID, officeID string) string
}

// Writer writes documents as CSV rows. Dates are rendered in loc.
type Writer struct {
	labels Labeler
	loc    *time.Location
}

// NewWriter creates a Writer. A nil loc means UTC.
func NewWriter(labels Labeler, loc *time.Location) *Writer {
	if loc == nil {
		loc = time.UTC
	}
	return &Writer{labels: labels, loc: loc}
}

// Write emits the header and one row per document, in order.
func (w *Writer) Write(out io.Writer, docs []model.Document) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, d := range docs {
		if err := cw.Write(w.row(d)); err != nil {
			return fmt.Errorf("write document %s: %w", d.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (w *Writer) row(d model.Document) []string {
	return []string{
		d.Title,
		w.labels.CategoryLabel(d.CategoryID),
		w.labels.OfficeLabel(d.CategoryID, d.OfficeID),
		d.Direction.Label(),
		d.DocumentDate.In(w.loc).Format(dateLayout),
		d.Reference(),
		d.Filename,
		FormatMiB(d.FileSize),
		d.UploadTimestamp.In(w.loc).Format(timestampLayout),
	}
}

// FormatMiB renders a byte count in MiB with two decimals.
func FormatMiB(size int64) string {
	return strconv.FormatFloat(float64(size)/bytesPerMiB, 'f', 2, 64)
}

// Filename names an export taken at now.
func Filename(now time.Time) string {
	return "documents_export_" + now.Format(filenameLayout) + ".csv"
}
