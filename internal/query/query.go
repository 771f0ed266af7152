// Package query turns raw filter input into backend filters and refines fetched
// documents in memory: text search, newest-first ordering and incremental pages.
package query

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"docarchive/internal/model"
)

// DefaultPageSize is how many documents one page reveals.
const DefaultPageSize = 20

// DateLayout is the accepted format of date filter input.
const DateLayout = "2006-01-02"

var (
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidPage      = errors.New("pages must be a positive integer")
)

// Params is the raw, user-supplied filter input of a document list.
type Params struct {
	CategoryID string
	OfficeID   string
	Direction  string
	Start      string
	End        string
	Search     string
}

// Filter converts p into a backend filter. Dates are parsed in loc and sent with
// millisecond precision in nanoseconds.
func (p Params) Filter(loc *time.Location) (model.DocumentFilter, error) {
	f := model.DocumentFilter{
		CategoryID: strings.TrimSpace(p.CategoryID),
		OfficeID:   strings.TrimSpace(p.OfficeID),
	}
	if d := model.Direction(strings.TrimSpace(p.Direction)); d != "" {
		if !d.Valid() {
			return model.DocumentFilter{}, fmt.Errorf("%w: %q", ErrInvalidDirection, p.Direction)
		}
		f.Direction = d
	}
	var err error
	if f.Start, err = parseDate(p.Start, loc); err != nil {
		return model.DocumentFilter{}, err
	}
	if f.End, err = parseDate(p.End, loc); err != nil {
		return model.DocumentFilter{}, err
	}
	return f, nil
}

func parseDate(s string, loc *time.Location) (*model.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	v := model.TimeOf(t)
	return &v, nil
}

// Search keeps the documents whose title or reference number contains q,
// case-insensitively. q is matched as typed, surrounding spaces included. A
// document without a reference number can only match on its title. An empty q
// keeps every document.
func Search(docs []model.Document, q string) []model.Document {
	q = strings.ToLower(q)
	if q == "" {
		return slices.Clone(docs)
	}
	out := make([]model.Document, 0, len(docs))
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d.Title), q) {
			out = append(out, d)
			continue
		}
		if d.ReferenceNumber != nil && strings.Contains(strings.ToLower(*d.ReferenceNumber), q) {
			out = append(out, d)
		}
	}
	return out
}

// SortByUpload returns a copy of docs ordered newest upload first. Equal
// timestamps keep their fetch order.
func SortByUpload(docs []model.Document) []model.Document {
	out := slices.Clone(docs)
	slices.SortStableFunc(out, func(a, b model.Document) int {
		switch {
		case a.UploadTimestamp > b.UploadTimestamp:
			return -1
		case a.UploadTimestamp < b.UploadTimestamp:
			return 1
		}
		return 0
	})
	return out
}

// Refine applies Search then SortByUpload. The input is not modified.
func Refine(docs []model.Document, q string) []model.Document {
	return SortByUpload(Search(docs, q))
}
