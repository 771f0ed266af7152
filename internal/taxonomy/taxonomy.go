// Package taxonomy answers questions about the category/office tree fetched from
// the backend: which offices a category offers, how ids render as labels, and
// whether a selection is still consistent.
package taxonomy

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"docarchive/internal/model"
)

var (
	// ErrOfficeMismatch is returned when an office does not belong to the selected category.
	ErrOfficeMismatch = errors.New("office does not belong to the selected category")
	// ErrDuplicateID is returned by Validate for repeated category or office ids.
	ErrDuplicateID = errors.New("duplicate id")
)

// Option is one entry of a selector.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Selection is a category/office pair picked in a form or filter bar.
type Selection struct {
	CategoryID string
	OfficeID   string
}

// Resolver indexes a snapshot of the taxonomy. It is immutable and safe for concurrent use.
type Resolver struct {
	categories []model.Category
	byID       map[string]int
}

// NewResolver indexes categories. When ids repeat, the first occurrence wins.
func NewResolver(categories []model.Category) *Resolver {
	r := &Resolver{
		categories: categories,
		byID:       make(map[string]int, len(categories)),
	}
	for i, c := range categories {
		if _, dup := r.byID[c.ID]; !dup {
			r.byID[c.ID] = i
		}
	}
	return r
}

// Categories returns the indexed categories in backend order.
func (r *Resolver) Categories() []model.Category {
	return r.categories
}

// CategoryOptions lists every category as a selector option.
func (r *Resolver) CategoryOptions() []Option {
	out := make([]Option, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, Option{Value: c.ID, Label: c.Name})
	}
	return out
}

// OfficeOptions lists the offices of categoryID. With no category selected, or an
// unknown one, there are no options and the office selector stays disabled.
func (r *Resolver) OfficeOptions(categoryID string) []Option {
	c, ok := r.category(categoryID)
	if !ok {
		return []Option{}
	}
	out := make([]Option, 0, len(c.Offices))
	for _, o := range c.Offices {
		out = append(out, Option{Value: o.ID, Label: o.Name})
	}
	return out
}

// CategoryLabel returns the display name of categoryID, or the id itself when unknown.
func (r *Resolver) CategoryLabel(categoryID string) string {
	if c, ok := r.category(categoryID); ok {
		return c.Name
	}
	return categoryID
}

// OfficeLabel returns the display name of the office, or officeID when the pair is unknown.
func (r *Resolver) OfficeLabel(categoryID, officeID string) string {
	if c, ok := r.category(categoryID); ok {
		if o, ok := c.Office(officeID); ok {
			return o.Name
		}
	}
	return officeID
}

// Valid reports whether officeID belongs to categoryID.
func (r *Resolver) Valid(categoryID, officeID string) bool {
	c, ok := r.category(categoryID)
	if !ok {
		return false
	}
	_, ok = c.Office(officeID)
	return ok
}

// Reconcile clears the office of s when it no longer belongs to the selected category.
// It must run after every category change and before the selection is used.
func (r *Resolver) Reconcile(s Selection) Selection {
	if s.OfficeID != "" && !r.Valid(s.CategoryID, s.OfficeID) {
		s.OfficeID = ""
	}
	return s
}

// Check is Valid as an error, for form submission.
func (r *Resolver) Check(categoryID, officeID string) error {
	if !r.Valid(categoryID, officeID) {
		return fmt.Errorf("%w: %q in %q", ErrOfficeMismatch, officeID, categoryID)
	}
	return nil
}

func (r *Resolver) category(id string) (model.Category, bool) {
	if id == "" {
		return model.Category{}, false
	}
	i, ok := r.byID[id]
	if !ok {
		return model.Category{}, false
	}
	return r.categories[i], true
}

// Validate rejects repeated category ids and offices repeated within one category.
// The same office id under two different categories is allowed.
func Validate(categories []model.Category) error {
	seen := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: category %q", ErrDuplicateID, c.ID)
		}
		seen[c.ID] = struct{}{}

		offices := make(map[string]struct{}, len(c.Offices))
		for _, o := range c.Offices {
			if _, dup := offices[o.ID]; dup {
				return fmt.Errorf("%w: office %q in category %q", ErrDuplicateID, o.ID, c.ID)
			}
			offices[o.ID] = struct{}{}
		}
	}
	return nil
}

// Slug derives a category or office id from its display name: lower-cased, with
// every run of whitespace replaced by a single "-". Leading and trailing runs
// become "-" too, so callers pass the trimmed name.
func Slug(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	inSpace := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
