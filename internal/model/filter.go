package model

import (
	"strconv"
	"strings"
)

// DocumentFilter holds the server-side filter parameters of filterDocuments.
// Zero values mean "no filter" and travel to the backend as explicit nulls.
type DocumentFilter struct {
	CategoryID string
	OfficeID   string
	Direction  Direction
	Start      *Time
	End        *Time
}

// Key renders the filter tuple as a stable cache key component.
func (f DocumentFilter) Key() string {
	parts := []string{f.CategoryID, f.OfficeID, string(f.Direction), timeKey(f.Start), timeKey(f.End)}
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, "|", "%7C")
	}
	return strings.Join(parts, "|")
}

// IsZero reports whether no server-side filter is set.
func (f DocumentFilter) IsZero() bool {
	return f.CategoryID == "" && f.OfficeID == "" && f.Direction == "" && f.Start == nil && f.End == nil
}

func timeKey(t *Time) string {
	if t == nil {
		return ""
	}
	return strconv.FormatInt(int64(*t), 10)
}
