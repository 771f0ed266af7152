package model

// Direction classifies a document as received, sent, or flagged important.
// It is a single closed tag, not a set of booleans.
type Direction string

const (
	DirectionInward    Direction = "inward"
	DirectionOutward   Direction = "outward"
	DirectionImportant Direction = "importantDocuments"
)

// Directions lists every valid direction in display order.
var Directions = []Direction{DirectionInward, DirectionOutward, DirectionImportant}

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	switch d {
	case DirectionInward, DirectionOutward, DirectionImportant:
		return true
	}
	return false
}

// Label returns the human-readable name used in listings and exports.
func (d Direction) Label() string {
	switch d {
	case DirectionInward:
		return "Inward"
	case DirectionOutward:
		return "Outward"
	case DirectionImportant:
		return "Important Documents"
	}
	return string(d)
}

// Document is the metadata record of an archived paper document as served by the backend.
// DocumentDate is the logical date of the paper; UploadTimestamp is assigned once by the
// backend at ingestion and never changes.
type Document struct {
	ID              string    `json:"id"`
	CategoryID      string    `json:"categoryId"`
	OfficeID        string    `json:"officeId"`
	Direction       Direction `json:"direction"`
	Title           string    `json:"title"`
	ReferenceNumber *string   `json:"referenceNumber,omitempty"`
	DocumentDate    Time      `json:"documentDate"`
	UploadTimestamp Time      `json:"uploadTimestamp"`
	Filename        string    `json:"filename"`
	MimeType        string    `json:"mimeType"`
	FileSize        int64     `json:"fileSize"`
	BlobID          string    `json:"blobId"`
	Uploader        Principal `json:"uploader"`
}

// Reference returns the reference number or "" when the document has none.
func (d Document) Reference() string {
	if d.ReferenceNumber == nil {
		return ""
	}
	return *d.ReferenceNumber
}

// NewDocument is the payload of a single addDocument call.
type NewDocument struct {
	ID              string
	CategoryID      string
	OfficeID        string
	Direction       Direction
	Title           string
	ReferenceNumber *string
	DocumentDate    Time
	Filename        string
	MimeType        string
	FileSize        int64
	BlobID          string
}

// DashboardMetrics aggregates document counts for the dashboard.
type DashboardMetrics struct {
	TotalDocuments     int64 `json:"totalDocuments"`
	InwardDocuments    int64 `json:"inwardDocuments"`
	OutwardDocuments   int64 `json:"outwardDocuments"`
	ImportantDocuments int64 `json:"importantDocuments"`
	UniqueUserCount    int64 `json:"uniqueUserCount"`
}

// DeriveMetrics counts documents the way the dashboard does when the backend
// cannot compute the aggregate itself.
func DeriveMetrics(docs []Document) DashboardMetrics {
	m := DashboardMetrics{TotalDocuments: int64(len(docs))}
	uploaders := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		uploaders[d.Uploader.String()] = struct{}{}
		switch d.Direction {
		case DirectionInward:
			m.InwardDocuments++
		case DirectionOutward:
			m.OutwardDocuments++
		case DirectionImportant:
			m.ImportantDocuments++
		}
	}
	m.UniqueUserCount = int64(len(uploaders))
	return m
}
