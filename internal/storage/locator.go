package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownLocator is returned for locators that are neither data nor s3 URIs.
	ErrUnknownLocator = errors.New("unsupported content locator")
	// ErrMalformedLocator is returned for a recognised scheme with an invalid body.
	ErrMalformedLocator = errors.New("malformed content locator")
)

const (
	dataScheme = "data:"
	s3Scheme   = "s3://"
)

// DataURI encodes content inline as data:<mime>;base64,<payload>.
func DataURI(mimeType string, content []byte) string {
	var b strings.Builder
	b.Grow(len(dataScheme) + len(mimeType) + len(";base64,") + base64.StdEncoding.EncodedLen(len(content)))
	b.WriteString(dataScheme)
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(content))
	return b.String()
}

// IsDataURI reports whether locator carries its content inline.
func IsDataURI(locator string) bool {
	return strings.HasPrefix(locator, dataScheme)
}

// DecodeDataURI returns the media type and content of a base64 data URI.
func DecodeDataURI(locator string) (string, []byte, error) {
	if !IsDataURI(locator) {
		return "", nil, ErrUnknownLocator
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(locator, dataScheme), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("%w: expected base64 data URI", ErrMalformedLocator)
	}
	content, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedLocator, err)
	}
	mimeType := strings.TrimSuffix(meta, ";base64")
	if mimeType == "" {
		mimeType = "text/plain"
	}
	return mimeType, content, nil
}

// S3Locator renders s3://<bucket>/<key>.
func S3Locator(bucket, key string) string {
	return s3Scheme + bucket + "/" + key
}

// ParseS3Locator splits an s3:// locator into bucket and key.
func ParseS3Locator(locator string) (bucket, key string, err error) {
	if !strings.HasPrefix(locator, s3Scheme) {
		return "", "", ErrUnknownLocator
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(locator, s3Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedLocator, locator)
	}
	return bucket, key, nil
}
