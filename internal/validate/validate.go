// Package validate checks uploaded files before any AI call is attempted.
package validate

import (
	"fmt"
	"strings"
)

// MaxUploadSize is the upload size cap in bytes.
const MaxUploadSize = 10 << 20 // 10 MB

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

const pdfType = "application/pdf"

// normalizeContentType lowercases the media type and strips parameters like
// "; charset=...".
func normalizeContentType(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// IsPDF reports whether the content type is application/pdf.
func IsPDF(contentType string) bool {
	return normalizeContentType(contentType) == pdfType
}

// ReportUpload checks a report upload: JPEG, PNG, WebP or PDF, at most 10 MB.
func ReportUpload(contentType string, size int64) error {
	ct := normalizeContentType(contentType)
	if !imageTypes[ct] && ct != pdfType {
		return fmt.Errorf("unsupported file type %q: expected JPEG, PNG, WebP or PDF", contentType)
	}
	return checkSize(size)
}

// FaceUpload checks a face photo upload: JPEG, PNG or WebP, at most 10 MB.
func FaceUpload(contentType string, size int64) error {
	ct := normalizeContentType(contentType)
	if !imageTypes[ct] {
		return fmt.Errorf("unsupported file type %q: expected JPEG, PNG or WebP", contentType)
	}
	return checkSize(size)
}

func checkSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("file is empty")
	}
	if size > MaxUploadSize {
		return fmt.Errorf("file exceeds the %d MB size limit", MaxUploadSize>>20)
	}
	return nil
}
