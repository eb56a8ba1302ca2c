package blob

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/orionintegra/orion-backend/pkg/errors"
)

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// ValidateImage rejects payloads that are not supported image types or that
// exceed maxBytes. It never reads the payload itself; callers pass the
// declared content type and size.
func ValidateImage(contentType string, sizeBytes, maxBytes int64) error {
	normalized := normalizeContentType(contentType)
	if _, ok := allowedImageTypes[normalized]; !ok {
		return apperrors.New(
			apperrors.CodeValidation,
			fmt.Sprintf("unsupported image type %q, allowed: jpeg, jpg, png, webp, gif", contentType),
		)
	}
	if sizeBytes <= 0 {
		return apperrors.New(apperrors.CodeValidation, "image payload is empty")
	}
	if sizeBytes > maxBytes {
		return apperrors.New(
			apperrors.CodeValidation,
			fmt.Sprintf("image size %d exceeds the %d byte limit", sizeBytes, maxBytes),
		)
	}
	return nil
}

func normalizeContentType(contentType string) string {
	normalized := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(normalized, ";"); idx >= 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	return normalized
}

// BuildObjectPath returns the store pathname for a product image:
// products/{productID}/{unix-millis}_{sanitized filename}.
func BuildObjectPath(productID, filename string, now time.Time) string {
	return fmt.Sprintf("products/%s/%d_%s", productID, now.UnixMilli(), SanitizeFilename(filename))
}

// SanitizeFilename replaces every rune outside [A-Za-z0-9._-] with an
// underscore so the resulting pathname is safe across stores and URLs.
func SanitizeFilename(name string) string {
	if name == "" {
		return "file"
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
