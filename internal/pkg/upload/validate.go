package upload

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

// MaxFileSize is the upload ceiling for a single product photo.
const MaxFileSize = 10 * 1024 * 1024 // 10 MiB

var (
	ErrMissingImage        = errors.New("no image file provided")
	ErrMissingStyle        = errors.New("no style specified")
	ErrFileTooLarge        = errors.New("image exceeds the maximum size of 10 MiB")
	ErrUnsupportedFileType = errors.New("only JPEG, PNG and WEBP images are supported")
)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

var allowedMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ValidateRequest checks the transform request preconditions. Pure function
// of its inputs, no side effects. Unknown style identifiers are allowed; the
// pipeline falls back to a generic prompt for them.
func ValidateRequest(imageSize int64, filename string, head []byte, style string) error {
	if imageSize <= 0 || len(head) == 0 {
		return ErrMissingImage
	}
	if strings.TrimSpace(style) == "" {
		return ErrMissingStyle
	}
	if imageSize > MaxFileSize {
		return ErrFileTooLarge
	}
	if _, err := ValidateImageBySniff(filename, head); err != nil {
		return err
	}
	return nil
}

// ValidateImageBySniff checks the provided filename (extension) and the first
// bytes (head) against the supported image types. Returns the detected mime
// or an error.
func ValidateImageBySniff(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" && !allowedExt[ext] {
		return "", ErrUnsupportedFileType
	}

	detected := http.DetectContentType(head)

	// Block scriptable types regardless of extension
	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") {
		return "", ErrUnsupportedFileType
	}
	if strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") || detected == "image/svg+xml" {
		return "", ErrUnsupportedFileType
	}

	// Some encoders produce content Go sniffs as octet-stream; trust the
	// whitelisted extension in that case.
	if detected == "application/octet-stream" && allowedExt[ext] {
		return detected, nil
	}

	if allowedMime[detected] {
		return detected, nil
	}

	return "", ErrUnsupportedFileType
}
