package imageprep

import (
	"bytes"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
)

// Prepare decodes an uploaded product photo, scales it down to fit within
// size x size (never enlarging), and writes it as a PNG temp file for the
// provider call. The returned cleanup must run on every exit path so no
// temp file outlives its request.
func Prepare(data []byte, size int) (string, func(), error) {
	img, err := decode(data)
	if err != nil {
		return "", nil, fmt.Errorf("decode upload: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > size || bounds.Dy() > size {
		img = imaging.Fit(img, size, size, imaging.Lanczos)
	}

	path := filepath.Join(os.TempDir(), fmt.Sprintf("styleshot-upload-%s.png", uuid.New().String()))
	if err := imaging.Save(img, path); err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("write temp image: %w", err)
	}

	cleanup := func() {
		os.Remove(path)
	}
	return path, cleanup, nil
}

func decode(data []byte) (image.Image, error) {
	if http.DetectContentType(data) == "image/webp" {
		return webp.Decode(bytes.NewReader(data), &decoder.Options{})
	}
	return imaging.Decode(bytes.NewReader(data))
}
