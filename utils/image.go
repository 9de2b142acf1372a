package utils

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path"
	"path/filepath"

	// registered decoders for uploads
	_ "image/gif"
	_ "image/png"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

// ErrInvalidImage is returned when an upload does not decode as an image.
var ErrInvalidImage = errors.New("upload a valid image")

// SaveImage decodes an uploaded image, scales it down to fit maxPx on its
// longest side and stores it as JPEG under mediaDir/posts. It returns the
// media-relative path, e.g. "posts/<uuid>.jpg".
func SaveImage(r io.Reader, mediaDir string, maxPx uint) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if maxPx > 0 {
		img = resize.Thumbnail(maxPx, maxPx, img, resize.Lanczos3)
	}

	rel := path.Join("posts", uuid.NewString()+".jpg")
	dst := filepath.Join(mediaDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 90}); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("encode %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return rel, nil
}

// RemoveImage deletes a stored image; missing files are ignored.
func RemoveImage(mediaDir, rel string) {
	if rel == "" {
		return
	}
	if err := os.Remove(filepath.Join(mediaDir, filepath.FromSlash(rel))); err != nil && !os.IsNotExist(err) {
		Sugar.Warnf("remove image %s: %v", rel, err)
	}
}
