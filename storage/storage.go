package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrTooLarge        = errors.New("image too large")
	ErrUnsupportedType = errors.New("unsupported image type")
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// ImageStore persists uploaded images and returns their public URL.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// Image is a validated upload ready to store.
type Image struct {
	ContentType string
	Extension   string
	Body        []byte
}

// DetectImage sniffs the content and enforces the size limit.
func DetectImage(body []byte, maxBytes int64) (*Image, error) {
	if maxBytes > 0 && int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds the %s limit", ErrTooLarge,
			humanize.Bytes(uint64(len(body))), humanize.Bytes(uint64(maxBytes)))
	}
	mt := mimetype.Detect(body)
	for _, allowed := range allowedImageTypes {
		if mt.Is(allowed) {
			return &Image{ContentType: allowed, Extension: mt.Extension(), Body: body}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
}

// ObjectKey builds a stable key such as "menu-items/12.png".
func ObjectKey(prefix string, id uint, ext string) string {
	return fmt.Sprintf("%s/%d%s", strings.Trim(prefix, "/"), id, ext)
}
