package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// smallest valid PNG header plus IHDR chunk start
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 2, 0, 0, 0}

func TestDetectImage(t *testing.T) {
	img, err := DetectImage(pngBytes, 1024)
	if err != nil {
		t.Fatalf("DetectImage: %v", err)
	}
	if img.ContentType != "image/png" || img.Extension != ".png" {
		t.Fatalf("got %s %s", img.ContentType, img.Extension)
	}

	if _, err := DetectImage([]byte("plain text, not an image"), 1024); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("text err = %v, want ErrUnsupportedType", err)
	}
	if _, err := DetectImage(pngBytes, 4); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("size err = %v, want ErrTooLarge", err)
	}
}

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir, "/uploads/")
	url, err := s.Put(context.Background(), ObjectKey("menu-items", 12, ".png"), "image/png", pngBytes)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "/uploads/menu-items/12.png" {
		t.Fatalf("url = %s", url)
	}
	if _, err := os.Stat(filepath.Join(dir, "menu-items", "12.png")); err != nil {
		t.Fatalf("file not written: %v", err)
	}
}
