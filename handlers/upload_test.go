package handlers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"food-marketplace-api/models"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 2, 0, 0, 0}

func (e *testEnv) upload(t *testing.T, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "photo.bin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(body); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token(t, e.owner))
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func TestUploadMenuItemImage(t *testing.T) {
	e := newEnv(t)
	path := fmt.Sprintf("/api/restaurant/menu/%d/image", e.item.ID)

	w := e.upload(t, path, pngBytes)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var item models.MenuItem
	if err := e.db.First(&item, e.item.ID).Error; err != nil {
		t.Fatal(err)
	}
	if want := fmt.Sprintf("/uploads/menu-items/%d.png", e.item.ID); item.ImageURL != want {
		t.Fatalf("image_url = %q, want %q", item.ImageURL, want)
	}

	w = e.upload(t, path, []byte("definitely not an image"))
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("text upload status = %d: %s", w.Code, w.Body)
	}
}
