package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func writeTempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bill.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"9876543210", "919876543210", false},
		{"+91 98765 43210", "919876543210", false},
		{"0091-98765-43210", "919876543210", false},
		{"98765", "", true},
		{"", "", true},
		{"abc", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPhone) {
				t.Errorf("NormalizePhone(%q): expected ErrInvalidPhone, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestUploadMedia(t *testing.T) {
	var gotPath, gotProduct, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotProduct = r.FormValue("messaging_product")
		gotType = r.FormValue("type")
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": "media-42"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token", "phone-1", zerolog.Nop())
	id, err := c.UploadMedia(context.Background(), writeTempPDF(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "media-42" {
		t.Errorf("expected media-42, got %q", id)
	}
	if gotPath != "/phone-1/media" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotProduct != "whatsapp" || gotType != "application/pdf" {
		t.Errorf("unexpected form fields: %q %q", gotProduct, gotType)
	}
}

func TestUploadMedia_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad token"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token", "phone-1", zerolog.Nop())
	_, err := c.UploadMedia(context.Background(), writeTempPDF(t))

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Body, "bad token") {
		t.Errorf("provider payload not preserved: %q", apiErr.Body)
	}
}

func TestSendDocument(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody messageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-token", "phone-1", zerolog.Nop())
	err := c.SendDocument(context.Background(), "919876543210", "media-42", "bill.pdf", "Your bill")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/phone-1/messages" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotBody.MessagingProduct != "whatsapp" || gotBody.Type != "document" {
		t.Errorf("unexpected envelope: %+v", gotBody)
	}
	if gotBody.To != "919876543210" || gotBody.Document.ID != "media-42" {
		t.Errorf("unexpected recipient/media: %+v", gotBody)
	}
	if gotBody.Document.Filename != "bill.pdf" {
		t.Errorf("unexpected filename: %q", gotBody.Document.Filename)
	}
}

func TestSendDocument_APIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"recipient not on whatsapp"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token", "phone-1", zerolog.Nop())
	err := c.SendDocument(context.Background(), "919876543210", "media-42", "bill.pdf", "")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !strings.Contains(apiErr.Body, "recipient not on whatsapp") {
		t.Errorf("provider payload not preserved: %q", apiErr.Body)
	}
}
