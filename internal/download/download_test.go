package download

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/cv-app-yz/cv-app/internal/model"
)

func TestFetchDataURI(t *testing.T) {
	pdf := []byte("%PDF-1.4 optimized")

	tests := []struct {
		name string
		uri  string
		want string
	}{
		{name: "base64", uri: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf), want: string(pdf)},
		{name: "upper case scheme", uri: "DATA:application/pdf;BASE64," + base64.StdEncoding.EncodeToString(pdf), want: string(pdf)},
		{name: "percent encoded", uri: "data:text/plain,hello%20cv", want: "hello cv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Fetch(context.Background(), nil, tt.uri)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFetchRejects(t *testing.T) {
	for name, uri := range map[string]string{
		"empty":        "  ",
		"no comma":     "data:application/pdf;base64",
		"bad base64":   "data:application/pdf;base64,***",
		"other scheme": "ftp://x/cv.pdf",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Fetch(context.Background(), nil, uri); err == nil {
				t.Fatalf("expected error for %q", uri)
			}
		})
	}
}

func TestSaveFromHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/cv.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 remote"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "out")

	path, err := Save(context.Background(), srv.Client(), srv.URL+"/files/cv.pdf", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != DefaultFilename {
		t.Fatalf("unexpected file name %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "%PDF-1.4 remote" {
		t.Fatalf("unexpected content %q", data)
	}

	_, err = Save(context.Background(), srv.Client(), srv.URL+"/missing.pdf", dir)
	var svcErr *model.ServiceError
	if !errors.As(err, &svcErr) || svcErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 service error, got %v", err)
	}
}
