package analyzer

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cv-app-yz/cv-app/internal/model"
)

func testRequest() *Request {
	return &Request{
		Filename:    "cv.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4 fake"),
		Location:    "Ankara",
		RequestID:   "attempt-1",
	}
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestAnalyzeSendsMultipartUpload(t *testing.T) {
	type captured struct {
		path, city, filename, partType, requestID, accept, userAgent string
		data                                                         []byte
		hasCity                                                      bool
	}

	tests := []struct {
		name     string
		mode     Mode
		location string
		wantPath string
		wantCity bool
	}{
		{name: "optimize", mode: ModeOptimize, location: "Ankara", wantPath: "/api/v1/optimize", wantCity: true},
		{name: "analyze and match", mode: ModeAnalyzeAndMatch, location: "Izmir", wantPath: "/api/v1/analyze-and-match", wantCity: true},
		{name: "blank location is omitted", mode: ModeAnalyzeAndMatch, location: "  ", wantPath: "/api/v1/analyze-and-match", wantCity: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got captured
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				got.path = r.URL.Path
				got.requestID = r.Header.Get("X-Request-ID")
				got.accept = r.Header.Get("Accept")
				got.userAgent = r.Header.Get("User-Agent")

				if err := r.ParseMultipartForm(1 << 20); err != nil {
					t.Errorf("parse multipart: %v", err)
					return
				}
				_, got.hasCity = r.MultipartForm.Value[LocationField]
				got.city = r.FormValue(LocationField)

				file, header, err := r.FormFile(FileField)
				if err != nil {
					t.Errorf("form file: %v", err)
					return
				}
				defer file.Close()
				got.filename = header.Filename
				got.partType = header.Header.Get("Content-Type")
				got.data, _ = io.ReadAll(file)

				jsonHandler(http.StatusOK, `{"ai_feedback":"ok"}`)(w, r)
			}))
			defer srv.Close()

			req := testRequest()
			req.Location = tt.location

			client := New(zap.NewNop(), srv.URL+"/", time.Second)
			raw, err := client.Analyze(context.Background(), tt.mode, req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if raw["ai_feedback"] != "ok" {
				t.Fatalf("unexpected body: %#v", raw)
			}

			if got.path != tt.wantPath {
				t.Fatalf("expected path %s, got %s", tt.wantPath, got.path)
			}
			if got.hasCity != tt.wantCity {
				t.Fatalf("expected city present=%v, got %v", tt.wantCity, got.hasCity)
			}
			if tt.wantCity && got.city != tt.location {
				t.Fatalf("expected city %q, got %q", tt.location, got.city)
			}
			if got.filename != "cv.pdf" || got.partType != "application/pdf" {
				t.Fatalf("unexpected file part: %s (%s)", got.filename, got.partType)
			}
			if !bytes.Equal(got.data, req.Data) {
				t.Fatalf("file content mismatch")
			}
			if got.requestID != "attempt-1" {
				t.Fatalf("expected request id header, got %q", got.requestID)
			}
			if got.accept != "application/json" || got.userAgent != userAgent {
				t.Fatalf("unexpected headers: accept=%q ua=%q", got.accept, got.userAgent)
			}
		})
	}
}

func TestAnalyzeDecodesGzipBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "gzip" {
			t.Errorf("expected gzip accept-encoding, got %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Type", "application/json")
		gz := gzip.NewWriter(w)
		_, _ = io.WriteString(gz, `{"ai_feedback":"compressed","job_matches":[]}`)
		_ = gz.Close()
	}))
	defer srv.Close()

	raw, err := New(zap.NewNop(), srv.URL, time.Second).Analyze(context.Background(), ModeOptimize, testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw["ai_feedback"] != "compressed" {
		t.Fatalf("unexpected body: %#v", raw)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name:    "service detail",
			handler: jsonHandler(http.StatusInternalServerError, `{"detail":"file too large"}`),
			check: func(t *testing.T, err error) {
				var svcErr *model.ServiceError
				if !errors.As(err, &svcErr) {
					t.Fatalf("expected service error, got %T", err)
				}
				if svcErr.StatusCode != http.StatusInternalServerError || svcErr.Detail != "file too large" {
					t.Fatalf("unexpected service error: %+v", svcErr)
				}
			},
		},
		{
			name:    "validation detail list",
			handler: jsonHandler(http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","file"],"msg":"Field required"},{"msg":"Bad city"}]}`),
			check: func(t *testing.T, err error) {
				var svcErr *model.ServiceError
				if !errors.As(err, &svcErr) || svcErr.Detail != "Field required; Bad city" {
					t.Fatalf("unexpected error: %v", err)
				}
			},
		},
		{
			name:    "message field",
			handler: jsonHandler(http.StatusBadRequest, `{"message":"Only PDF files are accepted"}`),
			check: func(t *testing.T, err error) {
				var svcErr *model.ServiceError
				if !errors.As(err, &svcErr) || svcErr.Detail != "Only PDF files are accepted" {
					t.Fatalf("unexpected error: %v", err)
				}
			},
		},
		{
			name:    "status without body",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			check: func(t *testing.T, err error) {
				var svcErr *model.ServiceError
				if !errors.As(err, &svcErr) || svcErr.Detail != "" {
					t.Fatalf("unexpected error: %v", err)
				}
				if err.Error() != "HTTP 502" {
					t.Fatalf("unexpected message %q", err.Error())
				}
			},
		},
		{
			name: "html error page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "<html>oops</html>", http.StatusServiceUnavailable)
			},
			check: func(t *testing.T, err error) {
				var svcErr *model.ServiceError
				if !errors.As(err, &svcErr) || svcErr.Detail != "" || svcErr.StatusCode != http.StatusServiceUnavailable {
					t.Fatalf("unexpected error: %v", err)
				}
			},
		},
		{
			name:    "success with invalid json",
			handler: jsonHandler(http.StatusOK, `{"ai_feedback":`),
			check: func(t *testing.T, err error) {
				var decErr *model.DecodeError
				if !errors.As(err, &decErr) || decErr.StatusCode != http.StatusOK {
					t.Fatalf("expected decode error, got %v", err)
				}
			},
		},
		{
			name:    "success with json array",
			handler: jsonHandler(http.StatusOK, `[1,2]`),
			check: func(t *testing.T, err error) {
				var decErr *model.DecodeError
				if !errors.As(err, &decErr) {
					t.Fatalf("expected decode error, got %v", err)
				}
			},
		},
		{
			name:    "success with null",
			handler: jsonHandler(http.StatusOK, `null`),
			check: func(t *testing.T, err error) {
				var decErr *model.DecodeError
				if !errors.As(err, &decErr) || !strings.Contains(err.Error(), "not a JSON object") {
					t.Fatalf("expected decode error, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := New(zap.NewNop(), srv.URL, time.Second).Analyze(context.Background(), ModeAnalyzeAndMatch, testRequest())
			if err == nil {
				t.Fatalf("expected error")
			}
			tt.check(t, err)
		})
	}
}

func TestAnalyzeTransportErrors(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := New(zap.NewNop(), url, time.Second).Analyze(context.Background(), ModeOptimize, testRequest())
		var trErr *model.TransportError
		if !errors.As(err, &trErr) {
			t.Fatalf("expected transport error, got %T: %v", err, err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer srv.Close()
		defer close(release)

		_, err := New(zap.NewNop(), srv.URL, 50*time.Millisecond).Analyze(context.Background(), ModeOptimize, testRequest())
		var trErr *model.TransportError
		if !errors.As(err, &trErr) {
			t.Fatalf("expected transport error, got %T: %v", err, err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := httptest.NewServer(jsonHandler(http.StatusOK, `{}`))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New(zap.NewNop(), srv.URL, time.Second).Analyze(ctx, ModeOptimize, testRequest())
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled in chain, got %v", err)
		}
	})
}

func TestModePath(t *testing.T) {
	if _, err := Mode("rewrite").Path(); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if Mode("").Valid() {
		t.Fatalf("empty mode must be invalid")
	}
}
