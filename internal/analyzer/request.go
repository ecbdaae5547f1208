package analyzer

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"go.uber.org/zap"

	"github.com/cv-app-yz/cv-app/internal/model"
	"github.com/cv-app-yz/cv-app/internal/utils"
)

const (
	accept          = "application/json"
	contentEncoding = "gzip"
	pdfContentType  = "application/pdf"
	// maxLoggedBody bounds response previews in debug logs.
	maxLoggedBody = 300
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (c *Client) postMultipart(ctx context.Context, log *zap.Logger, url string, doc *Request, data map[string]string) (*http.Response, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	contentType := doc.ContentType
	if contentType == "" {
		contentType = pdfContentType
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FileField, quoteEscaper.Replace(doc.Filename)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, fmt.Errorf("write file part: %w", err)
	}

	for key, val := range data {
		field, err := w.CreateFormField(key)
		if err != nil {
			return nil, err
		}

		_, err = io.Copy(field, strings.NewReader(val))
		if err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &b)
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if doc.RequestID != "" {
		req.Header.Set("X-Request-ID", doc.RequestID)
	}

	return c.request(log, req)
}

func (c *Client) request(log *zap.Logger, req *http.Request) (*http.Response, error) {
	log.Debug("make request", zap.String("url", req.URL.String()), zap.Int64("size", req.ContentLength))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &model.TransportError{Op: "send request", Err: err}
	}

	log.Debug("got response", zap.String("status", resp.Status))

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

func (c *Client) parseResponse(log *zap.Logger, resp *http.Response) (map[string]any, error) {
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, readError(resp.StatusCode, err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, readError(resp.StatusCode, err)
	}

	if !model.IsSuccess(resp.StatusCode) {
		log.Debug("service returned an error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", utils.TruncateForLog(string(data), maxLoggedBody)),
		)
		return nil, &model.ServiceError{StatusCode: resp.StatusCode, Detail: errorDetail(data)}
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &model.DecodeError{StatusCode: resp.StatusCode, Err: err}
	}
	if raw == nil {
		return nil, &model.DecodeError{StatusCode: resp.StatusCode, Err: errors.New("body is not a JSON object")}
	}

	return raw, nil
}

// readError classifies a body that could not be read. On a non-2xx status the status code
// is the more useful signal, so the read failure is dropped.
func readError(status int, err error) error {
	if !model.IsSuccess(status) {
		return &model.ServiceError{StatusCode: status}
	}
	return &model.TransportError{Op: "read response", Err: err}
}

// errorDetail extracts a human readable message from an error body.
// FastAPI sends {"detail": "..."} or, for request validation, {"detail": [{"msg": "..."}]}.
func errorDetail(data []byte) string {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}

	for _, key := range []string{"detail", "message", "error"} {
		switch v := body[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case []any:
			var msgs []string
			for _, item := range v {
				entry, ok := item.(map[string]any)
				if !ok {
					continue
				}
				if msg, ok := entry["msg"].(string); ok && strings.TrimSpace(msg) != "" {
					msgs = append(msgs, strings.TrimSpace(msg))
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}

	return ""
}
