package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cv-app-yz/cv-app/internal/logger"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000"
	DefaultTimeout = 2 * time.Minute
	userAgent      = "cv-app-yz/cv-app"

	optimizePath        = "/api/v1/optimize"
	analyzeAndMatchPath = "/api/v1/analyze-and-match"

	// FileField and LocationField are the multipart field names the service reads.
	FileField     = "file"
	LocationField = "city"
)

// Mode selects the service endpoint.
type Mode string

const (
	ModeOptimize        Mode = "optimize"
	ModeAnalyzeAndMatch Mode = "match"
)

// Path returns the endpoint path for the mode.
func (m Mode) Path() (string, error) {
	switch m {
	case ModeOptimize:
		return optimizePath, nil
	case ModeAnalyzeAndMatch:
		return analyzeAndMatchPath, nil
	default:
		return "", fmt.Errorf("unknown mode %q", string(m))
	}
}

func (m Mode) Valid() bool {
	_, err := m.Path()
	return err == nil
}

// Request is one document upload.
type Request struct {
	Filename    string
	ContentType string
	Data        []byte
	// Location is sent as the city field. Empty means the service default.
	Location string
	// RequestID is echoed in X-Request-ID.
	RequestID string
}

type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string
}

func New(logger *zap.Logger, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

// Analyze uploads the document to the endpoint of mode and returns the decoded JSON object.
// Failures are *model.TransportError, *model.ServiceError or *model.DecodeError.
func (c *Client) Analyze(ctx context.Context, mode Mode, req *Request) (map[string]any, error) {
	path, err := mode.Path()
	if err != nil {
		return nil, err
	}

	endpoint := c.BaseURL + path
	log := logger.WithSubmissionFields(c.logger, string(mode), endpoint)

	fields := map[string]string{}
	if location := strings.TrimSpace(req.Location); location != "" {
		fields[LocationField] = location
	}

	resp, err := c.postMultipart(ctx, log, endpoint, req, fields)
	if err != nil {
		return nil, err
	}

	return c.parseResponse(log, resp)
}
