package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultTranscribePath = "/transcribe"
	defaultConvertPath    = "/convert"
	defaultExecutePath    = "/execute"

	maxResponseBytes = 8 << 20
	maxErrorExcerpt  = 512
)

// Config controls the backend gateway endpoints.
type Config struct {
	BaseURL        string
	TranscribePath string
	ConvertPath    string
	ExecutePath    string
	Timeout        time.Duration
}

// Client talks to the transcription, conversion and execution endpoints of
// the query backend. Every call is a single request with no retries.
type Client struct {
	cfg     Config
	http    *http.Client
	maxBody int64
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.TranscribePath == "" {
		cfg.TranscribePath = defaultTranscribePath
	}
	if cfg.ConvertPath == "" {
		cfg.ConvertPath = defaultConvertPath
	}
	if cfg.ExecutePath == "" {
		cfg.ExecutePath = defaultExecutePath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		maxBody: maxResponseBytes,
		logger:  logger,
	}
}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend responded %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend responded %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

func (c *Client) endpoint(path string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(c.cfg.BaseURL), "/")
	if base == "" {
		return "", errors.New("backend base URL is not configured")
	}
	full, err := url.Parse(base + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid backend URL: %w", err)
	}
	return full.String(), nil
}

// post sends one request and returns the response body of a 2xx reply.
func (c *Client) post(ctx context.Context, op string, path string, contentType string, body io.Reader) ([]byte, error) {
	target, err := c.endpoint(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", requestID)

	logger := c.logger.With(zap.String("op", op), zap.String("request_id", requestID))
	started := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("backend request failed", zap.Error(err))
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	// One byte past the limit tells a full body from a cut one.
	payload, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		logger.Warn("backend response unreadable", zap.Error(err))
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}
	oversized := int64(len(payload)) > c.maxBody
	if oversized {
		payload = payload[:c.maxBody]
	}

	logger.Debug("backend responded",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(payload)),
		zap.Duration("elapsed", time.Since(started)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: excerpt(payload)}
	}
	if oversized {
		logger.Warn("backend response too large", zap.Int64("limit", c.maxBody))
		return nil, fmt.Errorf("%s response exceeds %d bytes", op, c.maxBody)
	}
	return payload, nil
}

// excerpt cuts long bodies on a rune boundary.
func excerpt(payload []byte) string {
	text := strings.TrimSpace(string(payload))
	if len(text) <= maxErrorExcerpt {
		return text
	}
	cut := maxErrorExcerpt
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
