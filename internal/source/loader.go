package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/image-ocr-batch/internal/common"
	"github.com/joseph-ayodele/image-ocr-batch/internal/preprocess"
)

// Loader resolves a source identifier to raw image bytes.
type Loader interface {
	Load(ctx context.Context, src string) (preprocess.RawImage, error)
}

// FetchLoader reads local paths from disk and fetches http(s) URLs.
type FetchLoader struct {
	client *resty.Client
	logger *slog.Logger
}

// LoaderOptions configures the HTTP side of a FetchLoader.
type LoaderOptions struct {
	Timeout time.Duration
	// Retries is 0 by default: a failed fetch is skipped, not retried.
	Retries   int
	UserAgent string
}

// NewLoader builds a FetchLoader.
func NewLoader(opts LoaderOptions, logger *slog.Logger) *FetchLoader {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(retryCondition)
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	return &FetchLoader{client: client, logger: logger}
}

func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// IsURL reports whether src is an http or https URL.
func IsURL(src string) bool {
	u, err := url.Parse(strings.TrimSpace(src))
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// Load returns the bytes behind src. Any failure wraps common.ErrSourceFetch.
func (l *FetchLoader) Load(ctx context.Context, src string) (preprocess.RawImage, error) {
	if IsURL(src) {
		return l.fetch(ctx, src)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return preprocess.RawImage{}, fmt.Errorf("%w: %w", common.ErrSourceFetch, err)
	}
	return preprocess.RawImage{Data: data, Source: src}, nil
}

func (l *FetchLoader) fetch(ctx context.Context, src string) (preprocess.RawImage, error) {
	reqID := uuid.New().String()
	start := time.Now()

	l.logger.Debug("source.http.request", "req_id", reqID, "url", src)
	resp, err := l.client.R().SetContext(ctx).Get(src)
	if err != nil {
		l.logger.Warn("source.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return preprocess.RawImage{}, fmt.Errorf("%w: %w", common.ErrSourceFetch, err)
	}

	body := resp.Body()
	l.logger.Debug("source.http.response",
		"req_id", reqID,
		"status", resp.StatusCode(),
		"bytes", len(body),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode() != http.StatusOK {
		return preprocess.RawImage{}, fmt.Errorf("%w: %s returned status %d", common.ErrSourceFetch, src, resp.StatusCode())
	}
	return preprocess.RawImage{Data: body, Source: src}, nil
}
