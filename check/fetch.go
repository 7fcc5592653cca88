package check

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"csscompat/config"
)

// ErrTooLarge is returned for resources exceeding configured size limit.
var ErrTooLarge = errors.New("resource exceeds size limit")

// Fetcher downloads documents and stylesheets.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	log       *zap.Logger
}

func NewFetcher(cfg *config.FetchConfig, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
		log:       log.Named("fetch"),
	}
}

// Fetch returns body of successful GET request and its content type.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/css,text/html,application/xhtml+xml;q=0.9,*/*;q=0.1")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%s: HTTP %s", url, resp.Status)
	}
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return nil, "", fmt.Errorf("%s (%d bytes): %w", url, resp.ContentLength, ErrTooLarge)
	}

	data, err := readLimited(resp.Body, f.maxBytes)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", url, err)
	}

	contentType := resp.Header.Get("Content-Type")
	f.log.Debug("Fetched",
		zap.String("url", url),
		zap.String("content-type", contentType),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))
	return data, contentType, nil
}
