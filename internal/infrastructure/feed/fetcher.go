// Package feed retrieves raw feed documents over HTTP.
package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Fetcher errors
var (
	ErrFetchFailed      = errors.New("feed: fetch failed")
	ErrUnexpectedStatus = errors.New("feed: unexpected response status")
	ErrEmptyBody        = errors.New("feed: empty response body")
	ErrBodyTooLarge     = errors.New("feed: response body exceeds limit")
)

// FetchError is returned once every attempt for a URL failed
type FetchError struct {
	URL       string
	Attempts  int
	LastCause error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	return fmt.Sprintf("feed: fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.LastCause)
}

// Unwrap exposes both ErrFetchFailed and the last cause to errors.Is / errors.As
func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailed, e.LastCause}
}

// Document is a raw feed document together with the request that produced it
type Document struct {
	URL         string
	Headers     map[string]string
	Body        []byte
	ContentType string
	StatusCode  int
}

// Config holds fetcher configuration
type Config struct {
	Attempts     int
	BackoffUnit  time.Duration
	Timeout      time.Duration
	MaxBodyBytes int64
	RateLimit    float64 // requests per second shared by all fetches; 0 disables
	RateBurst    int
	UserAgent    string
}

// DefaultConfig returns the default fetcher configuration
func DefaultConfig() Config {
	return Config{
		Attempts:     3,
		BackoffUnit:  time.Second,
		Timeout:      60 * time.Second,
		MaxBodyBytes: 100 * 1024 * 1024,
		RateBurst:    1,
		UserAgent:    "dropship-feed-fetcher/1.0",
	}
}

// Recorder observes fetch outcomes
type Recorder interface {
	RecordFetchAttempt(outcome string)
	RecordFetch(success bool, duration time.Duration, bytes int)
}

type nopRecorder struct{}

func (nopRecorder) RecordFetchAttempt(string)            {}
func (nopRecorder) RecordFetch(bool, time.Duration, int) {}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(f *Fetcher) {
		if r != nil {
			f.recorder = r
		}
	}
}

// Fetcher performs HTTP GET retrieval of feed documents with bounded retries
// and linear backoff. It keeps no state between calls other than the HTTP
// client and the shared rate limiter.
type Fetcher struct {
	config   Config
	client   *http.Client
	limiter  *rate.Limiter
	recorder Recorder
	logger   *zap.Logger
}

// NewFetcher creates a new fetcher; zero config fields take their defaults
func NewFetcher(config Config, logger *zap.Logger, opts ...Option) *Fetcher {
	defaults := DefaultConfig()
	if config.Attempts <= 0 {
		config.Attempts = defaults.Attempts
	}
	if config.BackoffUnit < 0 {
		config.BackoffUnit = defaults.BackoffUnit
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if config.RateBurst <= 0 {
		config.RateBurst = defaults.RateBurst
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &Fetcher{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		recorder: nopRecorder{},
		logger:   logger,
	}
	if config.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the document at url, passing headers verbatim (nil is valid).
// Transport errors, non-2xx responses and empty bodies are retried; attempt n
// is followed by a wait of BackoffUnit*n. The wait is interrupted by ctx.
func (f *Fetcher) Fetch(ctx context.Context, url string, headers map[string]string) (*Document, error) {
	start := time.Now()
	log := f.logger.With(zap.String("source_url", url))

	var lastErr error
	attempt := 1
	for ; attempt <= f.config.Attempts; attempt++ {
		doc, err := f.fetchOnce(ctx, url, headers)
		if err == nil {
			f.recorder.RecordFetchAttempt("success")
			f.recorder.RecordFetch(true, time.Since(start), len(doc.Body))
			log.Debug("Feed fetched",
				zap.Int("attempt", attempt),
				zap.Int("bytes", len(doc.Body)),
			)
			return doc, nil
		}
		lastErr = err
		f.recorder.RecordFetchAttempt(attemptOutcome(err))

		if ctx.Err() != nil || errors.Is(err, ErrBodyTooLarge) {
			break
		}

		log.Warn("Feed fetch attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.config.Attempts),
			zap.Error(err),
		)

		if attempt == f.config.Attempts {
			break
		}
		if err := sleep(ctx, f.config.BackoffUnit*time.Duration(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	f.recorder.RecordFetch(false, time.Since(start), 0)
	log.Error("Feed fetch failed", zap.Int("attempts", attempt), zap.Error(lastErr))
	return nil, &FetchError{URL: url, Attempts: attempt, LastCause: lastErr}
}

// fetchOnce performs a single GET request
func (f *Fetcher) fetchOnce(ctx context.Context, url string, headers map[string]string) (*Document, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.config.UserAgent != "" {
		req.Header.Set("User-Agent", f.config.UserAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	// Read one byte past the limit to detect oversized bodies
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > f.config.MaxBodyBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, f.config.MaxBodyBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}

	copied := make(map[string]string, len(headers))
	maps.Copy(copied, headers)
	return &Document{
		URL:         url,
		Headers:     copied,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func attemptOutcome(err error) string {
	switch {
	case errors.Is(err, ErrUnexpectedStatus):
		return "bad_status"
	case errors.Is(err, ErrEmptyBody):
		return "empty_body"
	case errors.Is(err, ErrBodyTooLarge):
		return "too_large"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "transport_error"
	}
}
