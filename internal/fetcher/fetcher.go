// Package fetcher retrieves raw product page markup over HTTP.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Kind classifies a fetch failure.
type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindNetwork    Kind = "network"
	KindHTTPStatus Kind = "http_status"
)

// FetchError is returned for any failed page retrieval. A non-2xx response
// is an error, never a partial success.
type FetchError struct {
	Kind       Kind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Sites reject bare scripted requests, so the fetcher presents itself as a
// desktop browser.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// maxBodyBytes caps the response body so a hostile page cannot exhaust memory.
const maxBodyBytes = 1 << 20 // 1 MiB

type Config struct {
	Timeout    time.Duration
	RatePerSec float64
	UserAgent  string
}

// Fetcher issues deadline-bounded GET requests, throttled by a shared rate
// limiter so batch sweeps stay polite.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	userAgent string
}

func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}
	return &Fetcher{
		client:    &http.Client{},
		limiter:   limiter,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
	}
}

// Fetch retrieves the markup at rawURL. The hard deadline always wins over a
// hung socket: the request context is cancelled once the timeout elapses,
// and caller-level cancellation is honoured as well.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", &FetchError{Kind: KindTimeout, URL: rawURL, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{Kind: KindNetwork, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,tr;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{Kind: classify(err), URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &FetchError{Kind: KindHTTPStatus, URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &FetchError{Kind: classify(err), URL: rawURL, Err: err}
	}
	return string(body), nil
}

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
