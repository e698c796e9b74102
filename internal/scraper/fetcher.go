package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"land-tracker/internal/config"
	"land-tracker/internal/models"
	"land-tracker/internal/ratelimit"
)

// ErrFetch marks a source that could not be fetched this run. The run
// treats it as "zero records from this source", not as a run-aborting
// condition.
var ErrFetch = errors.New("fetch failed")

// Fetcher retrieves listing search pages from the configured sources
type Fetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	retryDelay time.Duration
	limiter    *ratelimit.HostLimiter
	breaker    *CircuitBreaker
	headless   bool
}

// FetcherConfig holds fetcher tuning knobs
type FetcherConfig struct {
	UserAgent        string
	MaxRetries       int
	RetryDelay       time.Duration
	RequestDelay     time.Duration
	HeadlessFallback bool
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Printf("Warning: Failed to create cookie jar: %v", err)
		jar = nil
	}

	return &Fetcher{
		client: &http.Client{
			Jar: jar,
		},
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		limiter:    ratelimit.NewHostLimiter(cfg.RequestDelay, cfg.RequestDelay/2),
		breaker:    NewCircuitBreaker(3, 30*time.Minute),
		headless:   cfg.HeadlessFallback,
	}
}

// applyBrowserHeaders sets browser-like headers; the land platforms serve
// a degraded page to obvious non-browser clients
func (f *Fetcher) applyBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// FetchHTML retrieves one page with retry and per-host pacing. The context
// carries the per-source deadline; when it expires mid-retry the source is
// simply skipped for this run.
func (f *Fetcher) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	host := hostOf(pageURL)

	if !f.breaker.CanProceed(host) {
		return "", fmt.Errorf("%w: circuit breaker open for %s", ErrFetch, host)
	}

	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: delay * 2^(attempt-1), max 60s
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * f.retryDelay
			if backoff > 60*time.Second {
				backoff = 60 * time.Second
			}
			log.Printf("[Fetch] Retry attempt %d/%d for %s after %v", attempt, f.maxRetries, pageURL, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrFetch, ctx.Err())
			}
		}

		f.limiter.Wait(host)

		html, err := f.fetchOnce(ctx, pageURL)
		if err == nil {
			f.breaker.RecordSuccess(host)
			return html, nil
		}
		lastErr = err
		f.breaker.RecordFailure(host)

		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("%w: %s: %v", ErrFetch, pageURL, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	f.applyBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

// FetchSource fetches one configured source page and extracts its raw
// listing batch slice. A failed fetch returns ErrFetch and no records.
func (f *Fetcher) FetchSource(ctx context.Context, src config.Source) ([]models.RawListing, error) {
	log.Printf("[Fetch] Source %s: %s", src.ID, src.URL)

	html, err := f.FetchHTML(ctx, src.URL)
	if err != nil {
		return nil, err
	}

	listings := ExtractListings(src, html)
	log.Printf("[Fetch] Source %s: %d listings extracted", src.ID, len(listings))
	return listings, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
