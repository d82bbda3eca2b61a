package search

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/shpitdev/founder-scout/internal/httputil"
	"github.com/shpitdev/founder-scout/internal/util"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Config tunes the retrying fetcher.
type Config struct {
	// ProxyURL is the search proxy endpoint. The query is passed as the q parameter.
	ProxyURL string

	UserAgent string

	// MaxAttempts bounds total tries per Fetch call (initial attempt included).
	MaxAttempts int

	// Backoff between failed attempts: min(Initial * Factor^(attempt-1), Max).
	BackoffInitial time.Duration
	BackoffFactor  float64
	BackoffMax     time.Duration

	// AttemptTimeout bounds each outbound request. The retry loop itself has no
	// overall deadline beyond the caller's context.
	AttemptTimeout time.Duration

	// RateLimitRPS is a global limit on outbound search requests. <=0 disables.
	RateLimitRPS float64
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = 2 * time.Second
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = 1.5
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 15 * time.Second
	}
	return c
}

// Client fetches search results through the proxy with bounded retries.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewClient constructs a fetcher for the configured proxy endpoint.
//
// TLS verification is disabled on the transport: the proxy terminates TLS and
// presents its own certificate for tunneled hosts.
func NewClient(cfg Config, logger *log.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	if _, err := url.Parse(cfg.ProxyURL); err != nil || cfg.ProxyURL == "" {
		return nil, fmt.Errorf("search proxy URL is required")
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1)
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Fetch performs the search for query, retrying transient failures with
// exponential backoff. After MaxAttempts failures the last error is returned;
// callers treat that as "no data", never as a fatal condition.
func (c *Client) Fetch(ctx context.Context, query string) (*Payload, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		payload, err := c.fetchOnce(ctx, query)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		if c.logger != nil {
			c.logger.Printf("search fetch failed: attempt=%d/%d error=%q", attempt, c.cfg.MaxAttempts, util.RedactSecrets(err.Error()))
		}

		if attempt == c.cfg.MaxAttempts {
			break
		}
		sleep := backoffDelay(c.cfg.BackoffInitial, c.cfg.BackoffFactor, c.cfg.BackoffMax, attempt)
		t := time.NewTimer(sleep)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("search fetch: %d attempts exhausted: %w", c.cfg.MaxAttempts, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, query string) (*Payload, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	u, err := url.Parse(c.cfg.ProxyURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, httputil.NewHTTPError("search", resp, body)
	}
	return ParsePayload(body)
}

// backoffDelay computes min(initial * factor^(attempt-1), max) for attempt >= 1.
func backoffDelay(initial time.Duration, factor float64, max time.Duration, attempt int) time.Duration {
	d := time.Duration(float64(initial) * math.Pow(factor, float64(attempt-1)))
	if d > max {
		return max
	}
	return d
}
