package fetcher

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"

	"github.com/sells-group/formfill-cli/internal/resilience"
)

// Defaults for HTTPOptions.
const (
	DefaultUserAgent  = "Mozilla/5.0 (compatible; formfill-cli/1.0)"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRatePerSec = 2.0

	maxPageBytes = 8 << 20
)

// loginPaths mark a redirect to a sign-in page.
var loginPaths = []string{"/ServiceLogin", "/v3/signin", "/signin/"}

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RatePerSec float64
	// Backoff overrides the initial retry backoff. Zero uses the resilience default.
	Backoff time.Duration
}

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setLocked(min(a.currentRate*1.2, a.maxRate))
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setLocked(max(a.currentRate*0.5, a.minRate))
	zap.L().Warn("fetch: reducing rate after 429",
		zap.Float64("new_rate", float64(a.currentRate)),
	)
}

func (a *AdaptiveLimiter) setLocked(r rate.Limit) {
	a.currentRate = r
	a.limiter.SetLimit(r)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher implements Fetcher with per-host rate limiting and retries
// on transient failures.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions
	retry  resilience.RetryConfig

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = DefaultRatePerSec
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = opts.MaxRetries
	if opts.Backoff > 0 {
		retry.InitialBackoff = opts.Backoff
		retry.MaxBackoff = opts.Backoff * 8
	}
	retry.OnRetry = resilience.RetryLogger("forms", "fetch_page")

	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		retry:    retry,
		limiters: make(map[string]*AdaptiveLimiter),
	}
}

func (f *HTTPFetcher) limiterFor(host string) *AdaptiveLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		burst := max(int(f.opts.RatePerSec), 1)
		lim = NewAdaptiveLimiter(rate.Limit(f.opts.RatePerSec), burst)
		f.limiters[host] = lim
	}
	return lim
}

// FetchPage downloads rawURL and returns its body decoded to UTF-8.
// Sign-in redirects, permission pages and 401/403 responses yield
// ErrRestrictedForm. A closed form yields ErrFormClosed.
func (f *HTTPFetcher) FetchPage(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", eris.Errorf("fetch: invalid url %q", rawURL)
	}
	lim := f.limiterFor(u.Host)

	start := time.Now()
	page, err := resilience.DoVal(ctx, f.retry, func(ctx context.Context) (string, error) {
		if err := lim.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "fetch: rate limiter wait")
		}
		return f.fetchOnce(ctx, lim, rawURL)
	})
	if err != nil {
		return "", err
	}

	zap.L().Debug("fetch: page downloaded",
		zap.String("url", rawURL),
		zap.Int("bytes", len(page)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return page, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, lim *AdaptiveLimiter, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: get %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		lim.OnRateLimit()
		return "", resilience.NewTransientError(eris.Errorf("fetch: http 429 from %s", rawURL), resp.StatusCode)
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return "", resilience.NewTransientError(eris.Errorf("fetch: http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", eris.Wrapf(ErrRestrictedForm, "http %d from %s", resp.StatusCode, rawURL)
	case resp.StatusCode != http.StatusOK:
		return "", &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	if isLoginRedirect(resp.Request.URL) {
		return "", eris.Wrapf(ErrRestrictedForm, "redirected to %s", resp.Request.URL.Host+resp.Request.URL.Path)
	}

	body, err := decodeBody(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	if blocked, bt := DetectBlock(body); blocked {
		return "", blockError(lim, bt, rawURL)
	}
	lim.OnSuccess()
	return body, nil
}

// blockError maps an interstitial page to the matching fetch error.
// Captcha pages are treated like a 429 so the request backs off and retries.
func blockError(lim *AdaptiveLimiter, bt BlockType, rawURL string) error {
	switch bt {
	case BlockSignIn:
		return eris.Wrapf(ErrRestrictedForm, "sign-in page served for %s", rawURL)
	case BlockClosed:
		return eris.Wrapf(ErrFormClosed, "%s", rawURL)
	case BlockCaptcha:
		lim.OnRateLimit()
		return resilience.NewTransientError(eris.Errorf("fetch: captcha challenge from %s", rawURL), http.StatusTooManyRequests)
	default:
		return eris.Errorf("fetch: %s page served for %s", bt, rawURL)
	}
}

func isLoginRedirect(u *url.URL) bool {
	if u == nil {
		return false
	}
	if u.Host == "accounts.google.com" {
		return true
	}
	for _, p := range loginPaths {
		if strings.HasPrefix(u.Path, p) {
			return true
		}
	}
	return false
}

// decodeBody reads at most maxPageBytes and converts the declared charset
// to UTF-8.
func decodeBody(r io.Reader, contentType string) (string, error) {
	r = io.LimitReader(r, maxPageBytes)
	if cs := charsetOf(contentType); cs != "" && !strings.EqualFold(cs, "utf-8") {
		enc, err := htmlindex.Get(cs)
		if err != nil {
			return "", eris.Wrapf(err, "fetch: unsupported charset %q", cs)
		}
		r = enc.NewDecoder().Reader(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", eris.Wrap(err, "fetch: read body")
	}
	return string(data), nil
}

func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
