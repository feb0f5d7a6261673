package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent:  "test-agent",
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		RatePerSec: 100,
		Backoff:    time.Millisecond,
	})
}

func TestFetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html>var FB_PUBLIC_LOAD_DATA_ = [];</html>"))
	}))
	defer srv.Close()

	page, err := newTestFetcher().FetchPage(context.Background(), srv.URL+"/forms/d/e/abc/viewform")
	require.NoError(t, err)
	assert.Contains(t, page, "FB_PUBLIC_LOAD_DATA_")
}

func TestFetchPage_DecodesCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		// "café" in latin-1
		w.Write([]byte{'c', 'a', 'f', 0xe9})
	}))
	defer srv.Close()

	page, err := newTestFetcher().FetchPage(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "café", page)
}

func TestFetchPage_UnsupportedCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=x-made-up")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	_, err := newTestFetcher().FetchPage(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported charset")
}

func TestFetchPage_Restricted(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(code)
		}))

		_, err := newTestFetcher().FetchPage(context.Background(), srv.URL)
		srv.Close()

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrRestrictedForm), "status %d", code)
		assert.Equal(t, int32(1), calls.Load(), "restricted responses are not retried")
	}
}

func TestFetchPage_LoginRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/forms/d/e/abc/viewform", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ServiceLogin?continue=form", http.StatusFound)
	})
	mux.HandleFunc("/ServiceLogin", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>Sign in</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestFetcher().FetchPage(context.Background(), srv.URL+"/forms/d/e/abc/viewform")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRestrictedForm))
}

func TestFetchPage_PermissionPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>You need permission</body></html>"))
	}))
	defer srv.Close()

	_, err := newTestFetcher().FetchPage(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRestrictedForm))
}

func TestFetchPage_ClosedForm(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("<html>This form is no longer accepting responses</html>"))
	}))
	defer srv.Close()

	_, err := newTestFetcher().FetchPage(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormClosed))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchPage_CaptchaRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write([]byte("<html>Our systems have detected unusual traffic</html>"))
			return
		}
		w.Write([]byte("<html>var FB_PUBLIC_LOAD_DATA_ = [];</html>"))
	}))
	defer srv.Close()

	page, err := newTestFetcher().FetchPage(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, page, "FB_PUBLIC_LOAD_DATA_")
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchPage_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	page, err := newTestFetcher().FetchPage(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", page)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchPage_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestFetcher().FetchPage(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 502")
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchPage_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher().FetchPage(context.Background(), srv.URL)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestFetchPage_InvalidURL(t *testing.T) {
	_, err := newTestFetcher().FetchPage(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestFetchPage_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestFetcher().FetchPage(ctx, srv.URL)
	assert.Error(t, err)
}

func TestAdaptiveLimiter(t *testing.T) {
	a := NewAdaptiveLimiter(10, 10)
	assert.Equal(t, rate.Limit(10), a.Limit())

	a.OnRateLimit()
	assert.Equal(t, rate.Limit(5), a.Limit())
	a.OnRateLimit()
	a.OnRateLimit()
	assert.Equal(t, rate.Limit(2.5), a.Limit(), "floor at initial/4")

	for range 20 {
		a.OnSuccess()
	}
	assert.Equal(t, rate.Limit(20), a.Limit(), "ceiling at 2x initial")
}

func TestCharsetOf(t *testing.T) {
	assert.Equal(t, "windows-1252", charsetOf("text/html; charset=windows-1252"))
	assert.Equal(t, "", charsetOf("text/html"))
	assert.Equal(t, "", charsetOf(""))
	assert.Equal(t, "", charsetOf(";;;"))
}

func TestFetcherFunc(t *testing.T) {
	var f Fetcher = FetcherFunc(func(ctx context.Context, url string) (string, error) {
		return "page:" + url, nil
	})
	got, err := f.FetchPage(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, "page:u", got)
}
