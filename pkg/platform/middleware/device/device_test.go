package device

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immo/pkg/requestcontext"
)

const (
	chromeMac    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	safariIPhone = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	firefoxLinux = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
)

func TestDescribe(t *testing.T) {
	t.Run("empty user agent yields empty description", func(t *testing.T) {
		assert.Empty(t, Describe(""))
	})

	t.Run("chrome on desktop includes browser and OS", func(t *testing.T) {
		result := Describe(chromeMac)
		assert.Contains(t, result, "Chrome")
		assert.Contains(t, result, " / ")
		assert.NotContains(t, result, "(mobile)")
	})

	t.Run("safari on iphone is marked mobile", func(t *testing.T) {
		result := Describe(safariIPhone)
		assert.Contains(t, result, "Safari")
		assert.Contains(t, result, "(mobile)")
	})

	t.Run("firefox on linux includes browser", func(t *testing.T) {
		assert.Contains(t, Describe(firefoxLinux), "Firefox")
	})

	t.Run("result has no surrounding whitespace", func(t *testing.T) {
		result := Describe("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
		assert.Equal(t, strings.TrimSpace(result), result)
	})
}

func TestMiddleware(t *testing.T) {
	var got string
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = requestcontext.Device(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", firefoxLinux)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotEmpty(t, got)
	assert.Equal(t, Describe(firefoxLinux), got)
}
