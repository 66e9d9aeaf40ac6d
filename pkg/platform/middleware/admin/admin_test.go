package admin

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireAdminToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	logger := slog.New(slog.DiscardHandler)

	t.Run("matching token passes", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		r.Header.Set("X-Admin-Token", "s3cret")
		w := httptest.NewRecorder()
		RequireAdminToken("s3cret", logger)(ok).ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("wrong token is unauthorized", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		r.Header.Set("X-Admin-Token", "guess")
		w := httptest.NewRecorder()
		RequireAdminToken("s3cret", logger)(ok).ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "admin token required")
	})

	t.Run("no configured token leaves route open", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		w := httptest.NewRecorder()
		RequireAdminToken("", logger)(ok).ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
