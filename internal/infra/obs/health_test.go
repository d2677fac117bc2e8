package obs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := HealthHandlers{Checks: map[string]Check{"mongo": func(context.Context) error { return nil }}}
	broken := HealthHandlers{Checks: map[string]Check{"redis": func(context.Context) error { return errors.New("refused") }}}

	r := gin.New()
	r.Use(Middleware{}.RequestID())
	r.GET("/ok", healthy.Readyz)
	r.GET("/down", broken.Readyz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/down", nil)
	req.Header.Set(RequestIDHeader, "abc")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "refused")
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}
