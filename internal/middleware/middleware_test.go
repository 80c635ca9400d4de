package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/tugas-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeAuth map[string]*model.Identity

func (f fakeAuth) Authenticate(token string) (*model.Identity, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return nil, errors.New("bad token")
}

var auth = fakeAuth{"good": {UserID: "s1", Name: "Budi", Role: model.RoleStudent}}

func whoami(c *gin.Context) {
	id := GetIdentity(c)
	c.String(http.StatusOK, id.UserID)
}

func TestRequireIdentity(t *testing.T) {
	r := gin.New()
	r.GET("/me", RequireIdentity(auth), whoami)

	tests := []struct {
		name   string
		header string
		query  string
		code   int
	}{
		{"bearer header", "Bearer good", "", http.StatusOK},
		{"case-insensitive scheme", "bearer good", "", http.StatusOK},
		{"query token", "", "?token=good", http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"invalid", "Bearer nope", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "s1", w.Body.String())
			}
		})
	}
}

func TestRateLimiterPerCaller(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	auth := fakeAuth{
		"a": {UserID: "s1", Role: model.RoleStudent},
		"b": {UserID: "s2", Role: model.RoleStudent},
	}
	r := gin.New()
	r.PUT("/upload", RequireIdentity(auth), rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func(token string) int {
		req := httptest.NewRequest(http.MethodPut, "/upload", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, do("a"))
	assert.Equal(t, http.StatusNoContent, do("a"))
	assert.Equal(t, http.StatusTooManyRequests, do("a"))
	assert.Equal(t, http.StatusNoContent, do("b"), "buckets are per user")

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusNoContent, do("a"), "refilled after interval")
}

func TestBrotliCompressesLargeBodies(t *testing.T) {
	large := strings.Repeat("tugas ", 1000)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/big", func(c *gin.Context) {
		c.String(http.StatusOK, large[:3000])
		c.String(http.StatusOK, large[3000:])
	})
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/big", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, "br", w.Header().Get("Content-Encoding"))
	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, large, string(plain))

	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "br")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", w.Body.String())
}
