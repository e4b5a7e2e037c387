package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"catalog-api/internal/config"
	"catalog-api/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	pingErr error
	closed  bool
}

func (s *fakeStore) Users() repository.UserRepository       { return nil }
func (s *fakeStore) Products() repository.ProductRepository { return nil }
func (s *fakeStore) Ping(ctx context.Context) error         { return s.pingErr }
func (s *fakeStore) Close(ctx context.Context) error {
	s.closed = true
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "development"},
		Database:  config.DatabaseConfig{Driver: config.DriverPostgres},
		RateLimit: config.RateLimitConfig{Requests: 2, Window: time.Minute},
		JWT:       config.JWTConfig{Secret: "server-test-secret", AccessExpiry: time.Hour},
	}
}

func TestNewServer_RejectsMissingSecret(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.Secret = ""

	_, err := NewServer(cfg, zap.NewNop(), &fakeStore{}, nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		pingErr  error
		status   int
		expected HealthResponse
	}{
		{"up", nil, http.StatusOK, HealthResponse{Status: "ok", Database: "up"}},
		{"down", errors.New("connection refused"), http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Database: "down"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewServer(testConfig(), zap.NewNop(), &fakeStore{pingErr: tt.pingErr}, nil)
			require.NoError(t, err)

			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

			require.Equal(t, tt.status, w.Code)
			var body HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expected, body)
		})
	}
}

func TestSwaggerDocIsServed(t *testing.T) {
	srv, err := NewServer(testConfig(), zap.NewNop(), &fakeStore{}, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/swagger/doc.json", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Contains(t, doc["paths"], "/api/products")
}

func TestUnknownRouteIsJSON(t *testing.T) {
	srv, err := NewServer(testConfig(), zap.NewNop(), &fakeStore{}, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	srv, err := NewServer(testConfig(), zap.NewNop(), &fakeStore{}, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/products", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCredentialRoutesAreRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store := &fakeStore{}
	srv, err := NewServer(testConfig(), zap.NewNop(), store, client)
	require.NoError(t, err)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		// malformed bodies are rejected before any store access
		req := httptest.NewRequest("POST", "/api/auth/login", nil)
		req.RemoteAddr = "203.0.113.9:1234"
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)

	// counters are keyed by client IP
	assert.True(t, mr.Exists("ratelimit:auth:ip:203.0.113.9"))

	require.NoError(t, srv.Close())
	assert.True(t, store.closed)
}

func TestCORSPreflight(t *testing.T) {
	srv, err := NewServer(testConfig(), zap.NewNop(), &fakeStore{}, nil)
	require.NoError(t, err)

	req := httptest.NewRequest("OPTIONS", "/api/products", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
