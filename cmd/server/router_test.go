package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/bookshelf-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Port:           8080,
			LogLevel:       "debug",
			BaseURL:        "http://localhost:8080",
			UploadDir:      filepath.Join(t.TempDir(), "uploads"),
			MaxUploadBytes: 1 << 20,
		},
		Database: config.DatabaseConfig{URL: "postgres://localhost/test", MaxOpenConns: 1},
		Auth: config.AuthConfig{
			JWTSecret:                   "router-test-secret-that-is-long-enough",
			BCryptCost:                  4,
			TokenLifetimeMinutes:        15,
			RefreshTokenLifetimeMinutes: 60,
		},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
		Rating:    config.RatingConfig{MaxRetries: 3},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) (*application, sqlmock.Sqlmock) {
	t.Helper()
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(rawDB, "pgx")
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := newApplication(cfg, logger, db)
	require.NoError(t, err)
	return app, mock
}

func do(t *testing.T, h http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterPublicRoutes(t *testing.T) {
	cfg := testConfig(t)
	app, mock := newTestApp(t, cfg)
	router := app.setupRouter()

	rec := do(t, router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/books/not-a-uuid", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, path := range []string{"/api/signup", "/api/auth/signup", "/api/signin", "/api/auth/signin"} {
		rec = do(t, router, http.MethodPost, path, `{"email":"bad"}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouterProtectedRoutes(t *testing.T) {
	cfg := testConfig(t)
	app, _ := newTestApp(t, cfg)
	router := app.setupRouter()
	bookPath := "/api/books/" + uuid.NewString()

	for _, tc := range []struct{ method, target string }{
		{http.MethodPost, "/api/books"},
		{http.MethodPut, bookPath},
		{http.MethodDelete, bookPath},
		{http.MethodPost, bookPath + "/rating"},
	} {
		rec := do(t, router, tc.method, tc.target, `{}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.target)
	}

	token, err := app.jwtService.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)

	rec := do(t, router, http.MethodPost, "/api/books/not-a-uuid/rating", `{"rating":3}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "authenticated request reaches the handler")
}

func TestRouterServesUploads(t *testing.T) {
	cfg := testConfig(t)
	app, _ := newTestApp(t, cfg)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Server.UploadDir, "cover.txt"), []byte("cover"), 0o644))

	rec := do(t, app.setupRouter(), http.MethodGet, "/uploads/cover.txt", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cover", rec.Body.String())
}

func TestRouterRateLimitsAPI(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}
	app, _ := newTestApp(t, cfg)
	router := app.setupRouter()

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/books/x", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/books/x", "", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, router, http.MethodGet, "/api/books/x", "", "").Code)

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/health", "", "").Code,
		"health is outside the limited group")
}

func TestRouterRejectsOversizedBodies(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MaxUploadBytes = 16
	app, _ := newTestApp(t, cfg)
	token, err := app.jwtService.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)

	body := `{"title":"` + strings.Repeat("x", 64) + `","author":"a","year":2000,"genre":"g"}`
	rec := do(t, app.setupRouter(), http.MethodPut, "/api/books/"+uuid.NewString(), body, token)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
