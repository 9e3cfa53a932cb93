package routing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iziplay/pubmed-records/pkg/convert"
)

func newStats() *convert.Stats {
	ctx := context.Background()
	stats := convert.NewStats()
	stats.Files(ctx, "run-1", []string{"pubmed25n0001", "pubmed25n0002"})
	stats.Progress(ctx, "pubmed25n0002", 50)
	stats.Done(ctx, convert.FileResult{Name: "pubmed25n0001", Records: 30000, Skipped: 2})
	return stats
}

func TestHealthz(t *testing.T) {
	_, api := humatest.New(t)
	Setup(api, Options{Stats: newStats()})

	resp := api.Get("/healthz")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "OK", resp.Body.String())
}

func TestStatistics(t *testing.T) {
	_, api := humatest.New(t)
	Setup(api, Options{Stats: newStats()})

	resp := api.Get("/v1/statistics")
	require.Equal(t, http.StatusOK, resp.Code)

	var snap convert.Snapshot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &snap))
	assert.Equal(t, "run-1", snap.RunID)
	assert.True(t, snap.IsRunning)
	assert.Equal(t, 1, snap.Totals.Converted)
	assert.Equal(t, 1, snap.Totals.Running)
	assert.Equal(t, 30000, snap.Totals.Records)
	require.Len(t, snap.Archives, 2)
}

func TestArchive(t *testing.T) {
	_, api := humatest.New(t)
	Setup(api, Options{Stats: newStats()})

	resp := api.Get("/v1/archives/pubmed25n0002")
	require.Equal(t, http.StatusOK, resp.Code)

	var progress convert.ArchiveProgress
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &progress))
	assert.Equal(t, convert.StatusRunning, progress.Status)
	assert.Equal(t, 50.0, progress.Processed)

	resp = api.Get("/v1/archives/pubmed25n9999")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestManifestRoutesNeedDatabase(t *testing.T) {
	_, api := humatest.New(t)
	Setup(api, Options{Stats: newStats()})

	resp := api.Get("/v1/manifest/archives")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestJWTAuthentication(t *testing.T) {
	const secret = "s3cr3t"
	_, api := humatest.New(t)
	Setup(api, Options{Stats: newStats(), JWTSecret: secret})

	sign := func(key string, method jwt.SigningMethod) string {
		token, err := jwt.NewWithClaims(method, jwt.MapClaims{"sub": "tester"}).SignedString([]byte(key))
		require.NoError(t, err)
		return token
	}

	resp := api.Get("/healthz")
	assert.Equal(t, http.StatusOK, resp.Code, "health check is public")

	resp = api.Get("/v1/statistics")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = api.Get("/v1/statistics", "Authorization: Bearer "+sign("wrong", jwt.SigningMethodHS256))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = api.Get("/v1/statistics", "Authorization: Bearer "+sign(secret, jwt.SigningMethodHS256))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = api.Get("/v1/archives/pubmed25n0001?jwt=" + sign(secret, jwt.SigningMethodHS512))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestNewHandler(t *testing.T) {
	handler := NewHandler(Options{Stats: newStats()}, ":8080", "docs", "test")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	req = httptest.NewRequest(http.MethodOptions, "/v1/statistics", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
