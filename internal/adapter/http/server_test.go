package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/urban3d-etl/internal/adapter/http"
	"github.com/couchcryptid/urban3d-etl/internal/domain"
)

type mockStatus struct {
	err    error
	report *domain.RunReport
}

func (m *mockStatus) CheckReadiness(_ context.Context) error { return m.err }
func (m *mockStatus) LastReport() *domain.RunReport          { return m.report }

func newTestServer(status *mockStatus) *httpadapter.Server {
	return httpadapter.NewServer(":0", status, slog.Default())
}

func serve(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(&mockStatus{}), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(&mockStatus{}), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(newTestServer(&mockStatus{err: fmt.Errorf("pipeline has not completed a run yet")}), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "pipeline has not completed a run yet", body["error"])
}

func TestReportReturns404BeforeFirstRun(t *testing.T) {
	rec := serve(newTestServer(&mockStatus{}), "/report")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no completed run")
}

func TestReportReturnsLastRun(t *testing.T) {
	started := time.Date(2024, 11, 13, 9, 0, 0, 0, time.UTC)
	report := &domain.RunReport{
		City:       "Bolzano, Italy",
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Second),
		Layers: map[domain.Kind]domain.LayerReport{
			domain.KindRoads: {Export: domain.ExportStats{Features: 12, Elevated: 2, Bytes: 4096}},
		},
	}
	rec := serve(newTestServer(&mockStatus{report: report}), "/report")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got domain.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Bolzano, Italy", got.City)
	assert.Equal(t, 42*time.Second, got.FinishedAt.Sub(got.StartedAt))
	assert.Equal(t, 2, got.Layers[domain.KindRoads].Export.Elevated)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(&mockStatus{}), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
