package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cuongbtq/company-ingest/internal/api/handler"
	"github.com/cuongbtq/company-ingest/internal/metrics"
	"github.com/cuongbtq/company-ingest/internal/queue"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBroker struct{}

func (stubBroker) Send(context.Context, string, string) (string, error) {
	return "msg-1", nil
}

type routeObservation struct {
	method string
	route  string
	status int
}

type stubRecorder struct {
	observations []routeObservation
}

func (s *stubRecorder) ObserveHTTPRequest(method, route string, status int, _ time.Duration) {
	s.observations = append(s.observations, routeObservation{method: method, route: route, status: status})
}

func newDeps(t *testing.T, opts ...queue.Option) *handler.Dependencies {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher, err := queue.NewPublisher(stubBroker{}, queue.Config{PrimaryURL: "a", SecondaryURL: "b"}, logger, opts...)
	require.NoError(t, err)

	return &handler.Dependencies{Logger: logger, Publisher: publisher}
}

func TestSetupRouter_Health(t *testing.T) {
	r := SetupRouter(newDeps(t), Options{ServiceName: "company-ingest-api"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"company-ingest-api"}`, w.Body.String())
}

func TestSetupRouter_HealthDegraded(t *testing.T) {
	r := SetupRouter(newDeps(t), Options{
		ServiceName: "company-ingest-api",
		HealthCheck: func(context.Context) error { return errors.New("database health check failed") },
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","service":"company-ingest-api","error":"database health check failed"}`, w.Body.String())
}

func TestSetupRouter_CORSPreflight(t *testing.T) {
	r := SetupRouter(newDeps(t), Options{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/companies/scrape", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSetupRouter_MetricsMiddleware(t *testing.T) {
	rec := &stubRecorder{}
	r := SetupRouter(newDeps(t), Options{Metrics: rec})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/companies/scrape",
		strings.NewReader(`{"company_name":"Acme","website":"https://acme.io"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, rec.observations, 1)
	assert.Equal(t, routeObservation{method: "POST", route: "/api/v1/companies/scrape", status: 202}, rec.observations[0])
}

func TestSetupRouter_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	r := SetupRouter(newDeps(t, queue.WithMetrics(m)), Options{
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/companies/scrape",
		strings.NewReader(`{"company_name":"Acme","website":"https://acme.io"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `ingest_publish_total{outcome="success",queue="primary"} 1`)
	assert.Contains(t, body, `ingest_http_requests_total{method="POST",route="/api/v1/companies/scrape",status="202"} 1`)
}
