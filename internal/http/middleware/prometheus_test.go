package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetricsApp(t *testing.T) (*fiber.App, *PrometheusMiddleware, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	pm, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(pm.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/summaries/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Post("/summaries", func(c *fiber.Ctx) error {
		return WriteError(c, fiber.StatusUnprocessableEntity, "SECRET_DETECTED", "blocked")
	})
	app.Delete("/sessions/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Post("/service/resume", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusForbidden, "forbidden")
	})
	return app, pm, reg
}

func TestPrometheusMiddleware(t *testing.T) {
	app, pm, _ := newMetricsApp(t)

	tests := []struct {
		name      string
		method    string
		target    string
		wantPath  string
		wantCode  string
		wantCount float64
	}{
		{"route pattern label", http.MethodGet, "/summaries/6f1c", "/summaries/:id", "200", 1},
		{"written error status", http.MethodPost, "/summaries", "/summaries", "422", 1},
		{"no content", http.MethodDelete, "/sessions/abc", "/sessions/:id", "204", 1},
		{"returned fiber error", http.MethodPost, "/service/resume", "/service/resume", "403", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(tt.method, tt.target, nil))
			require.NoError(t, err)
			resp.Body.Close()

			got := testutil.ToFloat64(pm.requestCount.WithLabelValues(tt.method, tt.wantPath, tt.wantCode))
			assert.Equal(t, tt.wantCount, got)
		})
	}

	assert.Positive(t, testutil.CollectAndCount(pm.requestDuration))
}

func TestPrometheusMiddleware_SkipsMetricsEndpoint(t *testing.T) {
	app, _, reg := newMetricsApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	resp.Body.Close()

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == "http_requests_total" {
			assert.Empty(t, mf.GetMetric())
		}
	}
}

func TestNewPrometheusMiddleware_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	_, err = NewPrometheusMiddleware(reg)
	assert.Error(t, err)
}
