package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/rod/server/internal/observability"
)

// MetricsResponse is the in-process metrics snapshot.
type MetricsResponse struct {
	*observability.MetricsSnapshot
	SuccessRate float64 `json:"success_rate"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// GetMetrics returns counters and latencies per operation.
// GET /system/metrics
func (s *APIV1Service) GetMetrics(c echo.Context) error {
	snapshot := s.Metrics.Snapshot()
	return c.JSON(http.StatusOK, MetricsResponse{
		MetricsSnapshot: snapshot,
		SuccessRate:     snapshot.SuccessRate(),
	})
}

// Healthz reports liveness.
// GET /healthz
func (s *APIV1Service) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: s.Profile.Version})
}
