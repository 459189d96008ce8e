// handlers_analysis.go - Analysis and dashboard pass-through handlers
package api

import (
	"errors"
	"io"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/sma-monitor/dashboard/internal/backend"
)

// AnalysisHandlerImpl implements the AnalysisHandler interface
type AnalysisHandlerImpl struct {
	backend Backend
	logger  *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(b Backend, logger *slog.Logger) AnalysisHandler {
	return &AnalysisHandlerImpl{
		backend: b,
		logger:  logger,
	}
}

// HandleAnalyzeDelays forwards the request body to the delay analysis
func (h *AnalysisHandlerImpl) HandleAnalyzeDelays(c echo.Context) error {
	return h.forwardPost(c, backend.RouteAnalyzeDelays, "error analyzing delays")
}

// HandlePendingTasks forwards {assignee?} to the pending task query
func (h *AnalysisHandlerImpl) HandlePendingTasks(c echo.Context) error {
	return h.forwardPost(c, backend.RoutePendingTasks, "error fetching pending tasks")
}

// HandleProjectSummary forwards {project_name} to the project summary
func (h *AnalysisHandlerImpl) HandleProjectSummary(c echo.Context) error {
	return h.forwardPost(c, backend.RouteProjectSummary, "error fetching project summary")
}

// HandleDashboard returns the backend dashboard metrics
func (h *AnalysisHandlerImpl) HandleDashboard(c echo.Context) error {
	out, err := h.backend.GetJSON(c.Request().Context(), backend.RouteDashboard)
	if err != nil {
		h.logger.Error("backend request failed", "route", backend.RouteDashboard, "error", err)
		return NewUpstreamError("error fetching dashboard metrics")
	}
	return respondPayload(c, out)
}

func (h *AnalysisHandlerImpl) forwardPost(c echo.Context, route, failure string) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		return NewBadRequestError("failed to read request body", err)
	}

	out, err := h.backend.PostJSON(c.Request().Context(), route, body)
	if err != nil {
		h.logger.Error("backend request failed", "route", route, "error", err)
		return NewUpstreamError(failure)
	}
	return respondPayload(c, out)
}
