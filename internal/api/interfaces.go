// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"encoding/json"
	"io"

	"github.com/labstack/echo/v4"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// ConfigHandler serves the UI bootstrap payload
type ConfigHandler interface {
	HandleGetConfig(c echo.Context) error
}

// ChatHandler forwards chat prompts to an agent endpoint
type ChatHandler interface {
	HandleAsk(c echo.Context) error
}

// UploadHandler forwards spreadsheets to the backend
type UploadHandler interface {
	HandleUploadExcel(c echo.Context) error
}

// AnalysisHandler proxies the analysis and dashboard routes
type AnalysisHandler interface {
	HandleAnalyzeDelays(c echo.Context) error
	HandlePendingTasks(c echo.Context) error
	HandleProjectSummary(c echo.Context) error
	HandleDashboard(c echo.Context) error
}

// Backend defines what the handlers need from the analysis service.
// This allows mocking in tests
type Backend interface {
	Ask(ctx context.Context, endpointURL, prompt string) ([]byte, error)
	UploadExcel(ctx context.Context, filename, contentType string, data io.Reader) (json.RawMessage, error)
	PostJSON(ctx context.Context, path string, body []byte) (json.RawMessage, error)
	GetJSON(ctx context.Context, path string) (json.RawMessage, error)
}
