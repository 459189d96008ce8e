// routes.go - Route registration helpers
package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/sma-monitor/dashboard/internal/config"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Backend   Backend
	Endpoints config.EndpointTable
	Config    *config.AppConfig
	Logger    *slog.Logger
	Version   string
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Config   ConfigHandler
	Chat     ChatHandler
	Upload   UploadHandler
	Analysis AnalysisHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var maxUpload int64
	if deps.Config != nil {
		maxUpload = deps.Config.Server.MaxUploadBytes
	}

	return &Handlers{
		Health:   NewHealthHandler(deps.Version),
		Config:   NewConfigHandler(deps.Endpoints),
		Chat:     NewChatHandler(deps.Backend, deps.Endpoints, logger),
		Upload:   NewUploadHandler(deps.Backend, maxUpload, logger),
		Analysis: NewAnalysisHandler(deps.Backend, logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	api := e.Group("/api")

	api.GET("/health", handlers.Health.HandleHealth)
	api.GET("/config", handlers.Config.HandleGetConfig)

	api.POST("/ask/:endpoint", handlers.Chat.HandleAsk)

	api.POST("/upload_excel", handlers.Upload.HandleUploadExcel)

	api.POST("/analyze_delays", handlers.Analysis.HandleAnalyzeDelays)
	api.POST("/pending_tasks", handlers.Analysis.HandlePendingTasks)
	api.POST("/project_summary", handlers.Analysis.HandleProjectSummary)
	api.GET("/dashboard", handlers.Analysis.HandleDashboard)
}

// NewServer builds an Echo instance with the middleware chain and API routes.
// Static routes are registered separately, after the API.
func NewServer(deps *Dependencies) *echo.Echo {
	if deps.Config == nil {
		deps.Config = config.DefaultConfig()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if deps.Config.Server.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	SetupMiddleware(e, deps.Config, deps.Logger)
	RegisterRoutes(e, NewHandlers(deps))
	return e
}
