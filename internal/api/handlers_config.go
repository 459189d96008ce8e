// handlers_config.go - UI bootstrap configuration
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sma-monitor/dashboard/internal/config"
	"github.com/sma-monitor/dashboard/internal/models"
)

const (
	AppTitle   = "SMA Progress Monitoring System"
	AppVersion = "1.0.0"

	welcomeText = "Welcome to SMA! Upload your Excel file to analyze project progress."
)

// DefaultUser is the identity shown by the UI. There is no authentication.
var DefaultUser = models.User{
	ID:    "user-sma",
	Name:  "SMA User",
	Email: "user@sma.com",
}

// ConfigHandlerImpl implements the ConfigHandler interface
type ConfigHandlerImpl struct {
	payload models.AppConfig
}

// NewConfigHandler creates a config handler. The payload is built once.
func NewConfigHandler(endpoints config.EndpointTable) ConfigHandler {
	eps := make(map[string]models.Endpoint, len(endpoints))
	for name, ep := range endpoints {
		eps[name] = ep
	}
	return &ConfigHandlerImpl{
		payload: models.AppConfig{
			AppTitle:   AppTitle,
			AppVersion: AppVersion,
			Endpoints:  eps,
			Interface: models.InterfaceOptions{
				CustomWelcome: welcomeText,
				EndpointsMenu: true,
				ModelSelect:   true,
			},
			User: DefaultUser,
		},
	}
}

// HandleGetConfig returns the static application metadata
func (h *ConfigHandlerImpl) HandleGetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, h.payload)
}
