// middleware.go - Request validation and cross-cutting middleware
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sma-monitor/dashboard/internal/config"
)

// ContentSecurityPolicy restricts the embedded UI to its own origin plus the
// icon/font CDN.
const ContentSecurityPolicy = "default-src 'self'; " +
	"style-src 'self' 'unsafe-inline' https://cdnjs.cloudflare.com; " +
	"font-src 'self' https://cdnjs.cloudflare.com; " +
	"script-src 'self'; " +
	"img-src 'self' data: https:"

const (
	healthPath = "/api/health"
	uploadPath = "/api/upload_excel"
)

// ErrInvalidJSON is returned for malformed JSON request bodies.
var ErrInvalidJSON = &APIError{
	Status:  http.StatusBadRequest,
	Code:    "INVALID_JSON",
	Message: "invalid JSON format",
	Details: "the request body contains malformed JSON",
}

// ValidateJSONBody rejects non-empty application/json bodies that do not
// parse, before any handler runs. The body is restored for the handler.
func ValidateJSONBody() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ct := strings.ToLower(req.Header.Get(echo.HeaderContentType))
			if req.Body == nil || !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
				return next(c)
			}

			body, err := io.ReadAll(req.Body)
			if err != nil {
				var httpErr *echo.HTTPError
				if errors.As(err, &httpErr) {
					return httpErr
				}
				return NewBadRequestError("failed to read request body", err)
			}
			req.Body = io.NopCloser(bytes.NewReader(body))

			if len(body) > 0 && !json.Valid(body) {
				return ErrInvalidJSON
			}
			return next(c)
		}
	}
}

// HeaderRateLimitRemaining reports how many requests the client has left in
// its current window.
const HeaderRateLimitRemaining = "X-RateLimit-Remaining"

type remainingStore interface {
	Remaining(identifier string) int
}

// RateLimit admits requests to /api routes through store, keyed by client IP.
// The IP comes from the Echo instance's IPExtractor. The health check is
// exempt. Stores that can report Remaining add HeaderRateLimitRemaining.
func RateLimit(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	limiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: rateLimitSkipper,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return NewBadRequestError("cannot identify client", err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return NewTooManyRequestsError()
		},
	})
	rs, ok := store.(remainingStore)
	if !ok {
		return limiter
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return limiter(func(c echo.Context) error {
			if !rateLimitSkipper(c) {
				c.Response().Header().Set(HeaderRateLimitRemaining, strconv.Itoa(rs.Remaining(c.RealIP())))
			}
			return next(c)
		})
	}
}

func rateLimitSkipper(c echo.Context) bool {
	path := c.Request().URL.Path
	return path == healthPath || !strings.HasPrefix(path, "/api/")
}

// RequestLogger writes one slog record per request.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == healthPath
		},
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	})
}

// SetupMiddleware configures the middleware chain for cfg
func SetupMiddleware(e *echo.Echo, cfg *config.AppConfig, logger *slog.Logger) {
	e.HTTPErrorHandler = ErrorHandler

	if cfg.Logging.RequestLogging {
		e.Use(RequestLogger(logger))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered", "path", c.Request().URL.Path, "error", err, "stack", string(stack))
			return err
		},
	}))

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "0",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            15552000,
		ContentSecurityPolicy: ContentSecurityPolicy,
		ReferrerPolicy:        "no-referrer",
	}))

	if cfg.Server.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Server.CompressionLevel,
		}))
	}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestedWith},
	}))

	if cfg.RateLimit.Enabled {
		e.Use(RateLimit(NewFixedWindowStore(cfg.RateLimit.Requests, cfg.RateLimit.Window)))
	}

	// The upload route enforces its own per-file limit.
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: cfg.Server.BodyLimit,
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == uploadPath
		},
	}))

	e.Use(ValidateJSONBody())
}
