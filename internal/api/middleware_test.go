package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sma-monitor/dashboard/internal/backend"
	"github.com/sma-monitor/dashboard/internal/config"
)

func TestServer_InvalidJSON(t *testing.T) {
	e, fake := newTestServer(t, nil)
	fake.RespondJSON(backend.RouteAnalyzeDelays, `{}`)

	rec := doJSON(e, http.MethodPost, "/api/analyze_delays", `{"broken":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"code":"INVALID_JSON","error":"invalid JSON format","details":"the request body contains malformed JSON"}`, rec.Body.String())
	assert.Zero(t, fake.CallCount(backend.RouteAnalyzeDelays))
}

func TestServer_EmptyJSONBodyAllowed(t *testing.T) {
	e, fake := newTestServer(t, nil)
	fake.RespondJSON(backend.RouteAnalyzeDelays, `{"ok":true}`)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze_delays", nil)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fake.CallCount(backend.RouteAnalyzeDelays))
}

func TestServer_BodyLimit(t *testing.T) {
	e, fake := newTestServer(t, func(cfg *config.AppConfig) {
		cfg.Server.BodyLimit = "1K"
	})

	rec := doJSON(e, http.MethodPost, "/api/analyze_delays", `{"pad":"`+strings.Repeat("x", 2048)+`"}`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", decodeBody(t, rec)["code"])
	assert.Zero(t, fake.CallCount(backend.RouteAnalyzeDelays))
}

func TestServer_RateLimit(t *testing.T) {
	e, _ := newTestServer(t, func(cfg *config.AppConfig) {
		cfg.RateLimit.Requests = 3
	})

	for i := 0; i < 3; i++ {
		rec := doJSON(e, http.MethodGet, "/api/config", "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		assert.Equal(t, strconv.Itoa(2-i), rec.Header().Get(HeaderRateLimitRemaining))
	}

	rec := doJSON(e, http.MethodGet, "/api/config", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeBody(t, rec)["code"])

	// health is exempt
	rec = doJSON(e, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// other clients have their own window
	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RateLimitIgnoresForwardedFor(t *testing.T) {
	e, _ := newTestServer(t, nil)

	admitted := 0
	for i := 0; i < 150; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		req.Header.Set(echo.HeaderXForwardedFor, fmt.Sprintf("10.%d.%d.1", i/256, i%256))
		req.Header.Set(echo.HeaderXRealIP, fmt.Sprintf("172.16.0.%d", i%256))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			admitted++
		}
	}
	assert.Equal(t, 100, admitted)
}

func TestServer_RateLimitTrustProxy(t *testing.T) {
	e, _ := newTestServer(t, func(cfg *config.AppConfig) {
		cfg.Server.TrustProxy = true
		cfg.RateLimit.Requests = 1
	})

	send := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
		req.RemoteAddr = "10.0.0.2:5555"
		req.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.7"))
	assert.Equal(t, http.StatusOK, send("203.0.113.8"))
}

func TestServer_RateLimitDisabled(t *testing.T) {
	e, _ := newTestServer(t, func(cfg *config.AppConfig) {
		cfg.RateLimit.Enabled = false
		cfg.RateLimit.Requests = 1
	})

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doJSON(e, http.MethodGet, "/api/config", "").Code)
	}
}

func TestServer_SecurityHeaders(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec := doJSON(e, http.MethodGet, "/api/health", "")

	assert.Equal(t, ContentSecurityPolicy, rec.Header().Get(echo.HeaderContentSecurityPolicy))
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get(echo.HeaderXFrameOptions))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestServer_CORS(t *testing.T) {
	e, _ := newTestServer(t, func(cfg *config.AppConfig) {
		cfg.Server.FrontendURL = "https://sma.example.com"
	})

	tests := []struct {
		origin  string
		allowed bool
	}{
		{origin: "https://sma.example.com", allowed: true},
		{origin: "http://localhost:3000", allowed: true},
		{origin: "http://127.0.0.1:3000", allowed: true},
		{origin: "https://evil.example.com", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
			req.Header.Set(echo.HeaderOrigin, tt.origin)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if tt.allowed {
				assert.Equal(t, tt.origin, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
				assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
			} else {
				assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
			}
		})
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec := doJSON(e, http.MethodGet, "/api/does-not-exist", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeBody(t, rec)["code"])
}

func TestServer_ChatFailureIsEnvelope(t *testing.T) {
	e, fake := newTestServer(t, nil)
	fake.Respond(backend.RouteResponse, testutilUnavailable())

	rec := doJSON(e, http.MethodPost, "/api/ask/"+config.DefaultEndpointName, `{"text":"hello"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["error"])
	assert.Equal(t, "assistant", body["role"])
}

func TestServer_ChatValidationError(t *testing.T) {
	e, fake := newTestServer(t, nil)

	rec := doJSON(e, http.MethodPost, "/api/ask/"+config.DefaultEndpointName, `{"text":"`+strings.Repeat("a", MaxPromptLength+1)+`"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "input exceeds the limit of 2000 characters", decodeBody(t, rec)["error"])
	assert.Zero(t, fake.CallCount(backend.RouteResponse))
}

func TestServer_AnalyzeFailureIs500(t *testing.T) {
	e, fake := newTestServer(t, nil)
	fake.Respond(backend.RouteAnalyzeDelays, testutilUnavailable())

	rec := doJSON(e, http.MethodPost, "/api/analyze_delays", `{}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error analyzing delays", decodeBody(t, rec)["error"])
}
