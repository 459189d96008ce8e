package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/sma-monitor/dashboard/internal/backend"
	"github.com/sma-monitor/dashboard/internal/logging"
	"github.com/sma-monitor/dashboard/internal/testutil"
)

func TestAnalysisHandler_PassThrough(t *testing.T) {
	tests := []struct {
		name    string
		route   string
		body    string
		handler func(AnalysisHandler) echo.HandlerFunc
	}{
		{
			name:    "analyze delays",
			route:   backend.RouteAnalyzeDelays,
			body:    `{}`,
			handler: func(h AnalysisHandler) echo.HandlerFunc { return h.HandleAnalyzeDelays },
		},
		{
			name:    "pending tasks",
			route:   backend.RoutePendingTasks,
			body:    `{"assignee":"Ana"}`,
			handler: func(h AnalysisHandler) echo.HandlerFunc { return h.HandlePendingTasks },
		},
		{
			name:    "project summary",
			route:   backend.RouteProjectSummary,
			body:    `{"project_name":"Bridge"}`,
			handler: func(h AnalysisHandler) echo.HandlerFunc { return h.HandleProjectSummary },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, client := newFakeBackend(t)
			fake.RespondJSON(tt.route, `{"data":[1,2,3]}`)
			h := NewAnalysisHandler(client, logging.NewNoop())

			c, rec := newJSONContext(http.MethodPost, tt.route, tt.body)
			require.NoError(t, tt.handler(h)(c))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"data":[1,2,3]}`, rec.Body.String())

			calls := fake.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, http.MethodPost, calls[0].Method)
			assert.JSONEq(t, tt.body, string(calls[0].Body))
		})
	}
}

func TestAnalysisHandler_Failure(t *testing.T) {
	fake, client := newFakeBackend(t)
	fake.Respond(backend.RouteAnalyzeDelays, testutil.Response{Status: http.StatusInternalServerError, Body: `{"error":"secret stack"}`})
	h := NewAnalysisHandler(client, logging.NewNoop())

	c, _ := newJSONContext(http.MethodPost, "/api/analyze_delays", `{}`)
	err := h.HandleAnalyzeDelays(c)

	apiErr := requireAPIError(t, err, http.StatusInternalServerError, "UPSTREAM_ERROR")
	assert.Equal(t, "error analyzing delays", apiErr.Message)
	assert.Nil(t, apiErr.Details, "backend details are not exposed")
}

func TestAnalysisHandler_Dashboard(t *testing.T) {
	fake, client := newFakeBackend(t)
	fake.RespondJSON(backend.RouteDashboard, `{"metrics":{"total_projects":12,"on_track":7,"at_risk":3,"delayed":2}}`)
	h := NewAnalysisHandler(client, logging.NewNoop())

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/dashboard", nil), rec)

	require.NoError(t, h.HandleDashboard(c))
	assert.JSONEq(t, `{"metrics":{"total_projects":12,"on_track":7,"at_risk":3,"delayed":2}}`, rec.Body.String())
	assert.Equal(t, http.MethodGet, fake.Calls()[0].Method)
}

func TestAnalysisHandler_DashboardFailure(t *testing.T) {
	_, client := newFakeBackend(t) // no route configured: backend answers 404
	h := NewAnalysisHandler(client, logging.NewNoop())

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/dashboard", nil), httptest.NewRecorder())

	err := h.HandleDashboard(c)
	requireAPIError(t, err, http.StatusInternalServerError, "UPSTREAM_ERROR")
}

func TestAnalysisHandler_NonJSONBackendBody(t *testing.T) {
	fake, client := newFakeBackend(t)
	fake.Respond(backend.RoutePendingTasks, testutil.Response{Body: "no pending tasks"})
	h := NewAnalysisHandler(client, logging.NewNoop())

	c, rec := newJSONContext(http.MethodPost, "/api/pending_tasks", `{}`)
	require.NoError(t, h.HandlePendingTasks(c))

	assert.Equal(t, `"no pending tasks"`, rec.Body.String())
}

func TestAnalysisHandler_Msgpack(t *testing.T) {
	fake, client := newFakeBackend(t)
	fake.RespondJSON(backend.RouteAnalyzeDelays, `{"delayed":["Bridge","Tunnel"],"count":2}`)
	h := NewAnalysisHandler(client, logging.NewNoop())

	c, rec := newJSONContext(http.MethodPost, "/api/analyze_delays", `{}`)
	c.Request().Header.Set(echo.HeaderAccept, MIMEApplicationMsgpack)
	require.NoError(t, h.HandleAnalyzeDelays(c))

	assert.Equal(t, MIMEApplicationMsgpack, rec.Header().Get(echo.HeaderContentType))
	var out map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []any{"Bridge", "Tunnel"}, out["delayed"])
	assert.EqualValues(t, 2, out["count"])
}
