package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/sma-monitor/dashboard/internal/backend"
	"github.com/sma-monitor/dashboard/internal/config"
	"github.com/sma-monitor/dashboard/internal/logging"
	"github.com/sma-monitor/dashboard/internal/testutil"
)

func newFakeBackend(t *testing.T) (*testutil.FakeBackend, *backend.Client) {
	t.Helper()
	fake := testutil.NewFakeBackend(t)
	return fake, backend.NewClient(fake.URL, 5*time.Second, backend.WithChatTimeout(5*time.Second))
}

// newTestServer wires the full middleware chain against a fake backend.
func newTestServer(t *testing.T, mutate func(*config.AppConfig)) (*echo.Echo, *testutil.FakeBackend) {
	t.Helper()
	fake, client := newFakeBackend(t)

	cfg := config.DefaultConfig()
	cfg.Backend.URL = fake.URL
	if mutate != nil {
		mutate(cfg)
	}

	e := NewServer(&Dependencies{
		Backend:   client,
		Endpoints: config.DefaultEndpoints(fake.URL),
		Config:    cfg,
		Logger:    logging.NewNoop(),
		Version:   "test",
	})
	return e, fake
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// multipartFile builds a form with one file part.
func multipartFile(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return body, w.FormDataContentType()
}

func requireAPIError(t *testing.T, err error, status int, code string) *APIError {
	t.Helper()
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected *APIError, got %T (%v)", err, err)
	require.Equal(t, status, apiErr.Status)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func testutilUnavailable() testutil.Response {
	return testutil.Response{Status: http.StatusServiceUnavailable, Body: "unavailable"}
}
