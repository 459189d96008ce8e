package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Ask(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, RouteResponse, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"LLM":"hello"}`))
	}))
	defer srv.Close()

	c := NewClient("http://unused", time.Second)
	body, err := c.Ask(context.Background(), srv.URL+"/", "how many projects?")

	require.NoError(t, err)
	assert.Equal(t, "how many projects?", gotBody["prompt"])
	assert.JSONEq(t, `{"LLM":"hello"}`, string(body))
}

func TestClient_AskTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Minute, WithChatTimeout(50*time.Millisecond))
	_, err := c.Ask(context.Background(), srv.URL, "slow")

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"db down"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.PostJSON(context.Background(), RouteAnalyzeDelays, []byte(`{}`))

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusBadGateway, upErr.Status)
	assert.JSONEq(t, `{"error":"db down"}`, string(upErr.Body))
	assert.Contains(t, err.Error(), "502")
}

func TestUpstreamError_TruncatesOnRuneBoundary(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "two-byte runes", body: "x" + strings.Repeat("é", 150)},
		{name: "three-byte runes", body: strings.Repeat("日", 100)},
		{name: "four-byte runes", body: "ab" + strings.Repeat("🙂", 60)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := (&UpstreamError{Status: http.StatusBadGateway, Body: []byte(tt.body)}).Error()

			assert.True(t, utf8.ValidString(msg))
			assert.True(t, strings.HasSuffix(msg, "..."))
			quoted := strings.TrimSuffix(strings.TrimPrefix(msg, "backend returned status 502: "), "...")
			assert.LessOrEqual(t, len(quoted), maxErrorBody)
			assert.True(t, strings.HasPrefix(tt.body, quoted))
		})
	}
}

func TestClient_PostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, RoutePendingTasks, r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"assignee":"ana"}`, string(body))
		w.Write([]byte(`{"tasks":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	out, err := c.PostJSON(context.Background(), RoutePendingTasks, []byte(`{"assignee":"ana"}`))

	require.NoError(t, err)
	assert.JSONEq(t, `{"tasks":[]}`, string(out))
}

func TestClient_PostJSONEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "{}", string(body))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.PostJSON(context.Background(), RouteAnalyzeDelays, nil)
	require.NoError(t, err)
}

func TestClient_GetJSONNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, RouteDashboard, r.URL.Path)
		w.Write([]byte("metrics unavailable"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	out, err := c.GetJSON(context.Background(), RouteDashboard)

	require.NoError(t, err)
	assert.Equal(t, `"metrics unavailable"`, string(out))
}

func TestClient_UploadExcel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, RouteUploadExcel, r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		data, _ := io.ReadAll(file)
		assert.Equal(t, "avance.xlsx", header.Filename)
		assert.Equal(t, "application/vnd.ms-excel", header.Header.Get("Content-Type"))
		assert.Equal(t, "sheet-bytes", string(data))
		w.Write([]byte(`{"success":true,"rows":12}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	out, err := c.UploadExcel(context.Background(), "avance.xlsx", "application/vnd.ms-excel", strings.NewReader("sheet-bytes"))

	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"rows":12}`, string(out))
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second)
	_, err := c.GetJSON(context.Background(), RouteDashboard)

	require.Error(t, err)
	var upErr *UpstreamError
	assert.False(t, errors.As(err, &upErr))
}
