// Package client is a typed HTTP client for the SMA proxy API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"github.com/sma-monitor/dashboard/internal/models"
	"github.com/sma-monitor/dashboard/internal/upload"
)

// DefaultEndpoint is the agent chat messages are sent to.
const DefaultEndpoint = "SMA-Agent"

// Client calls the proxy. It never retries.
type Client struct {
	baseURL  string
	http     *http.Client
	endpoint string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithEndpoint selects the chat agent.
func WithEndpoint(name string) Option {
	return func(c *Client) { c.endpoint = name }
}

// New creates a client for the proxy at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 3 * time.Minute},
		endpoint: DefaultEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the proxy address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health checks that the proxy is reachable.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/api/health", "", nil)
	return err
}

// Config fetches the UI bootstrap payload.
func (c *Client) Config(ctx context.Context) (*models.AppConfig, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/config", "", nil)
	if err != nil {
		return nil, err
	}
	var cfg models.AppConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, &Error{Kind: KindUnknown, Message: "invalid config payload", Cause: err}
	}
	return &cfg, nil
}

// Ask sends a chat message. When the proxy reports a backend failure inside
// the envelope, the envelope is returned together with a KindUpstream error.
func (c *Client) Ask(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, validationError("message is empty", nil)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, validationError("cannot encode message", err)
	}

	raw, err := c.do(ctx, http.MethodPost, "/api/ask/"+c.endpoint, mimeJSON, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var resp models.ChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &Error{Kind: KindUnknown, Message: "invalid chat response", Cause: err}
	}
	if resp.Error {
		return &resp, &Error{Kind: KindUpstream, Status: http.StatusOK, Message: resp.Content}
	}
	return &resp, nil
}

// UploadExcel validates and uploads a spreadsheet as multipart field "file".
func (c *Client) UploadExcel(ctx context.Context, name string, data []byte) (json.RawMessage, error) {
	contentType := ContentTypeFor(name)
	if err := upload.Validate(name, contentType, int64(len(data)), 0); err != nil {
		return nil, validationError(err.Error(), err)
	}

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(name)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err == nil {
		_, err = part.Write(data)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return nil, validationError("cannot encode upload", err)
	}

	raw, err := c.do(ctx, http.MethodPost, "/api/upload_excel", mw.FormDataContentType(), body)
	if err != nil {
		return nil, err
	}
	return raw, checkPayload(raw)
}

// AnalyzeDelays runs the delay analysis.
func (c *Client) AnalyzeDelays(ctx context.Context) (json.RawMessage, error) {
	return c.postJSON(ctx, "/api/analyze_delays", map[string]any{})
}

// PendingTasks lists pending tasks, optionally for one assignee.
func (c *Client) PendingTasks(ctx context.Context, assignee string) (json.RawMessage, error) {
	body := map[string]any{}
	if assignee = strings.TrimSpace(assignee); assignee != "" {
		body["assignee"] = assignee
	}
	return c.postJSON(ctx, "/api/pending_tasks", body)
}

// ProjectSummary summarises one project. The name is required.
func (c *Client) ProjectSummary(ctx context.Context, projectName string) (json.RawMessage, error) {
	projectName = strings.TrimSpace(projectName)
	if projectName == "" {
		return nil, validationError("project name is required", nil)
	}
	return c.postJSON(ctx, "/api/project_summary", map[string]any{"project_name": projectName})
}

// Dashboard fetches the project counters. Missing counters are zero.
func (c *Client) Dashboard(ctx context.Context) (models.DashboardMetrics, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/dashboard", "", nil)
	if err != nil {
		return models.DashboardMetrics{}, err
	}
	if err := checkPayload(raw); err != nil {
		return models.DashboardMetrics{}, err
	}

	var resp models.DashboardResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Metrics == nil {
		return models.DashboardMetrics{}, nil
	}
	return *resp.Metrics, nil
}

const mimeJSON = "application/json"

func (c *Client) postJSON(ctx context.Context, path string, body any) (json.RawMessage, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, validationError("cannot encode request", err)
	}
	raw, err := c.do(ctx, http.MethodPost, path, mimeJSON, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return raw, checkPayload(raw)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Message: "cannot build request", Cause: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Message: "cannot reach the server", Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Status: resp.StatusCode, Message: "connection lost while reading the response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, details := errorBody(raw)
		if msg == "" {
			msg = fmt.Sprintf("error %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return nil, &Error{Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode, Message: msg, Details: details}
	}
	return raw, nil
}

type errorPayload struct {
	Error   string `json:"error"`
	Details any    `json:"details"`
}

func errorBody(raw []byte) (string, any) {
	var p errorPayload
	if json.Unmarshal(raw, &p) != nil {
		return "", nil
	}
	return p.Error, p.Details
}

// checkPayload turns a 2xx body with success:false into a KindUpstream error
// carrying the backend's own message.
func checkPayload(raw json.RawMessage) error {
	var p struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &p) != nil || p.Success == nil || *p.Success {
		return nil
	}
	msg := p.Error
	if msg == "" {
		msg = p.Message
	}
	if msg == "" {
		msg = "the backend reported a failure"
	}
	return &Error{Kind: KindUpstream, Status: http.StatusOK, Message: msg}
}

// ContentTypeFor returns the spreadsheet MIME type for a file name.
func ContentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return upload.ExcelMIMETypes[0]
	case ".xls":
		return upload.ExcelMIMETypes[1]
	default:
		return "application/octet-stream"
	}
}
