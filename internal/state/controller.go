package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sma-monitor/dashboard/internal/client"
	"github.com/sma-monitor/dashboard/internal/history"
	"github.com/sma-monitor/dashboard/internal/models"
	"github.com/sma-monitor/dashboard/internal/upload"
)

// TipNoFile follows an answer given while no spreadsheet is loaded.
const TipNoFile = "Tip: upload an Excel file to get answers about your projects."

var (
	ErrNoFile              = errors.New("no file loaded")
	ErrProjectNameRequired = errors.New("project name is required")
	ErrDownloadUnavailable = errors.New("download not available")
	ErrSendInProgress      = errors.New("a message is already being sent")
	ErrEmptyMessage        = errors.New("message is empty")
)

// API is the subset of the proxy client the controller drives.
type API interface {
	Ask(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	UploadExcel(ctx context.Context, name string, data []byte) (json.RawMessage, error)
	AnalyzeDelays(ctx context.Context) (json.RawMessage, error)
	PendingTasks(ctx context.Context, assignee string) (json.RawMessage, error)
	ProjectSummary(ctx context.Context, projectName string) (json.RawMessage, error)
	Dashboard(ctx context.Context) (models.DashboardMetrics, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Controller runs user actions against the proxy and records their outcome
// in a Store. Every action leaves the store stable: overlay cleared, sending
// re-enabled and the upload phase terminal.
type Controller struct {
	store   *Store
	api     API
	history history.Store
	sleep   SleepFunc
	now     func() time.Time
	logger  *slog.Logger
}

// Option customises a Controller.
type Option func(*Controller)

// WithSleep replaces the timer used for progress steps and delayed effects.
func WithSleep(fn SleepFunc) Option {
	return func(c *Controller) { c.sleep = fn }
}

// WithClock replaces the clock used for upload timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController creates a controller. A nil history keeps uploads in memory.
func NewController(store *Store, api API, hist history.Store, opts ...Option) *Controller {
	if hist == nil {
		hist = history.NewMemoryStore()
	}
	c := &Controller{
		store:   store,
		api:     api,
		history: hist,
		sleep:   sleepCtx,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the state container.
func (c *Controller) Store() *Store {
	return c.store
}

// Navigate switches view and returns the effects to schedule.
func (c *Controller) Navigate(v View) []Effect {
	return c.store.SwitchView(v)
}

// RunEffect waits out the effect's delay and performs it.
func (c *Controller) RunEffect(ctx context.Context, e Effect) error {
	if err := c.sleep(ctx, e.Delay); err != nil {
		return err
	}
	switch e.Kind {
	case EffectRefreshDashboard:
		return c.LoadDashboard(ctx)
	}
	return nil
}

// SendMessage appends the user message, asks the agent and appends exactly
// one assistant message with the answer or the failure.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if !c.store.BeginSend() {
		return ErrSendInProgress
	}
	defer c.store.EndSend()

	transcript := c.store.Transcript()
	transcript.AppendUser(text)

	convID, parentID := transcript.Conversation()
	resp, err := c.api.Ask(ctx, models.ChatRequest{
		Text:            text,
		ConversationID:  convID,
		ParentMessageID: parentID,
		Timestamp:       c.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		c.logger.Warn("chat request failed", "kind", client.KindOf(err), "error", err)
		if resp != nil && resp.Content != "" {
			transcript.AppendError(resp.Content)
		} else {
			transcript.AppendError(errorMessage(err))
		}
		return err
	}

	transcript.AppendAssistant(resp.Content, resp.Metadata)
	transcript.Link(resp.ConversationID, resp.ID)
	if !c.store.HasFile() {
		transcript.AppendAssistant(TipNoFile, nil)
	}
	return nil
}

// UploadFile validates and uploads a spreadsheet. progress, if set, receives
// every value the progress bar shows.
func (c *Controller) UploadFile(ctx context.Context, name string, data []byte, progress func(int)) error {
	report := func(p int) {
		c.store.Uploads().SetProgress(p)
		if progress != nil {
			progress(p)
		}
	}

	if err := upload.Validate(name, client.ContentTypeFor(name), int64(len(data)), 0); err != nil {
		c.store.Notify(NotifyError, err.Error())
		return err
	}
	uploads := c.store.Uploads()
	if err := uploads.Begin(name); err != nil {
		c.store.Notify(NotifyError, err.Error())
		return err
	}

	for _, p := range upload.ProgressSchedule() {
		report(p)
		if err := c.sleep(ctx, upload.StepInterval); err != nil {
			return c.uploadFailed(err)
		}
	}

	raw, err := c.api.UploadExcel(ctx, name, data)
	report(100)
	if err != nil {
		return c.uploadFailed(err)
	}

	uploadedAt := c.now()
	c.store.SetFile(&models.UploadedFile{
		Name:       filepath.Base(name),
		Size:       int64(len(data)),
		UploadedAt: uploadedAt,
		Data:       raw,
		Original:   data,
	})
	uploads.Succeed()

	if _, err := c.history.Add(filepath.Base(name), int64(len(data)), uploadedAt); err != nil {
		c.logger.Warn("failed to record upload history", "file", name, "error", err)
	}
	c.store.Notify(NotifySuccess, "Excel file uploaded successfully")
	return nil
}

func (c *Controller) uploadFailed(err error) error {
	c.logger.Warn("upload failed", "kind", client.KindOf(err), "error", err)
	c.store.SetFile(nil)
	c.store.Uploads().Fail(err)
	c.store.Notify(NotifyError, "Error processing the file: "+errorMessage(err))
	return err
}

// AnalyzeDelays runs the delay analysis.
func (c *Controller) AnalyzeDelays(ctx context.Context) error {
	return c.analyze(ctx, "Analyzing delays...", "Delay analysis",
		func(ctx context.Context) (json.RawMessage, error) { return c.api.AnalyzeDelays(ctx) })
}

// PendingTasks lists pending tasks, filtered by assignee when one is given.
func (c *Controller) PendingTasks(ctx context.Context, assignee string) error {
	assignee = strings.TrimSpace(assignee)
	title := "Pending tasks"
	if assignee != "" {
		title += " - " + assignee
	}
	return c.analyze(ctx, "Analyzing pending tasks...", title,
		func(ctx context.Context) (json.RawMessage, error) { return c.api.PendingTasks(ctx, assignee) })
}

// ProjectSummary summarises one project. An empty name fails without a
// request.
func (c *Controller) ProjectSummary(ctx context.Context, projectName string) error {
	if !c.requireFile() {
		return ErrNoFile
	}
	projectName = strings.TrimSpace(projectName)
	if projectName == "" {
		c.store.SetResults("Error", "Enter a project name to get its summary.")
		c.store.Notify(NotifyError, ErrProjectNameRequired.Error())
		return ErrProjectNameRequired
	}

	err := c.analyze(ctx, fmt.Sprintf("Generating summary for %s...", projectName),
		"Project summary: "+projectName,
		func(ctx context.Context) (json.RawMessage, error) { return c.api.ProjectSummary(ctx, projectName) })
	if err == nil {
		c.store.Notify(NotifySuccess, "Summary generated")
	}
	return err
}

func (c *Controller) requireFile() bool {
	if c.store.HasFile() {
		return true
	}
	c.store.SetResults("Warning", "Upload an Excel file before running an analysis.")
	c.store.Notify(NotifyError, ErrNoFile.Error())
	return false
}

func (c *Controller) analyze(ctx context.Context, loading, title string, call func(context.Context) (json.RawMessage, error)) error {
	if !c.requireFile() {
		return ErrNoFile
	}

	c.store.SetLoading(loading)
	defer c.store.ClearLoading()

	raw, err := call(ctx)
	if err != nil {
		c.logger.Warn("analysis failed", "title", title, "kind", client.KindOf(err), "error", err)
		msg := errorMessage(err)
		c.store.SetResults("Error", msg)
		c.store.Notify(NotifyError, msg)
		return err
	}
	c.store.SetResults(title, FormatResult(raw))
	return nil
}

// LoadDashboard refreshes the project counters. It does nothing while no
// file is loaded.
func (c *Controller) LoadDashboard(ctx context.Context) error {
	if !c.store.HasFile() {
		return nil
	}

	c.store.SetLoading("Loading dashboard...")
	defer c.store.ClearLoading()

	m, err := c.api.Dashboard(ctx)
	if err != nil {
		c.logger.Warn("dashboard refresh failed", "kind", client.KindOf(err), "error", err)
		c.store.Notify(NotifyError, errorMessage(err))
		return err
	}
	c.store.SetMetrics(m)
	return nil
}

// ClearFile unloads the spreadsheet. History is left untouched.
func (c *Controller) ClearFile() {
	c.store.SetFile(nil)
	c.store.Uploads().Clear()
	c.store.Notify(NotifyInfo, "File cleared")
}

// SaveCurrentFile writes the loaded spreadsheet into dir and returns its path.
// Files restored from history carry no bytes and cannot be saved.
func (c *Controller) SaveCurrentFile(dir string) (string, error) {
	f := c.store.CurrentFile()
	if f == nil || f.Original == nil {
		c.store.Notify(NotifyError, ErrDownloadUnavailable.Error())
		return "", ErrDownloadUnavailable
	}

	path := filepath.Join(dir, filepath.Base(f.Name))
	if err := os.WriteFile(path, f.Original, 0o644); err != nil {
		c.store.Notify(NotifyError, fmt.Sprintf("could not save %s: %v", f.Name, err))
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	c.store.Notify(NotifySuccess, "Saved to "+path)
	return path, nil
}

// History returns past uploads, newest first.
func (c *Controller) History() ([]models.HistoryEntry, error) {
	return c.history.List()
}

// ReloadFromHistory restores a past upload as the current file. Only the
// metadata is restored, the backend is not asked to re-process anything.
func (c *Controller) ReloadFromHistory(id string) error {
	entry, err := c.history.Get(id)
	if err != nil {
		c.store.Notify(NotifyError, "history entry not found")
		return err
	}

	c.store.SetFile(&models.UploadedFile{
		Name:         entry.Name,
		Size:         entry.Size,
		UploadedAt:   entry.UploadedAt,
		ReloadedFrom: entry.ID,
		MetadataOnly: true,
	})
	c.store.Uploads().Loaded(entry.Name)
	c.store.SwitchView(ViewUpload)
	c.store.Notify(NotifyInfo, entry.Name+" restored (metadata only)")
	return nil
}

// errorMessage picks the user-facing text for err by its kind.
func errorMessage(err error) string {
	switch client.KindOf(err) {
	case client.KindConnection:
		return "Cannot reach the server. Check that the proxy is running."
	case client.KindNotFound:
		return "Endpoint not found. Check the server configuration."
	case client.KindRateLimited:
		return "Too many requests. Wait a moment and try again."
	case client.KindServer:
		if msg := client.MessageOf(err); msg != "" {
			return msg + ". Check the backend logs."
		}
		return "Internal server error. Check the backend logs."
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "The request was cancelled."
	}
	return client.MessageOf(err)
}
