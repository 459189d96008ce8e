package state

import (
	"sync"
	"time"

	"github.com/sma-monitor/dashboard/internal/chat"
	"github.com/sma-monitor/dashboard/internal/models"
	"github.com/sma-monitor/dashboard/internal/upload"
)

// NotificationKind selects how a notification is rendered.
type NotificationKind string

const (
	NotifyInfo    NotificationKind = "info"
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

// Notification is a transient toast.
type Notification struct {
	Kind    NotificationKind
	Message string
	At      time.Time
}

// Results is the content of the analysis panel.
type Results struct {
	Title string
	Body  string
}

// Snapshot is a copy of the store taken under its lock. The TUI renders from
// snapshots while commands mutate the store in the background.
type Snapshot struct {
	View         View
	CurrentFile  *models.UploadedFile
	Messages     []models.ChatMessage
	Upload       upload.Status
	Sending      bool
	Loading      bool
	LoadingText  string
	Results      Results
	Metrics      models.DashboardMetrics
	Notification *Notification
}

// HasFile reports whether a spreadsheet is loaded.
func (s Snapshot) HasFile() bool {
	return s.CurrentFile != nil
}

// Store is the client state container.
type Store struct {
	mu           sync.RWMutex
	view         View
	file         *models.UploadedFile
	sending      bool
	loading      bool
	loadingText  string
	results      Results
	metrics      models.DashboardMetrics
	notification *Notification
	now          func() time.Time

	transcript *chat.Transcript
	uploads    *upload.Manager
}

// NewStore creates a store on the chat view with nothing loaded.
func NewStore() *Store {
	return &Store{
		view:       ViewChat,
		now:        time.Now,
		transcript: chat.NewTranscript(),
		uploads:    upload.NewManager(),
	}
}

// Transcript returns the chat log.
func (s *Store) Transcript() *chat.Transcript {
	return s.transcript
}

// Uploads returns the upload lifecycle tracker.
func (s *Store) Uploads() *upload.Manager {
	return s.uploads
}

// SwitchView activates v and returns the effects the transition requires.
// Unknown views are ignored.
func (s *Store) SwitchView(v View) []Effect {
	if _, ok := ParseView(string(v)); !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.view = v
	switch {
	case v == ViewDashboard && s.file != nil:
		return []Effect{{Kind: EffectRefreshDashboard, Delay: DashboardRefreshDelay}}
	case v == ViewAnalysis && s.file == nil:
		s.results = Results{Title: "Information", Body: "Upload an Excel file to run an analysis."}
	}
	return nil
}

// View returns the active view.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// CurrentFile returns the loaded spreadsheet, or nil.
func (s *Store) CurrentFile() *models.UploadedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file
}

// HasFile reports whether a spreadsheet is loaded.
func (s *Store) HasFile() bool {
	return s.CurrentFile() != nil
}

// SetFile replaces the loaded spreadsheet. Nil clears it and resets the
// dashboard counters.
func (s *Store) SetFile(f *models.UploadedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.file = f
	if f == nil {
		s.metrics = models.DashboardMetrics{}
	}
}

// BeginSend marks a chat request as outstanding. It reports false if one
// already is.
func (s *Store) BeginSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sending {
		return false
	}
	s.sending = true
	return true
}

// EndSend re-enables sending.
func (s *Store) EndSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sending = false
}

// SetLoading shows the loading overlay with text.
func (s *Store) SetLoading(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.loadingText = text
}

// ClearLoading hides the loading overlay.
func (s *Store) ClearLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.loadingText = ""
}

// SetResults replaces the analysis panel.
func (s *Store) SetResults(title, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = Results{Title: title, Body: body}
}

// SetMetrics replaces the dashboard counters.
func (s *Store) SetMetrics(m models.DashboardMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// Notify replaces the current notification.
func (s *Store) Notify(kind NotificationKind, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notification = &Notification{Kind: kind, Message: msg, At: s.now()}
}

// DismissNotification clears the current notification.
func (s *Store) DismissNotification() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notification = nil
}

// Snapshot copies the whole state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		View:        s.view,
		Sending:     s.sending,
		Loading:     s.loading,
		LoadingText: s.loadingText,
		Results:     s.results,
		Metrics:     s.metrics,
	}
	if s.file != nil {
		f := *s.file
		snap.CurrentFile = &f
	}
	if s.notification != nil {
		n := *s.notification
		snap.Notification = &n
	}
	s.mu.RUnlock()

	snap.Messages = s.transcript.Messages()
	snap.Upload = s.uploads.Status()
	return snap
}
