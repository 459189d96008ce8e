package tui

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sma-monitor/dashboard/internal/history"
	"github.com/sma-monitor/dashboard/internal/logging"
	"github.com/sma-monitor/dashboard/internal/models"
	"github.com/sma-monitor/dashboard/internal/state"
)

type stubAPI struct {
	asked     []string
	uploads   []string
	summaries []string
	dashboard int
	release   chan struct{}
}

func (s *stubAPI) Ask(_ context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	if s.release != nil {
		<-s.release
	}
	s.asked = append(s.asked, req.Text)
	return &models.ChatResponse{ID: "msg_1", ConversationID: "conv_1", Role: models.RoleAssistant, Content: "Two projects are delayed."}, nil
}

func (s *stubAPI) UploadExcel(_ context.Context, name string, _ []byte) (json.RawMessage, error) {
	s.uploads = append(s.uploads, name)
	return json.RawMessage(`{"success":true}`), nil
}

func (s *stubAPI) AnalyzeDelays(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"delayed":1}`), nil
}

func (s *stubAPI) PendingTasks(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}

func (s *stubAPI) ProjectSummary(_ context.Context, name string) (json.RawMessage, error) {
	s.summaries = append(s.summaries, name)
	return json.RawMessage(`"on track"`), nil
}

func (s *stubAPI) Dashboard(context.Context) (models.DashboardMetrics, error) {
	s.dashboard++
	return models.DashboardMetrics{TotalProjects: 3}, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func newTestModel(t *testing.T) (Model, *stubAPI) {
	t.Helper()
	api := &stubAPI{}
	ctrl := state.NewController(state.NewStore(), api, history.NewMemoryStore(),
		state.WithSleep(noSleep),
		state.WithLogger(logging.NewNoop()),
	)
	return New(context.Background(), ctrl, Options{SaveDir: t.TempDir()}), api
}

// send feeds msg to the model and runs the resulting commands to
// completion, the way the bubbletea runtime would.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	queue := []tea.Msg{msg}
	for i := 0; len(queue) > 0 && i < 20; i++ {
		next := queue[0]
		queue = queue[1:]

		updated, cmd := m.Update(next)
		m = updated.(Model)
		queue = append(queue, runCmd(cmd)...)
	}
	return m
}

func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case nil, tea.QuitMsg:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, runCmd(c)...)
		}
		return out
	default:
		return []tea.Msg{msg}
	}
}

func typeText(m Model, text string) Model {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(Model)
}

func TestNewModel(t *testing.T) {
	m, _ := newTestModel(t)

	assert.Equal(t, state.ViewChat, m.ctrl.Store().View())
	view := m.View()
	assert.Contains(t, view, DefaultTitle)
	assert.Contains(t, view, "No file loaded")
}

func TestTabCyclesViews(t *testing.T) {
	m, _ := newTestModel(t)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, state.ViewDashboard, m.ctrl.Store().View())
	assert.Contains(t, m.View(), "Upload an Excel file to see project metrics.")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, state.ViewHistory, m.ctrl.Store().View())
	assert.Contains(t, m.View(), "No uploads yet.")
}

func TestChatSend(t *testing.T) {
	m, api := newTestModel(t)

	m = typeText(m, "which projects are late?")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"which projects are late?"}, api.asked)
	assert.Equal(t, "", m.input.Value())
	assert.Equal(t, 3, m.messageCount, "question, answer and tip")
	assert.Contains(t, m.viewport.View(), "Two projects are delayed.")
}

func TestChatShowsQuestionWhileWaiting(t *testing.T) {
	m, api := newTestModel(t)
	api.release = make(chan struct{})

	m = typeText(m, "which projects are late?")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	require.NotNil(t, cmd)

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	transcript := m.ctrl.Store().Transcript()
	require.Eventually(t, func() bool {
		return len(transcript.Messages()) == 1
	}, time.Second, 5*time.Millisecond)

	updated, _ = m.Update(spinner.TickMsg{})
	m = updated.(Model)
	assert.Contains(t, m.viewport.View(), "which projects are late?")
	assert.NotContains(t, m.viewport.View(), "Two projects are delayed.")

	close(api.release)
	m = send(t, m, <-done)
	assert.Contains(t, m.viewport.View(), "Two projects are delayed.")
}

func TestChatEmptyEnterDoesNothing(t *testing.T) {
	m, api := newTestModel(t)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, api.asked)
	assert.Zero(t, m.messageCount)
}

func TestUploadFromPath(t *testing.T) {
	m, api := newTestModel(t)
	path := filepath.Join(t.TempDir(), "plan.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("PK"), 0o644))

	m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab}) // history
	m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab}) // upload
	require.Equal(t, state.ViewUpload, m.ctrl.Store().View())

	m = typeText(m, path)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{path}, api.uploads)
	snap := m.ctrl.Store().Snapshot()
	require.NotNil(t, snap.CurrentFile)
	assert.Equal(t, "plan.xlsx", snap.CurrentFile.Name)
	assert.Len(t, m.history, 1)
	assert.Contains(t, m.View(), "plan.xlsx")
}

func TestUploadMissingFile(t *testing.T) {
	m, api := newTestModel(t)
	m.ctrl.Navigate(state.ViewUpload)
	m.configureInput(state.ViewUpload)

	m = typeText(m, filepath.Join(t.TempDir(), "missing.xlsx"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Empty(t, api.uploads)
	snap := m.ctrl.Store().Snapshot()
	require.NotNil(t, snap.Notification)
	assert.Equal(t, state.NotifyError, snap.Notification.Kind)
}

func TestAnalysisProjectSummary(t *testing.T) {
	m, api := newTestModel(t)
	require.NoError(t, m.ctrl.UploadFile(context.Background(), "plan.xlsx", []byte("PK"), nil))

	m.ctrl.Navigate(state.ViewAnalysis)
	m.configureInput(state.ViewAnalysis)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, actionSummary, m.action)

	m = typeText(m, "Bridge")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"Bridge"}, api.summaries)
	assert.Contains(t, m.View(), "on track")
}

func TestDashboardRefreshAfterUpload(t *testing.T) {
	m, api := newTestModel(t)
	require.NoError(t, m.ctrl.UploadFile(context.Background(), "plan.xlsx", []byte("PK"), nil))

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, api.dashboard)
	assert.Contains(t, m.View(), "Total projects")
}

func TestNextView(t *testing.T) {
	assert.Equal(t, state.ViewDashboard, nextView(state.ViewChat, 1))
	assert.Equal(t, state.ViewHistory, nextView(state.ViewChat, -1))
	assert.Equal(t, state.ViewChat, nextView(state.ViewHistory, 1))
	assert.Equal(t, state.ViewChat, nextView(state.View("bogus"), 1))
}
