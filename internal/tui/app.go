// Package tui is the terminal client for the SMA proxy.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sma-monitor/dashboard/internal/models"
	"github.com/sma-monitor/dashboard/internal/state"
	"github.com/sma-monitor/dashboard/internal/upload"
)

// DefaultTitle is shown in the header when the proxy config is unavailable.
const DefaultTitle = "SMA Progress Monitoring System"

type analysisAction int

const (
	actionDelays analysisAction = iota
	actionPending
	actionSummary
)

var analysisActions = []struct {
	label       string
	placeholder string
}{
	{"Analyze delays", ""},
	{"Pending tasks", "assignee (optional)"},
	{"Project summary", "project name"},
}

// Options configures the model.
type Options struct {
	Title   string
	SaveDir string // where ctrl+s writes the current file
	Now     func() time.Time
}

// Model is the bubbletea model of the terminal client.
type Model struct {
	ctx     context.Context
	ctrl    *state.Controller
	title   string
	saveDir string
	now     func() time.Time

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	progress progress.Model
	help     help.Model

	width  int
	height int

	messageCount  int
	action        analysisAction
	history       []models.HistoryEntry
	historyCursor int
}

// New creates the model.
func New(ctx context.Context, ctrl *state.Controller, opts Options) Model {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.SaveDir == "" {
		opts.SaveDir = "."
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ti := textinput.New()
	ti.CharLimit = 2000
	ti.Prompt = "> "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(Secondary)

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		title:    opts.Title,
		saveDir:  opts.SaveDir,
		now:      opts.Now,
		input:    ti,
		viewport: viewport.New(80, 15),
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:     help.New(),
	}
	m.configureInput(ctrl.Store().View())
	return m
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = max(msg.Height-12, 5)
		m.progress.Width = min(max(msg.Width-20, 10), 60)
		m.help.Width = msg.Width
		m.syncTranscript(true)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		// Commands append to the transcript before they finish.
		m.syncTranscript(false)
		return m, cmd

	case actionDoneMsg:
		m.syncTranscript(false)
		if msg.action == "upload" || msg.action == "reload" || msg.action == "clear" {
			cmds = append(cmds, m.loadHistory())
		}
		return m, tea.Batch(cmds...)

	case historyLoadedMsg:
		if msg.err == nil {
			m.history = msg.entries
			m.historyCursor = min(m.historyCursor, max(len(m.history)-1, 0))
		} else {
			m.ctrl.Store().Notify(state.NotifyError, "could not read upload history")
		}
		return m, nil

	case fileReadMsg:
		switch {
		case errors.Is(msg.err, upload.ErrNoFile), errors.Is(msg.err, upload.ErrTooLarge):
			m.ctrl.Store().Notify(state.NotifyError, msg.err.Error())
			return m, nil
		case msg.err != nil:
			m.ctrl.Store().Notify(state.NotifyError, fmt.Sprintf("cannot read %s: %v", msg.name, msg.err))
			return m, nil
		}
		return m, m.uploadCmd(msg.name, msg.data)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	store := m.ctrl.Store()
	view := store.View()

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.NextView):
		return m.switchView(nextView(view, 1))
	case key.Matches(msg, keys.PrevView):
		return m.switchView(nextView(view, -1))
	case key.Matches(msg, keys.Dismiss):
		store.DismissNotification()
		return m, nil
	case key.Matches(msg, keys.Clear):
		m.ctrl.ClearFile()
		return m, func() tea.Msg { return actionDoneMsg{action: "clear"} }
	case key.Matches(msg, keys.Save):
		m.ctrl.SaveCurrentFile(m.saveDir)
		return m, nil
	case key.Matches(msg, keys.Refresh):
		return m, m.run("dashboard", m.ctrl.LoadDashboard)
	}

	switch view {
	case state.ViewChat:
		if key.Matches(msg, keys.Submit) {
			text := strings.TrimSpace(m.input.Value())
			if text == "" || store.Snapshot().Sending {
				return m, nil
			}
			m.input.Reset()
			return m, m.run("chat", func(ctx context.Context) error { return m.ctrl.SendMessage(ctx, text) })
		}
		if key.Matches(msg, keys.Up, keys.Down) {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case state.ViewAnalysis:
		switch {
		case key.Matches(msg, keys.Up):
			m.action = (m.action + analysisAction(len(analysisActions)) - 1) % analysisAction(len(analysisActions))
			m.configureInput(view)
			return m, nil
		case key.Matches(msg, keys.Down):
			m.action = (m.action + 1) % analysisAction(len(analysisActions))
			m.configureInput(view)
			return m, nil
		case key.Matches(msg, keys.Submit):
			return m, m.runAnalysis(strings.TrimSpace(m.input.Value()))
		}

	case state.ViewUpload:
		if key.Matches(msg, keys.Submit) {
			path := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			return m, readFile(path)
		}

	case state.ViewHistory:
		switch {
		case key.Matches(msg, keys.Up):
			m.historyCursor = max(m.historyCursor-1, 0)
			return m, nil
		case key.Matches(msg, keys.Down):
			m.historyCursor = min(m.historyCursor+1, max(len(m.history)-1, 0))
			return m, nil
		case key.Matches(msg, keys.Submit):
			if len(m.history) == 0 {
				return m, nil
			}
			m.ctrl.ReloadFromHistory(m.history[m.historyCursor].ID)
			m.configureInput(store.View())
			return m, func() tea.Msg { return actionDoneMsg{action: "reload"} }
		}
		return m, nil

	case state.ViewDashboard:
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) switchView(v state.View) (tea.Model, tea.Cmd) {
	effects := m.ctrl.Navigate(v)
	m.configureInput(v)

	var cmds []tea.Cmd
	for _, e := range effects {
		cmds = append(cmds, m.run("effect", func(ctx context.Context) error { return m.ctrl.RunEffect(ctx, e) }))
	}
	if v == state.ViewHistory {
		cmds = append(cmds, m.loadHistory())
	}
	return m, tea.Batch(cmds...)
}

func nextView(current state.View, step int) state.View {
	n := len(state.Views)
	for i, v := range state.Views {
		if v == current {
			return state.Views[(i+step+n)%n]
		}
	}
	return state.ViewChat
}

// configureInput sets the prompt and placeholder for the active view.
func (m *Model) configureInput(v state.View) {
	m.input.Reset()
	switch v {
	case state.ViewChat:
		m.input.Placeholder = "Ask about your projects..."
		m.input.Focus()
	case state.ViewAnalysis:
		m.input.Placeholder = analysisActions[m.action].placeholder
		if m.action == actionDelays {
			m.input.Blur()
		} else {
			m.input.Focus()
		}
	case state.ViewUpload:
		m.input.Placeholder = "path to .xlsx or .xls file"
		m.input.Focus()
	default:
		m.input.Placeholder = ""
		m.input.Blur()
	}
}

// run executes fn off the event loop and reports back with actionDoneMsg.
func (m Model) run(action string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

func (m Model) runAnalysis(arg string) tea.Cmd {
	switch m.action {
	case actionPending:
		return m.run("analysis", func(ctx context.Context) error { return m.ctrl.PendingTasks(ctx, arg) })
	case actionSummary:
		return m.run("analysis", func(ctx context.Context) error { return m.ctrl.ProjectSummary(ctx, arg) })
	default:
		return m.run("analysis", m.ctrl.AnalyzeDelays)
	}
}

func (m Model) uploadCmd(name string, data []byte) tea.Cmd {
	return m.run("upload", func(ctx context.Context) error {
		return m.ctrl.UploadFile(ctx, name, data, nil)
	})
}

func (m Model) loadHistory() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.ctrl.History()
		return historyLoadedMsg{entries: entries, err: err}
	}
}

func readFile(path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return fileReadMsg{err: upload.ErrNoFile, name: "file"}
		}
		info, err := os.Stat(path)
		if err != nil {
			return fileReadMsg{name: path, err: err}
		}
		if info.Size() > upload.MaxFileSize {
			return fileReadMsg{name: path, err: upload.ErrTooLarge}
		}
		data, err := os.ReadFile(path)
		return fileReadMsg{name: path, data: data, err: err}
	}
}

// syncTranscript refreshes the chat viewport when messages were added.
func (m *Model) syncTranscript(force bool) {
	msgs := m.ctrl.Store().Transcript().Messages()
	if !force && len(msgs) == m.messageCount {
		return
	}
	m.messageCount = len(msgs)
	m.viewport.SetContent(renderMessages(msgs, m.viewport.Width))
	m.viewport.GotoBottom()
}

func renderMessages(msgs []models.ChatMessage, width int) string {
	if len(msgs) == 0 {
		return MutedStyle.Render("Hello! Ask me about project progress, delays or pending tasks.")
	}
	body := lipgloss.NewStyle().Width(max(width-2, 20))

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if msg.Role == models.RoleUser {
			b.WriteString(UserLabelStyle.Render("You"))
		} else {
			b.WriteString(AssistantLabelStyle.Render("SMA"))
		}
		b.WriteString("\n")

		content := body.Render(msg.Content)
		if msg.Metadata != nil && msg.Metadata.Error {
			content = ErrorMessageStyle.Render(content)
		}
		b.WriteString(content)
	}
	return b.String()
}

// View renders the model.
func (m Model) View() string {
	snap := m.ctrl.Store().Snapshot()

	sections := []string{m.renderHeader(snap)}
	switch snap.View {
	case state.ViewChat:
		sections = append(sections, m.renderChat(snap))
	case state.ViewDashboard:
		sections = append(sections, m.renderDashboard(snap))
	case state.ViewAnalysis:
		sections = append(sections, m.renderAnalysis(snap))
	case state.ViewUpload:
		sections = append(sections, m.renderUpload(snap))
	case state.ViewHistory:
		sections = append(sections, m.renderHistory())
	}

	if snap.Loading {
		sections = append(sections, m.spinner.View()+" "+LoadingTextStyle.Render(snap.LoadingText))
	}
	if n := snap.Notification; n != nil {
		sections = append(sections, renderNotification(n))
	}
	sections = append(sections, m.help.View(keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(snap state.Snapshot) string {
	tabs := make([]string, 0, len(state.Views))
	for _, v := range state.Views {
		if v == snap.View {
			tabs = append(tabs, ActiveTabStyle.Render(v.Title()))
		} else {
			tabs = append(tabs, TabStyle.Render(v.Title()))
		}
	}

	status := NoFileStyle.Render("No file loaded")
	if f := snap.CurrentFile; f != nil {
		status = FileStatusStyle.Render("● " + f.Name)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(m.title)+"  "+status,
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		"",
	)
}

func (m Model) renderChat(snap state.Snapshot) string {
	lines := []string{m.viewport.View()}
	if snap.Sending {
		lines = append(lines, m.spinner.View()+" "+MutedStyle.Render("Thinking..."))
	}
	lines = append(lines, m.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderDashboard(snap state.Snapshot) string {
	if !snap.HasFile() {
		return MutedStyle.Render("Upload an Excel file to see project metrics.")
	}
	metric := func(label string, value int) string {
		return MetricStyle.Render(MetricValueStyle.Render(fmt.Sprint(value)) + "\n" + MetricLabelStyle.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		metric("Total projects", snap.Metrics.TotalProjects),
		metric("On track", snap.Metrics.OnTrack),
		metric("At risk", snap.Metrics.AtRisk),
		metric("Delayed", snap.Metrics.Delayed),
	)
}

func (m Model) renderAnalysis(snap state.Snapshot) string {
	var actions []string
	for i, a := range analysisActions {
		if analysisAction(i) == m.action {
			actions = append(actions, SelectedStyle.Render("▸ "+a.label))
		} else {
			actions = append(actions, "  "+a.label)
		}
	}

	lines := []string{strings.Join(actions, "\n")}
	if m.action != actionDelays {
		lines = append(lines, m.input.View())
	}

	results := snap.Results.Body
	if results == "" {
		results = MutedStyle.Render("Results will appear here.")
	}
	title := snap.Results.Title
	if title == "" {
		title = "Results"
	}
	lines = append(lines, PanelStyle.Width(max(m.width-4, 40)).Render(PanelTitleStyle.Render(title)+"\n"+results))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderUpload(snap state.Snapshot) string {
	var lines []string
	if f := snap.CurrentFile; f != nil {
		info := fmt.Sprintf("%s  %s  uploaded %s", f.Name, state.FormatSize(f.Size), state.TimeAgo(f.UploadedAt, m.now()))
		if f.MetadataOnly {
			info += MutedStyle.Render("  (restored from history, metadata only)")
		}
		lines = append(lines, FileStatusStyle.Render(info))
	}

	if snap.Upload.Phase == upload.PhaseUploading {
		lines = append(lines,
			fmt.Sprintf("Uploading %s", snap.Upload.FileName),
			m.progress.ViewAs(float64(snap.Upload.Progress)/100),
		)
	} else {
		lines = append(lines, MutedStyle.Render("Excel files only (.xlsx, .xls), up to 10MB."), m.input.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return MutedStyle.Render("No uploads yet.")
	}
	now := m.now()
	lines := make([]string, 0, len(m.history))
	for i, e := range m.history {
		line := fmt.Sprintf("%-40s %10s  %s", filepath.Base(e.Name), state.FormatSize(e.Size), state.TimeAgo(e.UploadedAt, now))
		if i == m.historyCursor {
			lines = append(lines, SelectedStyle.Render("▸ "+line))
		} else {
			lines = append(lines, "  "+line)
		}
	}
	return strings.Join(lines, "\n")
}

func renderNotification(n *state.Notification) string {
	switch n.Kind {
	case state.NotifySuccess:
		return SuccessStyle.Render("✓ " + n.Message)
	case state.NotifyError:
		return ErrorStyle.Render("✗ " + n.Message)
	default:
		return InfoStyle.Render("ℹ " + n.Message)
	}
}
