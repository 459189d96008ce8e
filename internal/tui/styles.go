package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	Primary     = lipgloss.Color("#DC2626") // SMA red
	Secondary   = lipgloss.Color("#06B6D4")
	Success     = lipgloss.Color("#10B981")
	Warning     = lipgloss.Color("#F59E0B")
	Error       = lipgloss.Color("#EF4444")
	Muted       = lipgloss.Color("#6B7280")
	Foreground  = lipgloss.Color("#F9FAFB")
	BorderColor = lipgloss.Color("#374151")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Foreground).
			Background(Primary).
			Padding(0, 1)

	TabStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Padding(0, 1)

	ActiveTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Foreground).
			Background(BorderColor).
			Padding(0, 1)

	FileStatusStyle = lipgloss.NewStyle().Foreground(Success)
	NoFileStyle     = lipgloss.NewStyle().Foreground(Muted).Italic(true)
)

// Chat.
var (
	UserLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(Secondary)
	AssistantLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	ErrorMessageStyle   = lipgloss.NewStyle().Foreground(Error)
)

// Panels.
var (
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	PanelTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(Foreground)

	MetricStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 2).
			Align(lipgloss.Center).
			Width(18)

	MetricValueStyle = lipgloss.NewStyle().Bold(true).Foreground(Foreground)
	MetricLabelStyle = lipgloss.NewStyle().Foreground(Muted)

	SelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	MutedStyle    = lipgloss.NewStyle().Foreground(Muted)
)

// Notifications.
var (
	InfoStyle        = lipgloss.NewStyle().Foreground(Secondary)
	SuccessStyle     = lipgloss.NewStyle().Foreground(Success)
	ErrorStyle       = lipgloss.NewStyle().Foreground(Error).Bold(true)
	LoadingTextStyle = lipgloss.NewStyle().Foreground(Warning)
)
