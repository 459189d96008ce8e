package tui

import "github.com/sma-monitor/dashboard/internal/models"

// Message types sent back to the model when background work settles.

// actionDoneMsg reports the end of a controller action. The outcome is
// already in the store, err is only used for logging.
type actionDoneMsg struct {
	action string
	err    error
}

// historyLoadedMsg carries the upload history.
type historyLoadedMsg struct {
	entries []models.HistoryEntry
	err     error
}

// fileReadMsg carries a spreadsheet read from disk for upload.
type fileReadMsg struct {
	name string
	data []byte
	err  error
}
