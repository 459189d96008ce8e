package models

import (
	"encoding/json"
	"time"
)

// UploadedFile is the client-side descriptor of the current spreadsheet.
type UploadedFile struct {
	Name       string          `json:"name"`
	Size       int64           `json:"size"`
	UploadedAt time.Time       `json:"uploadDate"`
	Data       json.RawMessage `json:"data,omitempty"` // backend upload response, opaque

	// Original holds the file bytes for re-download. Nil for history restores.
	Original []byte `json:"-"`

	ReloadedFrom string `json:"reloadedFrom,omitempty"`
	MetadataOnly bool   `json:"metadataOnly,omitempty"`
}

// HistoryStatus is the outcome recorded for a past upload.
type HistoryStatus string

const (
	HistoryStatusCompleted HistoryStatus = "completed"
)

// HistoryEntry is a persisted snapshot of a past upload.
type HistoryEntry struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Size       int64         `json:"size"`
	UploadedAt time.Time     `json:"uploadDate"`
	Status     HistoryStatus `json:"status"`
}
