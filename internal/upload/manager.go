// Package upload tracks the client-side lifecycle of a spreadsheet upload.
package upload

import (
	"sync"
	"time"
)

// Phase is the upload lifecycle state.
type Phase string

const (
	PhaseIdleEmpty    Phase = "idle-empty"
	PhaseUploading    Phase = "uploading"
	PhaseIdleWithFile Phase = "idle-with-file"
)

// Synthetic progress runs from 0 to 90 in steps of 10, one step per
// StepInterval, regardless of how the transfer is going. It reaches 100 when
// the request settles.
const (
	StepSize     = 10
	MaxSynthetic = 90
	StepInterval = 200 * time.Millisecond
)

// ProgressSchedule returns the synthetic progress values in order.
func ProgressSchedule() []int {
	steps := make([]int, 0, MaxSynthetic/StepSize+1)
	for p := 0; p <= MaxSynthetic; p += StepSize {
		steps = append(steps, p)
	}
	return steps
}

// Status is a snapshot of the manager.
type Status struct {
	Phase    Phase  `json:"phase"`
	Progress int    `json:"progress"`
	FileName string `json:"fileName,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Manager holds the state of the single in-flight upload.
type Manager struct {
	mu       sync.RWMutex
	phase    Phase
	progress int
	fileName string
	err      string
}

// NewManager creates a manager in the idle-empty phase.
func NewManager() *Manager {
	return &Manager{phase: PhaseIdleEmpty}
}

// Begin moves to the uploading phase. Only one upload may run at a time.
func (m *Manager) Begin(fileName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseUploading {
		return ErrBusy
	}
	m.phase = PhaseUploading
	m.progress = 0
	m.fileName = fileName
	m.err = ""
	return nil
}

// SetProgress records a progress value while uploading. Values are clamped to
// [0, 100] and ignored in any other phase.
func (m *Manager) SetProgress(p int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseUploading {
		return
	}
	m.progress = min(max(p, 0), 100)
}

// Succeed finishes the upload with a file loaded.
func (m *Manager) Succeed() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.phase = PhaseIdleWithFile
	m.progress = 100
	m.err = ""
}

// Fail finishes the upload with no file loaded.
func (m *Manager) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.phase = PhaseIdleEmpty
	m.progress = 100
	m.fileName = ""
	if err != nil {
		m.err = err.Error()
	}
}

// Loaded marks a file as present without an upload, as when restoring from
// history.
func (m *Manager) Loaded(fileName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.phase = PhaseIdleWithFile
	m.progress = 0
	m.fileName = fileName
	m.err = ""
}

// Clear returns to idle-empty.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.phase = PhaseIdleEmpty
	m.progress = 0
	m.fileName = ""
	m.err = ""
}

// Status returns the current snapshot.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Status{
		Phase:    m.phase,
		Progress: m.progress,
		FileName: m.fileName,
		Error:    m.err,
	}
}
