// Package state holds the client-side view and upload state machine shared by
// the terminal client.
package state

import "time"

// View is one of the client's screens. Exactly one is active.
type View string

const (
	ViewChat      View = "chat"
	ViewDashboard View = "dashboard"
	ViewAnalysis  View = "analysis"
	ViewUpload    View = "upload"
	ViewHistory   View = "history"
)

// Views lists the screens in navigation order.
var Views = []View{ViewChat, ViewDashboard, ViewAnalysis, ViewUpload, ViewHistory}

// ParseView returns the view named s.
func ParseView(s string) (View, bool) {
	for _, v := range Views {
		if string(v) == s {
			return v, true
		}
	}
	return "", false
}

// Title is the label shown in the navigation bar.
func (v View) Title() string {
	switch v {
	case ViewChat:
		return "Chat"
	case ViewDashboard:
		return "Dashboard"
	case ViewAnalysis:
		return "Analysis"
	case ViewUpload:
		return "Upload Excel"
	case ViewHistory:
		return "History"
	}
	return string(v)
}

// DashboardRefreshDelay is how long after entering the dashboard the metrics
// are fetched.
const DashboardRefreshDelay = 500 * time.Millisecond

// EffectKind names a deferred action requested by a transition.
type EffectKind string

const (
	EffectRefreshDashboard EffectKind = "refresh-dashboard"
)

// Effect is work the caller must schedule after a transition.
type Effect struct {
	Kind  EffectKind
	Delay time.Duration
}
