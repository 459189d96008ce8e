package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TimeAgo renders the age of t relative to now.
func TimeAgo(t, now time.Time) string {
	minutes := int(now.Sub(t) / time.Minute)
	switch {
	case minutes < 1:
		return "just now"
	case minutes < 60:
		return plural(minutes, "minute")
	case minutes < 24*60:
		return plural(minutes/60, "hour")
	default:
		return plural(minutes/(24*60), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// FormatSize renders a byte count for humans.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 2; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMG"[exp])
}

// FormatResult renders an analysis payload: JSON strings as-is, anything else
// as 2-space indented JSON. Non-JSON input is returned unchanged.
func FormatResult(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
