package adapters

import (
	"strings"
	"time"

	"stackforge/internal/types"
)

// ReportTimeLayout is the layout run reports are written with.
const ReportTimeLayout = time.RFC3339

func FormatReportTime(t time.Time) string {
	return t.UTC().Format(ReportTimeLayout)
}

func parseReportTime(value string) time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05 -0700 MST",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

// ReportElapsed returns the wall time of a run, or zero when either bound
// is missing or unreadable.
func ReportElapsed(report types.RunReport) time.Duration {
	started := parseReportTime(report.StartedAt)
	finished := parseReportTime(report.FinishedAt)
	if started.IsZero() || finished.IsZero() || finished.Before(started) {
		return 0
	}
	return finished.Sub(started)
}
