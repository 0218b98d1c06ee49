package adapters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stackforge/internal/types"
)

func TestParseReportTime(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{
			name:     "RFC3339",
			input:    "2025-06-15T10:30:00Z",
			expected: time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:     "RFC3339 with offset",
			input:    "2025-06-15T12:30:00+02:00",
			expected: time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:     "RFC3339Nano",
			input:    "2025-06-15T10:30:00.123456789Z",
			expected: time.Date(2025, 6, 15, 10, 30, 0, 123456789, time.UTC),
		},
		{
			name:     "datetime without timezone",
			input:    "2025-06-15 10:30:00",
			expected: time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:     "empty string",
			input:    "",
			expected: time.Time{},
		},
		{
			name:     "whitespace only",
			input:    "   ",
			expected: time.Time{},
		},
		{
			name:     "unparseable returns zero",
			input:    "not-a-date",
			expected: time.Time{},
		},
		{
			name:     "leading/trailing whitespace stripped",
			input:    "  2025-06-15T10:30:00Z  ",
			expected: time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseReportTime(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestReportElapsed(t *testing.T) {
	report := types.RunReport{StartedAt: "2025-06-15T10:30:00Z", FinishedAt: "2025-06-15T10:32:30Z"}
	assert.Equal(t, 150*time.Second, ReportElapsed(report))

	report.FinishedAt = ""
	assert.Zero(t, ReportElapsed(report))

	report.FinishedAt = "2025-06-15T10:00:00Z"
	assert.Zero(t, ReportElapsed(report))
}

func TestFormatReportTimeRoundTrips(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "2025-06-15T10:30:00Z", FormatReportTime(now))
	assert.Equal(t, now.UTC(), parseReportTime(FormatReportTime(now)))
}
