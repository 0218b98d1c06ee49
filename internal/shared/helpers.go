// Package shared provides small utility functions used across the
// stackforge packages.
package shared

import (
	"fmt"
	"sort"
	"strings"
)

// CommandError wraps a command execution error with its trimmed output
// for cleaner error messages.
func CommandError(output []byte, err error) error {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return err
	}
	return fmt.Errorf("%s: %w", trimmed, err)
}

// HTTPStatusErrorWithBody creates a formatted error that includes the
// response body for non-2xx HTTP responses.
func HTTPStatusErrorWithBody(status int, url string, body string) error {
	return fmt.Errorf("status=%d url=%s response=%s", status, url, body)
}

// TailLines returns at most n trailing lines of output.
func TailLines(output []byte, n int) []byte {
	lines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	if len(lines) <= n {
		return output
	}
	return []byte(strings.Join(lines[len(lines)-n:], "\n"))
}

// UniqueSortedStrings drops blanks and duplicates and sorts the rest.
func UniqueSortedStrings(values []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}
