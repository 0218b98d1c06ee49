package app

import (
	"fmt"
	"os"

	"stackforge/internal/types"
)

// checkEasystackHints points out flags that repeat what the easystack
// already provides.
func checkEasystackHints(sel Selection, stack types.Easystack) []string {
	var hints []string
	if len(sel.RobotPaths) > 0 && len(stack.RobotPaths) > 0 {
		hints = append(hints, easystackHint("--robot-path", "robot_paths"))
	}
	return hints
}

func easystackHint(flag string, key string) string {
	return fmt.Sprintf("hint: %s is also set in easystack (%s); you can omit the flag", flag, key)
}

// emitHints writes hints to stderr, keeping stdout for command output.
func emitHints(hints []string) {
	for _, hint := range hints {
		fmt.Fprintln(os.Stderr, hint)
	}
}
