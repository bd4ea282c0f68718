package mcptools

import (
	"fmt"
	"strings"
)

// FormatOutput renders captured command output as the sectioned text block
// callers see for synchronous and fast-path results. Empty streams render as
// "(empty)".
func FormatOutput(stdout, stderr string, returnCode int) string {
	var b strings.Builder
	b.WriteString("---- [stdout] ----\n")
	b.WriteString(orEmpty(stdout) + "\n")
	b.WriteString("---- [stderr] ----\n")
	b.WriteString(orEmpty(stderr) + "\n")
	b.WriteString("---- [return code] ----\n")
	b.WriteString(fmt.Sprintf("%d\n", returnCode))
	return b.String()
}

func orEmpty(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(empty)"
	}
	return s
}
