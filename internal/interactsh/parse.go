package interactsh

import (
	"regexp"
	"strings"
)

var (
	ansiPattern     = regexp.MustCompile(`\[[0-9;]*m`)
	protocolPattern = regexp.MustCompile(`^https?://`)
	urlPattern      = regexp.MustCompile(`https?://\S+`)
)

// ParsePayloads extracts generated payload identifiers from the client's
// startup banner. server may be a comma-separated list of domains; a payload
// is a run of 20 or more alphanumeric characters immediately followed by
// `.<domain>`. Bare URLs in the banner are included too. The result is
// de-duplicated preserving first-seen order.
func ParsePayloads(output, server string) []string {
	clean := ansiPattern.ReplaceAllString(output, "")

	var found []string
	for _, srv := range strings.Split(server, ",") {
		srv = protocolPattern.ReplaceAllString(strings.TrimSpace(srv), "")
		if srv == "" {
			continue
		}
		pattern := regexp.MustCompile(`[a-zA-Z0-9]{20,}\.` + regexp.QuoteMeta(srv))
		found = append(found, pattern.FindAllString(clean, -1)...)
	}
	found = append(found, urlPattern.FindAllString(clean, -1)...)

	seen := make(map[string]struct{}, len(found))
	payloads := make([]string, 0, len(found))
	for _, p := range found {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		payloads = append(payloads, p)
	}
	return payloads
}
