package parser

import (
	"regexp"
	"strings"
)

const DefaultSummaryTitle = "Document Summary"

var (
	titlePattern   = regexp.MustCompile(`(?i)Title:\s*(.+?)(?:\n|$)`)
	summaryPattern = regexp.MustCompile(`(?i)Summary:\s*([\s\S]+)`)
)

type Summary struct {
	Title   string
	Content string
}

// ParseSummary reads "Title:" and "Summary:" markers. Text without markers is
// returned whole under the default title.
func ParseSummary(raw string) Summary {
	out := Summary{Title: DefaultSummaryTitle, Content: raw}
	if m := titlePattern.FindStringSubmatch(raw); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			out.Title = title
		}
	}
	if m := summaryPattern.FindStringSubmatch(raw); m != nil {
		out.Content = strings.TrimSpace(m[1])
	}
	return out
}
