package llm

import (
	"regexp"
	"strings"
)

var (
	reasoningBlocks = []*regexp.Regexp{
		regexp.MustCompile(`(?s)<thinking>.*?</thinking>`),
		regexp.MustCompile(`(?s)<think>.*?</think>`),
		regexp.MustCompile(`(?s)\[thinking\].*?\[/thinking\]`),
	}
	reasoningLines = regexp.MustCompile(
		`(?im)^(?:let me think.*|i need to think.*|thinking:.*|.*\(thinking\).*)$`,
	)
	blankRuns = regexp.MustCompile(`\n\s*\n\s*\n`)
)

// CleanResponse removes reasoning sections that chat models emit before the
// answer: <think>/<thinking>/[thinking] blocks and lines such as
// "Let me think ..." or "Thinking: ...". Runs of blank lines collapse to one
// and the result is trimmed.
func CleanResponse(s string) string {
	for _, re := range reasoningBlocks {
		s = re.ReplaceAllString(s, "")
	}
	s = reasoningLines.ReplaceAllString(s, "")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
