package memory

import (
	"strings"

	"github.com/spf13/cast"
)

const defaultMaxTokens = 500

// Truncation keeps the first N whitespace-delimited tokens of the input.
// Tokenization is a plain whitespace split, not a real tokenizer.
type Truncation struct {
	maxTokens int
	settings  map[string]any
}

// NewTruncation builds a truncation method from its settings block.
// Recognized settings: max_tokens (int, default 500).
func NewTruncation(settings map[string]any) (Method, error) {
	maxTokens := defaultMaxTokens
	if v, ok := settings["max_tokens"]; ok {
		maxTokens = cast.ToInt(v)
	}
	return &Truncation{maxTokens: maxTokens, settings: settings}, nil
}

// Process truncates text to the token budget. Input at or under the budget is
// returned unchanged, internal whitespace included; truncation rejoins the
// kept tokens with single spaces. A budget of zero or less keeps nothing.
func (t *Truncation) Process(text string, opts Options) string {
	maxTokens := t.maxTokens
	if opts.MaxTokens != nil {
		maxTokens = *opts.MaxTokens
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 || maxTokens <= 0 {
		return ""
	}
	if len(tokens) <= maxTokens {
		return text
	}
	return strings.Join(tokens[:maxTokens], " ")
}

func (t *Truncation) MethodInfo() Info {
	return Info{
		Method:      "truncation",
		Version:     "1.0.0",
		Description: "Truncates text to a maximum number of tokens using whitespace-based tokenization",
		Parameters:  []string{"max_tokens"},
		Defaults:    map[string]any{"max_tokens": t.maxTokens},
	}
}

func init() {
	Default.Register("truncation", NewTruncation)
}
