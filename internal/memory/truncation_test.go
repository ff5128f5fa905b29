package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTruncation(t *testing.T, settings map[string]any) Method {
	t.Helper()
	m, err := NewTruncation(settings)
	require.NoError(t, err)
	return m
}

func intPtr(n int) *int { return &n }

func TestTruncation_Process(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxTokens int
		want      string
	}{
		{"truncates long text", "This is a long text that should be truncated", 5, "This is a long text"},
		{"empty input", "", 5, ""},
		{"whitespace only", "   \t\n  ", 5, ""},
		{"short text unchanged", "Short text", 100, "Short text"},
		{"single token budget", "Multiple words here", 1, "Multiple"},
		{"zero budget", "anything at all", 0, ""},
		{"negative budget", "anything at all", -1, ""},
		{"exact budget", "one two three", 3, "one two three"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTruncation(t, map[string]any{"max_tokens": tt.maxTokens})
			assert.Equal(t, tt.want, m.Process(tt.text, Options{}))
		})
	}
}

func TestTruncation_PreservesWhitespaceWhenUnderBudget(t *testing.T) {
	// Untouched-length inputs come back byte-for-byte; whitespace runs are
	// only collapsed when truncation actually occurs.
	m := newTruncation(t, map[string]any{"max_tokens": 10})
	assert.Equal(t, "two  spaces\tand tabs", m.Process("two  spaces\tand tabs", Options{}))
}

func TestTruncation_CollapsesWhitespaceWhenTruncating(t *testing.T) {
	m := newTruncation(t, map[string]any{"max_tokens": 2})
	assert.Equal(t, "a b", m.Process("a   b   c", Options{}))
}

func TestTruncation_RuntimeOverride(t *testing.T) {
	m := newTruncation(t, map[string]any{"max_tokens": 100})
	got := m.Process("one two three four", Options{MaxTokens: intPtr(2)})
	assert.Equal(t, "one two", got)
	assert.Equal(t, "", m.Process("one two three four", Options{MaxTokens: intPtr(-3)}))
}

func TestTruncation_DefaultBudget(t *testing.T) {
	m := newTruncation(t, nil)
	info := m.MethodInfo()
	assert.Equal(t, "truncation", info.Method)
	assert.Equal(t, defaultMaxTokens, info.Defaults["max_tokens"])
	assert.Contains(t, info.Parameters, "max_tokens")
}

func TestNone_PassThrough(t *testing.T) {
	m, err := NewNone(nil)
	require.NoError(t, err)
	assert.Equal(t, "exact  input\n", m.Process("exact  input\n", Options{}))
	assert.Equal(t, "none", m.MethodInfo().Method)
}

func TestRegistry_CreateUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("nope", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestRegistry_CreateReturnsIndependentInstances(t *testing.T) {
	r := NewRegistry()
	r.Register("truncation", NewTruncation)

	a, err := r.Create("truncation", map[string]any{"max_tokens": 3})
	require.NoError(t, err)
	b, err := r.Create("truncation", map[string]any{"max_tokens": 3})
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, a.MethodInfo(), b.MethodInfo())
}

func TestRegistry_RegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Register("truncation", NewTruncation)
	r.Register("truncation", NewNone) // test double replaces the real method

	m, err := r.Create("truncation", nil)
	require.NoError(t, err)
	assert.Equal(t, "none", m.MethodInfo().Method)
}

func TestDefaultRegistry_BuiltinsPresent(t *testing.T) {
	names := Default.List()
	assert.Contains(t, names, "truncation")
	assert.Contains(t, names, "none")
}
