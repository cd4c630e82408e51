package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClassifier(t *testing.T, opts Options) *Classifier {
	t.Helper()
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestClassifyMarkers(t *testing.T) {
	c := mustClassifier(t, Options{})

	tests := []struct {
		name  string
		lines []string
		want  Status
	}{
		{"explicit needs input marker", []string{"some output", "/hive:needs_input"}, StatusNeedsInput},
		{"explicit done marker", []string{"/hive:done"}, StatusDone},
		{"permission prompt Y/n", []string{"Overwrite file? [Y/n]"}, StatusNeedsInput},
		{"permission prompt y/N", []string{"Should I proceed? [y/N]"}, StatusNeedsInput},
		{"paren prompt", []string{"Continue (y/N)"}, StatusNeedsInput},
		{"proceed question", []string{"Do you want to proceed with the change?"}, StatusNeedsInput},
		{"would you like", []string{"Would you like me to refactor this?"}, StatusNeedsInput},
		{"press enter", []string{"Press enter to continue"}, StatusNeedsInput},
		{"waiting for input", []string{"waiting for user input"}, StatusNeedsInput},
		{"fzf prompt", []string{"? Select an option"}, StatusNeedsInput},
		{"multi-select prompt", []string{"Enter to select · Tab/Arrow to move"}, StatusNeedsInput},
		{"text answer prompt", []string{"Type your answer below"}, StatusNeedsInput},
		{"task completed", []string{"Task completed."}, StatusDone},
		{"all done", []string{"All done! Nothing left."}, StatusDone},
		{"running ellipsis", []string{"Running tests..."}, StatusRunning},
		{"thinking glyph", []string{"✻ Thinking"}, StatusRunning},
		{"generating", []string{"Generating response…"}, StatusRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.lines, StatusUnknown, time.Minute, true)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	c := mustClassifier(t, Options{})

	t.Run("marker beats heuristics", func(t *testing.T) {
		lines := []string{"Running tests...", "/hive:done"}
		assert.Equal(t, StatusDone, c.Classify(lines, StatusUnknown, time.Second, true))
	})

	t.Run("needs input beats done", func(t *testing.T) {
		lines := []string{"Task completed.", "Apply the patch? [y/N]"}
		assert.Equal(t, StatusNeedsInput, c.Classify(lines, StatusUnknown, time.Second, true))
	})

	t.Run("fzf prompt must be line anchored", func(t *testing.T) {
		lines := []string{"what is this? not a prompt"}
		assert.Equal(t, StatusRunning, c.Classify(lines, StatusUnknown, time.Second, true))
	})
}

func TestClassifyAgeFallback(t *testing.T) {
	c := mustClassifier(t, Options{
		RunningThreshold: 5 * time.Second,
		IdleThreshold:    30 * time.Second,
	})
	blank := []string{"$ "}

	t.Run("fresh output is running", func(t *testing.T) {
		assert.Equal(t, StatusRunning, c.Classify(blank, StatusUnknown, 2*time.Second, true))
	})

	t.Run("ambiguous window retains previous", func(t *testing.T) {
		assert.Equal(t, StatusRunning, c.Classify(blank, StatusRunning, 10*time.Second, true))
		assert.Equal(t, StatusNeedsInput, c.Classify(blank, StatusNeedsInput, 10*time.Second, true))
	})

	t.Run("ambiguous window with no previous is idle", func(t *testing.T) {
		assert.Equal(t, StatusIdle, c.Classify(blank, StatusUnknown, 10*time.Second, true))
	})

	t.Run("quiet past idle threshold is idle even if previously needs input", func(t *testing.T) {
		assert.Equal(t, StatusIdle, c.Classify(blank, StatusNeedsInput, time.Minute, true))
	})

	t.Run("unknown age retains previous", func(t *testing.T) {
		assert.Equal(t, StatusRunning, c.Classify(blank, StatusRunning, 0, false))
	})

	t.Run("unknown age with no previous is unknown", func(t *testing.T) {
		assert.Equal(t, StatusUnknown, c.Classify(blank, "", 0, false))
	})
}

func TestClassifyDeterministic(t *testing.T) {
	c := mustClassifier(t, Options{})
	lines := []string{"Should I proceed? [y/N]"}
	first := c.Classify(lines, StatusRunning, 3*time.Second, true)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify(lines, StatusRunning, 3*time.Second, true))
	}
}

func TestExtraPatterns(t *testing.T) {
	c := mustClassifier(t, Options{
		ExtraNeedsInput: []string{`\[approve\?\]`},
		ExtraDone:       []string{`(?i)mission accomplished`},
	})

	assert.Equal(t, StatusNeedsInput, c.Classify([]string{"apply change [approve?]"}, StatusUnknown, time.Minute, true))
	assert.Equal(t, StatusDone, c.Classify([]string{"Mission accomplished"}, StatusUnknown, time.Minute, true))

	_, err := New(Options{ExtraNeedsInput: []string{"("}})
	require.Error(t, err)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Needs Input", StatusNeedsInput.Label())
	assert.Equal(t, "Unknown", Status("bogus").Label())
}
