package classify

import (
	"fmt"
	"regexp"
	"time"
)

// Explicit markers an agent (or its prompt template) can print to
// override the heuristics. Checked before everything else.
const (
	MarkerNeedsInput = "/hive:needs_input"
	MarkerDone       = "/hive:done"
)

// defaultNeedsInput are interactive-prompt idioms, tuned for Claude
// Code but generic enough for most terminal agents.
var defaultNeedsInput = []string{
	// Permission prompts (high confidence)
	`\[Y/n\]`,
	`\[y/N\]`,
	`\(y/N\)`,
	`\(Y/n\)`,
	// Question patterns (high confidence)
	`Do you want to proceed`,
	`Should I proceed`,
	`Would you like me to`,
	`Press enter to continue`,
	`waiting for.*input`,
	// fzf-style prompt
	`^\? `,
	// Multi-select and free-text question prompts
	`Enter to select.*Tab/Arrow`,
	`Type your answer`,
}

// defaultDone are explicit completion phrasings.
var defaultDone = []string{
	`(?i)\btasks? completed?\b`,
	`(?i)\ball done\b`,
	`(?i)\bsession complete\b`,
}

// defaultActive are ongoing-work phrasings and the busy glyphs agents
// print while streaming.
var defaultActive = []string{
	`(?i)\b(thinking|running|building|generating|compiling|searching|working)\b[^\n]*(\.\.\.|…)`,
	`[✻✽✢✶]`,
}

// rule is one entry of the ordered classification table. The first
// matching rule wins.
type rule struct {
	verdict Status
	pattern *regexp.Regexp
}

// Options tune a Classifier. Extra patterns come from per-agent
// configuration and are tried after the built-in ones of the same
// verdict.
type Options struct {
	RunningThreshold time.Duration
	IdleThreshold    time.Duration
	ExtraNeedsInput  []string
	ExtraDone        []string
}

// Classifier maps a captured output tail (plus prior state and output
// age) to a Status. It is a pure function of its inputs: identical
// inputs always produce identical verdicts.
type Classifier struct {
	rules            []rule
	runningThreshold time.Duration
	idleThreshold    time.Duration
}

// New compiles the rule table. Invalid extra patterns fail the build
// rather than being silently dropped.
func New(opts Options) (*Classifier, error) {
	if opts.RunningThreshold <= 0 {
		opts.RunningThreshold = 5 * time.Second
	}
	if opts.IdleThreshold <= 0 {
		opts.IdleThreshold = 30 * time.Second
	}

	var rules []rule
	add := func(verdict Status, patterns []string) error {
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return fmt.Errorf("invalid %s pattern %q: %w", verdict, p, err)
			}
			rules = append(rules, rule{verdict: verdict, pattern: re})
		}
		return nil
	}

	// Explicit markers outrank every heuristic.
	if err := add(StatusNeedsInput, []string{regexp.QuoteMeta(MarkerNeedsInput)}); err != nil {
		return nil, err
	}
	if err := add(StatusDone, []string{regexp.QuoteMeta(MarkerDone)}); err != nil {
		return nil, err
	}
	if err := add(StatusNeedsInput, defaultNeedsInput); err != nil {
		return nil, err
	}
	if err := add(StatusNeedsInput, opts.ExtraNeedsInput); err != nil {
		return nil, err
	}
	if err := add(StatusDone, defaultDone); err != nil {
		return nil, err
	}
	if err := add(StatusDone, opts.ExtraDone); err != nil {
		return nil, err
	}
	if err := add(StatusRunning, defaultActive); err != nil {
		return nil, err
	}

	return &Classifier{
		rules:            rules,
		runningThreshold: opts.RunningThreshold,
		idleThreshold:    opts.IdleThreshold,
	}, nil
}

// Classify scores an output tail. age is how long ago the pane last
// produced output; ageKnown is false when the manager could not report
// it. With no rule match the verdict falls back on output age: fresh
// output is Running, output quiet past the idle threshold is Idle, and
// the ambiguous window in between retains the previous status so a
// blank prompt does not flicker. A stale NeedsInput badge therefore
// cannot stick forever; the idle timeout always clears it.
func (c *Classifier) Classify(lines []string, previous Status, age time.Duration, ageKnown bool) Status {
	for _, r := range c.rules {
		for _, line := range lines {
			if r.pattern.MatchString(line) {
				return r.verdict
			}
		}
	}

	if !ageKnown {
		if previous != "" {
			return previous
		}
		return StatusUnknown
	}

	switch {
	case age <= c.runningThreshold:
		return StatusRunning
	case age > c.idleThreshold:
		return StatusIdle
	case previous != "" && previous != StatusUnknown:
		return previous
	default:
		return StatusIdle
	}
}
