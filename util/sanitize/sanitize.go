package sanitize

import (
	"regexp"
	"strings"
)

var (
	// slugReplacer handles common separators before slugging
	slugReplacer = strings.NewReplacer(
		"_", "-",
		" ", "-",
		".", "-",
		"/", "-",
		":", "-",
	)

	// nonSlugRegex matches characters not allowed in a slug
	nonSlugRegex = regexp.MustCompile(`[^a-z0-9-]+`)

	// multiDashRegex matches multiple consecutive dashes
	multiDashRegex = regexp.MustCompile(`-+`)
)

// ForSessionName slugifies a free-form title into a tmux-safe session name
// component. tmux targets treat ':' and '.' specially, so the result contains
// only lowercase letters, digits, and hyphens.
func ForSessionName(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)
	s = slugReplacer.Replace(s)
	s = nonSlugRegex.ReplaceAllString(s, "-")
	s = multiDashRegex.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	// Keep names short enough to read in a session list
	if len(s) > 50 {
		s = strings.Trim(s[:50], "-")
	}

	return s
}

// ForBranchName sanitizes a string for use as a git branch name component.
// Branch components may keep slashes from a prefix but not other specials.
func ForBranchName(s string) string {
	if s == "" {
		return ""
	}

	s = strings.NewReplacer(" ", "-", ":", "-", "~", "-", "^", "-", "?", "-", "*", "-", "[", "-").Replace(s)
	s = regexp.MustCompile(`[^a-zA-Z0-9/_.-]+`).ReplaceAllString(s, "-")
	s = multiDashRegex.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-/")

	return s
}
