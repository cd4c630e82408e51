// Package frontmatter provides lightweight YAML frontmatter parsing for
// markdown task documents. Only the few header fields the engine needs are
// extracted; the document body is not interpreted beyond locating a title
// heading and the "When done" notify section.
package frontmatter

import (
	"bufio"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DocMetadata represents the fields hive reads from a task document header.
type DocMetadata struct {
	Title   string   `yaml:"title"`
	Status  string   `yaml:"status"`
	Due     string   `yaml:"due"`
	Summary string   `yaml:"summary"`
	Tags    []string `yaml:"tags"`

	// Heading is the first "# " heading of the body, used as a title
	// fallback when the header has none.
	Heading string `yaml:"-"`

	// NotifySection is the raw text under a "## When done" heading, handed
	// to the notification collaborator verbatim.
	NotifySection string `yaml:"-"`
}

// DueDate parses the due field as a calendar date. Returns nil when the
// field is absent or malformed; a bad date never fails the document.
func (m DocMetadata) DueDate() *time.Time {
	val := strings.Trim(strings.TrimSpace(m.Due), `"'`)
	if val == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", val)
	if err != nil {
		return nil
	}
	return &t
}

// EffectiveTitle prefers summary, then the header title, then the body heading.
func (m DocMetadata) EffectiveTitle() string {
	if m.Summary != "" {
		return m.Summary
	}
	if m.Title != "" {
		return m.Title
	}
	return m.Heading
}

// Parse extracts metadata from a markdown document. The YAML block between
// the leading '---' separators is decoded strictly by key; everything after
// it is scanned only for the title heading and the notify section.
func Parse(r io.Reader) (DocMetadata, error) {
	scanner := bufio.NewScanner(r)
	var meta DocMetadata

	var yamlLines []string
	inFrontmatter := false
	frontmatterDone := false
	inNotify := false
	var notifyLines []string
	lineCount := 0

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if !frontmatterDone && trimmed == "---" {
			if !inFrontmatter {
				inFrontmatter = true
				continue
			}
			inFrontmatter = false
			frontmatterDone = true
			continue
		}

		if inFrontmatter {
			yamlLines = append(yamlLines, line)
			continue
		}

		if !frontmatterDone {
			// Documents without frontmatter get a few lines of grace
			// before we stop looking for one.
			lineCount++
			if lineCount > 5 {
				frontmatterDone = true
			}
		}

		if strings.HasPrefix(line, "## ") {
			heading := strings.TrimSpace(strings.TrimPrefix(line, "## "))
			inNotify = strings.EqualFold(heading, "when done")
			continue
		}
		if inNotify {
			if strings.HasPrefix(line, "#") {
				inNotify = false
			} else if trimmed != "" {
				notifyLines = append(notifyLines, trimmed)
			}
			continue
		}

		if meta.Heading == "" && strings.HasPrefix(line, "# ") {
			meta.Heading = strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	if err := scanner.Err(); err != nil {
		return meta, err
	}

	if len(yamlLines) > 0 {
		// A malformed header is tolerated: the document still loads with
		// whatever the body provides.
		_ = yaml.Unmarshal([]byte(strings.Join(yamlLines, "\n")), &meta)
	}

	meta.Status = strings.ToLower(strings.Trim(strings.TrimSpace(meta.Status), `"'`))
	meta.NotifySection = strings.Join(notifyLines, "\n")

	return meta, nil
}

// ParseString extracts metadata from a string containing markdown with frontmatter.
func ParseString(content string) (DocMetadata, error) {
	return Parse(strings.NewReader(content))
}
