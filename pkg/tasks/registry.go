package tasks

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/moby/patternmatcher"

	"github.com/hivetools/hive/util/frontmatter"
)

// Task is a pending work item backed by a markdown document.
type Task struct {
	// Title is the display name: frontmatter summary, then title, then
	// the first heading, then the file stem.
	Title string `json:"title"`
	Path  string `json:"path"`
	// Due is nil for undated tasks.
	Due    *time.Time `json:"due,omitempty"`
	Status string     `json:"status,omitempty"`
	Tags   []string   `json:"tags,omitempty"`
	// NotifySection is the body of the "When done" section, if present.
	NotifySection string `json:"notify_section,omitempty"`
}

// Registry scans a directory tree of markdown task documents.
type Registry struct {
	dir     string
	matcher *patternmatcher.PatternMatcher
}

// NewRegistry builds a registry over dir. The ignore list uses
// .gitignore-style globs matched against paths relative to dir.
func NewRegistry(dir string, ignore []string) (*Registry, error) {
	matcher, err := patternmatcher.New(ignore)
	if err != nil {
		return nil, fmt.Errorf("invalid task ignore pattern: %w", err)
	}
	return &Registry{dir: dir, matcher: matcher}, nil
}

// Dir returns the directory this registry scans.
func (r *Registry) Dir() string {
	return r.dir
}

// Load scans the task directory and returns pending tasks sorted by
// due date, dated before undated, then case-insensitively by title.
// A missing directory is an empty list.
func (r *Registry) Load() ([]Task, error) {
	tasks := []Task{}

	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == r.dir && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			// Unreadable subtrees degrade to "no tasks there".
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != r.dir && strings.EqualFold(d.Name(), "archive") {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		stem := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		if strings.EqualFold(stem, "README") {
			return nil
		}

		rel, relErr := filepath.Rel(r.dir, path)
		if relErr == nil {
			if ignored, matchErr := r.matcher.MatchesOrParentMatches(rel); matchErr == nil && ignored {
				return nil
			}
		}

		task, ok := r.loadOne(path, stem)
		if ok {
			tasks = append(tasks, task)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan task directory: %w", err)
	}

	sortTasks(tasks)
	return tasks, nil
}

// loadOne parses a single document. Finished tasks and unreadable
// files report ok=false.
func (r *Registry) loadOne(path, stem string) (Task, bool) {
	f, err := os.Open(path)
	if err != nil {
		return Task{}, false
	}
	defer f.Close()

	meta, err := frontmatter.Parse(f)
	if err != nil {
		return Task{}, false
	}

	if meta.Status == "done" || meta.Status == "completed" {
		return Task{}, false
	}

	title := meta.EffectiveTitle()
	if title == "" {
		title = stem
	}

	return Task{
		Title:         title,
		Path:          path,
		Due:           meta.DueDate(),
		Status:        meta.Status,
		Tags:          meta.Tags,
		NotifySection: meta.NotifySection,
	}, true
}

func sortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch {
		case a.Due != nil && b.Due != nil:
			if !a.Due.Equal(*b.Due) {
				return a.Due.Before(*b.Due)
			}
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		case a.Due != nil:
			return true
		case b.Due != nil:
			return false
		default:
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	})
}
