package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hivetools/hive/errors"
	"github.com/hivetools/hive/pkg/tasks"
	"github.com/hivetools/hive/util/sanitize"
)

const taskTemplate = `---
status: todo
due: %s
tags: [work]
summary: %s
---

# %s

%s

## When done
%s

## Process Log
(the agent logs progress here)
`

// CreateTask writes a new task document from the standard template and
// returns its path. due accepts MM-DD (current year, bumped to next
// year if the date already passed) and defaults to tomorrow. notifyWho
// fills the "When done" section.
func CreateTask(tasksDir, description, notifyWho, due string) (string, error) {
	if description == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "task description is empty")
	}

	slug := sanitize.ForSessionName(description)
	if slug == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "task description yields an empty filename")
	}

	dueDate := parseDueInput(due, time.Now())

	notifySection := "- (fill in who to notify)"
	if notifyWho != "" {
		notifySection = "- " + notifyWho
	}

	content := fmt.Sprintf(taskTemplate,
		dueDate.Format("2006-01-02"),
		description,
		description,
		description,
		notifySection,
	)

	if err := os.MkdirAll(tasksDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create tasks directory: %w", err)
	}
	path := filepath.Join(tasksDir, slug+".md")
	if _, err := os.Stat(path); err == nil {
		return "", errors.New(errors.ErrCodeInvalidInput, "task file already exists: "+path)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write task file: %w", err)
	}
	return path, nil
}

// parseDueInput turns "MM-DD" into a date in the current year, rolling
// to next year when the date already passed. Anything unparseable
// defaults to tomorrow.
func parseDueInput(input string, now time.Time) time.Time {
	tomorrow := now.AddDate(0, 0, 1)
	if input == "" {
		return tomorrow
	}

	parsed, err := time.Parse("01-02", input)
	if err != nil {
		return tomorrow
	}

	due := time.Date(now.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if due.Before(today) {
		due = due.AddDate(1, 0, 0)
	}
	return due
}

// MarkTaskDone flips the document's frontmatter status to done and
// moves it into the archive directory under tasksDir. The archived
// path is returned. A document without a frontmatter block is archived
// unchanged.
func MarkTaskDone(tasksDir string, task tasks.Task) (string, error) {
	content, err := os.ReadFile(task.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read task file: %w", err)
	}

	if strings.HasPrefix(string(content), "---") {
		lines := strings.Split(string(content), "\n")
		inFrontmatter := false
		replaced := false
		for i, line := range lines {
			if strings.TrimSpace(line) == "---" {
				if !inFrontmatter {
					inFrontmatter = true
					continue
				}
				break
			}
			if inFrontmatter && strings.HasPrefix(strings.TrimSpace(line), "status:") {
				lines[i] = "status: done"
				replaced = true
			}
		}
		if inFrontmatter && !replaced {
			lines = append(lines[:1], append([]string{"status: done"}, lines[1:]...)...)
		}
		if err := os.WriteFile(task.Path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
			return "", fmt.Errorf("failed to update task file: %w", err)
		}
	}

	archiveDir := filepath.Join(tasksDir, "archive")
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	dest := filepath.Join(archiveDir, filepath.Base(task.Path))
	if err := os.Rename(task.Path, dest); err != nil {
		return "", fmt.Errorf("failed to archive task file: %w", err)
	}
	return dest, nil
}

// DeleteTask removes the task document without archiving it.
func DeleteTask(task tasks.Task) error {
	if err := os.Remove(task.Path); err != nil {
		return fmt.Errorf("failed to delete task file: %w", err)
	}
	return nil
}

// StartFromTask creates a session working on an existing task document.
func (m *Manager) StartFromTask(ctx context.Context, task tasks.Task, privileged bool) (string, error) {
	return m.Create(ctx, CreateOptions{
		Name:       task.Title,
		TaskPath:   task.Path,
		Privileged: privileged,
	})
}

// ResumeTask returns the live session already working on the task, or
// starts a new one when there is none. Force skips the lookup and
// always starts a fresh session, for working a task in parallel.
func (m *Manager) ResumeTask(ctx context.Context, task tasks.Task, privileged, force bool) (session string, created bool, err error) {
	if !force {
		existing, err := m.sessionForTask(ctx, task.Path)
		if err != nil {
			return "", false, err
		}
		if existing != "" {
			return existing, false, nil
		}
	}

	session, err = m.StartFromTask(ctx, task, privileged)
	if err != nil {
		return "", false, err
	}
	return session, true, nil
}

// sessionForTask finds a live session whose metadata links the task.
func (m *Manager) sessionForTask(ctx context.Context, taskPath string) (string, error) {
	live, err := m.mgr.ListSessions(ctx)
	if err != nil {
		return "", err
	}
	for _, session := range live {
		meta, err := m.store.Load(session)
		if err != nil || meta == nil {
			continue
		}
		if meta.TaskPath == taskPath {
			return session, nil
		}
	}
	return "", nil
}
