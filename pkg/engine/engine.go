package engine

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hivetools/hive/config"
	"github.com/hivetools/hive/errors"
	"github.com/hivetools/hive/logging"
	"github.com/hivetools/hive/pkg/classify"
	"github.com/hivetools/hive/pkg/logs"
	"github.com/hivetools/hive/pkg/notify"
	"github.com/hivetools/hive/pkg/store"
	"github.com/hivetools/hive/pkg/tasks"
	"github.com/hivetools/hive/pkg/tmux"
	"github.com/hivetools/hive/util/frontmatter"
)

// captureTimeout bounds every per-session manager call so one hung
// session cannot stall a whole cycle.
const captureTimeout = 5 * time.Second

// notifyTimeout bounds event delivery. Events are dispatched off the
// refresh path, so a hung notification command never holds the lock.
const notifyTimeout = 10 * time.Second

// Engine is the reconciliation core: it polls the process manager,
// classifies every session's output, merges in metadata and tasks, and
// publishes immutable snapshots.
type Engine struct {
	mgr      tmux.Manager
	store    *store.Store
	registry *tasks.Registry
	cfg      *config.Config
	notifier notify.Notifier
	log      *logrus.Entry

	logsDir string

	// mu serializes snapshot production. Timer refreshes, poked
	// refreshes, and lifecycle edits all publish through it, so
	// sequence numbers only move forward.
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]
	seq  atomic.Uint64

	poke chan struct{}

	classifierMu sync.Mutex
	classifiers  map[string]*classify.Classifier
}

// New assembles an engine. The notifier may be nil.
func New(mgr tmux.Manager, st *store.Store, registry *tasks.Registry, cfg *config.Config, notifier notify.Notifier) *Engine {
	e := &Engine{
		mgr:         mgr,
		store:       st,
		registry:    registry,
		cfg:         cfg,
		notifier:    notifier,
		log:         logging.NewLogger("engine"),
		logsDir:     cfg.LogsDirOrDefault(),
		poke:        make(chan struct{}, 1),
		classifiers: make(map[string]*classify.Classifier),
	}
	e.snap.Store(&Snapshot{TakenAt: time.Now()})
	return e
}

// Snapshot returns the latest published snapshot. Never nil, safe for
// any number of concurrent readers.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap.Load()
}

// Poke requests an immediate refresh from the running loop. Multiple
// pokes before the loop wakes coalesce into one.
func (e *Engine) Poke() {
	select {
	case e.poke <- struct{}{}:
	default:
	}
}

// Run drives periodic refreshes until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.PollInterval())
	defer ticker.Stop()

	if _, err := e.Refresh(ctx); err != nil {
		e.log.WithError(err).Warn("Initial refresh failed")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-e.poke:
		}
		if _, err := e.Refresh(ctx); err != nil {
			e.log.WithError(err).Warn("Refresh failed")
		}
	}
}

// Refresh runs one full reconciliation cycle and publishes the result.
func (e *Engine) Refresh(ctx context.Context) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.Snapshot()
	now := time.Now()

	names, err := e.mgr.ListSessions(ctx)
	if err != nil {
		// Manager unreachable means "no change", never "no sessions".
		// Carry the previous view forward and flag the outage.
		e.log.WithError(err).Warn("Process manager unreachable, keeping last snapshot")
		frozen := &Snapshot{
			Seq:          e.seq.Add(1),
			TakenAt:      now,
			Sessions:     prev.Sessions,
			PendingTasks: prev.PendingTasks,
			ManagerDown:  true,
		}
		e.snap.Store(frozen)
		return frozen, nil
	}

	pending, taskErr := e.registry.Load()
	if taskErr != nil {
		e.log.WithError(taskErr).Warn("Task scan failed, keeping previous task list")
		pending = prev.PendingTasks
	}
	taskByPath := make(map[string]tasks.Task, len(pending))
	for _, t := range pending {
		taskByPath[t.Path] = t
	}

	// Capture all sessions concurrently, bounded. Each result lands in
	// its own slot so no ordering is lost.
	records := make([]*SessionRecord, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.General.MaxConcurrentCaptures)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			rec := e.refreshSession(gctx, name, prev.Session(name), taskByPath, now)
			records[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	sessions := stableOrder(prev.Sessions, records)

	// A task being worked by a live session is no longer pending.
	linked := make(map[string]bool, len(sessions))
	for i := range sessions {
		if sessions[i].TaskPath != "" {
			linked[sessions[i].TaskPath] = true
		}
	}
	unlinked := make([]tasks.Task, 0, len(pending))
	for _, t := range pending {
		if !linked[t.Path] {
			unlinked = append(unlinked, t)
		}
	}

	next := &Snapshot{
		Seq:          e.seq.Add(1),
		TakenAt:      now,
		Sessions:     sessions,
		PendingTasks: unlinked,
	}

	events := transitionEvents(prev, next)
	e.snap.Store(next)
	if e.notifier != nil && len(events) > 0 {
		go e.dispatch(events)
	}
	return next, nil
}

// refreshSession assembles one record. A vanished session returns nil;
// a failed capture returns the previous record marked stale.
func (e *Engine) refreshSession(ctx context.Context, name string, prev *SessionRecord, taskByPath map[string]tasks.Task, now time.Time) *SessionRecord {
	ctx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	rec := &SessionRecord{
		Session: name,
		Name:    strings.TrimPrefix(name, tmux.SessionPrefix),
		Agent:   e.cfg.General.DefaultAgent,
		LogPath: filepath.Join(e.logsDir, name+".log"),
	}

	meta, metaErr := e.store.Load(name)
	if metaErr != nil {
		// Corrupt metadata reads as absent.
		e.log.WithError(metaErr).WithField("session", name).Warn("Unreadable session metadata")
	}
	if meta != nil {
		if meta.Agent != "" {
			rec.Agent = meta.Agent
		}
		rec.Privileged = meta.Privileged
		rec.TaskPath = meta.TaskPath
		rec.WorktreePath = meta.WorktreePath
		rec.CreatedAt = meta.CreatedAt
	}
	if rec.TaskPath != "" {
		if task, ok := taskByPath[rec.TaskPath]; ok {
			rec.TaskTitle = task.Title
		} else {
			rec.TaskTitle = taskTitleFromFile(rec.TaskPath)
		}
	}

	// Keep the pane piped to its log; the log is both the capture
	// source and what `hive logs` reads.
	if err := e.mgr.PipeToFile(ctx, name, rec.LogPath); err != nil {
		e.log.WithError(err).WithField("session", name).Debug("pipe-pane failed")
	}

	lines, tailErr := logs.TailLines(rec.LogPath, e.cfg.General.CaptureLines)
	if tailErr != nil || len(lines) == 0 {
		out, capErr := e.mgr.CaptureTail(ctx, name, e.cfg.General.CaptureLines)
		if capErr != nil {
			if errors.Is(capErr, errors.ErrCodeSessionVanished) {
				return nil
			}
			// Degrade to the previous record rather than dropping the
			// session from view.
			e.log.WithError(capErr).WithField("session", name).Warn("Capture failed")
			if prev != nil {
				stale := *prev
				stale.Stale = true
				return &stale
			}
			rec.Stale = true
			rec.Status = classify.StatusUnknown
			return rec
		}
		lines = splitLines(out)
	}
	rec.Tail = lines

	rec.LastActivity = logModTime(rec.LogPath)
	if rec.LastActivity.IsZero() {
		if at, err := e.mgr.LastActivity(ctx, name); err == nil {
			rec.LastActivity = at
		}
	}

	if dir, err := e.mgr.SessionPath(ctx, name); err == nil {
		rec.Dir = dir
	}

	var prevStatus classify.Status
	if prev != nil {
		prevStatus = prev.Status
	}
	age := time.Duration(0)
	ageKnown := !rec.LastActivity.IsZero()
	if ageKnown {
		age = now.Sub(rec.LastActivity)
	}
	rec.Status = e.classifierFor(rec.Agent).Classify(rec.Tail, prevStatus, age, ageKnown)
	return rec
}

// classifierFor caches one compiled classifier per agent kind.
func (e *Engine) classifierFor(agent string) *classify.Classifier {
	e.classifierMu.Lock()
	defer e.classifierMu.Unlock()

	if c, ok := e.classifiers[agent]; ok {
		return c
	}

	detection := e.cfg.DetectionFor(agent)
	c, err := classify.New(classify.Options{
		RunningThreshold: time.Duration(detection.RunningThresholdSecs) * time.Second,
		IdleThreshold:    time.Duration(detection.IdleThresholdSecs) * time.Second,
		ExtraNeedsInput:  detection.NeedsInputPatterns,
		ExtraDone:        detection.DonePatterns,
	})
	if err != nil {
		e.log.WithError(err).WithField("agent", agent).Warn("Invalid detection override, using defaults")
		c, _ = classify.New(classify.Options{
			RunningThreshold: e.cfg.RunningThreshold(),
			IdleThreshold:    e.cfg.IdleThreshold(),
		})
	}
	e.classifiers[agent] = c
	return c
}

// transitionEvents collects edge-triggered events: a session already on
// the dashboard whose status just became NeedsInput or Done. First
// observations never notify, so restarting the engine stays quiet.
func transitionEvents(prev, next *Snapshot) []notify.Event {
	var events []notify.Event
	for i := range next.Sessions {
		rec := &next.Sessions[i]
		if rec.Status != classify.StatusNeedsInput && rec.Status != classify.StatusDone {
			continue
		}
		old := prev.Session(rec.Session)
		if old == nil || old.Status == rec.Status {
			continue
		}
		title := rec.TaskTitle
		if title == "" {
			title = rec.Name
		}
		events = append(events, notify.Event{
			Session: rec.Session,
			Status:  rec.Status,
			Title:   title,
		})
	}
	return events
}

// dispatch delivers events outside the snapshot lock. The deadline is
// detached from the refresh context so a cancelled refresh does not cut
// delivery short, and a hung command does not stall later refreshes.
func (e *Engine) dispatch(events []notify.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	for _, event := range events {
		e.notifier.Notify(ctx, event)
	}
}

// InsertStarting publishes a provisional record for a session created
// moments ago, so it shows up before the next capture cycle.
func (e *Engine) InsertStarting(meta store.Metadata) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.Snapshot()
	if prev.Session(meta.Session) != nil {
		return
	}

	rec := SessionRecord{
		Session:      meta.Session,
		Name:         strings.TrimPrefix(meta.Session, tmux.SessionPrefix),
		Status:       classify.StatusStarting,
		Agent:        meta.Agent,
		Privileged:   meta.Privileged,
		TaskPath:     meta.TaskPath,
		WorktreePath: meta.WorktreePath,
		CreatedAt:    meta.CreatedAt,
		LogPath:      filepath.Join(e.logsDir, meta.Session+".log"),
	}
	if rec.TaskPath != "" {
		rec.TaskTitle = taskTitleFromFile(rec.TaskPath)
	}

	sessions := make([]SessionRecord, 0, len(prev.Sessions)+1)
	sessions = append(sessions, prev.Sessions...)
	sessions = append(sessions, rec)

	e.publishLocked(prev, sessions)
}

// Remove splices a session out of the snapshot immediately, without
// waiting for the poll loop to notice it is gone.
func (e *Engine) Remove(session string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.Snapshot()
	sessions := make([]SessionRecord, 0, len(prev.Sessions))
	for _, rec := range prev.Sessions {
		if rec.Session != session {
			sessions = append(sessions, rec)
		}
	}
	if len(sessions) == len(prev.Sessions) {
		return
	}

	e.publishLocked(prev, sessions)
}

func (e *Engine) publishLocked(prev *Snapshot, sessions []SessionRecord) {
	e.snap.Store(&Snapshot{
		Seq:          e.seq.Add(1),
		TakenAt:      time.Now(),
		Sessions:     sessions,
		PendingTasks: prev.PendingTasks,
		ManagerDown:  prev.ManagerDown,
	})
}

// stableOrder keeps surviving sessions in their previous positions and
// appends new ones in name order, so the dashboard rows do not jump
// between cycles.
func stableOrder(prev []SessionRecord, records []*SessionRecord) []SessionRecord {
	rank := make(map[string]int, len(prev))
	for i, rec := range prev {
		rank[rec.Session] = i
	}

	var survivors, fresh []SessionRecord
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if _, ok := rank[rec.Session]; ok {
			survivors = append(survivors, *rec)
		} else {
			fresh = append(fresh, *rec)
		}
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return rank[survivors[i].Session] < rank[survivors[j].Session]
	})
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].Session < fresh[j].Session
	})
	return append(survivors, fresh...)
}

func splitLines(output string) []string {
	trimmed := strings.TrimRight(output, "\n")
	if trimmed == "" {
		return []string{}
	}
	return strings.Split(trimmed, "\n")
}

func logModTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// taskTitleFromFile derives a display title straight from the document
// when the task is no longer in the pending list (already done, or in
// an ignored directory).
func taskTitleFromFile(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return stemOf(path)
	}
	defer f.Close()

	meta, err := frontmatter.Parse(f)
	if err != nil {
		return stemOf(path)
	}
	if title := meta.EffectiveTitle(); title != "" {
		return title
	}
	return stemOf(path)
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
