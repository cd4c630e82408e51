package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivetools/hive/config"
	"github.com/hivetools/hive/errors"
	"github.com/hivetools/hive/pkg/classify"
	"github.com/hivetools/hive/pkg/notify"
	"github.com/hivetools/hive/pkg/store"
	"github.com/hivetools/hive/pkg/tasks"
	"github.com/hivetools/hive/pkg/tmux"
	"github.com/hivetools/hive/testutil"
)

// fakeManager is a scripted tmux server. Every knob is guarded so
// tests can mutate state while a refresh is in flight.
type fakeManager struct {
	mu         sync.Mutex
	sessions   []string
	tails      map[string]string
	activity   map[string]time.Time
	listErr    error
	captureErr map[string]error
	killed     []string
	sent       map[string][]string
}

func newFakeManager(sessions ...string) *fakeManager {
	return &fakeManager{
		sessions:   sessions,
		tails:      map[string]string{},
		activity:   map[string]time.Time{},
		captureErr: map[string]error{},
		sent:       map[string][]string{},
	}
}

func (f *fakeManager) setTail(session, tail string, activity time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tails[session] = tail
	f.activity[session] = activity
}

func (f *fakeManager) removeSession(session string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.sessions[:0]
	for _, s := range f.sessions {
		if s != session {
			kept = append(kept, s)
		}
	}
	f.sessions = kept
}

func (f *fakeManager) ListSessions(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]string, len(f.sessions))
	copy(out, f.sessions)
	return out, nil
}

func (f *fakeManager) CaptureTail(_ context.Context, session string, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.captureErr[session]; ok {
		return "", err
	}
	tail, ok := f.tails[session]
	if !ok {
		return "", errors.SessionVanished(session)
	}
	return tail, nil
}

func (f *fakeManager) LastActivity(_ context.Context, session string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activity[session], nil
}

func (f *fakeManager) SendText(_ context.Context, session, text string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[session] = append(f.sent[session], text)
	return nil
}

func (f *fakeManager) SendKey(_ context.Context, session, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[session] = append(f.sent[session], key)
	return nil
}

func (f *fakeManager) CreateSession(_ context.Context, opts tmux.CreateOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s == opts.Name {
			return errors.CreateConflict(opts.Name)
		}
	}
	f.sessions = append(f.sessions, opts.Name)
	f.tails[opts.Name] = ""
	return nil
}

func (f *fakeManager) KillSession(_ context.Context, session string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed = append(f.killed, session)
	kept := f.sessions[:0]
	for _, s := range f.sessions {
		if s != session {
			kept = append(kept, s)
		}
	}
	f.sessions = kept
	delete(f.tails, session)
	return nil
}

func (f *fakeManager) SessionPath(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (f *fakeManager) PipeToFile(_ context.Context, _, _ string) error {
	return nil
}

func (f *fakeManager) AttachCommand(session string) []string {
	return []string{"tmux", "attach-session", "-t", "=" + session}
}

type testEnv struct {
	mgr      *fakeManager
	engine   *Engine
	store    *store.Store
	notifier *recordingNotifier
	tasksDir string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, event notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) all() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

func newTestEnv(t *testing.T, mgr *fakeManager) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.General.LogsDir = t.TempDir()

	st, err := store.NewStoreAt(t.TempDir())
	require.NoError(t, err)

	tasksDir := t.TempDir()
	registry, err := tasks.NewRegistry(tasksDir, nil)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	return &testEnv{
		mgr:      mgr,
		engine:   New(mgr, st, registry, cfg, notifier),
		store:    st,
		notifier: notifier,
		tasksDir: tasksDir,
	}
}

func TestRefreshClassifiesSessions(t *testing.T) {
	mgr := newFakeManager("hive-auth", "hive-docs")
	mgr.setTail("hive-auth", "Should I proceed? [y/N]\n", time.Now())
	mgr.setTail("hive-docs", "Running tests...\n", time.Now())

	env := newTestEnv(t, mgr)
	snap, err := env.engine.Refresh(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Sessions, 2)
	assert.Equal(t, classify.StatusNeedsInput, snap.Session("hive-auth").Status)
	assert.Equal(t, classify.StatusRunning, snap.Session("hive-docs").Status)
	assert.Equal(t, "auth", snap.Session("hive-auth").Name)
	assert.False(t, snap.ManagerDown)
}

func TestRefreshMergesMetadataAndTasks(t *testing.T) {
	mgr := newFakeManager("hive-auth")
	mgr.setTail("hive-auth", "working\n", time.Now())
	env := newTestEnv(t, mgr)

	taskPath := testutil.WriteTaskFile(t, env.tasksDir, "fix-auth.md",
		"---\nstatus: todo\nsummary: Fix the auth bug\n---\n")
	testutil.WriteTaskFile(t, env.tasksDir, "ship-release.md",
		"---\nstatus: todo\nsummary: Ship the release\n---\n")
	require.NoError(t, env.store.Save(store.Metadata{
		Session:    "hive-auth",
		Agent:      "codex",
		TaskPath:   taskPath,
		Privileged: true,
	}))

	snap, err := env.engine.Refresh(context.Background())
	require.NoError(t, err)

	rec := snap.Session("hive-auth")
	require.NotNil(t, rec)
	assert.Equal(t, "codex", rec.Agent)
	assert.True(t, rec.Privileged)
	assert.Equal(t, taskPath, rec.TaskPath)
	assert.Equal(t, "Fix the auth bug", rec.TaskTitle)

	// The task being worked by the live session is no longer pending.
	require.Len(t, snap.PendingTasks, 1)
	assert.Equal(t, "Ship the release", snap.PendingTasks[0].Title)
}

func TestRefreshManagerDownFreezesSnapshot(t *testing.T) {
	mgr := newFakeManager("hive-auth")
	mgr.setTail("hive-auth", "Running tests...\n", time.Now())
	env := newTestEnv(t, mgr)

	first, err := env.engine.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Sessions, 1)

	mgr.mu.Lock()
	mgr.listErr = errors.ManagerUnavailable(assert.AnError)
	mgr.mu.Unlock()

	second, err := env.engine.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, second.ManagerDown)
	assert.Equal(t, first.Sessions, second.Sessions)
	assert.Greater(t, second.Seq, first.Seq)

	// Manager recovery clears the flag.
	mgr.mu.Lock()
	mgr.listErr = nil
	mgr.mu.Unlock()
	third, err := env.engine.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, third.ManagerDown)
}

func TestRefreshDropsVanishedSession(t *testing.T) {
	mgr := newFakeManager("hive-auth", "hive-ghost")
	mgr.setTail("hive-auth", "ok\n", time.Now())
	// hive-ghost is listed but vanishes before its capture.
	env := newTestEnv(t, mgr)

	snap, err := env.engine.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Sessions, 1)
	assert.Nil(t, snap.Session("hive-ghost"))
}

func TestRefreshCaptureFailureDegradesToStale(t *testing.T) {
	mgr := newFakeManager("hive-auth")
	mgr.setTail("hive-auth", "Running tests...\n", time.Now())
	env := newTestEnv(t, mgr)

	first, err := env.engine.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, classify.StatusRunning, first.Session("hive-auth").Status)

	mgr.mu.Lock()
	mgr.captureErr["hive-auth"] = errors.CommandFailed("tmux capture-pane", assert.AnError)
	mgr.mu.Unlock()

	second, err := env.engine.Refresh(context.Background())
	require.NoError(t, err)
	rec := second.Session("hive-auth")
	require.NotNil(t, rec)
	assert.True(t, rec.Stale)
	// Status and tail carry over from the last good cycle.
	assert.Equal(t, classify.StatusRunning, rec.Status)
	assert.Equal(t, first.Session("hive-auth").Tail, rec.Tail)
}

func TestRefreshStableOrdering(t *testing.T) {
	mgr := newFakeManager("hive-c", "hive-a")
	mgr.setTail("hive-c", "x\n", time.Now())
	mgr.setTail("hive-a", "x\n", time.Now())
	env := newTestEnv(t, mgr)

	first, err := env.engine.Refresh(context.Background())
	require.NoError(t, err)
	// First snapshot: every session is new, so name order.
	assert.Equal(t, "hive-a", first.Sessions[0].Session)
	assert.Equal(t, "hive-c", first.Sessions[1].Session)

	// A new session appends; survivors keep their slots.
	mgr.mu.Lock()
	mgr.sessions = []string{"hive-b", "hive-c", "hive-a"}
	mgr.tails["hive-b"] = "x\n"
	mgr.mu.Unlock()

	second, err := env.engine.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, second.Sessions, 3)
	assert.Equal(t, "hive-a", second.Sessions[0].Session)
	assert.Equal(t, "hive-c", second.Sessions[1].Session)
	assert.Equal(t, "hive-b", second.Sessions[2].Session)

	// A removed session splices out without reshuffling.
	require.NoError(t, mgr.KillSession(context.Background(), "hive-c"))
	third, err := env.engine.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, third.Sessions, 2)
	assert.Equal(t, "hive-a", third.Sessions[0].Session)
	assert.Equal(t, "hive-b", third.Sessions[1].Session)
}

func TestNotificationsAreEdgeTriggered(t *testing.T) {
	mgr := newFakeManager("hive-auth")
	mgr.setTail("hive-auth", "Should I proceed? [y/N]\n", time.Now())
	env := newTestEnv(t, mgr)

	// First observation: no notification even though status is NeedsInput.
	_, err := env.engine.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, env.notifier.all())

	// Same status again: still quiet.
	_, err = env.engine.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, env.notifier.all())

	// Transition to Running and back: exactly one event for the edge.
	mgr.setTail("hive-auth", "Running tests...\n", time.Now())
	_, err = env.engine.Refresh(context.Background())
	require.NoError(t, err)

	mgr.setTail("hive-auth", "Should I proceed? [y/N]\n", time.Now())
	_, err = env.engine.Refresh(context.Background())
	require.NoError(t, err)

	// Delivery is off the refresh path.
	require.Eventually(t, func() bool {
		return len(env.notifier.all()) == 1
	}, time.Second, 10*time.Millisecond)
	events := env.notifier.all()
	assert.Equal(t, "hive-auth", events[0].Session)
	assert.Equal(t, classify.StatusNeedsInput, events[0].Status)
}

func TestNotificationOnDone(t *testing.T) {
	mgr := newFakeManager("hive-auth")
	mgr.setTail("hive-auth", "Running tests...\n", time.Now())
	env := newTestEnv(t, mgr)

	_, err := env.engine.Refresh(context.Background())
	require.NoError(t, err)

	mgr.setTail("hive-auth", "Task completed.\n", time.Now())
	_, err = env.engine.Refresh(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(env.notifier.all()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, classify.StatusDone, env.notifier.all()[0].Status)
}

// blockingNotifier stalls delivery until released.
type blockingNotifier struct {
	release chan struct{}
}

func (b *blockingNotifier) Notify(context.Context, notify.Event) {
	<-b.release
}

func TestHungNotifierDoesNotBlockEngine(t *testing.T) {
	mgr := newFakeManager("hive-auth")
	mgr.setTail("hive-auth", "Running tests...\n", time.Now())
	env := newTestEnv(t, mgr)

	blocker := &blockingNotifier{release: make(chan struct{})}
	defer close(blocker.release)
	env.engine.notifier = blocker

	_, err := env.engine.Refresh(context.Background())
	require.NoError(t, err)

	// The transition into Done fires the notifier, which hangs.
	mgr.setTail("hive-auth", "Task completed.\n", time.Now())
	_, err = env.engine.Refresh(context.Background())
	require.NoError(t, err)

	// Snapshot edits and further refreshes must not wait on it.
	done := make(chan struct{})
	go func() {
		env.engine.Remove("hive-auth")
		mgr.removeSession("hive-auth")
		_, _ = env.engine.Refresh(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine blocked behind a hung notifier")
	}
	assert.Empty(t, env.engine.Snapshot().Sessions)
}

func TestSeqMonotonic(t *testing.T) {
	mgr := newFakeManager("hive-a")
	mgr.setTail("hive-a", "x\n", time.Now())
	env := newTestEnv(t, mgr)

	var last uint64
	for i := 0; i < 5; i++ {
		snap, err := env.engine.Refresh(context.Background())
		require.NoError(t, err)
		assert.Greater(t, snap.Seq, last)
		last = snap.Seq
	}
}

func TestInsertStartingAndRemove(t *testing.T) {
	mgr := newFakeManager()
	env := newTestEnv(t, mgr)

	env.engine.InsertStarting(store.Metadata{
		Session: "hive-new",
		Agent:   "claude",
	})

	snap := env.engine.Snapshot()
	rec := snap.Session("hive-new")
	require.NotNil(t, rec)
	assert.Equal(t, classify.StatusStarting, rec.Status)
	assert.Equal(t, "new", rec.Name)

	// Inserting the same session twice is a no-op.
	seq := snap.Seq
	env.engine.InsertStarting(store.Metadata{Session: "hive-new", Agent: "claude"})
	assert.Equal(t, seq, env.engine.Snapshot().Seq)

	env.engine.Remove("hive-new")
	assert.Nil(t, env.engine.Snapshot().Session("hive-new"))

	// Removing an unknown session does not publish.
	seq = env.engine.Snapshot().Seq
	env.engine.Remove("hive-unknown")
	assert.Equal(t, seq, env.engine.Snapshot().Seq)
}

func TestRunRespondsToPoke(t *testing.T) {
	mgr := newFakeManager("hive-a")
	mgr.setTail("hive-a", "x\n", time.Now())
	env := newTestEnv(t, mgr)
	// Slow ticker so only the poke can explain a second refresh.
	env.engine.cfg.General.PollIntervalMs = 60000

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- env.engine.Run(ctx) }()

	require.Eventually(t, func() bool {
		return env.engine.Snapshot().Seq >= 1
	}, 3*time.Second, 10*time.Millisecond)
	seq := env.engine.Snapshot().Seq

	env.engine.Poke()
	require.Eventually(t, func() bool {
		return env.engine.Snapshot().Seq > seq
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestSnapshotImmutableForReaders(t *testing.T) {
	mgr := newFakeManager("hive-a")
	mgr.setTail("hive-a", "x\n", time.Now())
	env := newTestEnv(t, mgr)

	first, err := env.engine.Refresh(context.Background())
	require.NoError(t, err)

	mgr.setTail("hive-a", "Should I proceed? [y/N]\n", time.Now())
	_, err = env.engine.Refresh(context.Background())
	require.NoError(t, err)

	// The old snapshot still reads the old verdict.
	assert.NotEqual(t, classify.StatusNeedsInput, first.Session("hive-a").Status)
}
