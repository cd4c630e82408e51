package logs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTailLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pane.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0644))

	t.Run("last n lines", func(t *testing.T) {
		lines, err := TailLines(path, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"three", "four"}, lines)
	})

	t.Run("n larger than file", func(t *testing.T) {
		lines, err := TailLines(path, 100)
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two", "three", "four"}, lines)
	})

	t.Run("zero lines", func(t *testing.T) {
		lines, err := TailLines(path, 0)
		require.NoError(t, err)
		assert.Empty(t, lines)
	})
}

func TestTailLinesMissingFile(t *testing.T) {
	lines, err := TailLines(filepath.Join(t.TempDir(), "missing.log"), 10)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestTailLinesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.log")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	lines, err := TailLines(path, 10)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestTailLinesLargeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.log")
	var b strings.Builder
	for i := 0; i < 50000; i++ {
		b.WriteString("some fairly long pane output line for padding\n")
	}
	b.WriteString("final line\n")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))

	lines, err := TailLines(path, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "final line", lines[0])
}

func TestFollowStreamsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pane.log")
	require.NoError(t, os.WriteFile(path, []byte("old line\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	buf := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- Follow(ctx, path, buf) }()

	// Give the follower a moment to seek to the end.
	time.Sleep(200 * time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("new line\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "new line")
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.NotContains(t, buf.String(), "old line")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFollowStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pane.log")
	require.NoError(t, os.WriteFile(path, []byte(""), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Follow(ctx, path, &bytes.Buffer{}) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Follow did not stop on cancel")
	}
}
