package logs

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/hpcloud/tail"
)

// maxTailRead bounds how much of a pane log one TailLines call reads.
// Pane logs grow without rotation, so reads start from the end.
const maxTailRead = 256 * 1024

// TailLines returns up to n trailing lines of the file. A missing file
// is an empty result, not an error.
func TailLines(path string, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	offset := info.Size() - maxTailRead
	if offset < 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if offset > 0 && len(lines) > 0 {
		// The first line is almost certainly truncated by the seek.
		lines = lines[1:]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	if len(lines) == 1 && lines[0] == "" {
		return []string{}, nil
	}
	return lines, nil
}

// Follow streams lines appended to the file onto out until the context
// is cancelled. Used by `hive logs -f`.
func Follow(ctx context.Context, path string, out io.Writer) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return err
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				continue
			}
			if _, err := io.WriteString(out, line.Text+"\n"); err != nil {
				_ = t.Stop()
				return err
			}
		}
	}
}
