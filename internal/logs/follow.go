package logs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Follow streams lines appended to kind after the call. The channel is closed
// when ctx ends. Truncation restarts reading from the top of the file.
func (s *Store) Follow(ctx context.Context, kind Kind) (<-chan string, error) {
	path := filepath.Clean(s.Path(kind))
	var offset int64
	if st, err := os.Stat(path); err == nil {
		offset = st.Size()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	// watch the directory so a recreated file is still seen
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	out := make(chan string, 64)
	t := &tailer{path: path, offset: offset, out: out}
	go func() {
		defer close(out)
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != path {
					continue
				}
				if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					t.reset()
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if !t.drain(ctx) {
						return
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("log follow watcher error", "path", path, "error", err)
			}
		}
	}()
	return out, nil
}

type tailer struct {
	path    string
	offset  int64
	partial []byte
	out     chan<- string
}

func (t *tailer) reset() {
	t.offset = 0
	t.partial = nil
}

// drain reads everything between the saved offset and the end of file and
// emits complete lines. It returns false when ctx ended while sending.
func (t *tailer) drain(ctx context.Context) bool {
	f, err := os.Open(t.path)
	if err != nil {
		return true
	}
	defer func() { _ = f.Close() }()
	st, err := f.Stat()
	if err != nil {
		return true
	}
	if st.Size() < t.offset {
		t.reset()
	}
	if st.Size() == t.offset {
		return true
	}
	buf, err := io.ReadAll(io.NewSectionReader(f, t.offset, st.Size()-t.offset))
	if err != nil {
		slog.Warn("log follow read failed", "path", t.path, "error", err)
		return true
	}
	t.offset += int64(len(buf))
	data := append(t.partial, buf...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimSuffix(data[:i], []byte("\r")))
		data = data[i+1:]
		select {
		case t.out <- line:
		case <-ctx.Done():
			return false
		}
	}
	t.partial = append([]byte(nil), data...)
	return true
}
