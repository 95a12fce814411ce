package kv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

const tempPrefix = ".tmp-"

// File implements Substrate as one file per key under a root directory.
// Writes go through a temp file and rename so readers never see a partial
// value.
type File struct {
	root string
}

// OpenFile uses root as the substrate directory, creating it if needed.
func OpenFile(root string) (*File, error) {
	if root == "" {
		return nil, fmt.Errorf("open file substrate: empty path")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("open file substrate: %w", err)
	}
	return &File{root: root}, nil
}

// Driver returns DriverFile.
func (f *File) Driver() Driver { return DriverFile }

// Close is a no-op; watchers stop with their context.
func (f *File) Close() error { return nil }

// Root returns the directory holding the entries.
func (f *File) Root() string { return f.root }

func (f *File) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, ".") || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(f.root, key), nil
}

// Get reads the entry file for key.
func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	p, err := f.path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return string(data), true, nil
}

// Set replaces the entry file for key atomically.
func (f *File) Set(_ context.Context, key, value string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, tempPrefix+key+"-*")
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("set %q: write: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("set %q: close: %w", key, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("set %q: rename: %w", key, err)
	}
	return nil
}

// Remove deletes the entry file for key. Removing a missing key is not an
// error.
func (f *File) Remove(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// Watch reports the key of every entry created, rewritten or removed under
// the root, including changes made by other processes. Watcher errors such as
// event overflow are logged through slog and watching continues. The channel
// closes when ctx is done or the watcher shuts down.
func (f *File) Watch(ctx context.Context) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if err := w.Add(f.root); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", f.root, err)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer w.Close()
		forwardEvents(ctx, w.Events, w.Errors, out, slog.Default().With("root", f.root))
	}()
	return out, nil
}

// forwardEvents copies entry keys from events to out until ctx is done or
// either source channel closes.
func forwardEvents(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, out chan<- string, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			key := filepath.Base(ev.Name)
			if strings.HasPrefix(key, ".") {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			select {
			case out <- key:
			case <-ctx.Done():
				return
			}
		case err, ok := <-errs:
			if !ok {
				return
			}
			logger.Warn("file substrate watcher error", "error", err)
		}
	}
}
