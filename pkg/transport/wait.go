package transport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/gesturelink/internal/domain"
)

// WaitForSocket blocks until a socket file exists at path or ctx ends. It
// watches the parent directory, so the directory itself must exist. The
// returned error wraps ctx.Err() on timeout or cancellation.
//
// WaitForSocket only observes the filesystem; it does not dial.
func WaitForSocket(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("transport: empty socket path: %w", domain.ErrInvalidArgument)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("transport: create watcher: %w: %w", domain.ErrInitialization, err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("transport: watch %s: %w: %w", dir, domain.ErrInvalidArgument, err)
	}

	// Checked after the watch is in place so a socket created in between is
	// not missed.
	if ok, err := isSocket(path); err != nil || ok {
		return err
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("transport: waiting for %s: %w", path, ctx.Err())

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("transport: watcher closed: %w", domain.ErrInvalidState)
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Create) {
				continue
			}
			if ok, err := isSocket(path); err != nil || ok {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("transport: watcher closed: %w", domain.ErrInvalidState)
			}
			return fmt.Errorf("transport: watching %s: %w: %w", dir, domain.ErrIO, err)
		}
	}
}

func isSocket(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("transport: stat %s: %w: %w", path, domain.ErrIO, err)
	}
	if info.Mode()&os.ModeSocket == 0 {
		return false, fmt.Errorf("transport: %s is not a socket: %w", path, domain.ErrInvalidArgument)
	}
	return true, nil
}
