package identity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the identity whenever another process rewrites the file and
// calls onChange when the report, language or fixer name differ. It blocks
// until ctx is done.
func (m *Manager) Watch(ctx context.Context, onChange func(Identity)) error {
	if m.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch identity: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("watch identity: %w", err)
	}
	// The directory is watched because saves replace the file by rename.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch identity: %w", err)
	}
	base := filepath.Base(m.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base || !ev.Has(fsnotify.Create|fsnotify.Write) {
				continue
			}
			prev := m.Snapshot()
			if err := m.Load(); err != nil {
				continue
			}
			next := m.Snapshot()
			if sameIdentity(prev, next) {
				continue
			}
			onChange(next)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch identity: %w", err)
		}
	}
}

func sameIdentity(a, b Identity) bool {
	return a.ReportID == b.ReportID && a.Language == b.Language && a.FixerName == b.FixerName
}
