// Package live watches the Messages database directory and runs an
// incremental update after each burst of writes settles.
package live

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Napageneral/transcript/internal/export"
)

// Watcher re-exports new messages whenever chat.db changes on disk. SQLite
// touches the db, wal, and shm files in quick bursts, so events are debounced
// before each update run.
type Watcher struct {
	opts     export.Options
	debounce time.Duration
	logf     func(format string, args ...any)
}

func New(opts export.Options, debounce time.Duration, logf func(format string, args ...any)) *Watcher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Watcher{opts: opts, debounce: debounce, logf: logf}
}

// Run blocks until ctx is cancelled. It performs one update immediately,
// then one after each debounced change to chat.db.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	chatDBDir := filepath.Dir(w.opts.ChatDBPath)
	if err := watcher.Add(chatDBDir); err != nil {
		return fmt.Errorf("watch %s: %w", chatDBDir, err)
	}

	w.logf("Watching for message changes in %s (debounce: %s)", chatDBDir, w.debounce)
	w.logf("Press Ctrl+C to stop")

	runUpdate := func() {
		res, err := export.Update(ctx, w.opts)
		if err != nil {
			w.logf("watch update error: %v", err)
			return
		}
		if res.NewMessages > 0 {
			w.logf("[%s] Merged %d new messages (%d total)",
				time.Now().Format("15:04:05"), res.NewMessages, res.TotalMessages)
		}
	}

	w.logf("[%s] Running initial update...", time.Now().Format("15:04:05"))
	runUpdate()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if strings.Contains(event.Name, "chat.db") {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(w.debounce, runUpdate)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logf("watch error: %v", err)
		}
	}
}
