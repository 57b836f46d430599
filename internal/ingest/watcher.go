package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/paperflow/constants"
)

type WatchConfig struct {
	Roots       []string // directories to watch (recursive)
	InitialScan bool     // if true, walk roots and emit existing files
	Debounce    time.Duration
}

// StartWatcher emits paths of newly arrived PDFs under the inbox roots.
// Create/rename bursts from scanners copying files in are debounced so a
// path is emitted once, after it has settled.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	// Paths found by the initial scan are collected here and emitted by the
	// watch goroutine, so a pre-populated inbox of any size is fully
	// registered regardless of the channel buffer.
	var initial []string
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && constants.IsAllowedExt(filepath.Ext(path)) {
				initial = append(initial, path)
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			logger.Error("failed to add inbox root", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		defer close(evCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Error("failed to close watcher", "error", err)
			}
		}()

		for _, path := range initial {
			select {
			case evCh <- path:
			case <-ctx.Done():
				return
			}
		}

		pending := make(map[string]time.Time)
		ticker := time.NewTicker(cfg.Debounce)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if ev.Op&fsnotify.Create != 0 {
						// a new subdirectory; start watching it
						_ = w.Add(ev.Name)
					}
					continue
				}
				if constants.IsAllowedExt(filepath.Ext(ev.Name)) {
					pending[ev.Name] = time.Now()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				select {
				case errCh <- err:
				default:
				}
			case now := <-ticker.C:
				for path, last := range pending {
					if now.Sub(last) >= cfg.Debounce {
						delete(pending, path)
						select {
						case evCh <- path:
						case <-ctx.Done():
							return
						}
					}
				}
			}
		}
	}()

	return evCh, errCh, nil
}
