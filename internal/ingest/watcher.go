package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string // directories to watch (recursive)
	InitialScan bool     // if true, walk roots and emit existing files
	Debounce    time.Duration
	Logger      *slog.Logger
}

// StartWatcher emits paths of claim documents created or updated under the
// roots. Both channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && watchable(path) {
				select {
				case evCh <- path:
				default:
					logger.Warn("initial scan buffer full, skipping", "path", path)
				}
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}
	logger.Info("watching directories", "roots", cfg.Roots)

	go func() {
		var (
			mu      sync.Mutex
			pending = map[string]struct{}{}
			timer   *time.Timer
			wg      sync.WaitGroup
		)
		defer close(errCh)
		defer close(evCh)
		defer wg.Wait()
		defer func() {
			mu.Lock()
			if timer != nil && timer.Stop() {
				wg.Done()
			}
			mu.Unlock()
		}()
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("failed to close watcher", "error", err)
			}
		}()

		// flush must run with mu held
		flush := func() {
			for p := range pending {
				select {
				case evCh <- p:
				case <-ctx.Done():
					return
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&fsnotify.Create == fsnotify.Create {
					tryAddDir(w, e.Name, logger)
				}
				if !watchable(e.Name) || e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				mu.Lock()
				pending[e.Name] = struct{}{}
				if cfg.Debounce <= 0 {
					flush()
					mu.Unlock()
					continue
				}
				if timer != nil && timer.Stop() {
					wg.Done()
				}
				wg.Add(1)
				timer = time.AfterFunc(cfg.Debounce, func() {
					defer wg.Done()
					mu.Lock()
					defer mu.Unlock()
					flush()
				})
				mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func watchable(path string) bool {
	return !IsHidden(path) && AllowedExt(filepath.Ext(path))
}

// tryAddDir watches path when it is a newly created directory.
func tryAddDir(w *fsnotify.Watcher, path string, logger *slog.Logger) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.Add(path); err != nil {
		logger.Warn("failed to add new directory to watcher", "path", path, "error", err)
	}
}

