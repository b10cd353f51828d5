package enforcer

import (
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// tamperWatcher turns filesystem events on shard paths into wake
// requests for the monitoring loop, shrinking the window between an
// external modification and the next integrity check.
type tamperWatcher struct {
	log     *slog.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func newTamperWatcher(log *slog.Logger, paths []string, wake func()) (*tamperWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watching %s: %w", path, err)
		}
	}

	w := &tamperWatcher{
		log:     log,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go w.loop(wake)

	return w, nil
}

func (w *tamperWatcher) loop(wake func()) {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Warn("Shard file changed on disk",
				slog.String("path", event.Name),
				slog.String("op", event.Op.String()))
			wake()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("Filesystem watcher error", "err", err)
		}
	}
}

// Close stops the watcher and waits for its event loop to exit.
func (w *tamperWatcher) Close() {
	w.watcher.Close()
	<-w.done
}
