package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lightshade/internal/image"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// FolderWatcher adds images to a session as they appear in a directory, for
// example when a camera or sync client drops new photos.
type FolderWatcher struct {
	dir     string
	state   *State
	settle  time.Duration
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewFolderWatcher watches dir and feeds supported images into state. A new
// file is added once it has not been written to for settle.
func NewFolderWatcher(dir string, state *State, settle time.Duration) (*FolderWatcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to watch folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to watch folder: %s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new file change watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch folder: %w", err)
	}

	return &FolderWatcher{
		dir:     dir,
		state:   state,
		settle:  settle,
		watcher: watcher,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}, nil
}

// Dir returns the watched directory.
func (w *FolderWatcher) Dir() string {
	return w.dir
}

// Start begins watching in a background goroutine.
func (w *FolderWatcher) Start() {
	go w.watchLoop()
}

// Stop ends the watch and waits for the loop to exit.
func (w *FolderWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	<-w.doneCh

	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
}

func (w *FolderWatcher) watchLoop() {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !image.IsSupportedFormat(ev.Name) {
				continue
			}
			w.schedule(ev.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("folder watch %s: %v", w.dir, err)
		}
	}
}

// schedule (re)arms the settle timer of path so partially written files are
// not decoded.
func (w *FolderWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case <-w.stopCh:
			return
		default:
		}
		path := filepath.Clean(path)
		for _, img := range w.state.Images() {
			if img.Path == path {
				return
			}
		}
		if _, err := w.state.AddImage(path); err != nil {
			log.Warnf("skipping %s: %v", path, err)
		}
	})
}
