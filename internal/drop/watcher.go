// Package drop turns files landing in a watched directory into drop events.
package drop

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kyaoi/mdupload/internal/upload"
)

// DefaultSettle is how long a file must stay unwritten before it is delivered.
const DefaultSettle = 200 * time.Millisecond

// Watcher reports regular files created in one directory.
type Watcher struct {
	watcher *fsnotify.Watcher
	settle  time.Duration

	files  chan upload.File
	errs   chan error
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// Watch starts watching dir. Files are delivered once they have not been
// written to for settle; a non-positive settle uses DefaultSettle.
func Watch(dir string, settle time.Duration) (*Watcher, error) {
	if settle <= 0 {
		settle = DefaultSettle
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		settle:  settle,
		files:   make(chan upload.File, 10),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
		timers:  make(map[string]*time.Timer),
	}
	go w.loop()
	return w, nil
}

// Files delivers dropped files.
func (w *Watcher) Files() <-chan upload.File {
	return w.files
}

// Errors delivers watch errors. It is never closed.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.mu.Lock()
		for _, t := range w.timers {
			t.Stop()
		}
		w.mu.Unlock()
	})
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.arm(filepath.Clean(event.Name))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

func (w *Watcher) arm(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.settle, func() { w.deliver(path) })
}

func (w *Watcher) deliver(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	w.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	f := upload.File{Name: filepath.Base(path), Size: info.Size(), Path: path}
	select {
	case w.files <- f:
	case <-w.done:
	}
}
