package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	jww "github.com/spf13/jwalterweatherman"
)

// Watcher re-reads the configuration file whenever it changes on disk and
// delivers the result to a callback. Applying the new configuration is the
// caller's concern; the library itself never swaps a running inventory.
type Watcher struct {
	path string
	fw   *fsnotify.Watcher
	done chan struct{}
}

// Watch starts watching the configuration file. The callback receives every
// successfully re-read configuration, including one with only diagnostic
// messages when the new contents are broken.
func Watch(path string, fn func(*Configuration)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// watch the directory; editors replace files rather than write in place
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{path: path, fw: fw, done: make(chan struct{})}
	go w.loop(fn)
	return w, nil
}

func (w *Watcher) loop(fn func(*Configuration)) {
	base := filepath.Base(w.path)
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			jww.DEBUG.Printf("configuration file event %v, re-reading", ev.Op)
			fn(Load(w.path))
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			jww.WARN.Printf("configuration watcher error: %v", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}
