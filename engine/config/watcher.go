package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/anima/engine/core"
)

// Watcher keeps the settings of one file current, reloading it whenever the
// file is written or replaced.
type Watcher struct {
	path string

	mutex    sync.RWMutex
	current  *Settings
	onChange func(*Settings)

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
}

func NewWatcher(path string, onChange func(*Settings)) (*Watcher, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace files instead of writing them in place.
	if err := fsWatch.Add(filepath.Dir(path)); err != nil {
		fsWatch.Close()
		return nil, err
	}

	w := &Watcher{
		path:     filepath.Clean(path),
		current:  s,
		onChange: onChange,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.start()
	return w, nil
}

// Settings returns a snapshot of the latest valid settings.
func (w *Watcher) Settings() *Settings {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.current.Snapshot()
}

func (w *Watcher) Close() error {
	close(w.done)
	err := w.fsnotify.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) start() {
	defer w.wg.Done()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				w.reload()
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("%s", err.Error())

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	// a renamed or removed file is not a reason to fall back to the defaults
	if _, err := os.Stat(w.path); errors.Is(err, fs.ErrNotExist) {
		core.LogWarn("settings file %s is gone, keeping the current settings", w.path)
		return
	}

	s, err := Load(w.path)
	if err != nil {
		// keep the last valid settings
		core.LogWarn("settings reload failed: %s", err.Error())
		return
	}
	w.mutex.Lock()
	w.current = s
	w.mutex.Unlock()

	core.SetLogLevel(core.ParseLogLevel(s.LogLevel))
	core.LogInfo("settings reloaded from %s", w.path)
	if w.onChange != nil {
		w.onChange(s.Snapshot())
	}
}
