// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/mentor-tui/internal/util"
)

// Watcher mirrors an on-disk scratch file into the workspace buffer. The
// scratch file is what the user opens in $EDITOR; every write to it updates
// the buffer, and WriteOut pushes the buffer back to disk before the editor
// is launched.
type Watcher struct {
	path string
	buf  *Buffer
	fw   *fsnotify.Watcher
	done chan struct{}
}

// NewWatcher creates a watcher for the scratch file at path. The file and its
// parent directory are created if missing.
func NewWatcher(path string, buf *Buffer) (*Watcher, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := util.AtomicWriteFile(path, nil, 0644); err != nil {
			return nil, err
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: editors that write via rename would
	// otherwise drop the watch on the first save.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{path: path, buf: buf, fw: fw, done: make(chan struct{})}, nil
}

// Path returns the scratch file location.
func (w *Watcher) Path() string {
	return w.path
}

// Start begins mirroring disk writes into the buffer. It returns immediately;
// call Stop to end the goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop ends the watch loop and releases the underlying watcher.
func (w *Watcher) Stop() {
	close(w.done)
	w.fw.Close()
}

// WriteOut writes the current buffer content to the scratch file.
func (w *Watcher) WriteOut() error {
	return util.AtomicWriteFile(w.path, []byte(w.buf.Get().Content), 0644)
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Name != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			data, err := os.ReadFile(w.path)
			if err != nil {
				log.Printf("workspace: read scratch file: %v", err)
				continue
			}
			snap := w.buf.Get()
			if string(data) == snap.Content {
				continue
			}
			snap.Content = string(data)
			w.buf.Set(snap)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("workspace: watcher: %v", err)
		}
	}
}
