// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package workspace manages the auxiliary text/code editing pane whose
// content travels with chat turns and can be restored from history or from
// the relay.
package workspace

import (
	"sync"
)

// DefaultLanguage is the fallback mode for labels the editor does not know.
const DefaultLanguage = "markdown"

// knownLanguages is the set of editor modes the workspace pane supports.
var knownLanguages = map[string]struct{}{
	"markdown":   {},
	"python":     {},
	"r":          {},
	"javascript": {},
	"css":        {},
	"html":       {},
}

// languageAliases maps external labels onto supported editor modes. History
// written by older front ends carries CodeMirror mode names, and course
// material uses "opensesame" for its Python-based scripting dialect.
var languageAliases = map[string]string{
	"htmlmixed":  "html",
	"opensesame": "python",
}

// NormalizeLanguage maps an arbitrary language label onto a supported editor
// mode. Unknown labels fall back to DefaultLanguage. The function is
// idempotent: normalizing an already-normalized label returns it unchanged.
func NormalizeLanguage(label string) string {
	if alias, ok := languageAliases[label]; ok {
		label = alias
	}
	if _, ok := knownLanguages[label]; !ok {
		return DefaultLanguage
	}
	return label
}

// KnownLanguages returns the supported editor modes in no particular order.
func KnownLanguages() []string {
	out := make([]string, 0, len(knownLanguages))
	for l := range knownLanguages {
		out = append(out, l)
	}
	return out
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a point-in-time copy of the workspace: its text and language.
// Snapshots are attached to outgoing turns and to rendered messages so any
// message's workspace can be reloaded later.
type Snapshot struct {
	Content  string `json:"content"`
	Language string `json:"language"`
}

// IsEmpty reports whether the snapshot carries no content.
func (s Snapshot) IsEmpty() bool {
	return s.Content == ""
}

// =============================================================================
// EDITOR
// =============================================================================

// Editor is the adapter boundary to the workspace editing widget. The widget
// itself is opaque; the session layer only gets and sets snapshots.
type Editor interface {
	Get() Snapshot
	Set(Snapshot)
}

// Buffer is the in-memory Editor implementation backing the TUI workspace
// pane. It is safe for concurrent use: the session controller, the relay
// bridge, and the scratch-file watcher all touch it.
type Buffer struct {
	mu       sync.RWMutex
	snap     Snapshot
	onChange func(Snapshot)
}

// NewBuffer creates an empty workspace buffer in the default mode.
func NewBuffer() *Buffer {
	return &Buffer{snap: Snapshot{Language: DefaultLanguage}}
}

// Get returns the current snapshot.
func (b *Buffer) Get() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}

// Set replaces the workspace content and language. The language label is
// normalized on every set, including loads from history and from the relay,
// so an unrecognized label can never break the editor.
func (b *Buffer) Set(snap Snapshot) {
	snap.Language = NormalizeLanguage(snap.Language)

	b.mu.Lock()
	b.snap = snap
	cb := b.onChange
	b.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}

// Clear empties the workspace, keeping the current language.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.snap.Content = ""
	cb := b.onChange
	snap := b.snap
	b.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}

// OnChange registers a callback invoked after every Set or Clear. At most one
// callback is supported; the UI uses it to repaint the workspace pane.
func (b *Buffer) OnChange(fn func(Snapshot)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}
