// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attachments validates and holds pending file attachments on the
// client side. Attachments are turn-scoped: the session controller flushes
// the store at the end of every completed or cancelled turn.
package attachments

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// MaxFileSize is the per-file size cap in bytes (4 MiB).
const MaxFileSize = 4 * 1024 * 1024

// allowedExtensions is the server-accepted upload allow-list.
var allowedExtensions = map[string]struct{}{
	"pdf":  {},
	"doc":  {},
	"docx": {},
	"png":  {},
	"jpg":  {},
}

// Validation errors. Add wraps these with the offending file name.
var (
	ErrTooLarge        = errors.New("file exceeds the 4 MiB size limit")
	ErrUnsupportedType = errors.New("file type is not allowed")
)

// File is one pending attachment held in memory until the turn that carries
// it completes.
type File struct {
	Name string
	MIME string
	Data []byte
}

// Store holds the ordered list of pending attachments.
type Store struct {
	mu    sync.Mutex
	files []File
}

// NewStore creates an empty attachment store.
func NewStore() *Store {
	return &Store{}
}

// Add validates a file and appends it to the pending list. The file is
// rejected when it exceeds MaxFileSize or its extension is outside the
// allow-list; rejected files never enter the list.
func (s *Store) Add(f File) error {
	if int64(len(f.Data)) > MaxFileSize {
		return fmt.Errorf("%q: %w", f.Name, ErrTooLarge)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
	if _, ok := allowedExtensions[ext]; !ok {
		return fmt.Errorf("%q: %w", f.Name, ErrUnsupportedType)
	}

	s.mu.Lock()
	s.files = append(s.files, f)
	s.mu.Unlock()
	return nil
}

// AddPasted stores image data from a paste event. When no name is available
// one is synthesized from the MIME type ("image/png" -> "pasted_image.png",
// with "jpeg" mapped to "jpg").
func (s *Store) AddPasted(mime string, data []byte) (File, error) {
	ext := strings.ToLower(strings.TrimPrefix(mime, "image/"))
	if ext == "jpeg" {
		ext = "jpg"
	}
	f := File{
		Name: "pasted_image." + ext,
		MIME: mime,
		Data: data,
	}
	if err := s.Add(f); err != nil {
		return File{}, err
	}
	return f, nil
}

// Remove drops the attachment at index, preserving the order of the rest.
// Returns false if the index is out of range.
func (s *Store) Remove(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.files) {
		return false
	}
	s.files = append(s.files[:index], s.files[index+1:]...)
	return true
}

// Clear drops all pending attachments.
func (s *Store) Clear() {
	s.mu.Lock()
	s.files = nil
	s.mu.Unlock()
}

// Files returns a copy of the pending attachments in insertion order.
func (s *Store) Files() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]File, len(s.files))
	copy(out, s.files)
	return out
}

// Len returns the number of pending attachments.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}
