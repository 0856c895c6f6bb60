// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attachments

import (
	"bytes"
	"errors"
	"testing"
)

func TestAddAcceptsAllowedTypes(t *testing.T) {
	s := NewStore()
	for _, name := range []string{"notes.pdf", "essay.doc", "essay.docx", "plot.png", "photo.jpg", "UPPER.PDF"} {
		if err := s.Add(File{Name: name, Data: []byte("x")}); err != nil {
			t.Errorf("Add(%q) failed: %v", name, err)
		}
	}
	if s.Len() != 6 {
		t.Errorf("expected 6 files, got %d", s.Len())
	}
}

func TestAddRejectsUnsupportedTypes(t *testing.T) {
	s := NewStore()
	for _, name := range []string{"script.sh", "archive.zip", "noext", "image.gif"} {
		err := s.Add(File{Name: name, Data: []byte("x")})
		if !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("Add(%q) should be rejected as unsupported, got %v", name, err)
		}
	}
	if s.Len() != 0 {
		t.Errorf("rejected files must not enter the list, got %d", s.Len())
	}
}

func TestAddSizeBoundary(t *testing.T) {
	s := NewStore()

	// Exactly at the cap is allowed.
	exact := File{Name: "big.pdf", Data: bytes.Repeat([]byte{0}, MaxFileSize)}
	if err := s.Add(exact); err != nil {
		t.Errorf("file of exactly MaxFileSize should be accepted: %v", err)
	}

	over := File{Name: "huge.pdf", Data: bytes.Repeat([]byte{0}, MaxFileSize+1)}
	err := s.Add(over)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversized file should be rejected, got %v", err)
	}
}

func TestAddErrorNamesFile(t *testing.T) {
	s := NewStore()
	err := s.Add(File{Name: "script.sh", Data: []byte("x")})
	if err == nil || !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := `"script.sh"`; !bytes.Contains([]byte(err.Error()), []byte(want)) {
		t.Errorf("error should name the file: %v", err)
	}
}

func TestAddPasted(t *testing.T) {
	s := NewStore()

	f, err := s.AddPasted("image/png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("AddPasted failed: %v", err)
	}
	if f.Name != "pasted_image.png" {
		t.Errorf("unexpected name %q", f.Name)
	}

	// jpeg maps to the jpg extension so the allow-list accepts it.
	f, err = s.AddPasted("image/jpeg", []byte("jpg-bytes"))
	if err != nil {
		t.Fatalf("AddPasted(jpeg) failed: %v", err)
	}
	if f.Name != "pasted_image.jpg" {
		t.Errorf("unexpected name %q", f.Name)
	}

	if _, err := s.AddPasted("image/gif", []byte("gif-bytes")); err == nil {
		t.Error("gif paste should be rejected")
	}
}

func TestRemove(t *testing.T) {
	s := NewStore()
	s.Add(File{Name: "a.pdf", Data: []byte("a")})
	s.Add(File{Name: "b.pdf", Data: []byte("b")})
	s.Add(File{Name: "c.pdf", Data: []byte("c")})

	if !s.Remove(1) {
		t.Fatal("remove of valid index should succeed")
	}
	files := s.Files()
	if len(files) != 2 || files[0].Name != "a.pdf" || files[1].Name != "c.pdf" {
		t.Errorf("order not preserved after remove: %+v", files)
	}

	if s.Remove(5) || s.Remove(-1) {
		t.Error("out-of-range remove should report false")
	}
}

func TestClearAndFilesCopy(t *testing.T) {
	s := NewStore()
	s.Add(File{Name: "a.pdf", Data: []byte("a")})

	files := s.Files()
	s.Clear()
	if s.Len() != 0 {
		t.Error("clear should empty the store")
	}
	if len(files) != 1 {
		t.Error("previously returned copies must not be affected by Clear")
	}
}
