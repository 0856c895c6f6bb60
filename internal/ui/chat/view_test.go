// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"

	"github.com/jeranaias/mentor-tui/internal/attachments"
	"github.com/jeranaias/mentor-tui/internal/relay"
)

func TestStatusBarTruncatesRelayLabel(t *testing.T) {
	m := New(Options{})
	m.width = 80
	m.relayEnabled = true
	m.relayState = relay.Connected
	m.relayLabel = strings.Repeat("x", 60)

	out := m.statusView()
	if strings.Contains(out, strings.Repeat("x", maxRelayLabelWidth+1)) {
		t.Error("relay label should be cut to the display-width cap")
	}
	if !strings.Contains(out, "…") {
		t.Error("truncated label should end with an ellipsis")
	}
}

func TestStatusBarShortLabelUntouched(t *testing.T) {
	m := New(Options{})
	m.width = 80
	m.relayEnabled = true
	m.relayState = relay.Connected
	m.relayLabel = "Course Builder"

	out := m.statusView()
	if !strings.Contains(out, "(Course Builder)") {
		t.Errorf("short label should render whole, got %q", out)
	}
}

func TestAttachmentChipsTruncateNames(t *testing.T) {
	store := attachments.NewStore()
	long := strings.Repeat("a", 40) + ".pdf"
	if err := store.Add(attachments.File{Name: long, Data: []byte("x")}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	m := New(Options{Attach: store})
	m.width = 80

	out := m.attachmentView()
	if out == "" {
		t.Fatal("expected a chip for the pending attachment")
	}
	if strings.Contains(out, strings.Repeat("a", maxAttachmentChipWidth+1)) {
		t.Error("chip name should be cut to the display-width cap")
	}
	if !strings.Contains(out, "…") {
		t.Error("truncated chip should end with an ellipsis")
	}
}
