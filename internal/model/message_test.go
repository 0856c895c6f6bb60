// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
)

func TestRoleDisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Mentor"},
		{RoleError, "Error"},
		{Role("other"), "other"},
	}
	for _, tt := range tests {
		if got := tt.role.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestDedupeSources(t *testing.T) {
	in := []Source{
		{URL: "https://a", Title: "first"},
		{URL: ""},
		{URL: "https://b"},
		{URL: "https://a", Title: "duplicate"},
	}
	out := DedupeSources(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(out))
	}
	if out[0].URL != "https://a" || out[0].Title != "first" {
		t.Errorf("first occurrence should win: %+v", out[0])
	}
	if out[1].URL != "https://b" {
		t.Errorf("order should be preserved: %+v", out[1])
	}
}

func TestDedupeSourcesEmpty(t *testing.T) {
	if out := DedupeSources(nil); out != nil {
		t.Errorf("nil input should stay nil, got %v", out)
	}
	if out := DedupeSources([]Source{{URL: ""}}); out != nil {
		t.Errorf("all-empty input should collapse to nil, got %v", out)
	}
}

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("hello")
	if msg.ID == "" {
		t.Error("user messages must get a client-assigned id")
	}
	if msg.Role != RoleUser {
		t.Errorf("unexpected role %q", msg.Role)
	}
	if msg.Timestamp == "" {
		t.Error("timestamp should be set")
	}

	other := NewUserMessage("hello")
	if other.ID == msg.ID {
		t.Error("ids must be unique")
	}
}

// =============================================================================
// SENTINELS
// =============================================================================

func TestDetectSentinel(t *testing.T) {
	tests := []struct {
		body string
		want Sentinel
	}{
		{"plain reply", SentinelNone},
		{"done <FINISHED>", SentinelFinished},
		{"flagged <REPORTED>", SentinelReported},
		{"cut off <TOO_LONG>", SentinelTooLong},
		// Finished wins when both appear.
		{"<REPORTED> and <FINISHED>", SentinelFinished},
	}
	for _, tt := range tests {
		if got := DetectSentinel(tt.body); got != tt.want {
			t.Errorf("DetectSentinel(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func TestSentinelTerminal(t *testing.T) {
	if SentinelNone.Terminal() {
		t.Error("SentinelNone must not be terminal")
	}
	for _, s := range []Sentinel{SentinelFinished, SentinelReported, SentinelTooLong} {
		if !s.Terminal() {
			t.Errorf("%v should be terminal", s)
		}
	}
}

// =============================================================================
// TURN STATE MACHINE
// =============================================================================

func TestTurnStateActive(t *testing.T) {
	active := []TurnState{TurnStarted, TurnStreaming}
	inactive := []TurnState{TurnIdle, TurnCompleted, TurnCancelled, TurnFailed}
	for _, s := range active {
		if !s.Active() {
			t.Errorf("%v should be active", s)
		}
	}
	for _, s := range inactive {
		if s.Active() {
			t.Errorf("%v should not be active", s)
		}
	}
}

func TestTurnStateTransitions(t *testing.T) {
	allowed := []struct{ from, to TurnState }{
		{TurnIdle, TurnStarted},
		{TurnCompleted, TurnStarted},
		{TurnCancelled, TurnStarted},
		{TurnFailed, TurnStarted},
		{TurnStarted, TurnStreaming},
		{TurnStarted, TurnCompleted},
		{TurnStarted, TurnCancelled},
		{TurnStarted, TurnFailed},
		{TurnStreaming, TurnCompleted},
		{TurnStreaming, TurnCancelled},
		{TurnStreaming, TurnFailed},
	}
	for _, tt := range allowed {
		if !tt.from.CanTransition(tt.to) {
			t.Errorf("%v -> %v should be allowed", tt.from, tt.to)
		}
	}

	denied := []struct{ from, to TurnState }{
		{TurnIdle, TurnStreaming},
		{TurnIdle, TurnCompleted},
		{TurnCompleted, TurnStreaming},
		{TurnStreaming, TurnStarted},
		{TurnFailed, TurnCompleted},
	}
	for _, tt := range denied {
		if tt.from.CanTransition(tt.to) {
			t.Errorf("%v -> %v should be denied", tt.from, tt.to)
		}
	}
}

// =============================================================================
// CONVERSATION
// =============================================================================

func TestConversationRemove(t *testing.T) {
	conv := NewConversation()
	a := NewUserMessage("a")
	b := NewUserMessage("b")
	conv.Add(a)
	conv.Add(b)

	if !conv.Remove(a.ID) {
		t.Fatal("remove should find the message")
	}
	if conv.Remove("missing") {
		t.Error("remove of unknown id should report false")
	}
	if conv.Len() != 1 || conv.Last().ID != b.ID {
		t.Errorf("unexpected conversation state after remove")
	}
}

func TestConversationTail(t *testing.T) {
	conv := NewConversation()
	for i := 0; i < 5; i++ {
		conv.Add(NewUserMessage("m"))
	}

	msgs, truncated := conv.Tail(10)
	if truncated || len(msgs) != 5 {
		t.Errorf("no truncation expected: %d msgs, truncated=%v", len(msgs), truncated)
	}

	msgs, truncated = conv.Tail(3)
	if !truncated || len(msgs) != 3 {
		t.Errorf("expected the 3 newest with truncation: %d msgs, truncated=%v", len(msgs), truncated)
	}

	msgs, truncated = conv.Tail(0)
	if truncated || len(msgs) != 5 {
		t.Errorf("limit 0 means no cap: %d msgs, truncated=%v", len(msgs), truncated)
	}
}
