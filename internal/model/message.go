// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the conversation: messages,
// sources, turn states, and the in-memory conversation list.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/mentor-tui/internal/attachments"
	"github.com/jeranaias/mentor-tui/internal/util"
	"github.com/jeranaias/mentor-tui/internal/workspace"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Mentor"
	case RoleError:
		return "Error"
	default:
		return string(r)
	}
}

// =============================================================================
// SOURCES
// =============================================================================

// Source is one reference attached to an assistant message.
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// DedupeSources drops sources with an empty URL and keeps only the first
// occurrence of each URL, preserving order.
func DedupeSources(sources []Source) []Source {
	if len(sources) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(sources))
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s.URL == "" {
			continue
		}
		if _, dup := seen[s.URL]; dup {
			continue
		}
		seen[s.URL] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single entry in the conversation. User message ids are
// assigned client-side; assistant ids come from the server's stream metadata.
// The id is what the delete endpoint expects.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Timestamp string `json:"timestamp"`

	// Body is the rendered content: plain text for user messages, an HTML
	// fragment for assistant messages.
	Body string `json:"body"`

	// Assistant metadata
	AnswerModel string   `json:"answer_model,omitempty"`
	Sources     []Source `json:"sources,omitempty"`

	// Workspace snapshot associated with this message, if any.
	Workspace *workspace.Snapshot `json:"workspace,omitempty"`

	// Attachments that were sent with this user message. Kept so the relay
	// can replay them to the remote tool.
	Attachments []attachments.File `json:"-"`
}

// NewUserMessage creates a user message with a client-assigned id and the
// current time.
func NewUserMessage(body string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Body:      body,
		Timestamp: util.FormatTimestamp(time.Now()),
	}
}

// NewErrorMessage creates an inline error entry for the conversation.
func NewErrorMessage(body string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      RoleError,
		Body:      body,
		Timestamp: util.FormatTimestamp(time.Now()),
	}
}

// HasWorkspace reports whether the message carries a non-empty workspace
// snapshot.
func (m *Message) HasWorkspace() bool {
	return m.Workspace != nil && !m.Workspace.IsEmpty()
}

// =============================================================================
// SENTINEL TOKENS
// =============================================================================

// Sentinel tokens embedded in response text mark conversation-terminal
// states. They are part of the response payload, not separate fields, and
// drive UI-only effects.
const (
	TokenFinished = "<FINISHED>"
	TokenReported = "<REPORTED>"
	TokenTooLong  = "<TOO_LONG>"
)

// Sentinel identifies a terminal conversation state signalled in a response.
type Sentinel int

const (
	SentinelNone Sentinel = iota
	SentinelFinished
	SentinelReported
	SentinelTooLong
)

// DetectSentinel returns the terminal-state token found in body, if any.
// Finished wins over Reported when both appear, matching how the legacy
// clients checked the tokens in order.
func DetectSentinel(body string) Sentinel {
	switch {
	case strings.Contains(body, TokenFinished):
		return SentinelFinished
	case strings.Contains(body, TokenReported):
		return SentinelReported
	case strings.Contains(body, TokenTooLong):
		return SentinelTooLong
	default:
		return SentinelNone
	}
}

// Terminal reports whether the sentinel ends the conversation.
func (s Sentinel) Terminal() bool {
	return s != SentinelNone
}
