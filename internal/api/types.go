// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the mentor chat server: turn
// start, stream consumption, cancellation, deletion, health probes, and the
// legacy one-shot endpoints.
package api

import (
	"encoding/json"
	"errors"

	"github.com/jeranaias/mentor-tui/internal/model"
)

// =============================================================================
// STREAM EVENTS
// =============================================================================

// Stream action names sent by the server.
const (
	// ActionClose ends the stream for the current turn. The stream is never
	// considered complete until this arrives; the server may multiplex
	// several message events into one stream before it.
	ActionClose = "close"
	// ActionSetLoadingIndicator replaces the loading label text. Cosmetic
	// only; may occur any number of times before close.
	ActionSetLoadingIndicator = "set_loading_indicator"
)

// EventKind tags the two arms of the stream event union.
type EventKind int

const (
	EventAction EventKind = iota
	EventMessage
)

// StreamEvent is one event from the server push stream: either a control
// action or an assistant message.
type StreamEvent struct {
	Kind EventKind

	// Action fields (Kind == EventAction)
	Action string
	Label  string // new loading label for set_loading_indicator

	// Message fields (Kind == EventMessage)
	Message *MessageEvent
}

// MessageEvent is the message arm of the stream union.
type MessageEvent struct {
	// Response is the rendered reply, an HTML fragment.
	Response string
	// WorkspaceContent is non-nil when the event carries a workspace update.
	WorkspaceContent  *string
	WorkspaceLanguage string
	Metadata          Metadata
}

// Metadata is the server-assigned envelope on an assistant message.
type Metadata struct {
	MessageID   string `json:"message_id"`
	Timestamp   string `json:"timestamp"`
	AnswerModel string `json:"answer_model"`
	// Sources is a JSON-encoded array of {url, title?} objects.
	Sources string `json:"sources"`
}

// ParseSources decodes the metadata's sources field. Entries without a URL
// and duplicate URLs are dropped, preserving order. A malformed field yields
// an empty list, never an error: bad payload data must not break rendering.
func (m Metadata) ParseSources() []model.Source {
	if m.Sources == "" {
		return nil
	}
	var raw []model.Source
	if err := json.Unmarshal([]byte(m.Sources), &raw); err != nil {
		return nil
	}
	return model.DedupeSources(raw)
}

// ErrUnrecognizedEvent is returned by ParseStreamEvent for payloads that are
// neither an action nor a message. Callers log and skip these.
var ErrUnrecognizedEvent = errors.New("unrecognized stream event")

// ParseStreamEvent decodes one stream event's data payload into the tagged
// union. Events with an action field are actions; everything else must carry
// a response plus metadata to count as a message.
func ParseStreamEvent(data []byte) (StreamEvent, error) {
	var raw struct {
		Action            string    `json:"action"`
		Message           string    `json:"message"`
		Response          *string   `json:"response"`
		WorkspaceContent  *string   `json:"workspace_content"`
		WorkspaceLanguage string    `json:"workspace_language"`
		Metadata          *Metadata `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return StreamEvent{}, err
	}

	if raw.Action != "" {
		return StreamEvent{
			Kind:   EventAction,
			Action: raw.Action,
			Label:  raw.Message,
		}, nil
	}

	if raw.Response == nil || raw.Metadata == nil {
		return StreamEvent{}, ErrUnrecognizedEvent
	}

	return StreamEvent{
		Kind: EventMessage,
		Message: &MessageEvent{
			Response:          *raw.Response,
			WorkspaceContent:  raw.WorkspaceContent,
			WorkspaceLanguage: raw.WorkspaceLanguage,
			Metadata:          *raw.Metadata,
		},
	}, nil
}

// =============================================================================
// REQUEST / RESPONSE BODIES
// =============================================================================

// DeleteResponse is the body of DELETE /api/message/delete/{id}.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// HealthStatus is the interpreted result of a health probe.
type HealthStatus struct {
	// Healthy is true for any 2xx response.
	Healthy bool
	// StatusCode is the HTTP status received, 0 on transport failure.
	StatusCode int
	// AuthExpired is true for 401/403: retrying cannot fix those, so the
	// monitor treats them as an immediate hard failure.
	AuthExpired bool
}

// OneShotRequest is the body for the legacy single-shot chat endpoints.
// Mode-specific fields are omitted when empty.
type OneShotRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Name      string `json:"name,omitempty"`
	StudentNr string `json:"student_nr,omitempty"`
	Course    string `json:"course,omitempty"`
	Chapter   string `json:"chapter,omitempty"`
}

// OneShotResponse is the reply from the legacy endpoints: one full response
// per request, no streaming. Sentinel tokens may be embedded in Response.
type OneShotResponse struct {
	Response string    `json:"response"`
	Metadata *Metadata `json:"metadata,omitempty"`
	Error    string    `json:"error,omitempty"`
}
