// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package relay maintains the persistent duplex channel to an external tool.
// The bridge mirrors conversation turns outward and can inject
// remote-originated user messages into the chat session, independent of the
// primary request/stream path.
package relay

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime"
	"path/filepath"

	"github.com/jeranaias/mentor-tui/internal/attachments"
)

// Envelope actions. Outbound mirrors conversation state to the remote tool;
// inbound envelopes are either a user message or a narrow one-shot command.
const (
	// Bidirectional conversation data
	ActionUserMessage = "user_message"
	ActionAIMessage   = "ai_message"

	// Outbound control
	ActionClearMessages    = "clear_messages"
	ActionTruncationNotice = "truncation_notice"
	ActionCancelMessage    = "cancel_message"

	// Inbound one-shot commands
	ActionSetName           = "set_connection_name"
	ActionSetTool           = "set_tool"
	ActionClearConversation = "clear_conversation"
)

// Attachment is a file re-encoded for transport so the remote party can
// reconstruct the turn.
type Attachment struct {
	Name string `json:"name"`
	// Data is the base64-encoded file content.
	Data string `json:"data"`
}

// Envelope is the JSON message exchanged over the relay socket.
type Envelope struct {
	Action            string `json:"action"`
	Message           string `json:"message,omitempty"`
	WorkspaceContent  string `json:"workspace_content,omitempty"`
	WorkspaceLanguage string `json:"workspace_language,omitempty"`
	// OnConnect marks envelopes that are part of the history replay after a
	// (re)connect, as opposed to live conversation traffic.
	OnConnect   bool         `json:"on_connect,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	// Enabled accompanies the set_tool command.
	Enabled bool `json:"enabled,omitempty"`
}

// ErrMalformedEnvelope marks inbound payloads that do not parse as the
// expected structure. They are logged and ignored, never surfaced.
var ErrMalformedEnvelope = errors.New("malformed relay envelope")

// ParseEnvelope decodes an inbound relay payload. A payload without an action
// is malformed.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, errors.Join(ErrMalformedEnvelope, err)
	}
	if env.Action == "" {
		return Envelope{}, ErrMalformedEnvelope
	}
	return env, nil
}

// EncodeAttachments converts pending attachment files into their transport
// form.
func EncodeAttachments(files []attachments.File) []Attachment {
	if len(files) == 0 {
		return nil
	}
	out := make([]Attachment, 0, len(files))
	for _, f := range files {
		out = append(out, Attachment{
			Name: f.Name,
			Data: base64.StdEncoding.EncodeToString(f.Data),
		})
	}
	return out
}

// DecodeAttachments converts transport attachments back into files. Entries
// whose payload fails to decode are skipped; the MIME type is recovered from
// the file extension.
func DecodeAttachments(atts []Attachment) []attachments.File {
	if len(atts) == 0 {
		return nil
	}
	out := make([]attachments.File, 0, len(atts))
	for _, a := range atts {
		data, err := base64.StdEncoding.DecodeString(a.Data)
		if err != nil {
			continue
		}
		out = append(out, attachments.File{
			Name: a.Name,
			MIME: mime.TypeByExtension(filepath.Ext(a.Name)),
			Data: data,
		})
	}
	return out
}
