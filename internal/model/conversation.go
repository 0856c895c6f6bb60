// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds the in-memory message list for the current page of the
// session. There is no client-side persistence: the server is the source of
// truth across restarts, and this list exists only for rendering and for the
// relay's history replay.
//
// The session controller appends from its stream goroutine while the relay
// bridge reads for replay, so access is guarded.
type Conversation struct {
	mu       sync.RWMutex
	messages []*Message
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Add appends a message.
func (c *Conversation) Add(msg *Message) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
}

// Remove deletes the message with the given id. Returns false when no message
// has that id.
func (c *Conversation) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.messages {
		if m.ID == id {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return true
		}
	}
	return false
}

// Clear drops all messages.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Messages returns a copy of the message list in order.
func (c *Conversation) Messages() []*Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Last returns the most recent message, or nil when empty.
func (c *Conversation) Last() *Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return nil
	}
	return c.messages[len(c.messages)-1]
}

// Tail returns up to limit of the most recent messages in order, and whether
// older messages were cut off. limit <= 0 means no cap.
func (c *Conversation) Tail(limit int) (msgs []*Message, truncated bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := len(c.messages)
	if limit <= 0 || n <= limit {
		msgs = make([]*Message, n)
		copy(msgs, c.messages)
		return msgs, false
	}
	msgs = make([]*Message, limit)
	copy(msgs, c.messages[n-limit:])
	return msgs, true
}
