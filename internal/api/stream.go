// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/tmaxmax/go-sse"
)

// =============================================================================
// SERVER PUSH STREAM
// =============================================================================

// StreamHandle controls one open server-push stream. Closing it tears the
// connection down; the handle never reconnects on its own. A broken stream is
// terminal for the turn: the user resends instead.
type StreamHandle struct {
	cancel context.CancelFunc
}

// Close tears down the stream connection. Safe to call more than once.
func (h *StreamHandle) Close() {
	h.cancel()
}

// OpenStream opens the server push stream for the current session/turn.
// onEvent is invoked for each well-formed event, strictly in arrival order
// and never concurrently. Malformed event payloads are logged and skipped.
// onErr is invoked once if the stream fails mid-turn; a locally closed
// stream (via the handle) does not count as a failure.
//
// There is deliberately no client-side idle timeout: a stalled stream waits
// indefinitely for the close action or a transport error.
func (c *Client) OpenStream(ctx context.Context, onEvent func(StreamEvent), onErr func(error)) (*StreamHandle, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet,
		c.config.BaseURL+"/api/chat/stream", nil)
	if err != nil {
		cancel()
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	// The stream must not ride the timeout-bearing client, and SSE-level
	// reconnection is disabled: reconnecting mid-turn would silently reattach
	// to a stream whose turn state we already tore down.
	sseClient := &sse.Client{
		HTTPClient: &http.Client{},
		Backoff:    sse.Backoff{MaxRetries: -1},
	}

	conn := sseClient.NewConnection(req)
	conn.SubscribeMessages(func(ev sse.Event) {
		event, err := ParseStreamEvent([]byte(ev.Data))
		if err != nil {
			log.Printf("api: ignoring malformed stream event: %v", err)
			return
		}
		onEvent(event)
	})

	h := &StreamHandle{cancel: cancel}

	go func() {
		defer cancel()
		err := conn.Connect()
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		onErr(&ClientError{Type: ErrTypeConnection, Message: "stream connection lost", Cause: err})
	}()

	return h, nil
}
