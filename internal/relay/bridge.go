// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/jeranaias/mentor-tui/internal/attachments"
	"github.com/jeranaias/mentor-tui/internal/model"
	"github.com/jeranaias/mentor-tui/internal/workspace"
)

// =============================================================================
// STATE
// =============================================================================

// State is the bridge's connection state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// =============================================================================
// EVENTS AND COLLABORATORS
// =============================================================================

// Event is a bridge-originated notification for the UI.
type Event interface{ relayEvent() }

// StateEvent reports a connection state change.
type StateEvent struct{ State State }

// RenameEvent carries the remote's new label for this connection.
type RenameEvent struct{ Label string }

// ToolToggleEvent reports a remote toggle of a named tool setting.
type ToolToggleEvent struct {
	Tool    string
	Enabled bool
}

func (StateEvent) relayEvent()      {}
func (RenameEvent) relayEvent()     {}
func (ToolToggleEvent) relayEvent() {}

// Session is the slice of the chat session controller the bridge drives.
// Remote user messages are injected as if typed locally.
type Session interface {
	InjectRemote(text string, snap workspace.Snapshot, files []attachments.File) error
	CancelActive()
	ClearConversation()
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds the bridge settings.
type Config struct {
	// URL of the relay endpoint (default: ws://127.0.0.1:8080).
	URL string
	// RetryDelay is the fixed reconnect delay (default: 3s). Reconnection is
	// unbounded: the relay is a background convenience channel, not the
	// primary UX path.
	RetryDelay time.Duration
	// ReplayLimit caps how much history is replayed on connect (default: 50
	// messages). A truncation notice is sent first when the cap applies.
	ReplayLimit int
}

func (c *Config) fillDefaults() {
	if c.URL == "" {
		c.URL = "ws://127.0.0.1:8080"
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 3 * time.Second
	}
	if c.ReplayLimit == 0 {
		c.ReplayLimit = 50
	}
}

// =============================================================================
// BRIDGE
// =============================================================================

// Bridge owns the relay socket. At most one socket is active at a time, and
// at most one reconnect timer is outstanding.
type Bridge struct {
	cfg     Config
	session Session
	conv    *model.Conversation
	onEvent func(Event)

	// limiter throttles the history replay so a long conversation cannot
	// flood the remote tool on reconnect.
	limiter *rate.Limiter

	// events feeds a single dispatcher goroutine so UI notifications arrive
	// in the order they were produced.
	events   chan Event
	stop     chan struct{}
	stopOnce sync.Once

	mu         sync.Mutex
	conn       *websocket.Conn
	state      State
	retryTimer *time.Timer
	closed     bool

	// writeMu serializes writes; gorilla connections allow one writer.
	writeMu sync.Mutex
}

// NewBridge creates a relay bridge. onEvent may be nil.
func NewBridge(cfg Config, conv *model.Conversation, session Session, onEvent func(Event)) *Bridge {
	cfg.fillDefaults()
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	b := &Bridge{
		cfg:     cfg,
		session: session,
		conv:    conv,
		onEvent: onEvent,
		limiter: rate.NewLimiter(rate.Limit(20), 5),
		events:  make(chan Event, 64),
		stop:    make(chan struct{}),
	}
	go b.dispatchEvents()
	return b
}

// dispatchEvents delivers bridge events one at a time, in production order.
// On shutdown any already-queued events are still delivered.
func (b *Bridge) dispatchEvents() {
	for {
		select {
		case ev := <-b.events:
			b.onEvent(ev)
		case <-b.stop:
			for {
				select {
				case ev := <-b.events:
					b.onEvent(ev)
				default:
					return
				}
			}
		}
	}
}

// emit queues an event for ordered delivery. Dropped after shutdown.
func (b *Bridge) emit(ev Event) {
	select {
	case b.events <- ev:
	case <-b.stop:
	}
}

// State returns the current connection state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Start begins connecting in the background.
func (b *Bridge) Start() {
	go b.connect()
}

// Close shuts the bridge down permanently: the socket is closed and no
// further reconnect is scheduled.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	if b.retryTimer != nil {
		b.retryTimer.Stop()
		b.retryTimer = nil
	}
	conn := b.conn
	b.conn = nil
	b.setStateLocked(Disconnected)
	b.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	b.stopOnce.Do(func() { close(b.stop) })
}

func (b *Bridge) setStateLocked(s State) {
	if b.state == s {
		return
	}
	b.state = s
	b.emit(StateEvent{State: s})
}

func (b *Bridge) connect() {
	b.mu.Lock()
	if b.closed || b.state != Disconnected {
		b.mu.Unlock()
		return
	}
	b.setStateLocked(Connecting)
	b.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(b.cfg.URL, nil)
	if err != nil {
		log.Printf("relay: connect failed: %v", err)
		b.mu.Lock()
		b.setStateLocked(Disconnected)
		b.mu.Unlock()
		b.scheduleReconnect()
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		conn.Close()
		return
	}
	b.conn = conn
	b.setStateLocked(Connected)
	// Successful open disarms any pending reconnect.
	if b.retryTimer != nil {
		b.retryTimer.Stop()
		b.retryTimer = nil
	}
	b.mu.Unlock()

	b.replayHistory()
	go b.readLoop(conn)
}

// scheduleReconnect arms the single reconnect timer. Arming is idempotent:
// if a timer is already outstanding nothing changes.
func (b *Bridge) scheduleReconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.retryTimer != nil {
		return
	}
	b.retryTimer = time.AfterFunc(b.cfg.RetryDelay, func() {
		b.mu.Lock()
		b.retryTimer = nil
		b.mu.Unlock()
		b.connect()
	})
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			b.mu.Lock()
			if b.conn == conn {
				b.conn = nil
				b.setStateLocked(Disconnected)
			}
			closed := b.closed
			b.mu.Unlock()
			conn.Close()
			if !closed {
				log.Printf("relay: connection lost: %v", err)
				b.scheduleReconnect()
			}
			return
		}
		b.handleInbound(data)
	}
}

// =============================================================================
// OUTBOUND
// =============================================================================

func (b *Bridge) send(env Envelope) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return
	}

	b.writeMu.Lock()
	err := conn.WriteJSON(env)
	b.writeMu.Unlock()
	if err != nil {
		log.Printf("relay: write failed: %v", err)
	}
}

// replayHistory rebuilds the remote's view of the conversation: a clear
// command, an optional truncation notice, then each local message role-tagged
// with its workspace snapshot and re-encoded attachments.
func (b *Bridge) replayHistory() {
	b.send(Envelope{Action: ActionClearMessages, OnConnect: true})

	msgs, truncated := b.conv.Tail(b.cfg.ReplayLimit)
	if truncated {
		b.send(Envelope{Action: ActionTruncationNotice, OnConnect: true})
	}

	for _, msg := range msgs {
		if err := b.limiter.Wait(context.Background()); err != nil {
			return
		}
		env := Envelope{
			Action:    ActionUserMessage,
			Message:   msg.Body,
			OnConnect: true,
		}
		if msg.Role == model.RoleAssistant {
			env.Action = ActionAIMessage
		}
		if msg.Workspace != nil {
			env.WorkspaceContent = msg.Workspace.Content
			env.WorkspaceLanguage = msg.Workspace.Language
		}
		env.Attachments = EncodeAttachments(msg.Attachments)
		b.send(env)
	}
}

// ForwardReply echoes a rendered assistant reply to the remote tool. The
// session controller calls this for turns whose originating message asked for
// forwarding.
func (b *Bridge) ForwardReply(body string, snap *workspace.Snapshot) {
	env := Envelope{Action: ActionAIMessage, Message: body}
	if snap != nil {
		env.WorkspaceContent = snap.Content
		env.WorkspaceLanguage = snap.Language
	}
	b.send(env)
}

// NotifyCancel tells the remote tool the active turn was cancelled.
func (b *Bridge) NotifyCancel() {
	b.send(Envelope{Action: ActionCancelMessage})
}

// =============================================================================
// INBOUND
// =============================================================================

// handleInbound dispatches one remote payload. Malformed payloads are logged
// and ignored: they must never crash the bridge or surface to the user.
func (b *Bridge) handleInbound(data []byte) {
	env, err := ParseEnvelope(data)
	if err != nil {
		log.Printf("relay: ignoring inbound payload: %v", err)
		return
	}

	switch env.Action {
	case ActionUserMessage:
		snap := workspace.Snapshot{
			Content:  env.WorkspaceContent,
			Language: env.WorkspaceLanguage,
		}
		files := DecodeAttachments(env.Attachments)
		if err := b.session.InjectRemote(env.Message, snap, files); err != nil {
			log.Printf("relay: remote message dropped: %v", err)
		}
	case ActionCancelMessage:
		b.session.CancelActive()
	case ActionClearConversation:
		b.session.ClearConversation()
	case ActionSetName:
		b.emit(RenameEvent{Label: env.Message})
	case ActionSetTool:
		b.emit(ToolToggleEvent{Tool: env.Message, Enabled: env.Enabled})
	default:
		log.Printf("relay: ignoring unknown action %q", env.Action)
	}
}
