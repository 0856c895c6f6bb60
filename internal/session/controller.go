// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the chat session controller: it orchestrates
// message submission, stream consumption, cancellation, and error recovery
// for one conversation.
package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/jeranaias/mentor-tui/internal/api"
	"github.com/jeranaias/mentor-tui/internal/attachments"
	"github.com/jeranaias/mentor-tui/internal/model"
	"github.com/jeranaias/mentor-tui/internal/workspace"
)

// DefaultLoadingLabel is shown while a turn awaits its first stream event.
// The server may replace it any number of times via set_loading_indicator.
const DefaultLoadingLabel = "Mentor is reading your message"

// ErrTurnActive is returned by SendMessage while a turn is in flight.
// Concurrent sends are prevented by disabling the input control, not by a
// queue, so hitting this error means the caller's input gating slipped.
var ErrTurnActive = errors.New("a chat turn is already active")

// =============================================================================
// EVENTS
// =============================================================================

// Event is a controller-originated notification. The UI consumes these from
// Events and renders state as a pure projection of them.
type Event interface{ sessionEvent() }

// UserMessageEvent announces the optimistic render of a sent user message.
type UserMessageEvent struct{ Msg *model.Message }

// AssistantMessageEvent announces one rendered assistant message.
type AssistantMessageEvent struct{ Msg *model.Message }

// LoadingLabelEvent replaces the loading indicator label.
type LoadingLabelEvent struct{ Label string }

// TurnStateEvent reports a turn lifecycle transition.
type TurnStateEvent struct {
	State model.TurnState
	Err   error
}

// MessageRemovedEvent reports a successful server-side delete.
type MessageRemovedEvent struct{ ID string }

// ConversationClearedEvent reports that the conversation was emptied.
type ConversationClearedEvent struct{}

// NoticeEvent surfaces a user-visible notice. Persistent notices stay until
// the program is restarted (e.g. a broken stream inviting a reload).
type NoticeEvent struct {
	Text       string
	Persistent bool
}

func (UserMessageEvent) sessionEvent()         {}
func (AssistantMessageEvent) sessionEvent()    {}
func (LoadingLabelEvent) sessionEvent()        {}
func (TurnStateEvent) sessionEvent()           {}
func (MessageRemovedEvent) sessionEvent()      {}
func (ConversationClearedEvent) sessionEvent() {}
func (NoticeEvent) sessionEvent()              {}

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Stream is an open server-push stream handle.
type Stream interface {
	Close()
}

// Backend is the wire-facing surface the controller drives. Adapt an
// *api.Client with NewBackend.
type Backend interface {
	StartTurn(ctx context.Context, req api.TurnRequest) error
	OpenStream(ctx context.Context, onEvent func(api.StreamEvent), onErr func(error)) (Stream, error)
	Cancel(ctx context.Context) error
	DeleteMessage(ctx context.Context, id string) (api.DeleteResponse, error)
}

type clientBackend struct{ c *api.Client }

// NewBackend adapts the HTTP client to the Backend interface.
func NewBackend(c *api.Client) Backend { return clientBackend{c} }

func (b clientBackend) StartTurn(ctx context.Context, req api.TurnRequest) error {
	return b.c.StartTurn(ctx, req)
}

func (b clientBackend) OpenStream(ctx context.Context, onEvent func(api.StreamEvent), onErr func(error)) (Stream, error) {
	h, err := b.c.OpenStream(ctx, onEvent, onErr)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (b clientBackend) Cancel(ctx context.Context) error { return b.c.Cancel(ctx) }

func (b clientBackend) DeleteMessage(ctx context.Context, id string) (api.DeleteResponse, error) {
	return b.c.DeleteMessage(ctx, id)
}

// Forwarder is the relay-facing surface: replies are echoed for turns that
// asked for forwarding, and cancellations are mirrored.
type Forwarder interface {
	ForwardReply(body string, snap *workspace.Snapshot)
	NotifyCancel()
}

// =============================================================================
// CONTROLLER
// =============================================================================

// SendOptions carries the per-turn extras of SendMessage.
type SendOptions struct {
	// ForwardToRelay echoes the eventual reply over the relay bridge.
	ForwardToRelay bool
	// TransientSettings and TransientSystemPrompt apply to this turn only.
	TransientSettings     string
	TransientSystemPrompt string
	// Topics selects foundation document topics for this turn.
	Topics string
}

// Controller owns the turn state machine. All state mutation happens in its
// transition points; rendering is a projection of the events it emits.
type Controller struct {
	backend   Backend
	conv      *model.Conversation
	attach    *attachments.Store
	ws        workspace.Editor
	forwarder Forwarder

	events chan Event

	mu         sync.Mutex
	state      model.TurnState
	stream     Stream
	turnCancel context.CancelFunc
	forward    bool
}

// NewController creates a controller over the given collaborators.
func NewController(backend Backend, conv *model.Conversation, attach *attachments.Store, ws workspace.Editor) *Controller {
	return &Controller{
		backend: backend,
		conv:    conv,
		attach:  attach,
		ws:      ws,
		events:  make(chan Event, 128),
		state:   model.TurnIdle,
	}
}

// SetForwarder wires the relay bridge in. Optional; without it forwarding
// requests are silently ignored.
func (c *Controller) SetForwarder(f Forwarder) {
	c.mu.Lock()
	c.forwarder = f
	c.mu.Unlock()
}

// Events returns the controller's event stream.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// State returns the current turn state.
func (c *Controller) State() model.TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether a turn is in flight. The health monitor uses this to
// skip probes during a turn.
func (c *Controller) Active() bool {
	return c.State().Active()
}

// Conversation returns the controller's conversation.
func (c *Controller) Conversation() *model.Conversation {
	return c.conv
}

func (c *Controller) emit(ev Event) {
	c.events <- ev
}

// transition moves the turn state machine and announces the change. It is
// the only place that mutates state.
func (c *Controller) transition(next model.TurnState, err error) bool {
	c.mu.Lock()
	if !c.state.CanTransition(next) {
		c.mu.Unlock()
		return false
	}
	c.state = next
	c.mu.Unlock()
	c.emit(TurnStateEvent{State: next, Err: err})
	return true
}

// =============================================================================
// SEND
// =============================================================================

// SendMessage starts a chat turn. The user message (with any pending
// attachments and the current workspace snapshot) is rendered optimistically
// before the network is touched; the turn-start request and stream run in
// the background. Returns ErrTurnActive while a turn is in flight.
func (c *Controller) SendMessage(text string, opts SendOptions) error {
	c.mu.Lock()
	if c.state.Active() {
		c.mu.Unlock()
		return ErrTurnActive
	}
	c.state = model.TurnStarted
	c.forward = opts.ForwardToRelay
	ctx, cancel := context.WithCancel(context.Background())
	c.turnCancel = cancel
	c.mu.Unlock()

	snap := c.ws.Get()
	files := c.attach.Files()

	msg := model.NewUserMessage(text)
	msg.Attachments = files
	if !snap.IsEmpty() {
		s := snap
		msg.Workspace = &s
	}
	c.conv.Add(msg)

	c.emit(UserMessageEvent{Msg: msg})
	c.emit(TurnStateEvent{State: model.TurnStarted})
	c.emit(LoadingLabelEvent{Label: DefaultLoadingLabel})

	req := api.TurnRequest{
		Message:               text,
		MessageID:             msg.ID,
		WorkspaceContent:      snap.Content,
		WorkspaceLanguage:     snap.Language,
		TransientSettings:     opts.TransientSettings,
		TransientSystemPrompt: opts.TransientSystemPrompt,
		Topics:                opts.Topics,
		Attachments:           files,
	}

	go c.runTurn(ctx, req)
	return nil
}

func (c *Controller) runTurn(ctx context.Context, req api.TurnRequest) {
	if err := c.backend.StartTurn(ctx, req); err != nil {
		// All retries exhausted: the turn is over before any stream opened.
		// The conversation stays usable; the user may simply resend.
		if c.transition(model.TurnFailed, err) {
			c.emit(NoticeEvent{Text: "Could not reach the server. Your message was not delivered; please try again."})
		}
		return
	}

	stream, err := c.backend.OpenStream(ctx, c.handleStreamEvent, c.handleStreamError)
	if err != nil {
		if c.transition(model.TurnFailed, err) {
			c.emit(NoticeEvent{Text: "Could not open the response stream. Please try again."})
		}
		return
	}

	c.mu.Lock()
	if !c.state.Active() {
		// The turn already ended (fast close, cancel, or stream error fired
		// before we could store the handle).
		c.mu.Unlock()
		stream.Close()
		return
	}
	c.stream = stream
	c.mu.Unlock()
	c.transition(model.TurnStreaming, nil)
}

// =============================================================================
// STREAM HANDLING
// =============================================================================

// handleStreamEvent processes one stream event. Events arrive strictly in
// server-send order and are never delivered concurrently for the same turn.
func (c *Controller) handleStreamEvent(ev api.StreamEvent) {
	switch ev.Kind {
	case api.EventAction:
		switch ev.Action {
		case api.ActionClose:
			// The stream is complete only when the server says so; several
			// message events may have been multiplexed before this.
			c.finishTurn(model.TurnCompleted, nil)
		case api.ActionSetLoadingIndicator:
			// Cosmetic only; turn state is untouched.
			c.emit(LoadingLabelEvent{Label: ev.Label})
		default:
			log.Printf("session: ignoring unknown stream action %q", ev.Action)
		}
	case api.EventMessage:
		c.renderAssistant(ev.Message)
	}
}

func (c *Controller) renderAssistant(me *api.MessageEvent) {
	msg := &model.Message{
		ID:          me.Metadata.MessageID,
		Role:        model.RoleAssistant,
		Body:        me.Response,
		Timestamp:   me.Metadata.Timestamp,
		AnswerModel: me.Metadata.AnswerModel,
		Sources:     me.Metadata.ParseSources(),
	}

	if me.WorkspaceContent != nil {
		snap := workspace.Snapshot{
			Content:  *me.WorkspaceContent,
			Language: workspace.NormalizeLanguage(me.WorkspaceLanguage),
		}
		c.ws.Set(snap)
		msg.Workspace = &snap
	}

	c.conv.Add(msg)
	c.emit(AssistantMessageEvent{Msg: msg})

	c.mu.Lock()
	forward := c.forward
	fw := c.forwarder
	c.mu.Unlock()
	if forward && fw != nil {
		fw.ForwardReply(msg.Body, msg.Workspace)
	}
}

// handleStreamError fires once if the open stream breaks. A stream is never
// reconnected: the turn fails, state is cleaned up, and a persistent notice
// invites a reload. The session itself stays usable.
func (c *Controller) handleStreamError(err error) {
	if c.finishTurn(model.TurnFailed, err) {
		c.emit(NoticeEvent{
			Text:       "The connection to the server has been lost. Your login session may have expired, the server may be temporarily unavailable, or there may be a network issue. Restart mentor to reconnect.",
			Persistent: true,
		})
	}
}

// finishTurn tears down the turn: the stream handle is closed, turn-scoped
// attachments are flushed on completion or cancellation, and the terminal
// state is announced (which re-enables input and removes the loading
// indicator in the UI).
func (c *Controller) finishTurn(final model.TurnState, err error) bool {
	c.mu.Lock()
	if !c.state.Active() {
		c.mu.Unlock()
		return false
	}
	stream := c.stream
	c.stream = nil
	cancel := c.turnCancel
	c.turnCancel = nil
	c.mu.Unlock()

	if stream != nil {
		stream.Close()
	}
	if cancel != nil {
		cancel()
	}
	if final == model.TurnCompleted || final == model.TurnCancelled {
		c.attach.Clear()
	}
	return c.transition(final, err)
}

// =============================================================================
// CANCEL / DELETE / CLEAR
// =============================================================================

// Cancel aborts the active turn. The cancel request is best-effort: local
// state is torn down immediately upon issuing it, whatever the server
// answers. A turn cancelled too late may still complete server-side with no
// client listening; that race is accepted in favor of UI responsiveness.
func (c *Controller) Cancel() {
	c.mu.Lock()
	active := c.state.Active()
	fw := c.forwarder
	c.mu.Unlock()
	if !active {
		return
	}

	go func() {
		if err := c.backend.Cancel(context.Background()); err != nil {
			log.Printf("session: cancel request failed: %v", err)
		}
	}()

	c.finishTurn(model.TurnCancelled, nil)
	if fw != nil {
		fw.NotifyCancel()
	}
}

// DeleteMessage asks the server to delete one message, removing it locally
// only on success. Failure is reported and leaves the message in place.
func (c *Controller) DeleteMessage(id string) {
	go func() {
		resp, err := c.backend.DeleteMessage(context.Background(), id)
		if err != nil {
			c.emit(NoticeEvent{Text: "Could not delete the message: " + err.Error()})
			return
		}
		if !resp.Success {
			reason := resp.Error
			if reason == "" {
				reason = "the server refused"
			}
			c.emit(NoticeEvent{Text: "Could not delete the message: " + reason})
			return
		}
		c.conv.Remove(id)
		c.emit(MessageRemovedEvent{ID: id})
	}()
}

// ClearConversation empties the local conversation list.
func (c *Controller) ClearConversation() {
	c.conv.Clear()
	c.emit(ConversationClearedEvent{})
}

// =============================================================================
// RELAY ENTRY POINTS
// =============================================================================

// InjectRemote handles a relay-originated user message as if it were typed
// locally: the workspace and attachments are populated first, then the
// message is sent with forwarding enabled so the reply is echoed back.
func (c *Controller) InjectRemote(text string, snap workspace.Snapshot, files []attachments.File) error {
	c.ws.Set(snap)
	c.attach.Clear()
	for _, f := range files {
		if err := c.attach.Add(f); err != nil {
			log.Printf("session: dropping remote attachment: %v", err)
		}
	}
	return c.SendMessage(text, SendOptions{ForwardToRelay: true})
}

// CancelActive aborts the active turn on behalf of the relay.
func (c *Controller) CancelActive() {
	c.Cancel()
}
