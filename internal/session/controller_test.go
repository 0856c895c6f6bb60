// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mentor-tui/internal/api"
	"github.com/jeranaias/mentor-tui/internal/attachments"
	"github.com/jeranaias/mentor-tui/internal/model"
	"github.com/jeranaias/mentor-tui/internal/workspace"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeStream struct {
	once   sync.Once
	closed chan struct{}
}

func newFakeStream() *fakeStream {
	return &fakeStream{closed: make(chan struct{})}
}

func (s *fakeStream) Close() {
	s.once.Do(func() { close(s.closed) })
}

type fakeBackend struct {
	mu       sync.Mutex
	startErr error
	openErr  error
	started  []api.TurnRequest

	stream  *fakeStream
	onEvent func(api.StreamEvent)
	onErr   func(error)
	opened  chan struct{}

	cancels chan struct{}

	deleteResp api.DeleteResponse
	deleteErr  error
	deleted    []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		opened:     make(chan struct{}, 1),
		cancels:    make(chan struct{}, 1),
		deleteResp: api.DeleteResponse{Success: true},
	}
}

func (b *fakeBackend) StartTurn(_ context.Context, req api.TurnRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = append(b.started, req)
	return b.startErr
}

func (b *fakeBackend) OpenStream(_ context.Context, onEvent func(api.StreamEvent), onErr func(error)) (Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.stream = newFakeStream()
	b.onEvent = onEvent
	b.onErr = onErr
	b.opened <- struct{}{}
	return b.stream, nil
}

func (b *fakeBackend) Cancel(context.Context) error {
	b.cancels <- struct{}{}
	return nil
}

func (b *fakeBackend) DeleteMessage(_ context.Context, id string) (api.DeleteResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, id)
	return b.deleteResp, b.deleteErr
}

func (b *fakeBackend) lastStarted() api.TurnRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started[len(b.started)-1]
}

type fakeForwarder struct {
	mu       sync.Mutex
	replies  []string
	cancels  int
	snapshot *workspace.Snapshot
}

func (f *fakeForwarder) ForwardReply(body string, snap *workspace.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, body)
	f.snapshot = snap
}

func (f *fakeForwarder) NotifyCancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

// =============================================================================
// HELPERS
// =============================================================================

func newTestController(backend Backend) (*Controller, *model.Conversation, *attachments.Store, *workspace.Buffer) {
	conv := model.NewConversation()
	store := attachments.NewStore()
	ws := workspace.NewBuffer()
	return NewController(backend, conv, store, ws), conv, store, ws
}

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

// waitForEvent drains the channel until an event of type T arrives.
func waitForEvent[T Event](t *testing.T, ch <-chan Event) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if want, ok := ev.(T); ok {
				return want
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func waitForState(t *testing.T, ch <-chan Event, want model.TurnState) TurnStateEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if st, ok := ev.(TurnStateEvent); ok && st.State == want {
				return st
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %v", want)
			return TurnStateEvent{}
		}
	}
}

func waitOpened(t *testing.T, b *fakeBackend) {
	t.Helper()
	select {
	case <-b.opened:
	case <-time.After(2 * time.Second):
		t.Fatal("stream was never opened")
	}
}

func messageEvent(id, body string) api.StreamEvent {
	return api.StreamEvent{
		Kind: api.EventMessage,
		Message: &api.MessageEvent{
			Response: body,
			Metadata: api.Metadata{MessageID: id, Timestamp: "Jan 2 2026 15:04"},
		},
	}
}

func closeEvent() api.StreamEvent {
	return api.StreamEvent{Kind: api.EventAction, Action: api.ActionClose}
}

// =============================================================================
// SEND
// =============================================================================

func TestSendMessageRendersUserMessageBeforeNetwork(t *testing.T) {
	backend := newFakeBackend()
	ctrl, conv, store, ws := newTestController(backend)

	ws.Set(workspace.Snapshot{Content: "print(1)", Language: "python"})
	require.NoError(t, store.Add(attachments.File{Name: "notes.pdf", Data: []byte("x")}))

	require.NoError(t, ctrl.SendMessage("hello", SendOptions{}))

	// The user message is in the conversation synchronously, before any
	// network work happens.
	require.Equal(t, 1, conv.Len())
	msg := conv.Last()
	assert.Equal(t, model.RoleUser, msg.Role)
	assert.Equal(t, "hello", msg.Body)
	assert.NotEmpty(t, msg.ID)
	require.NotNil(t, msg.Workspace)
	assert.Equal(t, "print(1)", msg.Workspace.Content)
	require.Len(t, msg.Attachments, 1)

	ev := nextEvent(t, ctrl.Events())
	user, ok := ev.(UserMessageEvent)
	require.True(t, ok, "first event should announce the user message, got %T", ev)
	assert.Equal(t, msg.ID, user.Msg.ID)

	waitForState(t, ctrl.Events(), model.TurnStarted)
	label := waitForEvent[LoadingLabelEvent](t, ctrl.Events())
	assert.Equal(t, DefaultLoadingLabel, label.Label)

	waitOpened(t, backend)
	req := backend.lastStarted()
	assert.Equal(t, "hello", req.Message)
	assert.Equal(t, msg.ID, req.MessageID)
	assert.Equal(t, "print(1)", req.WorkspaceContent)
	assert.Equal(t, "python", req.WorkspaceLanguage)
	require.Len(t, req.Attachments, 1)
}

func TestSendMessageRejectsConcurrentTurn(t *testing.T) {
	backend := newFakeBackend()
	ctrl, _, _, _ := newTestController(backend)

	require.NoError(t, ctrl.SendMessage("first", SendOptions{}))
	err := ctrl.SendMessage("second", SendOptions{})
	assert.ErrorIs(t, err, ErrTurnActive)
}

// =============================================================================
// STREAM LIFECYCLE
// =============================================================================

func TestTurnCompletesOnCloseAction(t *testing.T) {
	backend := newFakeBackend()
	ctrl, conv, store, ws := newTestController(backend)
	require.NoError(t, store.Add(attachments.File{Name: "a.png", Data: []byte("img")}))

	require.NoError(t, ctrl.SendMessage("question", SendOptions{}))
	waitOpened(t, backend)
	waitForState(t, ctrl.Events(), model.TurnStreaming)

	content := "print('hi')"
	backend.onEvent(api.StreamEvent{
		Kind: api.EventMessage,
		Message: &api.MessageEvent{
			Response:          "<p>answer</p>",
			WorkspaceContent:  &content,
			WorkspaceLanguage: "opensesame",
			Metadata: api.Metadata{
				MessageID:   "srv-1",
				Timestamp:   "Jan 2 2026 15:04",
				AnswerModel: "mentor-large",
				Sources:     `[{"url":"https://a"},{"url":"https://a"},{"url":""}]`,
			},
		},
	})

	reply := waitForEvent[AssistantMessageEvent](t, ctrl.Events())
	assert.Equal(t, "srv-1", reply.Msg.ID)
	assert.Equal(t, model.RoleAssistant, reply.Msg.Role)
	assert.Equal(t, "<p>answer</p>", reply.Msg.Body)
	assert.Equal(t, "mentor-large", reply.Msg.AnswerModel)
	require.Len(t, reply.Msg.Sources, 1, "sources should be deduped")

	// The workspace follows the server's update, with the language
	// normalized onto a supported mode.
	snap := ws.Get()
	assert.Equal(t, "print('hi')", snap.Content)
	assert.Equal(t, "python", snap.Language)

	backend.onEvent(closeEvent())
	waitForState(t, ctrl.Events(), model.TurnCompleted)

	assert.Equal(t, 2, conv.Len())
	assert.Equal(t, 0, store.Len(), "attachments are flushed when the turn completes")
	select {
	case <-backend.stream.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("stream handle was not closed")
	}
	assert.False(t, ctrl.Active())
}

func TestTurnHandlesMultiplexedMessages(t *testing.T) {
	backend := newFakeBackend()
	ctrl, conv, _, _ := newTestController(backend)

	require.NoError(t, ctrl.SendMessage("question", SendOptions{}))
	waitOpened(t, backend)
	waitForState(t, ctrl.Events(), model.TurnStreaming)

	// Several messages before close; the turn ends only on the close action.
	backend.onEvent(messageEvent("srv-1", "part one"))
	waitForEvent[AssistantMessageEvent](t, ctrl.Events())
	assert.True(t, ctrl.Active())

	backend.onEvent(messageEvent("srv-2", "part two"))
	waitForEvent[AssistantMessageEvent](t, ctrl.Events())
	assert.True(t, ctrl.Active())

	backend.onEvent(closeEvent())
	waitForState(t, ctrl.Events(), model.TurnCompleted)
	assert.Equal(t, 3, conv.Len())
}

func TestLoadingIndicatorUpdate(t *testing.T) {
	backend := newFakeBackend()
	ctrl, _, _, _ := newTestController(backend)

	require.NoError(t, ctrl.SendMessage("question", SendOptions{}))
	waitOpened(t, backend)
	waitForState(t, ctrl.Events(), model.TurnStreaming)

	backend.onEvent(api.StreamEvent{
		Kind:   api.EventAction,
		Action: api.ActionSetLoadingIndicator,
		Label:  "Mentor is searching the course material",
	})

	label := waitForEvent[LoadingLabelEvent](t, ctrl.Events())
	assert.Equal(t, "Mentor is searching the course material", label.Label)
	assert.True(t, ctrl.Active(), "loading label changes must not touch turn state")
}

// =============================================================================
// FAILURES
// =============================================================================

func TestStartFailureEndsTurn(t *testing.T) {
	backend := newFakeBackend()
	backend.startErr = errors.New("connection refused")
	ctrl, conv, _, _ := newTestController(backend)

	require.NoError(t, ctrl.SendMessage("hello", SendOptions{}))

	st := waitForState(t, ctrl.Events(), model.TurnFailed)
	assert.Error(t, st.Err)
	notice := waitForEvent[NoticeEvent](t, ctrl.Events())
	assert.False(t, notice.Persistent)

	// The user message stays rendered and the session is reusable.
	assert.Equal(t, 1, conv.Len())
	require.NoError(t, ctrl.SendMessage("again", SendOptions{}))
}

func TestStreamErrorFailsTurnWithPersistentNotice(t *testing.T) {
	backend := newFakeBackend()
	ctrl, _, store, _ := newTestController(backend)
	require.NoError(t, store.Add(attachments.File{Name: "a.png", Data: []byte("img")}))

	require.NoError(t, ctrl.SendMessage("hello", SendOptions{}))
	waitOpened(t, backend)
	waitForState(t, ctrl.Events(), model.TurnStreaming)

	backend.onErr(errors.New("stream reset"))

	st := waitForState(t, ctrl.Events(), model.TurnFailed)
	assert.Error(t, st.Err)
	notice := waitForEvent[NoticeEvent](t, ctrl.Events())
	assert.True(t, notice.Persistent)

	// A failed turn keeps pending attachments so a resend carries them.
	assert.Equal(t, 1, store.Len())
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestCancelTearsDownImmediately(t *testing.T) {
	backend := newFakeBackend()
	ctrl, _, store, _ := newTestController(backend)
	fw := &fakeForwarder{}
	ctrl.SetForwarder(fw)
	require.NoError(t, store.Add(attachments.File{Name: "a.png", Data: []byte("img")}))

	require.NoError(t, ctrl.SendMessage("hello", SendOptions{}))
	waitOpened(t, backend)
	waitForState(t, ctrl.Events(), model.TurnStreaming)

	ctrl.Cancel()

	// Local teardown does not wait for the server's answer.
	waitForState(t, ctrl.Events(), model.TurnCancelled)
	assert.False(t, ctrl.Active())
	assert.Equal(t, 0, store.Len())

	select {
	case <-backend.cancels:
	case <-time.After(2 * time.Second):
		t.Fatal("cancel request was never issued")
	}
	select {
	case <-backend.stream.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("stream handle was not closed")
	}

	fw.mu.Lock()
	assert.Equal(t, 1, fw.cancels)
	fw.mu.Unlock()

	// A late stream error after cancellation is a no-op.
	backend.onErr(errors.New("reset after close"))
	assert.Equal(t, model.TurnCancelled, ctrl.State())
}

func TestCancelWhenIdleIsNoOp(t *testing.T) {
	backend := newFakeBackend()
	ctrl, _, _, _ := newTestController(backend)
	ctrl.Cancel()
	assert.Equal(t, model.TurnIdle, ctrl.State())
}

// =============================================================================
// DELETE / CLEAR
// =============================================================================

func TestDeleteMessageRemovesOnSuccess(t *testing.T) {
	backend := newFakeBackend()
	ctrl, conv, _, _ := newTestController(backend)

	msg := model.NewUserMessage("to remove")
	conv.Add(msg)

	ctrl.DeleteMessage(msg.ID)
	removed := waitForEvent[MessageRemovedEvent](t, ctrl.Events())
	assert.Equal(t, msg.ID, removed.ID)
	assert.Equal(t, 0, conv.Len())
}

func TestDeleteMessageKeepsMessageOnFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.deleteResp = api.DeleteResponse{Success: false, Error: "not yours"}
	ctrl, conv, _, _ := newTestController(backend)

	msg := model.NewUserMessage("survives")
	conv.Add(msg)

	ctrl.DeleteMessage(msg.ID)
	notice := waitForEvent[NoticeEvent](t, ctrl.Events())
	assert.Contains(t, notice.Text, "not yours")
	assert.Equal(t, 1, conv.Len())
}

func TestClearConversation(t *testing.T) {
	backend := newFakeBackend()
	ctrl, conv, _, _ := newTestController(backend)
	conv.Add(model.NewUserMessage("one"))
	conv.Add(model.NewUserMessage("two"))

	ctrl.ClearConversation()
	waitForEvent[ConversationClearedEvent](t, ctrl.Events())
	assert.Equal(t, 0, conv.Len())
}

// =============================================================================
// RELAY INJECTION AND FORWARDING
// =============================================================================

func TestInjectRemoteForwardsReply(t *testing.T) {
	backend := newFakeBackend()
	ctrl, conv, _, ws := newTestController(backend)
	fw := &fakeForwarder{}
	ctrl.SetForwarder(fw)

	snap := workspace.Snapshot{Content: "x <- 1", Language: "r"}
	files := []attachments.File{{Name: "graph.png", Data: []byte("img")}}
	require.NoError(t, ctrl.InjectRemote("remote question", snap, files))

	assert.Equal(t, 1, conv.Len())
	assert.Equal(t, "x <- 1", ws.Get().Content)

	waitOpened(t, backend)
	waitForState(t, ctrl.Events(), model.TurnStreaming)
	backend.onEvent(messageEvent("srv-1", "remote answer"))
	waitForEvent[AssistantMessageEvent](t, ctrl.Events())
	backend.onEvent(closeEvent())
	waitForState(t, ctrl.Events(), model.TurnCompleted)

	fw.mu.Lock()
	defer fw.mu.Unlock()
	require.Len(t, fw.replies, 1)
	assert.Equal(t, "remote answer", fw.replies[0])
}

func TestLocalSendDoesNotForward(t *testing.T) {
	backend := newFakeBackend()
	ctrl, _, _, _ := newTestController(backend)
	fw := &fakeForwarder{}
	ctrl.SetForwarder(fw)

	require.NoError(t, ctrl.SendMessage("local", SendOptions{}))
	waitOpened(t, backend)
	waitForState(t, ctrl.Events(), model.TurnStreaming)
	backend.onEvent(messageEvent("srv-1", "answer"))
	waitForEvent[AssistantMessageEvent](t, ctrl.Events())
	backend.onEvent(closeEvent())
	waitForState(t, ctrl.Events(), model.TurnCompleted)

	fw.mu.Lock()
	defer fw.mu.Unlock()
	assert.Empty(t, fw.replies)
}
