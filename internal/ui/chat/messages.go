// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines all Bubble Tea message types used by the chat interface.
// Messages are organized into the following categories:
//   - Session: events forwarded from the session controller
//   - Health: connection-lost and restored notifications
//   - Relay: bridge state changes and remote commands
//   - Workspace: external editor round-trips and watcher updates
//   - UI state: resize, loading animation ticks
//
// All message types follow Bubble Tea conventions and are immutable.
package chat

import (
	"time"

	"github.com/jeranaias/mentor-tui/internal/relay"
	"github.com/jeranaias/mentor-tui/internal/session"
	"github.com/jeranaias/mentor-tui/internal/workspace"
)

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// SessionEventMsg wraps one session controller event for the update loop.
// A goroutine in main drains the controller's event channel into these.
type SessionEventMsg struct {
	Event session.Event
}

// =============================================================================
// HEALTH MESSAGES
// =============================================================================

// HealthLostMsg reports that the health monitor declared the connection lost.
// Hard is true for an auth failure, where reconnecting cannot help.
type HealthLostMsg struct {
	Hard bool
}

// HealthRestoredMsg reports that a probe succeeded after a loss.
type HealthRestoredMsg struct{}

// =============================================================================
// RELAY MESSAGES
// =============================================================================

// RelayEventMsg wraps one relay bridge event for the update loop.
type RelayEventMsg struct {
	Event relay.Event
}

// =============================================================================
// WORKSPACE MESSAGES
// =============================================================================

// WorkspaceChangedMsg reports that the workspace buffer was replaced, by the
// server, the relay, or the scratch-file watcher.
type WorkspaceChangedMsg struct {
	Snapshot workspace.Snapshot
}

// EditorFinishedMsg reports that the external $EDITOR session ended.
type EditorFinishedMsg struct {
	Err error
}

// =============================================================================
// UI STATE MESSAGES
// =============================================================================

// LoadingTickMsg drives the loading indicator's dot animation.
type LoadingTickMsg struct {
	Time time.Time
}
