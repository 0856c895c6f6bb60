// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// TURN STATE MACHINE
// =============================================================================

// TurnState is the lifecycle state of one chat turn. A turn moves
// Idle -> Started -> Streaming and ends in exactly one of Completed,
// Cancelled, or Failed. At most one turn is active at a time.
type TurnState int

const (
	TurnIdle TurnState = iota
	TurnStarted
	TurnStreaming
	TurnCompleted
	TurnCancelled
	TurnFailed
)

// String returns the state name.
func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnStarted:
		return "started"
	case TurnStreaming:
		return "streaming"
	case TurnCompleted:
		return "completed"
	case TurnCancelled:
		return "cancelled"
	case TurnFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Active reports whether a turn in this state is in flight. While a turn is
// active new sends are rejected; the UI enforces this by disabling input.
func (s TurnState) Active() bool {
	return s == TurnStarted || s == TurnStreaming
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// step. State mutation happens only in the session controller; this is the
// single source of truth it consults.
func (s TurnState) CanTransition(next TurnState) bool {
	switch s {
	case TurnIdle, TurnCompleted, TurnCancelled, TurnFailed:
		return next == TurnStarted
	case TurnStarted:
		// Completed is reachable directly: a fast server can deliver the
		// whole stream before the streaming bookkeeping catches up.
		return next == TurnStreaming || next == TurnCompleted ||
			next == TurnCancelled || next == TurnFailed
	case TurnStreaming:
		return next == TurnCompleted || next == TurnCancelled || next == TurnFailed
	default:
		return false
	}
}
