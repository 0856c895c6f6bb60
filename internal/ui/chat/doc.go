// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the main chat view component for the mentor TUI.

The chat package implements a terminal-based chat interface on the Bubble Tea
framework, projecting the session controller's events into a rendered
conversation.

# Key Components

## Model (model.go)

The Model struct is the central Bubble Tea model that maintains all chat
state:
  - Conversation rendering through a scrollable viewport
  - Input handling with the turn-active and sentinel locks
  - Loading indicator label and dot animation
  - Relay and health status for the status bar

## View Rendering (view.go)

Rendering logic for the complete interface:
  - Role-labelled messages with timestamps, sources, and model badges
  - Assistant replies converted from HTML and rendered through glamour
  - The workspace pane with chroma syntax highlighting
  - Notices, attachment chips, input box, and status bar

## Update Loop (update.go)

Handles all Bubble Tea messages and user interactions:
  - Keyboard input and slash commands
  - Session, relay, and health events delivered from the background
  - External $EDITOR round-trips for the workspace pane
  - Window resize handling

# Usage

Create a chat model and run it as a Bubble Tea program:

	view := chat.New(chat.Options{
		Config:     cfg,
		Controller: ctrl,
		Attach:     store,
		Workspace:  buf,
	})
	p := tea.NewProgram(view, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
*/
package chat
