// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application. It detects the
// terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	ErrorLabel     lipgloss.Style
	Timestamp      lipgloss.Style
	MessageBody    lipgloss.Style
	SourceItem     lipgloss.Style
	ModelBadge     lipgloss.Style

	// ==========================================================================
	// LOADING INDICATOR
	// ==========================================================================

	LoadingText lipgloss.Style
	LoadingDots lipgloss.Style

	// ==========================================================================
	// NOTICES
	// ==========================================================================

	Notice           lipgloss.Style
	PersistentNotice lipgloss.Style

	// ==========================================================================
	// INPUT AREA
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	InputDisabled  lipgloss.Style
	AttachmentChip lipgloss.Style

	// ==========================================================================
	// WORKSPACE PANE
	// ==========================================================================

	WorkspaceBorder lipgloss.Style
	WorkspaceTitle  lipgloss.Style

	// ==========================================================================
	// STATUS BAR
	// ==========================================================================

	StatusBar         lipgloss.Style
	RelayConnected    lipgloss.Style
	RelayConnecting   lipgloss.Style
	RelayDisconnected lipgloss.Style
	ShortcutKey       lipgloss.Style
	ShortcutDesc      lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	t := &Theme{
		IsDark:       lipgloss.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}

	t.UserLabel = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	t.ErrorLabel = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.MessageBody = lipgloss.NewStyle().Foreground(Text)
	t.SourceItem = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.ModelBadge = lipgloss.NewStyle().Foreground(TextMuted)

	t.LoadingText = lipgloss.NewStyle().Foreground(Purple)
	t.LoadingDots = lipgloss.NewStyle().Foreground(Purple).Bold(true)

	t.Notice = lipgloss.NewStyle().
		Foreground(Amber).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Amber).
		Padding(0, 1)
	t.PersistentNotice = lipgloss.NewStyle().
		Foreground(Rose).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 1)

	t.InputContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.InputDisabled = lipgloss.NewStyle().Foreground(TextMuted)
	t.AttachmentChip = lipgloss.NewStyle().
		Foreground(Emerald).
		Border(lipgloss.NormalBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	t.WorkspaceBorder = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
	t.WorkspaceTitle = lipgloss.NewStyle().Foreground(Purple).Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextMuted).
		Padding(0, 1)
	t.RelayConnected = lipgloss.NewStyle().Foreground(Emerald)
	t.RelayConnecting = lipgloss.NewStyle().Foreground(Amber)
	t.RelayDisconnected = lipgloss.NewStyle().Foreground(TextMuted)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)

	return t
}
