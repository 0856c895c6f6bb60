// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/mentor-tui/internal/model"
	"github.com/jeranaias/mentor-tui/internal/relay"
	"github.com/jeranaias/mentor-tui/internal/util"
)

// Display-width caps for status-bar and chip text, so long remote labels and
// file names cannot push the chrome off screen.
const (
	maxRelayLabelWidth     = 24
	maxAttachmentChipWidth = 20
)

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "Starting mentor..."
	}

	var sections []string
	sections = append(sections, m.viewport.View())

	if m.turnActive {
		sections = append(sections, m.loadingView())
	}
	if notice := m.noticeView(); notice != "" {
		sections = append(sections, notice)
	}
	if m.showWorkspace {
		sections = append(sections, m.workspaceView())
	}
	if chips := m.attachmentView(); chips != "" {
		sections = append(sections, chips)
	}
	sections = append(sections, m.inputView(), m.statusView())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	chrome := 4 // input box + status bar
	if m.showWorkspace {
		chrome += m.workspaceHeight() + 2
	}
	vpHeight := height - chrome
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.Width = width - 6

	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		m.renderer = renderer
	}
}

func (m *Model) workspaceHeight() int {
	h := m.height / 3
	if h < 5 {
		h = 5
	}
	return h
}

// =============================================================================
// CONVERSATION
// =============================================================================

// refreshViewport re-renders the whole conversation into the viewport.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderConversation())
}

func (m *Model) renderConversation() string {
	msgs := m.ctrl.Conversation().Messages()
	if len(msgs) == 0 {
		return m.theme.Timestamp.Render("No messages yet. Ask your first question below.")
	}

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
	}
	return b.String()
}

func (m *Model) renderMessage(msg *model.Message) string {
	var b strings.Builder

	label := msg.Role.DisplayName()
	style := m.theme.UserLabel
	switch msg.Role {
	case model.RoleAssistant:
		label = m.aiName()
		style = m.theme.AssistantLabel
	case model.RoleError:
		style = m.theme.ErrorLabel
	}

	header := style.Render(label)
	if msg.Timestamp != "" {
		header += "  " + m.theme.Timestamp.Render(msg.Timestamp)
	}
	if msg.AnswerModel != "" {
		header += "  " + m.theme.ModelBadge.Render("["+msg.AnswerModel+"]")
	}
	b.WriteString(header)
	b.WriteString("\n")

	body := msg.Body
	if msg.Role == model.RoleAssistant {
		body = m.renderAssistantBody(body)
	}
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}

	for _, src := range msg.Sources {
		line := "  • " + src.URL
		if src.Title != "" {
			line = "  • " + src.Title + " (" + src.URL + ")"
		}
		b.WriteString(m.theme.SourceItem.Render(line))
		b.WriteString("\n")
	}

	if msg.HasWorkspace() {
		b.WriteString(m.theme.Timestamp.Render(
			fmt.Sprintf("  [workspace: %s, %d chars]",
				msg.Workspace.Language, len(msg.Workspace.Content))))
		b.WriteString("\n")
	}
	for _, f := range msg.Attachments {
		b.WriteString(m.theme.Timestamp.Render("  [attachment: " + f.Name + "]"))
		b.WriteString("\n")
	}

	return b.String()
}

// renderAssistantBody converts the server's HTML fragment to terminal text.
func (m *Model) renderAssistantBody(body string) string {
	md := htmlToMarkdown(body)
	if m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n") + "\n"
}

// =============================================================================
// CHROME
// =============================================================================

func (m *Model) loadingView() string {
	dots := strings.Repeat(".", m.dotCount+1)
	return m.theme.LoadingText.Render(m.loadingLabel) + m.theme.LoadingDots.Render(dots)
}

func (m *Model) noticeView() string {
	var parts []string
	if m.persistentNotice != "" {
		parts = append(parts, m.theme.PersistentNotice.Render(m.persistentNotice))
	}
	if m.healthLost {
		text := "Connection to the server lost. Waiting for it to come back..."
		if m.healthHard {
			text = "Your login session has expired. Restart mentor to sign in again."
		}
		parts = append(parts, m.theme.PersistentNotice.Render(text))
	}
	if m.inputLocked && m.lockReason != "" {
		parts = append(parts, m.theme.Notice.Render(m.lockReason))
	}
	if m.notice != "" {
		parts = append(parts, m.theme.Notice.Render(m.notice))
	}
	if len(parts) == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) workspaceView() string {
	snap := m.ws.Get()
	title := m.theme.WorkspaceTitle.Render("Workspace (" + snap.Language + ")")

	content := snap.Content
	if content == "" {
		content = m.theme.Timestamp.Render("(empty - press ctrl+e to edit)")
	} else {
		content = highlightCode(content, snap.Language, m.theme.ColorProfile, m.theme.IsDark)
	}

	lines := strings.Split(content, "\n")
	max := m.workspaceHeight() - 1
	if len(lines) > max {
		lines = lines[:max]
	}

	pane := m.theme.WorkspaceBorder.Width(m.width - 2).
		Render(title + "\n" + strings.Join(lines, "\n"))
	return pane
}

func (m *Model) attachmentView() string {
	files := m.attach.Files()
	if len(files) == 0 {
		return ""
	}
	chips := make([]string, len(files))
	for i, f := range files {
		name := util.TruncateWidth(f.Name, maxAttachmentChipWidth)
		chips[i] = m.theme.AttachmentChip.Render(fmt.Sprintf("%d:%s", i+1, name))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, chips...)
}

func (m *Model) inputView() string {
	if m.inputLocked {
		return m.theme.InputContainer.Width(m.width - 2).
			Render(m.theme.InputDisabled.Render("Input disabled."))
	}
	if m.turnActive {
		return m.theme.InputContainer.Width(m.width - 2).
			Render(m.theme.InputDisabled.Render(m.aiName() + " is replying... (esc to cancel)"))
	}
	return m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())
}

func (m *Model) statusView() string {
	var left string
	if m.relayEnabled {
		switch m.relayState {
		case relay.Connected:
			left = m.theme.RelayConnected.Render("● relay")
		case relay.Connecting:
			left = m.theme.RelayConnecting.Render("◐ relay")
		default:
			left = m.theme.RelayDisconnected.Render("○ relay")
		}
		if m.relayLabel != "" {
			label := util.TruncateWidth(m.relayLabel, maxRelayLabelWidth)
			left += " " + m.theme.Timestamp.Render("("+label+")")
		}
	}

	hints := []string{
		m.theme.ShortcutKey.Render("enter") + m.theme.ShortcutDesc.Render(" send"),
		m.theme.ShortcutKey.Render("esc") + m.theme.ShortcutDesc.Render(" cancel"),
		m.theme.ShortcutKey.Render("ctrl+w") + m.theme.ShortcutDesc.Render(" workspace"),
		m.theme.ShortcutKey.Render("ctrl+e") + m.theme.ShortcutDesc.Render(" edit"),
		m.theme.ShortcutKey.Render("/help") + m.theme.ShortcutDesc.Render(" commands"),
	}
	right := strings.Join(hints, "  ")

	bar := left
	if bar != "" {
		bar += "  "
	}
	bar += right
	return m.theme.StatusBar.Width(m.width).Render(bar)
}
