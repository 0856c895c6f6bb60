// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"mime"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/mentor-tui/internal/attachments"
	"github.com/jeranaias/mentor-tui/internal/model"
	"github.com/jeranaias/mentor-tui/internal/relay"
	"github.com/jeranaias/mentor-tui/internal/session"
	"github.com/jeranaias/mentor-tui/internal/workspace"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refreshViewport()

	case tea.FocusMsg:
		// Focus-regain is the closest thing to a wake signal the terminal
		// gives us; suppress health probes briefly.
		if m.monitor != nil {
			m.monitor.NoteWake()
		}

	case tea.KeyMsg:
		return m.handleKey(msg)

	case LoadingTickMsg:
		if m.turnActive {
			m.dotCount = (m.dotCount + 1) % 3
			cmds = append(cmds, loadingTick())
		}

	case SessionEventMsg:
		cmds = append(cmds, m.handleSessionEvent(msg.Event)...)

	case HealthLostMsg:
		m.healthLost = true
		m.healthHard = msg.Hard

	case HealthRestoredMsg:
		m.healthLost = false
		m.healthHard = false

	case RelayEventMsg:
		m.handleRelayEvent(msg.Event)

	case WorkspaceChangedMsg:
		// The pane reads the buffer at render time; receiving the message is
		// enough to trigger a repaint.

	case EditorFinishedMsg:
		if msg.Err != nil {
			m.notice = "Editor failed: " + msg.Err.Error()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.turnActive {
			m.ctrl.Cancel()
		}
		return m, nil

	case key.Matches(msg, m.keys.Send):
		return m, m.submit()

	case key.Matches(msg, m.keys.Editor):
		return m, m.openEditor()

	case key.Matches(msg, m.keys.ToggleWorkspace):
		m.showWorkspace = !m.showWorkspace
		m.resize(m.width, m.height)
		return m, nil

	case key.Matches(msg, m.keys.DeleteLast):
		if last := m.ctrl.Conversation().Last(); last != nil {
			m.ctrl.DeleteMessage(last.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.inputAccepting() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// inputAccepting reports whether typing should reach the input control.
// Input is disabled while a turn is active and locked for good after a
// terminal sentinel; that disabling is the double-submit guard.
func (m *Model) inputAccepting() bool {
	return !m.turnActive && !m.inputLocked
}

func (m *Model) submit() tea.Cmd {
	if !m.inputAccepting() {
		return nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "/") {
		m.input.SetValue("")
		return m.runCommand(text)
	}

	if err := m.ctrl.SendMessage(text, session.SendOptions{}); err != nil {
		m.notice = err.Error()
		return nil
	}
	m.input.SetValue("")
	m.notice = ""
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (m *Model) runCommand(text string) tea.Cmd {
	parts := strings.Fields(text)
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "/attach":
		if len(args) == 0 {
			m.notice = "Usage: /attach <path>"
			return nil
		}
		m.attachFile(strings.Join(args, " "))

	case "/detach":
		index := m.attach.Len() - 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				m.notice = "Usage: /detach [number]"
				return nil
			}
			index = n - 1
		}
		if !m.attach.Remove(index) {
			m.notice = "No such attachment"
		}

	case "/lang":
		if len(args) == 0 {
			m.notice = "Supported: " + strings.Join(workspace.KnownLanguages(), ", ")
			return nil
		}
		snap := m.ws.Get()
		snap.Language = args[0]
		m.ws.Set(snap)
		m.showWorkspace = true

	case "/clear":
		m.ctrl.ClearConversation()

	case "/delete":
		last := m.ctrl.Conversation().Last()
		if last == nil {
			m.notice = "Nothing to delete"
			return nil
		}
		m.ctrl.DeleteMessage(last.ID)

	case "/help":
		m.notice = "/attach <path>, /detach [n], /lang <mode>, /clear, /delete, /quit"

	case "/quit":
		return tea.Quit

	default:
		m.notice = "Unknown command: " + cmd
	}
	return nil
}

func (m *Model) attachFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		m.notice = "Could not read file: " + err.Error()
		return
	}
	f := attachments.File{
		Name: filepath.Base(path),
		MIME: mime.TypeByExtension(filepath.Ext(path)),
		Data: data,
	}
	if err := m.attach.Add(f); err != nil {
		m.notice = err.Error()
		return
	}
	m.notice = fmt.Sprintf("Attached %s (%d pending)", f.Name, m.attach.Len())
}

// =============================================================================
// EXTERNAL EDITOR
// =============================================================================

// openEditor suspends the TUI and opens the workspace scratch file in
// $EDITOR. The scratch-file watcher mirrors saves back into the buffer, so
// nothing needs to be read back here.
func (m *Model) openEditor() tea.Cmd {
	if m.watcher == nil {
		m.notice = "Workspace editing is unavailable"
		return nil
	}
	editor := os.Getenv("EDITOR")
	if editor == "" {
		m.notice = "Set $EDITOR to edit the workspace"
		return nil
	}
	if err := m.watcher.WriteOut(); err != nil {
		m.notice = "Could not write scratch file: " + err.Error()
		return nil
	}

	c := exec.Command(editor, m.watcher.Path())
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return EditorFinishedMsg{Err: err}
	})
}

// =============================================================================
// SESSION EVENTS
// =============================================================================

func (m *Model) handleSessionEvent(ev session.Event) []tea.Cmd {
	var cmds []tea.Cmd

	switch ev := ev.(type) {
	case session.UserMessageEvent:
		m.refreshViewport()
		m.viewport.GotoBottom()

	case session.AssistantMessageEvent:
		// A reply arrived, so the awaiting-response cue comes down even if
		// the turn keeps streaming further messages.
		if m.turnActive {
			cmds = append(cmds, tea.SetWindowTitle(windowTitle))
		}
		if s := model.DetectSentinel(ev.Msg.Body); s.Terminal() {
			m.inputLocked = true
			switch s {
			case model.SentinelFinished:
				m.lockReason = "This conversation has concluded."
			case model.SentinelReported:
				m.lockReason = "This conversation was flagged and closed."
			case model.SentinelTooLong:
				m.lockReason = "This conversation has reached its length limit."
			}
		}
		m.refreshViewport()
		m.viewport.GotoBottom()

	case session.LoadingLabelEvent:
		m.loadingLabel = ev.Label

	case session.TurnStateEvent:
		wasActive := m.turnActive
		m.turnActive = ev.State.Active()
		if m.turnActive && !wasActive {
			m.dotCount = 0
			m.loadingLabel = session.DefaultLoadingLabel
			cmds = append(cmds, loadingTick(), tea.SetWindowTitle(windowTitleBusy))
		}
		if !m.turnActive && wasActive {
			cmds = append(cmds, tea.SetWindowTitle(windowTitle))
			if m.inputAccepting() {
				m.input.Focus()
			}
		}

	case session.NoticeEvent:
		if ev.Persistent {
			m.persistentNotice = ev.Text
		} else {
			m.notice = ev.Text
		}

	case session.MessageRemovedEvent, session.ConversationClearedEvent:
		m.refreshViewport()
	}

	return cmds
}

// =============================================================================
// RELAY EVENTS
// =============================================================================

func (m *Model) handleRelayEvent(ev relay.Event) {
	switch ev := ev.(type) {
	case relay.StateEvent:
		m.relayState = ev.State
	case relay.RenameEvent:
		m.relayLabel = ev.Label
	case relay.ToolToggleEvent:
		state := "off"
		if ev.Enabled {
			state = "on"
		}
		m.notice = fmt.Sprintf("Remote toggled %s %s", ev.Tool, state)
	}
}
