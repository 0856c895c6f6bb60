// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/mentor-tui/internal/attachments"
	"github.com/jeranaias/mentor-tui/internal/config"
	"github.com/jeranaias/mentor-tui/internal/health"
	"github.com/jeranaias/mentor-tui/internal/model"
	"github.com/jeranaias/mentor-tui/internal/relay"
	"github.com/jeranaias/mentor-tui/internal/session"
	"github.com/jeranaias/mentor-tui/internal/ui/styles"
	"github.com/jeranaias/mentor-tui/internal/workspace"
)

// loadingTickInterval drives the dot animation on the loading indicator.
const loadingTickInterval = time.Second

// maxInputChars caps the composed message length.
const maxInputChars = 5000

// windowTitle and windowTitleBusy are the terminal titles for the idle and
// in-turn states; the busy marker is the TUI's stand-in for a tab activity
// cue.
const (
	windowTitle     = "mentor"
	windowTitleBusy = "● mentor"
)

// Model is the Bubble Tea model for the chat view.
type Model struct {
	theme *styles.Theme
	keys  KeyMap
	cfg   *config.Config

	// Collaborators
	ctrl    *session.Controller
	attach  *attachments.Store
	ws      *workspace.Buffer
	watcher *workspace.Watcher // nil when the scratch file could not be set up
	monitor *health.Monitor    // nil in tests

	// Components
	viewport viewport.Model
	input    textinput.Model
	renderer *glamour.TermRenderer

	// Dimensions
	width  int
	height int
	ready  bool

	// Turn state, projected from session events
	turnActive   bool
	loadingLabel string
	dotCount     int

	// A terminal sentinel locks the input for good.
	inputLocked bool
	lockReason  string

	// Notices
	notice           string
	persistentNotice string
	healthLost       bool
	healthHard       bool

	// Relay
	relayEnabled bool
	relayState   relay.State
	relayLabel   string

	showWorkspace bool
}

// Options bundles the collaborators for New.
type Options struct {
	Config     *config.Config
	Controller *session.Controller
	Attach     *attachments.Store
	Workspace  *workspace.Buffer
	Watcher    *workspace.Watcher
	Monitor    *health.Monitor
	Theme      *styles.Theme
}

// New creates the chat view model.
func New(opts Options) *Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme()
	}

	input := textinput.New()
	input.Placeholder = "Ask your question..."
	input.Prompt = "> "
	input.CharLimit = maxInputChars
	input.Focus()

	return &Model{
		theme:        opts.Theme,
		keys:         DefaultKeyMap(),
		cfg:          opts.Config,
		ctrl:         opts.Controller,
		attach:       opts.Attach,
		ws:           opts.Workspace,
		watcher:      opts.Watcher,
		monitor:      opts.Monitor,
		input:        input,
		loadingLabel: session.DefaultLoadingLabel,
		relayEnabled: opts.Config != nil && opts.Config.Relay.Enabled,
	}
}

// SetMonitor wires the health monitor in after construction; the monitor's
// notifier needs the program, which needs this model first.
func (m *Model) SetMonitor(monitor *health.Monitor) {
	m.monitor = monitor
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tea.SetWindowTitle(windowTitle))
}

// loadingTick schedules the next dot-animation frame.
func loadingTick() tea.Cmd {
	return tea.Tick(loadingTickInterval, func(t time.Time) tea.Msg {
		return LoadingTickMsg{Time: t}
	})
}

// aiName returns the assistant display name.
func (m *Model) aiName() string {
	if m.cfg != nil && m.cfg.UI.AIName != "" {
		return m.cfg.UI.AIName
	}
	return model.RoleAssistant.DisplayName()
}
