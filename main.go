// mentor TUI - a terminal client for the mentor tutoring chat server.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/mentor-tui/internal/api"
	"github.com/jeranaias/mentor-tui/internal/attachments"
	"github.com/jeranaias/mentor-tui/internal/cli"
	"github.com/jeranaias/mentor-tui/internal/config"
	"github.com/jeranaias/mentor-tui/internal/health"
	"github.com/jeranaias/mentor-tui/internal/model"
	"github.com/jeranaias/mentor-tui/internal/relay"
	"github.com/jeranaias/mentor-tui/internal/session"
	"github.com/jeranaias/mentor-tui/internal/ui/chat"
	"github.com/jeranaias/mentor-tui/internal/workspace"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdAsk:
		exitOnError(cli.HandleAsk(args))
	case cli.CmdChat:
		exitOnError(cli.HandleChat(args))
	case cli.CmdQA:
		exitOnError(cli.HandleQA(args))
	case cli.CmdPractice:
		exitOnError(cli.HandlePractice(args))
	case cli.CmdHealth:
		exitOnError(cli.HandleHealth(args))
	case cli.CmdConfig:
		exitOnError(cli.HandleConfig(args))
	case cli.CmdVersion:
		cli.HandleVersion()
	case cli.CmdHelp:
		cli.HandleHelp()
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// TUI WIRING
// =============================================================================

func runTUI(args cli.Args) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "mentor needs an interactive terminal; try 'mentor ask \"question\"' instead")
		os.Exit(1)
	}

	// The whole app logs through the stdlib logger. Inside the TUI that
	// output would corrupt the screen, so it goes to a file in debug runs
	// and nowhere otherwise.
	if os.Getenv("MENTOR_DEBUG") != "" {
		f, err := tea.LogToFile("mentor-debug.log", "mentor")
		if err == nil {
			defer f.Close()
		}
	} else {
		log.SetOutput(io.Discard)
	}

	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if args.ServerURL != "" {
		cfg.Server.URL = args.ServerURL
	}

	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:    cfg.Server.URL,
		Timeout:    time.Duration(cfg.Server.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Server.MaxRetries,
		RetryDelay: time.Duration(cfg.Server.RetryDelaySecs) * time.Second,
	})

	conv := model.NewConversation()
	store := attachments.NewStore()
	buf := workspace.NewBuffer()
	buf.Set(workspace.Snapshot{Language: cfg.Workspace.Language})

	ctrl := session.NewController(session.NewBackend(client), conv, store, buf)

	watcher := setupWatcher(cfg, buf)

	view := chat.New(chat.Options{
		Config:     cfg,
		Controller: ctrl,
		Attach:     store,
		Workspace:  buf,
		Watcher:    watcher,
	})

	p := tea.NewProgram(view, tea.WithAltScreen(), tea.WithReportFocus())

	// Session events flow to the update loop from here.
	go func() {
		for ev := range ctrl.Events() {
			p.Send(chat.SessionEventMsg{Event: ev})
		}
	}()

	// Workspace changes from the server, the relay, or the scratch-file
	// watcher trigger a repaint.
	buf.OnChange(func(snap workspace.Snapshot) {
		p.Send(chat.WorkspaceChangedMsg{Snapshot: snap})
	})

	monitor := health.NewMonitor(client, programNotifier{p}, health.Options{
		Interval:  time.Duration(cfg.Health.IntervalSecs) * time.Second,
		WakeGrace: time.Duration(cfg.Health.WakeGraceSecs) * time.Second,
		Threshold: cfg.Health.FailureThreshold,
		Skip:      ctrl.Active,
	})
	view.SetMonitor(monitor)
	monitor.Start()
	defer monitor.Stop()

	var bridge *relay.Bridge
	if cfg.Relay.Enabled {
		bridge = relay.NewBridge(relay.Config{
			URL:         cfg.Relay.URL,
			RetryDelay:  time.Duration(cfg.Relay.RetryDelaySecs) * time.Second,
			ReplayLimit: cfg.Relay.ReplayLimit,
		}, conv, ctrl, func(ev relay.Event) {
			p.Send(chat.RelayEventMsg{Event: ev})
		})
		ctrl.SetForwarder(bridge)
		bridge.Start()
		defer bridge.Close()
	}

	if watcher != nil {
		watcher.Start()
		defer watcher.Stop()
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupWatcher prepares the workspace scratch file for $EDITOR round-trips.
// A failure only disables workspace editing, never the whole client.
func setupWatcher(cfg *config.Config, buf *workspace.Buffer) *workspace.Watcher {
	dir := cfg.Workspace.ScratchDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "mentor")
	}
	watcher, err := workspace.NewWatcher(filepath.Join(dir, "workspace.md"), buf)
	if err != nil {
		log.Printf("main: workspace editing disabled: %v", err)
		return nil
	}
	return watcher
}

// programNotifier adapts the health monitor's callbacks to program messages.
type programNotifier struct {
	p *tea.Program
}

func (n programNotifier) ConnectionLost(hard bool) {
	n.p.Send(chat.HealthLostMsg{Hard: hard})
}

func (n programNotifier) ConnectionRestored() {
	n.p.Send(chat.HealthRestoredMsg{})
}
