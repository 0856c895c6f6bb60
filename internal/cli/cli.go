// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses the command line and runs the non-interactive
// subcommands: the legacy one-shot endpoints, the health probe, and config
// management. The interactive TUI itself lives in internal/ui.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk      // oldest single-page chat form endpoint
	CmdChat     // legacy one-shot chat endpoint
	CmdQA       // legacy course Q&A endpoint
	CmdPractice // legacy practice-tutor endpoint
	CmdHealth
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	ServerURL  string
	JSON       bool

	// Command-specific
	Query      string
	Subcommand string

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `mentor - terminal client for the mentor tutoring server

Usage:
  mentor                      Start the TUI (default)
  mentor ask "question"       One-shot question (oldest chat form)
  mentor chat "question"      One-shot question (legacy chat endpoint)
  mentor qa "question"        One-shot course Q&A
  mentor practice "question"  One-shot practice tutor
  mentor health               Probe the server's liveness endpoint
  mentor config [show|init|path]  Configuration management
  mentor version              Show version information
  mentor help                 Show this help

Global flags:
  --config <path>   Use an alternate config file
  --server <url>    Override the server URL
  --json            Machine-readable output where supported

Environment:
  MENTOR_SERVER_URL  Override the chat server URL
  MENTOR_RELAY_URL   Override the relay endpoint
  MENTOR_RELAY       Enable the relay bridge (1/true)
  MENTOR_DEBUG       Write debug logs to mentor-debug.log
  EDITOR             Editor for the workspace pane (ctrl+e)
`

// Parse parses os.Args into a command and its arguments.
func Parse() (Command, Args) {
	raw := os.Args[1:]
	remaining, parsed := parseGlobalFlags(raw)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining
	parsed.Query = strings.Join(remaining, " ")
	if len(remaining) > 0 {
		parsed.Subcommand = remaining[0]
	}

	switch cmd {
	case "tui":
		return CmdTUI, parsed
	case "ask":
		return CmdAsk, parsed
	case "chat":
		return CmdChat, parsed
	case "qa":
		return CmdQA, parsed
	case "practice":
		return CmdPractice, parsed
	case "health", "status":
		return CmdHealth, parsed
	case "config":
		return CmdConfig, parsed
	case "version", "-v", "--version":
		return CmdVersion, parsed
	case "help", "-h", "--help":
		return CmdHelp, parsed
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, parsed
	}
}

func parseGlobalFlags(raw []string) ([]string, Args) {
	var args Args
	var remaining []string

	for i := 0; i < len(raw); i++ {
		switch arg := raw[i]; {
		case arg == "--config" && i+1 < len(raw):
			i++
			args.ConfigPath = raw[i]
		case strings.HasPrefix(arg, "--config="):
			args.ConfigPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--server" && i+1 < len(raw):
			i++
			args.ServerURL = raw[i]
		case strings.HasPrefix(arg, "--server="):
			args.ServerURL = strings.TrimPrefix(arg, "--server=")
		case arg == "--json":
			args.JSON = true
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, args
}

// HandleVersion prints version information.
func HandleVersion() {
	fmt.Printf("mentor %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}

// HandleHelp prints the usage text.
func HandleHelp() {
	fmt.Print(usageText)
}
