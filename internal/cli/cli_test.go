// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"testing"
)

func parseWithArgs(t *testing.T, argv ...string) (Command, Args) {
	t.Helper()
	old := os.Args
	os.Args = append([]string{"mentor"}, argv...)
	defer func() { os.Args = old }()
	return Parse()
}

func TestParseDefaultsToTUI(t *testing.T) {
	cmd, _ := parseWithArgs(t)
	if cmd != CmdTUI {
		t.Errorf("expected CmdTUI, got %v", cmd)
	}
}

func TestParseOneShotCommands(t *testing.T) {
	tests := []struct {
		argv []string
		want Command
	}{
		{[]string{"ask", "what", "is", "recursion"}, CmdAsk},
		{[]string{"chat", "hello"}, CmdChat},
		{[]string{"qa", "chapter", "question"}, CmdQA},
		{[]string{"practice", "quiz", "me"}, CmdPractice},
	}
	for _, tt := range tests {
		cmd, args := parseWithArgs(t, tt.argv...)
		if cmd != tt.want {
			t.Errorf("%v: expected %v, got %v", tt.argv, tt.want, cmd)
		}
		if args.Query == "" {
			t.Errorf("%v: query should carry the words after the command", tt.argv)
		}
	}
}

func TestParseGlobalFlags(t *testing.T) {
	cmd, args := parseWithArgs(t, "--config", "/tmp/alt.toml", "--server=http://x:1", "--json", "health")
	if cmd != CmdHealth {
		t.Errorf("expected CmdHealth, got %v", cmd)
	}
	if args.ConfigPath != "/tmp/alt.toml" {
		t.Errorf("config path not parsed: %q", args.ConfigPath)
	}
	if args.ServerURL != "http://x:1" {
		t.Errorf("server URL not parsed: %q", args.ServerURL)
	}
	if !args.JSON {
		t.Error("json flag not parsed")
	}
}

func TestParseConfigSubcommand(t *testing.T) {
	cmd, args := parseWithArgs(t, "config", "init")
	if cmd != CmdConfig {
		t.Errorf("expected CmdConfig, got %v", cmd)
	}
	if args.Subcommand != "init" {
		t.Errorf("subcommand not parsed: %q", args.Subcommand)
	}
}

func TestParseUnknownCommandFallsBackToHelp(t *testing.T) {
	cmd, _ := parseWithArgs(t, "frobnicate")
	if cmd != CmdHelp {
		t.Errorf("expected CmdHelp, got %v", cmd)
	}
}
