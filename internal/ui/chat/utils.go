// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/muesli/termenv"

	"github.com/jeranaias/mentor-tui/internal/util"
)

// htmlToMarkdown converts a server HTML fragment for the glamour renderer.
func htmlToMarkdown(fragment string) string {
	return util.HTMLToMarkdown(fragment)
}

// formatterForProfile maps the terminal's color capability to the matching
// chroma formatter. An empty name means the terminal cannot render color at
// all and highlighting should be skipped.
func formatterForProfile(p termenv.Profile) string {
	switch p {
	case termenv.TrueColor:
		return "terminal16m"
	case termenv.ANSI256:
		return "terminal256"
	case termenv.ANSI:
		return "terminal16"
	default:
		return ""
	}
}

// highlightCode renders workspace content with ANSI syntax highlighting at
// the terminal's color depth. Falls back to the plain text on a monochrome
// terminal or any highlighting error.
func highlightCode(content, language string, profile termenv.Profile, dark bool) string {
	formatter := formatterForProfile(profile)
	if formatter == "" {
		return content
	}
	style := "github"
	if dark {
		style = "monokai"
	}
	var b strings.Builder
	if err := quick.Highlight(&b, content, language, formatter, style); err != nil {
		return content
	}
	return strings.TrimRight(b.String(), "\n")
}
