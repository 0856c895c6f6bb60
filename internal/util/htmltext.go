// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"html"
	"regexp"
	"strings"
)

// The server renders replies to HTML fragments; the terminal wants markdown.
// The common tags are mapped back and the rest are stripped.
var (
	reBreak     = regexp.MustCompile(`(?i)<br\s*/?>`)
	reParaClose = regexp.MustCompile(`(?i)</p>`)
	reListItem  = regexp.MustCompile(`(?i)<li[^>]*>`)
	reBold      = regexp.MustCompile(`(?i)</?(b|strong)>`)
	reItalic    = regexp.MustCompile(`(?i)</?(i|em)>`)
	reCode      = regexp.MustCompile(`(?i)</?code[^>]*>`)
	rePreOpen   = regexp.MustCompile(`(?i)<pre[^>]*>`)
	rePreClose  = regexp.MustCompile(`(?i)</pre>`)
	reAnyTag    = regexp.MustCompile(`<[^>]+>`)
)

// HTMLToMarkdown converts an HTML fragment into markdown suitable for a
// terminal renderer. The conversion is lossy but safe: unknown tags are
// dropped, entities are unescaped, and nothing panics on malformed input.
func HTMLToMarkdown(fragment string) string {
	s := fragment
	s = reBreak.ReplaceAllString(s, "\n")
	s = reParaClose.ReplaceAllString(s, "\n\n")
	s = reListItem.ReplaceAllString(s, "- ")
	s = reBold.ReplaceAllString(s, "**")
	s = reItalic.ReplaceAllString(s, "*")
	s = rePreOpen.ReplaceAllString(s, "\n```\n")
	s = rePreClose.ReplaceAllString(s, "\n```\n")
	s = reCode.ReplaceAllString(s, "`")
	s = reAnyTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	// Collapse runs of blank lines left behind by stripped tags.
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}
