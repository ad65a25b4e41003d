// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/parley/internal/util"
)

// DefaultTitle is the placeholder title of a conversation that has no
// user text yet.
const DefaultTitle = "New Conversation"

// MaxTitleRunes bounds a derived title.
const MaxTitleRunes = 30

// DeriveTitle builds a conversation title from the first user message.
//
// Punctuation and symbols are removed, the first line is kept and cut to
// MaxTitleRunes characters without an ellipsis. Content with nothing left
// after cleaning yields DefaultTitle.
func DeriveTitle(content string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, norm.NFKC.String(content))

	title := strings.TrimSpace(cleaned)
	title = util.FirstLine(title)
	title = util.TruncateRunesNoEllipsis(title, MaxTitleRunes)
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle
	}
	return title
}

// NormalizeTitle is applied to user-supplied renames. Empty input falls back
// to DefaultTitle.
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle
	}
	return title
}
