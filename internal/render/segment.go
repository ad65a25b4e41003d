// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"regexp"
	"strings"
)

// Fence delimits a code segment.
const Fence = "```"

// DefaultLanguage labels code blocks without a usable language tag.
const DefaultLanguage = "text"

// SegmentKind distinguishes prose from fenced code.
type SegmentKind int

const (
	SegmentProse SegmentKind = iota
	SegmentCode
)

// Segment is a contiguous run of either prose or fenced code.
type Segment struct {
	Kind SegmentKind
	Text string

	// Language is set for code segments only.
	Language string
}

var languagePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Split cuts content into alternating prose and code segments.
//
// Fences pair up left to right. A fence without a closing partner is left in
// the prose as literal text. Prose segments that are only whitespace are
// dropped.
func Split(content string) []Segment {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var segments []Segment
	addProse := func(text string) {
		if strings.TrimSpace(text) != "" {
			segments = append(segments, Segment{Kind: SegmentProse, Text: text})
		}
	}

	rest := content
	for {
		open := strings.Index(rest, Fence)
		if open < 0 {
			break
		}
		closeRel := strings.Index(rest[open+len(Fence):], Fence)
		if closeRel < 0 {
			break
		}
		closeAt := open + len(Fence) + closeRel

		addProse(rest[:open])
		lang, code := splitFenceBody(rest[open+len(Fence) : closeAt])
		segments = append(segments, Segment{Kind: SegmentCode, Text: code, Language: lang})
		rest = rest[closeAt+len(Fence):]
	}
	addProse(rest)
	return segments
}

// splitFenceBody separates an optional language line from the payload.
// The first line names the language only when a newline follows it.
func splitFenceBody(body string) (lang, code string) {
	lang = DefaultLanguage
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		first := strings.TrimSpace(body[:nl])
		if languagePattern.MatchString(first) {
			lang = strings.ToLower(first)
			body = body[nl+1:]
		}
	}
	return lang, trimBlankLines(body)
}

// trimBlankLines removes leading blank lines and all trailing whitespace
// while keeping the indentation of the first code line.
func trimBlankLines(s string) string {
	for {
		nl := strings.IndexByte(s, '\n')
		if nl < 0 || strings.TrimSpace(s[:nl]) != "" {
			break
		}
		s = s[nl+1:]
	}
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return strings.TrimRight(s, " \t\n")
}
