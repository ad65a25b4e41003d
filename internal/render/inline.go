// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import "strings"

// SpanKind identifies an inline element.
type SpanKind int

const (
	SpanText SpanKind = iota
	SpanStrong
	SpanEm
	SpanStrike
	SpanCode
	SpanLink
	SpanBreak
)

// Span is an inline element. Text holds raw text for SpanText and SpanCode.
// Container kinds (strong, em, strike, link) hold Children instead.
type Span struct {
	Kind     SpanKind
	Text     string
	URL      string
	Children []Span
}

// ParseInline parses inline markup. Recognised forms, tried in this order at
// each position: `code`, **strong**, *em*, ~~strike~~, [text](url). Anything
// unterminated is kept as literal text.
func ParseInline(s string) []Span {
	var spans []Span
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			spans = append(spans, Span{Kind: SpanText, Text: text.String()})
			text.Reset()
		}
	}
	emit := func(sp ...Span) {
		flush()
		spans = append(spans, sp...)
	}

	for i := 0; i < len(s); {
		rest := s[i:]
		switch {
		case rest[0] == '\n':
			emit(Span{Kind: SpanBreak})
			i++
			continue

		case rest[0] == '`':
			if j := strings.IndexByte(rest[1:], '`'); j > 0 {
				emit(Span{Kind: SpanCode, Text: rest[1 : 1+j]})
				i += j + 2
				continue
			}

		case strings.HasPrefix(rest, "**"):
			if j := strings.Index(rest[2:], "**"); j > 0 {
				emit(Span{Kind: SpanStrong, Children: ParseInline(rest[2 : 2+j])})
				i += j + 4
				continue
			}
			text.WriteString("**")
			i += 2
			continue

		case rest[0] == '*':
			if j := strings.IndexByte(rest[1:], '*'); j > 0 && emphasisBody(rest[1:1+j]) {
				emit(Span{Kind: SpanEm, Children: ParseInline(rest[1 : 1+j])})
				i += j + 2
				continue
			}

		case strings.HasPrefix(rest, "~~"):
			if j := strings.Index(rest[2:], "~~"); j > 0 {
				emit(Span{Kind: SpanStrike, Children: ParseInline(rest[2 : 2+j])})
				i += j + 4
				continue
			}

		case rest[0] == '[':
			if link, n := parseLink(rest); n > 0 {
				emit(link...)
				i += n
				continue
			}
		}

		text.WriteByte(rest[0])
		i++
	}
	flush()
	return spans
}

// emphasisBody rejects bodies padded with spaces so "2 * 3 * 4" stays text.
func emphasisBody(body string) bool {
	return body[0] != ' ' && body[len(body)-1] != ' '
}

// parseLink parses [text](url) at the start of s. It returns the spans to
// emit and the number of bytes consumed, or 0 when s does not start a link.
// URLs without an http or https scheme keep only their text.
func parseLink(s string) ([]Span, int) {
	closeText := strings.IndexByte(s, ']')
	if closeText < 2 || closeText+1 >= len(s) || s[closeText+1] != '(' {
		return nil, 0
	}
	closeURL := strings.IndexByte(s[closeText+2:], ')')
	if closeURL < 0 {
		return nil, 0
	}
	label := ParseInline(s[1:closeText])
	url := strings.TrimSpace(s[closeText+2 : closeText+2+closeURL])
	n := closeText + 2 + closeURL + 1

	if !SafeURL(url) {
		return label, n
	}
	return []Span{{Kind: SpanLink, URL: url, Children: label}}, n
}

// SafeURL reports whether url may be rendered as a clickable link.
func SafeURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// writeSpansText writes the visible text of spans, with link targets in
// parentheses after their labels.
func writeSpansText(sb *strings.Builder, spans []Span) {
	for _, sp := range spans {
		switch sp.Kind {
		case SpanText, SpanCode:
			sb.WriteString(sp.Text)
		case SpanBreak:
			sb.WriteByte('\n')
		case SpanLink:
			writeSpansText(sb, sp.Children)
			sb.WriteString(" (")
			sb.WriteString(sp.URL)
			sb.WriteByte(')')
		default:
			writeSpansText(sb, sp.Children)
		}
	}
}
