// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strconv"
	"strings"
)

// PlainText renders blocks for output that cannot show styling, such as a
// pipe or a log file. Link URLs follow their text in parentheses and code
// blocks keep their fences.
func PlainText(blocks []Block) string {
	var sb strings.Builder
	for i, b := range blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		switch b := b.(type) {
		case Heading:
			sb.WriteString(strings.Repeat("#", b.Level))
			sb.WriteByte(' ')
			writeSpansText(&sb, b.Spans)
		case Paragraph:
			writeSpansText(&sb, b.Spans)
		case Blockquote:
			var q strings.Builder
			writeSpansText(&q, b.Spans)
			for j, line := range strings.Split(q.String(), "\n") {
				if j > 0 {
					sb.WriteByte('\n')
				}
				sb.WriteString("> ")
				sb.WriteString(line)
			}
		case List:
			for j, item := range b.Items {
				if j > 0 {
					sb.WriteByte('\n')
				}
				if b.Ordered {
					sb.WriteString(strconv.Itoa(b.Start + j))
					sb.WriteString(". ")
				} else {
					sb.WriteString("- ")
				}
				writeSpansText(&sb, item)
			}
		case Rule:
			sb.WriteString("---")
		case Preformatted:
			sb.WriteString(b.Text)
		case CodeBlock:
			sb.WriteString(Fence)
			sb.WriteString(b.Language)
			sb.WriteByte('\n')
			sb.WriteString(b.Code)
			sb.WriteByte('\n')
			sb.WriteString(Fence)
		}
	}
	return sb.String()
}
