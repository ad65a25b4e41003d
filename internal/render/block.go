// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// BLOCK TYPES
// =============================================================================

// Block is a top-level element of a rendered message.
type Block interface {
	block()
}

// Heading is an ATX heading of level 1 to 6.
type Heading struct {
	Level int
	Spans []Span
}

// Paragraph is a run of prose lines. Inner newlines become SpanBreak.
type Paragraph struct {
	Spans []Span
}

// Blockquote is one group of consecutive quoted lines.
type Blockquote struct {
	Spans []Span
}

// List is an ordered or unordered list. Start is the first ordinal of an
// ordered list.
type List struct {
	Ordered bool
	Start   int
	Items   [][]Span
}

// Rule is a horizontal rule.
type Rule struct{}

// Preformatted is text shown verbatim. Tables are flattened into it.
type Preformatted struct {
	Text string
}

// CodeBlock is a fenced code segment. Code is the literal payload.
type CodeBlock struct {
	Language string
	Code     string
}

func (Heading) block()      {}
func (Paragraph) block()    {}
func (Blockquote) block()   {}
func (List) block()         {}
func (Rule) block()         {}
func (Preformatted) block() {}
func (CodeBlock) block()    {}

// =============================================================================
// PARSING
// =============================================================================

var (
	headingPattern   = regexp.MustCompile(`^(#{1,6})\s+(.*\S)\s*$`)
	quotePattern     = regexp.MustCompile(`^>\s?(.*)$`)
	unorderedPattern = regexp.MustCompile(`^[-*+]\s+(.*)$`)
	orderedPattern   = regexp.MustCompile(`^(\d+)\.\s+(.*)$`)
	rulePattern      = regexp.MustCompile(`^(?:\*{3,}|-{3,}|_{3,})$`)
)

// Parse turns message content into blocks. The same input always yields the
// same tree.
func Parse(content string) []Block {
	var blocks []Block
	for _, seg := range Split(content) {
		if seg.Kind == SegmentCode {
			blocks = append(blocks, CodeBlock{Language: seg.Language, Code: seg.Text})
			continue
		}
		blocks = append(blocks, parseProse(seg.Text)...)
	}
	return blocks
}

// CodeBlocks returns the code blocks of a tree in document order.
func CodeBlocks(blocks []Block) []CodeBlock {
	var out []CodeBlock
	for _, b := range blocks {
		if cb, ok := b.(CodeBlock); ok {
			out = append(out, cb)
		}
	}
	return out
}

func parseProse(text string) []Block {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	var blocks []Block
	var para []string
	flush := func() {
		if len(para) > 0 {
			blocks = append(blocks, Paragraph{Spans: ParseInline(strings.Join(para, "\n"))})
			para = nil
		}
	}

	// collect gathers consecutive lines matching re, returning the first
	// submatch group of each and the index after the run.
	collect := func(start int, re *regexp.Regexp, group int) ([]string, int) {
		var out []string
		i := start
		for ; i < len(lines); i++ {
			m := re.FindStringSubmatch(lines[i])
			if m == nil {
				break
			}
			out = append(out, m[group])
		}
		return out, i
	}

	for i := 0; i < len(lines); {
		line := lines[i]

		if line == "" {
			flush()
			i++
			continue
		}

		if m := headingPattern.FindStringSubmatch(line); m != nil {
			flush()
			blocks = append(blocks, Heading{Level: len(m[1]), Spans: ParseInline(m[2])})
			i++
			continue
		}

		if quotePattern.MatchString(line) {
			flush()
			var quoted []string
			quoted, i = collect(i, quotePattern, 1)
			if body := strings.Join(quoted, "\n"); strings.TrimSpace(body) != "" {
				blocks = append(blocks, Blockquote{Spans: ParseInline(body)})
			}
			continue
		}

		if unorderedPattern.MatchString(line) {
			flush()
			var items []string
			items, i = collect(i, unorderedPattern, 1)
			blocks = append(blocks, List{Items: parseItems(items)})
			continue
		}

		if m := orderedPattern.FindStringSubmatch(line); m != nil {
			flush()
			start, err := strconv.Atoi(m[1])
			if err != nil {
				start = 1
			}
			var items []string
			items, i = collect(i, orderedPattern, 2)
			blocks = append(blocks, List{Ordered: true, Start: start, Items: parseItems(items)})
			continue
		}

		if rulePattern.MatchString(line) {
			flush()
			blocks = append(blocks, Rule{})
			i++
			continue
		}

		if isTableLine(line) && i+1 < len(lines) && isTableLine(lines[i+1]) {
			flush()
			j := i
			for j < len(lines) && isTableLine(lines[j]) {
				j++
			}
			blocks = append(blocks, Preformatted{Text: strings.Join(lines[i:j], "\n")})
			i = j
			continue
		}

		para = append(para, line)
		i++
	}
	flush()
	return blocks
}

func parseItems(items []string) [][]Span {
	out := make([][]Span, len(items))
	for i, item := range items {
		out[i] = ParseInline(item)
	}
	return out
}

func isTableLine(line string) bool {
	return len(line) >= 2 && line[0] == '|' && line[len(line)-1] == '|'
}
