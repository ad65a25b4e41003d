// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"html"
	"strconv"
	"strings"
)

// RenderHTML parses content and renders it as HTML.
func RenderHTML(content string) string {
	return HTML(Parse(content))
}

// EscapeHTML escapes s for a text node or a quoted attribute. Invalid
// UTF-8 sequences become U+FFFD.
func EscapeHTML(s string) string {
	return html.EscapeString(strings.ToValidUTF8(s, "\uFFFD"))
}

// HTML renders blocks as an HTML fragment.
//
// SECURITY: every text node and attribute value passes through
// EscapeHTML, which covers & < > " and ' and replaces invalid UTF-8.
// Nothing else writes user-derived bytes.
func HTML(blocks []Block) string {
	var sb strings.Builder
	for i, b := range blocks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		writeBlockHTML(&sb, b)
	}
	return sb.String()
}

func writeBlockHTML(sb *strings.Builder, b Block) {
	switch b := b.(type) {
	case Heading:
		tag := "h" + strconv.Itoa(b.Level)
		sb.WriteString("<" + tag + ">")
		writeSpansHTML(sb, b.Spans)
		sb.WriteString("</" + tag + ">")
	case Paragraph:
		sb.WriteString("<p>")
		writeSpansHTML(sb, b.Spans)
		sb.WriteString("</p>")
	case Blockquote:
		sb.WriteString("<blockquote>")
		writeSpansHTML(sb, b.Spans)
		sb.WriteString("</blockquote>")
	case List:
		tag := "ul"
		if b.Ordered {
			tag = "ol"
		}
		sb.WriteString("<" + tag)
		if b.Ordered && b.Start != 1 {
			sb.WriteString(` start="` + strconv.Itoa(b.Start) + `"`)
		}
		sb.WriteString(">")
		for _, item := range b.Items {
			sb.WriteString("<li>")
			writeSpansHTML(sb, item)
			sb.WriteString("</li>")
		}
		sb.WriteString("</" + tag + ">")
	case Rule:
		sb.WriteString("<hr>")
	case Preformatted:
		sb.WriteString(`<pre class="table">`)
		sb.WriteString(EscapeHTML(b.Text))
		sb.WriteString("</pre>")
	case CodeBlock:
		writeCodeBlockHTML(sb, b)
	}
}

// writeCodeBlockHTML emits the code container. The copy button carries the
// payload as an attribute so decoding it yields the exact code.
func writeCodeBlockHTML(sb *strings.Builder, b CodeBlock) {
	lang := EscapeHTML(b.Language)
	code := EscapeHTML(b.Code)

	sb.WriteString(`<div class="code-block"><div class="code-block-header"><span class="code-lang">`)
	sb.WriteString(lang)
	sb.WriteString(`</span><button class="copy-btn" type="button" data-copy="`)
	sb.WriteString(code)
	sb.WriteString(`">Copy</button></div><pre><code class="language-`)
	sb.WriteString(lang)
	sb.WriteString(`">`)
	sb.WriteString(code)
	sb.WriteString(`</code></pre></div>`)
}

func writeSpansHTML(sb *strings.Builder, spans []Span) {
	for _, sp := range spans {
		switch sp.Kind {
		case SpanText:
			sb.WriteString(EscapeHTML(sp.Text))
		case SpanBreak:
			sb.WriteString("<br>")
		case SpanCode:
			sb.WriteString("<code>")
			sb.WriteString(EscapeHTML(sp.Text))
			sb.WriteString("</code>")
		case SpanStrong:
			wrapHTML(sb, "strong", sp.Children)
		case SpanEm:
			wrapHTML(sb, "em", sp.Children)
		case SpanStrike:
			wrapHTML(sb, "del", sp.Children)
		case SpanLink:
			sb.WriteString(`<a href="`)
			sb.WriteString(EscapeHTML(sp.URL))
			sb.WriteString(`" target="_blank" rel="noopener noreferrer">`)
			writeSpansHTML(sb, sp.Children)
			sb.WriteString("</a>")
		}
	}
}

func wrapHTML(sb *strings.Builder, tag string, children []Span) {
	sb.WriteString("<" + tag + ">")
	writeSpansHTML(sb, children)
	sb.WriteString("</" + tag + ">")
}
