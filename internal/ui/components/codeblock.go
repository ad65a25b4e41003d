// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley/internal/render"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock is a fenced code segment prepared for the terminal.
type CodeBlock struct {
	Language string
	Code     string
	MaxWidth int

	// Plain disables ANSI highlighting, for output that is not a terminal.
	Plain bool
}

// NewCodeBlock creates a new code block.
func NewCodeBlock(language, code string) CodeBlock {
	return CodeBlock{
		Language: language,
		Code:     code,
		MaxWidth: 80,
	}
}

// Render draws the block inside a rounded frame.
func (c CodeBlock) Render(theme *styles.Theme) string {
	code := strings.TrimRight(c.Code, "\n")

	highlighted := code
	if !c.Plain {
		highlighted = highlightCode(code, c.Language, theme.ChromaStyle())
	}
	lines := strings.Split(highlighted, "\n")

	numWidth := len(strconv.Itoa(len(lines)))
	lineNum := theme.LineNumber.Width(numWidth).Align(lipgloss.Right).MarginRight(1)

	rendered := make([]string, 0, len(lines)+1)
	rendered = append(rendered, theme.CodeLang.Render(CanonicalLanguage(c.Language)))
	for i, line := range lines {
		rendered = append(rendered, lineNum.Render(strconv.Itoa(i+1))+line)
	}

	maxWidth := c.MaxWidth - 2
	if maxWidth < 20 {
		maxWidth = 20
	}
	return theme.CodeFrame.MaxWidth(maxWidth).Render(strings.Join(rendered, "\n"))
}

// CanonicalLanguage maps a fence tag to chroma's display name when chroma
// knows it ("py" becomes "Python"), otherwise returns the tag unchanged.
func CanonicalLanguage(tag string) string {
	if tag == "" || tag == render.DefaultLanguage {
		return render.DefaultLanguage
	}
	if lexer := lexers.Get(tag); lexer != nil {
		return lexer.Config().Name
	}
	return tag
}

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// highlightCode returns code with terminal256 escapes, or code unchanged
// when chroma fails.
func highlightCode(code, language, styleName string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
