// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	Mode         string
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// LAYOUT
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	Footer      lipgloss.Style
	Divider     lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar         lipgloss.Style
	SidebarHeading  lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style
	SidebarArchived lipgloss.Style
	SidebarPreview  lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	Timestamp      lipgloss.Style
	Body           lipgloss.Style
	Error          lipgloss.Style
	Typing         lipgloss.Style
	Empty          lipgloss.Style

	// ==========================================================================
	// MARKDOWN BLOCKS
	// ==========================================================================

	Heading    lipgloss.Style
	Quote      lipgloss.Style
	Bullet     lipgloss.Style
	Rule       lipgloss.Style
	InlineCode lipgloss.Style
	Link       lipgloss.Style
	CodeFrame  lipgloss.Style
	CodeLang   lipgloss.Style
	LineNumber lipgloss.Style

	// ==========================================================================
	// INPUT AND NOTIFICATIONS
	// ==========================================================================

	InputPrompt  lipgloss.Style
	ToastInfo    lipgloss.Style
	ToastSuccess lipgloss.Style
	ToastError   lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
}

// NewTheme creates a theme for mode. Unknown modes behave like auto.
func NewTheme(mode string) *Theme {
	mode = strings.ToLower(strings.TrimSpace(mode))

	var isDark bool
	switch mode {
	case ModeDark:
		isDark = true
	case ModeLight:
		isDark = false
	default:
		mode = ModeAuto
		isDark = termenv.HasDarkBackground()
	}
	// AdaptiveColor consults this, so forcing it makes the palette follow.
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		Mode:         mode,
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// ChromaStyle names the chroma style that matches the background.
func (t *Theme) ChromaStyle() string {
	if t.IsDark {
		return "catppuccin-mocha"
	}
	return "catppuccin-latte"
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Footer = lipgloss.NewStyle().
		Foreground(TextMuted).
		Padding(0, 1)

	t.Divider = lipgloss.NewStyle().
		Foreground(Overlay)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)

	t.SidebarHeading = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary)

	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.SidebarSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary).
		Background(SelectionBg)

	t.SidebarArchived = lipgloss.NewStyle().
		Foreground(Amber).
		Italic(true)

	t.SidebarPreview = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Transcript
	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.SystemLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Amber)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Body = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.Error = lipgloss.NewStyle().
		Foreground(Rose).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Rose).
		PaddingLeft(1)

	t.Typing = lipgloss.NewStyle().
		Foreground(Purple).
		Italic(true)

	t.Empty = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Markdown blocks
	t.Heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Quote = lipgloss.NewStyle().
		Foreground(TextSecondary).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(OverlayDim).
		PaddingLeft(1)

	t.Bullet = lipgloss.NewStyle().
		Foreground(Cyan)

	t.Rule = lipgloss.NewStyle().
		Foreground(OverlayDim)

	t.InlineCode = lipgloss.NewStyle().
		Foreground(Purple).
		Background(CodeBg)

	t.Link = lipgloss.NewStyle().
		Foreground(LinkColor).
		Underline(true)

	t.CodeFrame = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.CodeLang = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Purple).
		Padding(0, 1)

	t.LineNumber = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Input and notifications
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ToastInfo = lipgloss.NewStyle().
		Foreground(Cyan)

	t.ToastSuccess = lipgloss.NewStyle().
		Foreground(Emerald)

	t.ToastError = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns, sidebar hidden
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)

// RenderStatus renders msg with a shape indicator so the state is readable
// without color.
func (t *Theme) RenderStatus(success bool, msg string) string {
	if success {
		return t.ToastSuccess.Render(StatusIndicators.Success + " " + msg)
	}
	return t.ToastError.Render(StatusIndicators.Error + " " + msg)
}
