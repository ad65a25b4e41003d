// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the parley TUI.

# Color System (colors.go)

All colors use Lip Gloss AdaptiveColor, so the same token resolves to a
light or dark variant depending on the terminal background:

	Purple, Cyan, Emerald, Amber, Rose  - accents
	Surface, Overlay                    - backgrounds and borders
	TextPrimary, TextSecondary, TextMuted

# Theme (theme.go)

NewTheme builds every style the UI uses. The mode is "auto", "dark" or
"light"; auto asks termenv whether the background is dark, the others
force it:

	theme := styles.NewTheme(cfg.UI.Theme)
	fmt.Println(theme.Error.Render("Error: Request timed out"))
*/
package styles
