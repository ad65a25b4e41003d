// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewTheme_ForcedModes(t *testing.T) {
	dark := NewTheme("dark")
	if !dark.IsDark || dark.Mode != ModeDark {
		t.Errorf("dark theme: IsDark=%v Mode=%v", dark.IsDark, dark.Mode)
	}
	if got := dark.ChromaStyle(); got != "catppuccin-mocha" {
		t.Errorf("dark ChromaStyle = %q", got)
	}

	light := NewTheme(" LIGHT ")
	if light.IsDark || light.Mode != ModeLight {
		t.Errorf("light theme: IsDark=%v Mode=%v", light.IsDark, light.Mode)
	}
	if got := light.ChromaStyle(); got != "catppuccin-latte" {
		t.Errorf("light ChromaStyle = %q", got)
	}
}

func TestNewTheme_UnknownIsAuto(t *testing.T) {
	for _, name := range []string{"neon", ""} {
		if got := NewTheme(name).Mode; got != ModeAuto {
			t.Errorf("NewTheme(%q).Mode = %v, want auto", name, got)
		}
	}
}

func TestGetLayoutMode(t *testing.T) {
	theme := NewTheme("dark")
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
	}
	for _, tc := range tests {
		theme.SetSize(tc.width, 30)
		if got := theme.GetLayoutMode(); got != tc.want {
			t.Errorf("width %d: GetLayoutMode() = %v, want %v", tc.width, got, tc.want)
		}
	}
}

func TestRenderStatus_IncludesIndicator(t *testing.T) {
	theme := NewTheme("dark")
	if got := theme.RenderStatus(true, "saved"); !strings.Contains(got, "[OK] saved") {
		t.Errorf("RenderStatus(true) = %q", got)
	}
	if got := theme.RenderStatus(false, "failed"); !strings.Contains(got, "[X] failed") {
		t.Errorf("RenderStatus(false) = %q", got)
	}
}
