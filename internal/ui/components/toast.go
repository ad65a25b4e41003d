// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/parley/internal/ui/styles"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	ToastKindInfo ToastKind = iota
	ToastKindSuccess
	ToastKindError
)

// DefaultToastDuration is the auto-dismiss duration for info and success
// toasts. Errors stay longer so they can be read.
const (
	DefaultToastDuration = 3 * time.Second
	ErrorToastDuration   = 6 * time.Second
)

// Toast is a transient notification.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired reports whether the toast should be dismissed at now.
func (t Toast) IsExpired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager keeps the newest toasts first, at most maxToasts of them.
type ToastManager struct {
	mu        sync.Mutex
	toasts    []Toast
	nextID    int
	maxToasts int
	now       func() time.Time
}

// NewToastManager creates a toast manager. A nil clock means time.Now.
func NewToastManager(now func() time.Time) *ToastManager {
	if now == nil {
		now = time.Now
	}
	return &ToastManager{nextID: 1, maxToasts: 3, now: now}
}

// Add queues a toast and returns its id.
func (m *ToastManager) Add(kind ToastKind, message string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := DefaultToastDuration
	if kind == ToastKindError {
		d = ErrorToastDuration
	}
	t := Toast{ID: m.nextID, Message: message, Kind: kind, CreatedAt: m.now(), Duration: d}
	m.nextID++

	m.toasts = append([]Toast{t}, m.toasts...)
	if len(m.toasts) > m.maxToasts {
		m.toasts = m.toasts[:m.maxToasts]
	}
	return t.ID
}

// Tick drops expired toasts and returns how many remain.
func (m *ToastManager) Tick() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	active := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.IsExpired(now) {
			active = append(active, t)
		}
	}
	m.toasts = active
	return len(m.toasts)
}

// Toasts returns a copy of the current toasts, newest first.
func (m *ToastManager) Toasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Toast, len(m.toasts))
	copy(out, m.toasts)
	return out
}

// View renders the newest toast, or "" when there is none.
func (m *ToastManager) View(theme *styles.Theme) string {
	toasts := m.Toasts()
	if len(toasts) == 0 {
		return ""
	}
	t := toasts[0]
	switch t.Kind {
	case ToastKindError:
		return theme.ToastError.Render(styles.StatusIndicators.Error + " " + t.Message)
	case ToastKindSuccess:
		return theme.ToastSuccess.Render(styles.StatusIndicators.Success + " " + t.Message)
	default:
		return theme.ToastInfo.Render(styles.StatusIndicators.Info + " " + t.Message)
	}
}

// ToastTickMsg is sent periodically to expire toasts.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd ticks toasts every 250ms.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}
