// Package proctor turns raw environment signals reported by the exam client
// into discrete, named violation events. The monitor is purely observational:
// it takes no enforcement action, keeps no per-event state, and leaves
// deduplication and consequences to its caller.
package proctor

import (
	"fmt"
	"strings"
	"time"
)

// Signal names one kind of suspicious activity observed in the hosting
// environment during an attempt.
type Signal string

const (
	SignalTabBlur          Signal = "TAB_BLUR"
	SignalVisibilityHidden Signal = "VISIBILITY_HIDDEN"
	SignalCopyAttempt      Signal = "COPY_ATTEMPT"
	SignalPasteAttempt     Signal = "PASTE_ATTEMPT"
	SignalContextMenu      Signal = "CONTEXT_MENU"
	SignalFullscreenExit   Signal = "FULLSCREEN_EXIT"
)

var knownSignals = map[Signal]struct{}{
	SignalTabBlur:          {},
	SignalVisibilityHidden: {},
	SignalCopyAttempt:      {},
	SignalPasteAttempt:     {},
	SignalContextMenu:      {},
	SignalFullscreenExit:   {},
}

// Known reports whether the signal is one the monitor recognizes.
func Known(s Signal) bool {
	_, ok := knownSignals[s]
	return ok
}

// Violation is one detected suspicious-activity event.
type Violation struct {
	Signal     Signal    `json:"signal"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Handler receives each violation as a discrete event.
type Handler func(Violation)

// Monitor reports every observed signal to its handler. Repeated identical
// signals produce repeated events; the monitor holds no state between them.
type Monitor struct {
	handler Handler
	now     func() time.Time
}

// NewMonitor creates a monitor delivering events to h.
func NewMonitor(h Handler) *Monitor {
	return &Monitor{handler: h, now: time.Now}
}

// Observe records one occurrence of a signal. Unknown signals are ignored.
func (m *Monitor) Observe(sig Signal) {
	if !Known(sig) || m.handler == nil {
		return
	}
	m.handler(Violation{
		Signal:     sig,
		Message:    WarningMessage(sig),
		OccurredAt: m.now(),
	})
}

// WarningMessage renders the student-facing warning for a signal, e.g.
// "Warning: tab blur detected."
func WarningMessage(sig Signal) string {
	name := strings.ToLower(strings.ReplaceAll(string(sig), "_", " "))
	return fmt.Sprintf("Warning: %s detected.", name)
}
