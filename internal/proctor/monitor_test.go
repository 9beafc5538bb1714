package proctor

import (
	"testing"
)

func TestObserveDeliversViolation(t *testing.T) {
	var got []Violation
	m := NewMonitor(func(v Violation) { got = append(got, v) })

	m.Observe(SignalTabBlur)

	if len(got) != 1 {
		t.Fatalf("handler called %d times, want 1", len(got))
	}
	if got[0].Signal != SignalTabBlur {
		t.Errorf("signal = %s, want %s", got[0].Signal, SignalTabBlur)
	}
	if got[0].Message != "Warning: tab blur detected." {
		t.Errorf("message = %q", got[0].Message)
	}
	if got[0].OccurredAt.IsZero() {
		t.Error("occurred_at not set")
	}
}

func TestObserveIgnoresUnknownSignal(t *testing.T) {
	calls := 0
	m := NewMonitor(func(Violation) { calls++ })

	m.Observe(Signal("KEYBOARD_UNPLUGGED"))
	m.Observe(Signal(""))

	if calls != 0 {
		t.Fatalf("handler called %d times for unknown signals, want 0", calls)
	}
}

func TestObserveRepeatedSignalsRepeatEvents(t *testing.T) {
	calls := 0
	m := NewMonitor(func(Violation) { calls++ })

	m.Observe(SignalCopyAttempt)
	m.Observe(SignalCopyAttempt)
	m.Observe(SignalCopyAttempt)

	if calls != 3 {
		t.Fatalf("handler called %d times, want 3 (no dedup)", calls)
	}
}

func TestObserveNilHandler(t *testing.T) {
	m := NewMonitor(nil)
	m.Observe(SignalTabBlur) // must not panic
}

func TestWarningMessage(t *testing.T) {
	cases := map[Signal]string{
		SignalTabBlur:          "Warning: tab blur detected.",
		SignalVisibilityHidden: "Warning: visibility hidden detected.",
		SignalFullscreenExit:   "Warning: fullscreen exit detected.",
	}
	for sig, want := range cases {
		if got := WarningMessage(sig); got != want {
			t.Errorf("WarningMessage(%s) = %q, want %q", sig, got, want)
		}
	}
}

func TestKnownCoversAllSignals(t *testing.T) {
	for _, sig := range []Signal{
		SignalTabBlur, SignalVisibilityHidden, SignalCopyAttempt,
		SignalPasteAttempt, SignalContextMenu, SignalFullscreenExit,
	} {
		if !Known(sig) {
			t.Errorf("Known(%s) = false", sig)
		}
	}
	if Known(Signal("MADE_UP")) {
		t.Error("Known accepted an unknown signal")
	}
}
