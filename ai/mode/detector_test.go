package mode

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type fakeCeremonies struct {
	ceremonies []Ceremony
	err        error
}

func (f *fakeCeremonies) ActiveCeremonies(_ context.Context, _ int32) ([]Ceremony, error) {
	return f.ceremonies, f.err
}

// fixedClock returns a clock pinned to the given local time.
func fixedClock(weekday time.Weekday, hour int) func() time.Time {
	// 2026-03-01 is a Sunday; walk forward to the requested weekday.
	base := time.Date(2026, 3, 1, hour, 30, 0, 0, time.Local)
	return func() time.Time {
		return base.AddDate(0, 0, int(weekday))
	}
}

func TestDetect_ExplicitOverride(t *testing.T) {
	d := NewDetector(nil, fixedClock(time.Wednesday, 14))

	testCases := []struct {
		explicit string
		expected Mode
	}{
		{"PLANNING", Planning},
		{"planning", Planning},
		{" standup ", Standup},
		{"Capture", Capture},
	}
	for _, tc := range testCases {
		if got := d.Detect(context.Background(), 1, "hello", tc.explicit); got != tc.expected {
			t.Errorf("explicit %q: expected %s, got %s", tc.explicit, tc.expected, got)
		}
	}
}

func TestDetect_InvalidExplicitFallsThrough(t *testing.T) {
	d := NewDetector(nil, fixedClock(time.Wednesday, 14))

	// Invalid override must not fail the turn; the chain continues and the
	// keyword step picks the mode.
	if got := d.Detect(context.Background(), 1, "let's do my daily check-in", "BOGUS"); got != Standup {
		t.Errorf("expected keyword fallthrough to %s, got %s", Standup, got)
	}
	if got := d.Detect(context.Background(), 1, "hello there", "BOGUS"); got != Freeform {
		t.Errorf("expected fallthrough to %s, got %s", Freeform, got)
	}
}

func TestDetect_CeremonyPriority(t *testing.T) {
	lookup := &fakeCeremonies{ceremonies: []Ceremony{{Kind: "retrospective"}}}
	d := NewDetector(lookup, fixedClock(time.Wednesday, 14))

	// Ceremony beats keywords but loses to an explicit override.
	if got := d.Detect(context.Background(), 1, "quick note: buy milk", ""); got != Retrospective {
		t.Errorf("expected ceremony mode %s, got %s", Retrospective, got)
	}
	if got := d.Detect(context.Background(), 1, "quick note: buy milk", "CAPTURE"); got != Capture {
		t.Errorf("expected explicit override %s, got %s", Capture, got)
	}
}

func TestDetect_CeremonyLookupFailureSkipped(t *testing.T) {
	lookup := &fakeCeremonies{err: fmt.Errorf("host unreachable")}
	d := NewDetector(lookup, fixedClock(time.Wednesday, 14))

	if got := d.Detect(context.Background(), 1, "jot this down: call mom", ""); got != Capture {
		t.Errorf("expected %s after lookup failure, got %s", Capture, got)
	}
}

func TestDetect_TimeHeuristicNeedsTextAgreement(t *testing.T) {
	testCases := []struct {
		name     string
		clock    func() time.Time
		text     string
		expected Mode
	}{
		{"weekday morning with standup text", fixedClock(time.Tuesday, 9), "yesterday I shipped the fix", Standup},
		{"weekday morning without agreement", fixedClock(time.Tuesday, 9), "what's for lunch", Freeform},
		{"sunday afternoon with planning text", fixedClock(time.Sunday, 14), "let's plan my week", Planning},
		{"sunday afternoon without agreement", fixedClock(time.Sunday, 14), "random thought", Freeform},
		{"friday late with retro text", fixedClock(time.Friday, 16), "looking back on this sprint", Retrospective},
		{"saturday has no leaning", fixedClock(time.Saturday, 9), "random thought", Freeform},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDetector(nil, tc.clock)
			if got := d.Detect(context.Background(), 1, tc.text, ""); got != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestParse(t *testing.T) {
	if _, ok := Parse("nonsense"); ok {
		t.Error("expected parse failure for unknown mode")
	}
	m, ok := Parse("  freeform ")
	if !ok || m != Freeform {
		t.Errorf("expected %s, got %s (ok=%v)", Freeform, m, ok)
	}
}
