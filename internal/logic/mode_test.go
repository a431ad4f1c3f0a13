package logic

import "testing"

func TestModeNextWraps(t *testing.T) {
	if got := ModeDashboard.Next(); got != ModeDetail {
		t.Errorf("Dashboard.Next: got %s, want detail", got)
	}
	last := Mode(ModeCount - 1)
	if got := last.Next(); got != ModeDashboard {
		t.Errorf("last.Next: got %s, want dashboard", got)
	}
}

func TestCycleNTimes(t *testing.T) {
	for start := 0; start < ModeCount; start++ {
		for n := 0; n < 3*ModeCount; n++ {
			c := NewModeController(Mode(start))
			for i := 0; i < n; i++ {
				c.Cycle()
			}
			want := Mode((start + n) % ModeCount)
			if got := c.Current(); got != want {
				t.Errorf("start=%d n=%d: got %s, want %s", start, n, got, want)
			}
		}
	}
}

func TestSetRejectsOutOfRange(t *testing.T) {
	c := NewModeController(ModeDetail)

	if c.Set(Mode(ModeCount)) {
		t.Error("Set should reject out-of-range mode")
	}
	if c.Current() != ModeDetail {
		t.Errorf("mode changed on rejected Set: %s", c.Current())
	}

	if !c.Set(ModeLargeAddress) {
		t.Error("Set should accept a valid mode")
	}
	if c.Current() != ModeLargeAddress {
		t.Errorf("expected large-address, got %s", c.Current())
	}
}

func TestNewModeControllerInvalidInitial(t *testing.T) {
	c := NewModeController(Mode(200))
	if c.Current() != ModeDashboard {
		t.Errorf("expected default mode, got %s", c.Current())
	}
}

func TestChangesNotified(t *testing.T) {
	c := NewModeController(ModeDashboard)
	changes := c.Changes()

	c.Cycle()
	select {
	case m := <-changes:
		if m != ModeDetail {
			t.Errorf("notified %s, want detail", m)
		}
	default:
		t.Fatal("expected change notification")
	}
}

func TestChangesKeepsLatest(t *testing.T) {
	c := NewModeController(ModeDashboard)
	changes := c.Changes()

	c.Cycle()
	c.Cycle()
	c.Cycle()

	if m := <-changes; m != ModeBanner {
		t.Errorf("expected latest mode banner, got %s", m)
	}
	select {
	case m := <-changes:
		t.Errorf("unexpected extra notification %s", m)
	default:
	}
}

func TestSetSameModeDoesNotNotify(t *testing.T) {
	c := NewModeController(ModeDetail)
	changes := c.Changes()

	c.Set(ModeDetail)
	select {
	case m := <-changes:
		t.Errorf("unexpected notification %s", m)
	default:
	}
}

func TestParseMode(t *testing.T) {
	for i := 0; i < ModeCount; i++ {
		m := Mode(i)
		got, ok := ParseMode(m.String())
		if !ok || got != m {
			t.Errorf("ParseMode(%q): got %s, %v", m.String(), got, ok)
		}
	}
	if _, ok := ParseMode("fancy"); ok {
		t.Error("ParseMode should reject unknown names")
	}
	if got, ok := ParseMode("  Detail "); !ok || got != ModeDetail {
		t.Errorf("ParseMode should trim and lowercase, got %s, %v", got, ok)
	}
}

func TestModeStringUnknown(t *testing.T) {
	if got := Mode(99).String(); got != "unknown" {
		t.Errorf("got %q, want unknown", got)
	}
}
