package core

import (
	"errors"
	"testing"
	"time"

	"attendance.service/internal/core/model"
)

func TestDecide(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	now := t0.Add(2*time.Hour + 5*time.Minute + 59*time.Second)

	for _, tc := range []struct {
		name    string
		from    model.AttendanceRecord
		trigger trigger
		want    model.AttendanceRecord
		before  []effect
		after   []effect
		wantErr error
	}{
		{"clock in from out", model.Out(), triggerClockIn, model.PendingReport(now),
			[]effect{effectOpenWorkspace}, []effect{effectPostInstructions}, nil},
		{"clock in while pending", model.PendingReport(t0), triggerClockIn, model.AttendanceRecord{}, nil, nil, ErrAlreadyClockedIn},
		{"clock in while ready", model.Ready(t0), triggerClockIn, model.AttendanceRecord{}, nil, nil, ErrAlreadyClockedIn},
		{"clock out from out", model.Out(), triggerClockOut, model.AttendanceRecord{}, nil, nil, ErrNotClockedIn},
		{"clock out while pending", model.PendingReport(t0), triggerClockOut, model.AttendanceRecord{}, nil, nil, ErrReportRequired},
		{"clock out while ready", model.Ready(t0), triggerClockOut, model.Out(),
			nil, []effect{effectCloseWorkspace}, nil},
		{"valid report", model.PendingReport(t0), triggerReport, model.Ready(t0),
			nil, []effect{effectForwardReport, effectAnnounceReport, effectCloseWorkspace}, nil},
		{"invalid report", model.PendingReport(t0), triggerBadReport, model.PendingReport(t0),
			nil, []effect{effectFormatHelp}, nil},
		{"report while out", model.Out(), triggerReport, model.AttendanceRecord{}, nil, nil, ErrNotClockedIn},
		{"reset from out", model.Out(), triggerReset, model.Ready(now),
			[]effect{effectCloseWorkspace, effectOpenWorkspace}, []effect{effectPostInstructions}, nil},
		{"reset from pending", model.PendingReport(t0), triggerReset, model.Ready(now),
			[]effect{effectCloseWorkspace, effectOpenWorkspace}, []effect{effectPostInstructions}, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p, err := decide(tc.from, tc.trigger, now)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if !errors.Is(err, ErrGuardViolation) {
					t.Errorf("expected %v to be a guard violation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.next != tc.want {
				t.Errorf("next = %+v, want %+v", p.next, tc.want)
			}
			if !equalEffects(p.before, tc.before) {
				t.Errorf("before = %v, want %v", p.before, tc.before)
			}
			if !equalEffects(p.after, tc.after) {
				t.Errorf("after = %v, want %v", p.after, tc.after)
			}
			if p.next.ReportApproved() && !p.next.ClockedIn() {
				t.Errorf("invariant broken: %+v", p.next)
			}
		})
	}
}

func TestDecide_ClockOutElapsed(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	p, err := decide(model.Ready(t0), triggerClockOut, t0.Add(time.Hour+23*time.Minute+45*time.Second))
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if p.hours != 1 || p.minutes != 23 {
		t.Errorf("expected 1h 23m, got %dh %dm", p.hours, p.minutes)
	}
	if FormatElapsed(p.hours, p.minutes) != "1 hours, 23 minutes" {
		t.Errorf("unexpected format %q", FormatElapsed(p.hours, p.minutes))
	}
}

func TestOnlyOpenIsRequired(t *testing.T) {
	for _, e := range []effect{effectCloseWorkspace, effectPostInstructions, effectForwardReport, effectAnnounceReport, effectFormatHelp} {
		if e.required() {
			t.Errorf("%s must be best-effort", e)
		}
	}
	if !effectOpenWorkspace.required() {
		t.Error("opening a workspace must be required")
	}
}

func equalEffects(a, b []effect) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
