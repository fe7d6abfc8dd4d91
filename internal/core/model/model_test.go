package model

import (
	"testing"
	"time"
)

func TestRecordFlags(t *testing.T) {
	now := time.Now()
	for _, tc := range []struct {
		rec            AttendanceRecord
		clockedIn      bool
		reportApproved bool
	}{
		{Out(), false, false},
		{AttendanceRecord{}, false, false},
		{PendingReport(now), true, false},
		{Ready(now), true, true},
	} {
		if got := tc.rec.ClockedIn(); got != tc.clockedIn {
			t.Errorf("%s: ClockedIn() = %v, want %v", tc.rec.State, got, tc.clockedIn)
		}
		if got := tc.rec.ReportApproved(); got != tc.reportApproved {
			t.Errorf("%s: ReportApproved() = %v, want %v", tc.rec.State, got, tc.reportApproved)
		}
		if tc.rec.ReportApproved() && !tc.rec.ClockedIn() {
			t.Errorf("%s: report approved without being clocked in", tc.rec.State)
		}
	}
}

func TestZeroRecordIsOut(t *testing.T) {
	var rec AttendanceRecord
	if rec != Out() {
		t.Fatalf("expected zero record to equal Out(), got %+v", rec)
	}
	if !rec.ClockInTime.IsZero() {
		t.Errorf("expected no clock-in time, got %v", rec.ClockInTime)
	}
}

func TestElapsed(t *testing.T) {
	for _, tc := range []struct {
		d       time.Duration
		hours   int64
		minutes int64
	}{
		{0, 0, 0},
		{59 * time.Second, 0, 0},
		{time.Hour + 23*time.Minute + 45*time.Second, 1, 23},
		{59*time.Minute + 59*time.Second + 999*time.Millisecond, 0, 59},
		{25 * time.Hour, 25, 0},
		{-5 * time.Minute, 0, 0},
	} {
		h, m := Elapsed(tc.d)
		if h != tc.hours || m != tc.minutes {
			t.Errorf("Elapsed(%v) = %dh %dm, want %dh %dm", tc.d, h, m, tc.hours, tc.minutes)
		}
	}
}

func TestStateString(t *testing.T) {
	if StatePendingReport.String() != "CLOCKED_IN_PENDING_REPORT" {
		t.Errorf("unexpected name %q", StatePendingReport.String())
	}
	if State(42).String() != "UNKNOWN" {
		t.Errorf("expected UNKNOWN for invalid state, got %q", State(42).String())
	}
}
