package model

import (
	"time"
)

// State is the attendance state of a single user.
type State int

const (
	StateOut State = iota
	StatePendingReport
	StateReady
)

func (s State) String() string {
	switch s {
	case StateOut:
		return "OUT"
	case StatePendingReport:
		return "CLOCKED_IN_PENDING_REPORT"
	case StateReady:
		return "CLOCKED_IN_READY"
	default:
		return "UNKNOWN"
	}
}

// AttendanceRecord is the per-user attendance value. It is replaced as a
// whole on every transition; the clocked-in and report-approved flags are
// derived from State so they cannot drift apart.
type AttendanceRecord struct {
	State       State     `json:"state"`
	ClockInTime time.Time `json:"clockInTime,omitempty"`
}

// Out is the record of a user without an active session. It is also what an
// absent record means.
func Out() AttendanceRecord {
	return AttendanceRecord{State: StateOut}
}

// PendingReport is the record right after a regular clock-in.
func PendingReport(clockIn time.Time) AttendanceRecord {
	return AttendanceRecord{State: StatePendingReport, ClockInTime: clockIn}
}

// Ready is the record of a clocked-in user allowed to clock out.
func Ready(clockIn time.Time) AttendanceRecord {
	return AttendanceRecord{State: StateReady, ClockInTime: clockIn}
}

func (r AttendanceRecord) ClockedIn() bool {
	return r.State == StatePendingReport || r.State == StateReady
}

func (r AttendanceRecord) ReportApproved() bool {
	return r.State == StateReady
}

// Elapsed splits a session duration into whole hours and the whole minutes
// left over within the last hour. Seconds are truncated, negative durations
// count as zero.
func Elapsed(d time.Duration) (hours, minutes int64) {
	totalSeconds := int64(d / time.Second)
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	return totalSeconds / 3600, (totalSeconds % 3600) / 60
}

// EventKind names an audited attendance event.
type EventKind string

const (
	EventClockIn          EventKind = "clock-in"
	EventClockOut         EventKind = "clock-out"
	EventReportDetected   EventKind = "report-detected"
	EventWorkspaceDeleted EventKind = "workspace-deleted"
	EventReset            EventKind = "reset"
	EventStartup          EventKind = "startup"
)
