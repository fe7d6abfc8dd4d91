package core

import (
	"time"

	"attendance.service/internal/core/model"
)

type trigger int

const (
	triggerClockIn trigger = iota
	triggerClockOut
	triggerReport
	triggerBadReport
	triggerReset
)

// effect is an externally visible step of a transition.
type effect int

const (
	effectOpenWorkspace effect = iota
	effectCloseWorkspace
	effectPostInstructions
	effectForwardReport
	effectAnnounceReport
	effectFormatHelp
)

func (e effect) String() string {
	switch e {
	case effectOpenWorkspace:
		return "creating private channel"
	case effectCloseWorkspace:
		return "deleting private channel"
	case effectPostInstructions:
		return "posting instructions"
	case effectForwardReport:
		return "copying report to update channel"
	case effectAnnounceReport:
		return "announcing report"
	case effectFormatHelp:
		return "sending format help"
	default:
		return "unknown effect"
	}
}

// required reports whether a failure of the effect aborts the transition.
// Only channel creation is required; everything else is escalated and the
// transition proceeds.
func (e effect) required() bool {
	return e == effectOpenWorkspace
}

// plan is the outcome of a transition decision. Effects in before run ahead
// of the commit of next; effects in after run once next is stored.
type plan struct {
	next    model.AttendanceRecord
	before  []effect
	after   []effect
	event   model.EventKind
	hours   int64
	minutes int64
}

// decide is the attendance state machine. It performs no I/O.
func decide(rec model.AttendanceRecord, t trigger, now time.Time) (plan, error) {
	switch t {
	case triggerClockIn:
		if rec.ClockedIn() {
			return plan{}, ErrAlreadyClockedIn
		}
		return plan{
			next:   model.PendingReport(now),
			before: []effect{effectOpenWorkspace},
			after:  []effect{effectPostInstructions},
			event:  model.EventClockIn,
		}, nil

	case triggerClockOut:
		switch rec.State {
		case model.StateOut:
			return plan{}, ErrNotClockedIn
		case model.StatePendingReport:
			return plan{}, ErrReportRequired
		}
		h, m := model.Elapsed(now.Sub(rec.ClockInTime))
		return plan{
			next:    model.Out(),
			after:   []effect{effectCloseWorkspace},
			event:   model.EventClockOut,
			hours:   h,
			minutes: m,
		}, nil

	case triggerReport:
		if !rec.ClockedIn() {
			return plan{}, ErrNotClockedIn
		}
		return plan{
			next:  model.Ready(rec.ClockInTime),
			after: []effect{effectForwardReport, effectAnnounceReport, effectCloseWorkspace},
			event: model.EventReportDetected,
		}, nil

	case triggerBadReport:
		if !rec.ClockedIn() {
			return plan{}, ErrNotClockedIn
		}
		return plan{
			next:  rec,
			after: []effect{effectFormatHelp},
		}, nil

	case triggerReset:
		return plan{
			next:   model.Ready(now),
			before: []effect{effectCloseWorkspace, effectOpenWorkspace},
			after:  []effect{effectPostInstructions},
			event:  model.EventReset,
		}, nil
	}

	return plan{}, ErrGuardViolation
}
