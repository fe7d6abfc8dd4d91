package core

import (
	"errors"
	"fmt"
)

var (
	// ErrGuardViolation marks a request that is invalid for the user's
	// current state. It is a user mistake, not a system error.
	ErrGuardViolation = errors.New("guard violation")
	// ErrWorkspace is returned when a private channel could not be created or deleted.
	ErrWorkspace = errors.New("workspace error")
	// ErrValidationRejected is returned for a malformed status report.
	ErrValidationRejected = errors.New("report rejected")
	// ErrConfiguration is returned when a required channel or grouping is missing.
	ErrConfiguration = errors.New("configuration error")

	ErrAlreadyClockedIn = fmt.Errorf("%w: already clocked in", ErrGuardViolation)
	ErrNotClockedIn     = fmt.Errorf("%w: not clocked in", ErrGuardViolation)
	ErrReportRequired   = fmt.Errorf("%w: status report required", ErrGuardViolation)
	ErrNotAuthorized    = fmt.Errorf("%w: reset privilege required", ErrGuardViolation)
)

const (
	msgAlreadyClockedIn = "You are already clocked in!"
	msgNotClockedIn     = "Please clock in first!"
	msgReportRequired   = "%s, please submit a status report in your private status channel."
	msgNotAuthorized    = "You are not allowed to use /reset."
	msgFormatHelp       = "Please submit a valid Status Report starting with 'Status Report' (case sensitive) and including at least one attachment."
	msgConfiguration    = "Error: Category for private channels not found. Please contact an admin."
	msgWorkspace        = "Error creating your private status channel. Please contact an admin."
	msgGeneric          = "An error occurred. Please contact an admin."
)

// UserMessage maps an operation error to the short reply shown to the user.
func UserMessage(err error, mention string) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyClockedIn):
		return msgAlreadyClockedIn
	case errors.Is(err, ErrNotClockedIn):
		return msgNotClockedIn
	case errors.Is(err, ErrReportRequired):
		return fmt.Sprintf(msgReportRequired, mention)
	case errors.Is(err, ErrNotAuthorized):
		return msgNotAuthorized
	case errors.Is(err, ErrValidationRejected):
		return msgFormatHelp
	case errors.Is(err, ErrConfiguration):
		return msgConfiguration
	case errors.Is(err, ErrWorkspace):
		return msgWorkspace
	default:
		return msgGeneric
	}
}
