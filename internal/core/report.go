package core

import (
	"strings"

	"attendance.service/internal/ports"
)

// ReportMarker must open every status report, case-sensitive.
const ReportMarker = "Status Report"

// ValidateReport accepts a message as a status report when it starts with
// ReportMarker and carries at least one attachment. It returns the report
// body without the marker.
func ValidateReport(msg ports.Message) (string, error) {
	if !strings.HasPrefix(msg.Content, ReportMarker) || len(msg.Attachments) < 1 {
		return "", ErrValidationRejected
	}
	return strings.TrimSpace(strings.TrimPrefix(msg.Content, ReportMarker)), nil
}
