package messaging

import "attendance.service/internal/ports"

// EventTypeAttribute is the SQS message attribute carrying the audit kind,
// so consumers can filter without decoding the body.
const EventTypeAttribute = "EventType"

// AuditMessage is the JSON payload sent via SQS for the audit queue.
type AuditMessage struct {
	ports.AuditEvent
	Source string `json:"source"`
}
