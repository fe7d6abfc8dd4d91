package core

import (
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports"
	"github.com/google/uuid"
)

func newAuditEvent(kind model.EventKind, user ports.User, at time.Time, details map[string]string) ports.AuditEvent {
	return ports.AuditEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		UserID:    user.ID,
		UserName:  user.Name,
		Timestamp: at,
		Details:   details,
	}
}

// StartupEvent is recorded once the bot is connected and announced.
func StartupEvent(bot ports.User, at time.Time) ports.AuditEvent {
	return newAuditEvent(model.EventStartup, bot, at, nil)
}
