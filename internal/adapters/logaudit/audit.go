package logaudit

import (
	"context"

	"attendance.service/internal/ports"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Log writes audit events as structured log lines.
type Log struct{}

var _ ports.AuditLog = Log{}

func (Log) Record(ctx context.Context, ev ports.AuditEvent) {
	log.Ctx(ctx).Info().
		Str("event_id", ev.ID).
		Str("kind", string(ev.Kind)).
		Str("user_id", ev.UserID).
		Str("user_name", ev.UserName).
		Time("at", ev.Timestamp).
		Dict("details", details(ev.Details)).
		Msg("Audit event")
}

func details(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}
