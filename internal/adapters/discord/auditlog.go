package discord

import (
	"context"
	"fmt"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports"
	"github.com/rs/zerolog/log"
)

// ChannelAuditLog writes one human-readable line per audit event to the log channel.
type ChannelAuditLog struct {
	gateway   ports.ChatGateway
	channelID string
	loc       *time.Location
}

var _ ports.AuditLog = (*ChannelAuditLog)(nil)

func NewChannelAuditLog(gateway ports.ChatGateway, channelID string, loc *time.Location) *ChannelAuditLog {
	if loc == nil {
		loc = time.UTC
	}
	return &ChannelAuditLog{gateway: gateway, channelID: channelID, loc: loc}
}

func (l *ChannelAuditLog) Record(ctx context.Context, ev ports.AuditEvent) {
	if l.channelID == "" {
		return
	}
	if _, err := l.gateway.SendMessage(ctx, l.channelID, FormatAuditLine(ev, l.loc), nil); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("event_id", ev.ID).Str("kind", string(ev.Kind)).Msg("Failed to write audit line to log channel")
	}
}

// FormatAuditLine renders ev the way it appears in the log channel, with
// times in loc, e.g. "<@42> clocked in (2024-03-01) (09:15:00 AM CST)".
func FormatAuditLine(ev ports.AuditEvent, loc *time.Location) string {
	t := ev.Timestamp.In(loc)
	when := fmt.Sprintf("(%s) (%s)", t.Format("2006-01-02"), t.Format("03:04:05 PM MST"))
	mention := ports.User{ID: ev.UserID}.Mention()
	d := ev.Details

	switch ev.Kind {
	case model.EventClockIn:
		return fmt.Sprintf("%s clocked in %s", mention, when)
	case model.EventClockOut:
		return fmt.Sprintf("%s clocked out %s (%s hours) (%s minutes)", mention, when, d["hours"], d["minutes"])
	case model.EventReportDetected:
		return fmt.Sprintf("Status Report detected from %s (ID: %s) at %s with %s attachment(s): %s",
			ev.UserName, ev.UserID, when, d["attachments"], d["content"])
	case model.EventWorkspaceDeleted:
		if e, failed := d["error"]; failed {
			return fmt.Sprintf("Failed to delete private channel %s for %s (ID: %s) in category %s at %s: %s",
				d["channel"], ev.UserName, ev.UserID, d["category"], when, e)
		}
		return fmt.Sprintf("Private channel %s for %s (ID: %s) in category %s deleted at %s",
			d["channel"], ev.UserName, ev.UserID, d["category"], when)
	case model.EventReset:
		return fmt.Sprintf("%s clocked in via /reset (no report required) by %s at %s", mention, d["by"], when)
	case model.EventStartup:
		return fmt.Sprintf("Bot %s is online at %s", ev.UserName, when)
	}
	return fmt.Sprintf("%s %s %s", ev.Kind, mention, when)
}
