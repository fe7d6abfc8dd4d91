package discord

import (
	"context"

	"attendance.service/internal/ports"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// DMNotifier sends admin escalations as direct messages.
type DMNotifier struct {
	session *discordgo.Session
}

var _ ports.AdminNotifier = (*DMNotifier)(nil)

func NewDMNotifier(session *discordgo.Session) *DMNotifier {
	return &DMNotifier{session: session}
}

func (n *DMNotifier) Notify(ctx context.Context, adminUserID, text string) {
	l := log.Ctx(ctx).With().Str("admin_user_id", adminUserID).Logger()
	if adminUserID == "" {
		l.Warn().Str("text", text).Msg("No admin configured, notification dropped")
		return
	}

	ch, err := n.session.UserChannelCreate(adminUserID, discordgo.WithContext(ctx))
	if err != nil {
		l.Error().Err(err).Str("text", text).Msg("Failed to open DM channel with admin")
		return
	}
	if _, err := n.session.ChannelMessageSend(ch.ID, truncate(text, maxMessageLength), discordgo.WithContext(ctx)); err != nil {
		l.Error().Err(err).Str("text", text).Msg("Failed to DM admin")
	}
}
