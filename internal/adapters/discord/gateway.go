package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"attendance.service/internal/ports"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// maxMessageLength is Discord's limit for message content.
const maxMessageLength = 2000

// maxAttachmentSize caps re-uploaded attachments (the non-boosted guild limit).
const maxAttachmentSize = 25 << 20

// Gateway implements ports.ChatGateway on a discordgo session.
type Gateway struct {
	session *discordgo.Session
	guildID string
	http    *http.Client
}

var _ ports.ChatGateway = (*Gateway)(nil)

func NewGateway(session *discordgo.Session, guildID string) *Gateway {
	return &Gateway{
		session: session,
		guildID: guildID,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SendMessage posts text to a channel. Attachments are downloaded from their
// URLs and uploaded again so they outlive the source channel.
func (g *Gateway) SendMessage(ctx context.Context, channelID, text string, attachments []ports.Attachment) (ports.MessageHandle, error) {
	data := &discordgo.MessageSend{
		Content: truncate(text, maxMessageLength),
	}

	for _, a := range attachments {
		f, err := g.download(ctx, a)
		if err != nil {
			return ports.MessageHandle{}, fmt.Errorf("downloading attachment %s: %w", a.Filename, err)
		}
		data.Files = append(data.Files, f)
	}

	m, err := g.session.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(ctx))
	if err != nil {
		return ports.MessageHandle{}, translate(err)
	}
	return ports.MessageHandle{ID: m.ID, ChannelID: m.ChannelID}, nil
}

// PostControls posts text followed by the clock in and clock out buttons.
func (g *Gateway) PostControls(ctx context.Context, channelID, text string) (ports.MessageHandle, error) {
	data := &discordgo.MessageSend{
		Content: truncate(text, maxMessageLength),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{Label: "Clock In", Style: discordgo.SuccessButton, CustomID: ClockInButtonID},
					discordgo.Button{Label: "Clock Out", Style: discordgo.DangerButton, CustomID: ClockOutButtonID},
				},
			},
		},
	}
	m, err := g.session.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(ctx))
	if err != nil {
		return ports.MessageHandle{}, translate(err)
	}
	return ports.MessageHandle{ID: m.ID, ChannelID: m.ChannelID}, nil
}

// CreatePrivateChannel creates a text channel under parentID that only the
// allowed user and the bot can see.
func (g *Gateway) CreatePrivateChannel(ctx context.Context, parentID, name, allowedUserID string) (ports.Channel, error) {
	if _, err := g.category(ctx, parentID); err != nil {
		return ports.Channel{}, err
	}

	ch, err := g.session.GuildChannelCreateComplex(g.guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             parentID,
		PermissionOverwrites: privateOverwrites(g.guildID, allowedUserID, g.botID()),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return ports.Channel{}, translate(err)
	}
	return toChannel(ch), nil
}

func (g *Gateway) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := g.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return translate(err)
}

func (g *Gateway) FetchUser(ctx context.Context, userID string) (*ports.User, error) {
	u, err := g.session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		if err = translate(err); errors.Is(err, ports.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	pu := toUser(u)
	return &pu, nil
}

func (g *Gateway) ListChildChannels(ctx context.Context, parentID string) ([]ports.Channel, error) {
	if _, err := g.category(ctx, parentID); err != nil {
		return nil, err
	}
	all, err := g.session.GuildChannels(g.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	var out []ports.Channel
	for _, ch := range all {
		if ch.ParentID == parentID {
			out = append(out, toChannel(ch))
		}
	}
	return out, nil
}

// ChannelExists reports whether the bot can see the channel.
func (g *Gateway) ChannelExists(ctx context.Context, channelID string) (bool, error) {
	if channelID == "" {
		return false, nil
	}
	_, err := g.session.Channel(channelID, discordgo.WithContext(ctx))
	if err == nil {
		return true, nil
	}
	if err = translate(err); errors.Is(err, ports.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// category fetches parentID and checks that it is a category of this guild.
func (g *Gateway) category(ctx context.Context, parentID string) (*discordgo.Channel, error) {
	ch, err := g.session.Channel(parentID, discordgo.WithContext(ctx))
	if err != nil {
		err = translate(err)
		if errors.Is(err, ports.ErrNotFound) {
			return nil, fmt.Errorf("category %s: %w", parentID, ports.ErrParentNotFound)
		}
		return nil, err
	}
	if ch.Type != discordgo.ChannelTypeGuildCategory || ch.GuildID != g.guildID {
		return nil, fmt.Errorf("channel %s is not a category of guild %s: %w", parentID, g.guildID, ports.ErrParentNotFound)
	}
	return ch, nil
}

func (g *Gateway) botID() string {
	if g.session.State != nil && g.session.State.User != nil {
		return g.session.State.User.ID
	}
	return ""
}

func (g *Gateway) download(ctx context.Context, a ports.Attachment) (*discordgo.File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxAttachmentSize {
		return nil, fmt.Errorf("attachment larger than %d bytes", maxAttachmentSize)
	}

	log.Ctx(ctx).Debug().Str("filename", a.Filename).Int("bytes", len(body)).Msg("Attachment downloaded")
	return &discordgo.File{
		Name:        a.Filename,
		ContentType: a.ContentType,
		Reader:      bytes.NewReader(body),
	}, nil
}

// privateOverwrites hides the channel from @everyone and opens it to the
// user and the bot. The @everyone role shares the guild's id.
func privateOverwrites(guildID, userID, botID string) []*discordgo.PermissionOverwrite {
	member := int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages |
		discordgo.PermissionAttachFiles | discordgo.PermissionReadMessageHistory)

	out := []*discordgo.PermissionOverwrite{
		{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: userID, Type: discordgo.PermissionOverwriteTypeMember, Allow: member},
	}
	if botID != "" {
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    botID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: member | discordgo.PermissionManageChannels,
		})
	}
	return out
}

// translate maps Discord's 404 responses onto ports.ErrNotFound.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Response != nil && rerr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ports.ErrNotFound, err)
	}
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
