package discord

import (
	"fmt"

	"attendance.service/internal/ports"
	"github.com/bwmarrin/discordgo"
)

func toUser(u *discordgo.User) ports.User {
	if u == nil {
		return ports.User{}
	}
	return ports.User{ID: u.ID, Name: u.Username}
}

func toChannel(ch *discordgo.Channel) ports.Channel {
	return ports.Channel{ID: ch.ID, Name: ch.Name, ParentID: ch.ParentID}
}

func toMessage(m *discordgo.Message) ports.Message {
	msg := ports.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Author:    toUser(m.Author),
		Content:   m.Content,
		JumpURL:   jumpURL(m.GuildID, m.ChannelID, m.ID),
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		msg.Attachments = append(msg.Attachments, ports.Attachment{
			Filename:    a.Filename,
			URL:         a.URL,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	return msg
}

// jumpURL links to a message. Direct messages use "@me" as the guild.
func jumpURL(guildID, channelID, messageID string) string {
	if guildID == "" {
		guildID = "@me"
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}

// interactionUser returns the invoking user of a guild or DM interaction.
func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
