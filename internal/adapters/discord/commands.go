package discord

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
)

// Commands returns the guild slash commands of the bot.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CheckStateCommand,
			Description: "Check clock-in state",
		},
		{
			Name:        ResetCommand,
			Description: "Reset and clock in a user, bypassing status report requirement for this session",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user to reset and clock in (mention or ID)",
					Required:    true,
				},
			},
		},
	}
}

// RegisterCommands replaces the guild's slash commands with Commands().
func (g *Gateway) RegisterCommands(ctx context.Context) (int, error) {
	appID := g.botID()
	if appID == "" {
		return 0, errors.New("session has no bot user yet")
	}
	cmds, err := g.session.ApplicationCommandBulkOverwrite(appID, g.guildID, Commands(), discordgo.WithContext(ctx))
	if err != nil {
		return 0, translate(err)
	}
	return len(cmds), nil
}
