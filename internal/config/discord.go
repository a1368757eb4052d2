package config

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func NewDiscord(token string, log *zap.Logger) *discordgo.Session {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		log.Fatal("failed to create discord session", zap.Error(err))
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
	session.StateEnabled = true

	return session
}
