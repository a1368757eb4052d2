package discord

import (
	"context"
	"errors"
	"time"

	"github.com/c0dezer019/Presence/internal/model"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "status",
		Description: "Idle status of a member or of the guild",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "member",
				Description: "Returns idle time of the specified member",
				Options: []*discordgo.ApplicationCommandOption{{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "Member to look up, yourself when omitted",
				}},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "guild",
				Description: "Returns the idle time of the guild",
			},
		},
	},
}

func (router *Router) onInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic.Type != discordgo.InteractionApplicationCommand || ic.GuildID == "" {
		return
	}
	data := ic.ApplicationCommandData()
	if data.Name != "status" || len(data.Options) == 0 {
		return
	}
	defer router.guard("INTERACTION_CREATE", ic.GuildID)

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	var reply string
	switch sub := data.Options[0]; sub.Name {
	case "member":
		memberID := ic.Member.User.ID
		for _, opt := range sub.Options {
			if opt.Name == "member" {
				memberID = opt.UserValue(nil).ID
			}
		}
		reply = router.memberStatusReply(ctx, ic.GuildID, memberID)
	case "guild":
		reply = router.guildStatusReply(ctx, ic.GuildID)
	default:
		return
	}

	err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: reply},
	})
	if err != nil {
		router.Log.Warn("failed to reply to status command", zap.String("guild_id", ic.GuildID), zap.Error(err))
	}
}

func (router *Router) memberStatusReply(ctx context.Context, guildID string, memberID string) string {
	status, err := router.ActivityUsecase.ReadStatus(ctx, guildID, memberID, time.Now())
	if err != nil {
		return router.failureReply(guildID, err, "I have no record of <@"+memberID+"> yet.")
	}
	return status.Rendered
}

func (router *Router) guildStatusReply(ctx context.Context, guildID string) string {
	status, err := router.ActivityUsecase.ReadGuildStatus(ctx, guildID, time.Now())
	if err != nil {
		return router.failureReply(guildID, err, "This guild has not been set up yet.")
	}
	return status.Rendered
}

func (router *Router) failureReply(guildID string, err error, notFound string) string {
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrGuildNotBootstrapped) {
		return notFound
	}

	router.logFailure("read status", guildID, err)
	return "I have encountered an error but do not worry, I will alert my owner."
}
