package discord

import (
	"fmt"
	"strings"

	"github.com/c0dezer019/Presence/internal/model"

	"github.com/bwmarrin/discordgo"
)

// shouldTrack drops DMs, bot authors and prefixed commands.
func shouldTrack(m *discordgo.MessageCreate, prefixes []string) bool {
	if m.Message == nil || m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return false
	}

	for _, prefix := range prefixes {
		if strings.HasPrefix(m.Content, prefix) {
			return false
		}
	}
	return true
}

func activityEvent(m *discordgo.MessageCreate, channelType discordgo.ChannelType) model.ActivityEvent {
	nick := ""
	if m.Member != nil {
		nick = m.Member.Nick
	}

	return model.ActivityEvent{
		GuildID:     m.GuildID,
		MemberID:    m.Author.ID,
		MemberName:  displayName(nick, m.Author),
		ChannelID:   m.ChannelID,
		ChannelType: channelTypeName(channelType),
		At:          m.Timestamp,
	}
}

func channelTypeName(channelType discordgo.ChannelType) string {
	switch channelType {
	case discordgo.ChannelTypeGuildText:
		return "text"
	case discordgo.ChannelTypeGuildVoice:
		return "voice"
	case discordgo.ChannelTypeGuildNews:
		return "news"
	case discordgo.ChannelTypeGuildStageVoice:
		return "stage_voice"
	case discordgo.ChannelTypeGuildForum:
		return "forum"
	case discordgo.ChannelTypeGuildNewsThread:
		return "news_thread"
	case discordgo.ChannelTypeGuildPublicThread:
		return "public_thread"
	case discordgo.ChannelTypeGuildPrivateThread:
		return "private_thread"
	default:
		return fmt.Sprintf("type_%d", channelType)
	}
}

// displayName is the name a member shows as: nickname, then global name, then username.
func displayName(nick string, user *discordgo.User) string {
	if nick != "" {
		return nick
	}
	if user == nil {
		return ""
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}

func guildMember(member *discordgo.Member) model.GuildMember {
	return model.GuildMember{
		MemberID:    member.User.ID,
		DisplayName: displayName("", member.User),
		Nickname:    member.Nick,
		IsBot:       member.User.Bot,
	}
}

func guildMembers(members []*discordgo.Member) []model.GuildMember {
	result := make([]model.GuildMember, 0, len(members))
	for _, member := range members {
		if member == nil || member.User == nil {
			continue
		}
		result = append(result, guildMember(member))
	}
	return result
}

func memberRename(m *discordgo.GuildMemberUpdate) (model.MemberRename, bool) {
	if m.BeforeUpdate.Nick == m.Nick {
		return model.MemberRename{}, false
	}

	return model.MemberRename{
		GuildID:     m.GuildID,
		MemberID:    m.User.ID,
		OldNick:     m.BeforeUpdate.Nick,
		NewNick:     m.Nick,
		DisplayName: displayName("", m.User),
	}, true
}

func userRename(m *discordgo.GuildMemberUpdate) (model.UserRename, bool) {
	before := m.BeforeUpdate.User
	if before == nil || before.Username == m.User.Username {
		return model.UserRename{}, false
	}

	return model.UserRename{
		GuildID:     m.GuildID,
		MemberID:    m.User.ID,
		OldName:     before.Username,
		NewName:     m.User.Username,
		DisplayName: displayName(m.Nick, m.User),
	}, true
}

func notificationMessage(notification *model.SyncNotification) string {
	return fmt.Sprintf(
		"I could not sync `%s` with my records (status %d). Please try again later or alert my owner.",
		notification.Operation, notification.StatusCode,
	)
}
