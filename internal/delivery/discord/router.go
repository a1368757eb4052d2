package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/c0dezer019/Presence/internal/model"
	"github.com/c0dezer019/Presence/internal/usecase"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	eventTimeout     = 30 * time.Second
	bootstrapTimeout = 5 * time.Minute
)

// Router turns gateway events into activity and sync calls.
type Router struct {
	Session         *discordgo.Session
	ActivityUsecase *usecase.ActivityUsecase
	SyncUsecase     *usecase.SyncUsecase
	Log             *zap.Logger
	Settings        model.TrackingSettings
}

func NewRouter(session *discordgo.Session, activityUsecase *usecase.ActivityUsecase, syncUsecase *usecase.SyncUsecase, zap *zap.Logger, settings model.TrackingSettings) *Router {
	return &Router{
		Session:         session,
		ActivityUsecase: activityUsecase,
		SyncUsecase:     syncUsecase,
		Log:             zap,
		Settings:        settings,
	}
}

func (router *Router) Handlers() {
	router.Session.AddHandler(router.onReady)
	router.Session.AddHandler(router.onMessageCreate)
	router.Session.AddHandler(router.onGuildCreate)
	router.Session.AddHandler(router.onGuildUpdate)
	router.Session.AddHandler(router.onGuildDelete)
	router.Session.AddHandler(router.onMemberAdd)
	router.Session.AddHandler(router.onMemberRemove)
	router.Session.AddHandler(router.onMemberUpdate)
	router.Session.AddHandler(router.onInteraction)
}

// Register creates the global slash commands. The session must be open.
func (router *Router) Register() error {
	appID := router.Session.State.User.ID
	for _, cmd := range Commands {
		_, err := router.Session.ApplicationCommandCreate(appID, "", cmd)
		if err != nil {
			return fmt.Errorf("register /%s: %w", cmd.Name, err)
		}
	}
	return nil
}

func (router *Router) guard(event string, guildID string) {
	if rec := recover(); rec != nil {
		router.Log.Error("panic in discord handler",
			zap.String("event", event),
			zap.String("guild_id", guildID),
			zap.Any("panic", rec),
		)
	}
}

func (router *Router) onReady(s *discordgo.Session, r *discordgo.Ready) {
	defer router.guard("READY", "")

	ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancel()

	guildIDs := make([]string, 0, len(r.Guilds))
	for _, g := range r.Guilds {
		guildIDs = append(guildIDs, g.ID)
	}

	router.Log.Info("connected to discord",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(guildIDs)),
	)

	unknown, err := router.SyncUsecase.Rehydrate(ctx, guildIDs)
	if err != nil {
		router.Log.Error("failed to rehydrate activity cache", zap.Error(err))
	}
	if len(unknown) > 0 {
		router.Log.Info("guilds unknown to the remote store, waiting for their guild create",
			zap.Strings("guild_ids", unknown))
	}

	err = s.UpdateGameStatus(0, "Got idle?")
	if err != nil {
		router.Log.Warn("failed to update presence", zap.Error(err))
	}
}

func (router *Router) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !shouldTrack(m, router.Settings.CommandPrefixes) {
		return
	}
	defer router.guard("MESSAGE_CREATE", m.GuildID)

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	channelType := discordgo.ChannelTypeGuildText
	if ch, err := s.State.Channel(m.ChannelID); err == nil {
		channelType = ch.Type
	}

	err := router.ActivityUsecase.RecordActivity(ctx, activityEvent(m, channelType))
	if err != nil {
		router.logFailure("record activity", m.GuildID, err, zap.String("member_id", m.Author.ID))
	}
}

// onGuildCreate also fires for every guild on connect. Guilds already in the cache were handled
// by Rehydrate.
func (router *Router) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	defer router.guard("GUILD_CREATE", g.ID)

	ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancel()

	health, err := router.ActivityUsecase.GuildHealth(ctx, []string{g.ID})
	if err != nil {
		router.logFailure("check guild health", g.ID, err)
		return
	}
	if health[g.ID] {
		return
	}

	report, err := router.SyncUsecase.GuildJoined(ctx, g.ID, g.Name, guildMembers(g.Members))
	if err != nil {
		router.logFailure("bootstrap guild", g.ID, err)
		return
	}

	for i := range report.Failures {
		router.notify(s, &report.Failures[i])
	}
}

func (router *Router) onGuildUpdate(s *discordgo.Session, g *discordgo.GuildUpdate) {
	if g.Guild == nil {
		return
	}
	defer router.guard("GUILD_UPDATE", g.ID)

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	notification, err := router.SyncUsecase.GuildRenamed(ctx, g.ID, "", g.Name)
	if err != nil {
		router.logFailure("rename guild", g.ID, err)
		return
	}
	router.notify(s, notification)
}

// An unavailable guild is an outage, not a removal.
func (router *Router) onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	defer router.guard("GUILD_DELETE", g.ID)

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	notification := router.SyncUsecase.GuildRemoved(ctx, g.ID)
	if notification != nil {
		router.Log.Warn("guild removal not synced",
			zap.String("guild_id", g.ID),
			zap.Int("status_code", notification.StatusCode),
		)
	}
}

func (router *Router) onMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil {
		return
	}
	defer router.guard("GUILD_MEMBER_ADD", m.GuildID)

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	notification, err := router.SyncUsecase.MemberJoined(ctx, m.GuildID, guildMember(m.Member))
	if err != nil {
		router.logFailure("bootstrap member", m.GuildID, err, zap.String("member_id", m.User.ID))
		return
	}
	router.notify(s, notification)
}

func (router *Router) onMemberRemove(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.Member == nil || m.User == nil || m.User.Bot {
		return
	}
	defer router.guard("GUILD_MEMBER_REMOVE", m.GuildID)

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	notification, err := router.SyncUsecase.MemberLeft(ctx, m.GuildID, m.User.ID)
	if err != nil {
		router.logFailure("queue member purge", m.GuildID, err, zap.String("member_id", m.User.ID))
		return
	}
	router.notify(s, notification)
}

// onMemberUpdate needs the cached member from before the update. Without it there is nothing
// to compare and the event is dropped.
func (router *Router) onMemberUpdate(s *discordgo.Session, m *discordgo.GuildMemberUpdate) {
	if m.Member == nil || m.User == nil || m.User.Bot || m.BeforeUpdate == nil {
		return
	}
	defer router.guard("GUILD_MEMBER_UPDATE", m.GuildID)

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	if rename, ok := memberRename(m); ok {
		notification, err := router.SyncUsecase.MemberRenamed(ctx, rename)
		if err != nil {
			router.logFailure("rename member", m.GuildID, err, zap.String("member_id", m.User.ID))
		}
		router.notify(s, notification)
	}

	if rename, ok := userRename(m); ok {
		notification, err := router.SyncUsecase.UserRenamed(ctx, rename)
		if err != nil {
			router.logFailure("rename user", m.GuildID, err, zap.String("member_id", m.User.ID))
		}
		router.notify(s, notification)
	}
}

// notify relays a sync failure to the guild's system channel, when it has one.
func (router *Router) notify(s *discordgo.Session, notification *model.SyncNotification) {
	if notification == nil {
		return
	}

	guild, err := s.State.Guild(notification.GuildID)
	if err != nil || guild.SystemChannelID == "" {
		router.Log.Warn("no system channel for sync notification",
			zap.String("guild_id", notification.GuildID),
			zap.String("operation", notification.Operation),
		)
		return
	}

	_, err = s.ChannelMessageSend(guild.SystemChannelID, notificationMessage(notification))
	if err != nil {
		router.Log.Warn("failed to send sync notification", zap.String("guild_id", notification.GuildID), zap.Error(err))
	}
}

func (router *Router) logFailure(action string, guildID string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("guild_id", guildID), zap.Error(err))
	if errors.Is(err, model.ErrStoreUnavailable) {
		router.Log.Error("activity cache unavailable, failed to "+action, fields...)
		return
	}
	router.Log.Warn("failed to "+action, fields...)
}
