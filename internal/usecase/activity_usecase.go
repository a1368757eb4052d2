package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/c0dezer019/Presence/internal/model"
	"github.com/c0dezer019/Presence/internal/observability"
	"github.com/c0dezer019/Presence/internal/repository"
	"github.com/c0dezer019/Presence/internal/util"
	"go.uber.org/zap"
)

type ActivityUsecase struct {
	ActivityRepository *repository.ActivityRepository
	Log                *zap.Logger
	Settings           model.TrackingSettings
	locks              *keyedMutex
}

func NewActivityUsecase(activityRepository *repository.ActivityRepository, zap *zap.Logger, settings model.TrackingSettings) *ActivityUsecase {
	return &ActivityUsecase{
		ActivityRepository: activityRepository,
		Log:                zap,
		Settings:           settings,
		locks:              newKeyedMutex(),
	}
}

// RecordActivity marks the member active, refreshes its session marker and moves the guild's
// last-activity location. A lapsed session that nobody read is rolled up first.
func (usecase *ActivityUsecase) RecordActivity(ctx context.Context, event model.ActivityEvent) error {
	at := event.At.UTC()
	if at.IsZero() {
		at = time.Now().UTC()
	}
	timeout := usecase.Settings.IdleTimeout
	historyCap := usecase.Settings.HistoryCap

	unlock := usecase.locks.Lock(memberLockKey(event.GuildID, event.MemberID))
	defer unlock()

	_, err := RetryStore(ctx, usecase.Log, "RecordActivity", func(ctx context.Context) (struct{}, error) {
		err := usecase.ActivityRepository.MutateMember(ctx, event.GuildID, event.MemberID, func(state *repository.MemberState) (bool, error) {
			if !state.Exists {
				state.Member = model.NewMemberActivity(event.GuildID, model.MemberSeed{MemberID: event.MemberID, Name: event.MemberName}, at)
			} else if event.MemberName != "" {
				state.Member.Name = event.MemberName
			}

			member := &state.Member
			if at.Before(member.LastActivityAt) {
				return false, nil
			}

			lapsed := !state.HasSession() || !at.Before(state.Session)
			if member.Status == model.StatusActive && lapsed && !member.LastActivityAt.IsZero() {
				member.IdleStats.Rollup(at.Sub(member.LastActivityAt), historyCap)
			}

			member.Status = model.StatusActive
			member.LastActivityAt = at
			state.NewSession = at.Add(timeout)
			state.SessionTTL = timeout
			return true, nil
		})
		return struct{}{}, err
	})
	if err != nil {
		return err
	}

	guildUnlock := usecase.locks.Lock(guildLockKey(event.GuildID))
	defer guildUnlock()

	_, err = RetryStore(ctx, usecase.Log, "RecordGuildActivity", func(ctx context.Context) (struct{}, error) {
		err := usecase.ActivityRepository.MutateGuild(ctx, event.GuildID, func(state *repository.GuildState) (bool, error) {
			last := state.Stats.LastAct.Timestamp
			if at.Before(last) {
				return false, nil
			}

			if state.Meta.Status == model.StatusActive && !last.IsZero() && !at.Before(last.Add(timeout)) {
				state.Stats.IdleStats.Rollup(at.Sub(last), historyCap)
			}

			state.Meta.Status = model.StatusActive
			state.Stats.LastAct = model.LastActivity{
				ChannelID:   event.ChannelID,
				ChannelType: event.ChannelType,
				Timestamp:   at,
			}
			return true, nil
		})
		return struct{}{}, err
	})
	if err != nil {
		return err
	}

	observability.WithContext(ctx, usecase.Log).Debug("activity recorded",
		zap.String("guild_id", event.GuildID),
		zap.String("member_id", event.MemberID),
		zap.String("channel_id", event.ChannelID),
	)
	return nil
}

// ReadStatus reports whether the member is active at now. The first read after the session
// lapsed moves the member to idle and rolls the idle period into its stats.
func (usecase *ActivityUsecase) ReadStatus(ctx context.Context, guildID string, memberID string, now time.Time) (model.MemberStatus, error) {
	now = now.UTC()
	historyCap := usecase.Settings.HistoryCap

	unlock := usecase.locks.Lock(memberLockKey(guildID, memberID))
	defer unlock()

	return RetryStore(ctx, usecase.Log, "ReadStatus", func(ctx context.Context) (model.MemberStatus, error) {
		status := model.MemberStatus{GuildID: guildID, MemberID: memberID}

		err := usecase.ActivityRepository.MutateMember(ctx, guildID, memberID, func(state *repository.MemberState) (bool, error) {
			status = model.MemberStatus{GuildID: guildID, MemberID: memberID}
			if !state.Exists {
				return false, model.NewNotFound("ReadStatus", "member "+memberID)
			}

			member := &state.Member
			status.Name = member.Name

			if member.LastActivityAt.IsZero() {
				status.Status = model.StatusNew
				status.Rendered = renderStatus(member.Name, model.StatusNew, "")
				return false, nil
			}

			last := member.LastActivityAt
			status.LastActivityAt = &last

			if state.HasSession() && now.Before(state.Session) {
				status.Status = model.StatusActive
				status.Rendered = renderStatus(member.Name, model.StatusActive, "")
				return false, nil
			}

			idleFor, err := util.RenderIdleSince(last, now)
			if err != nil {
				return false, err
			}

			status.Status = model.StatusIdle
			status.IdleSeconds = int64(now.Sub(last) / time.Second)
			status.Rendered = renderStatus(member.Name, model.StatusIdle, idleFor)

			if member.Status != model.StatusActive {
				return false, nil
			}

			member.IdleStats.Rollup(now.Sub(last), historyCap)
			member.Status = model.StatusIdle
			state.ClearSession = true
			return true, nil
		})

		return status, err
	})
}

// ReadGuildStatus applies the member rules to the guild as a whole, using the guild's last
// recorded message as its activity.
func (usecase *ActivityUsecase) ReadGuildStatus(ctx context.Context, guildID string, now time.Time) (model.GuildStatus, error) {
	now = now.UTC()
	timeout := usecase.Settings.IdleTimeout
	historyCap := usecase.Settings.HistoryCap

	unlock := usecase.locks.Lock(guildLockKey(guildID))
	defer unlock()

	return RetryStore(ctx, usecase.Log, "ReadGuildStatus", func(ctx context.Context) (model.GuildStatus, error) {
		status := model.GuildStatus{GuildID: guildID}

		err := usecase.ActivityRepository.MutateGuild(ctx, guildID, func(state *repository.GuildState) (bool, error) {
			status = model.GuildStatus{GuildID: guildID, Name: state.Meta.Name}

			last := state.Stats.LastAct.Timestamp
			if last.IsZero() {
				status.Status = model.StatusNew
				status.Rendered = renderStatus(state.Meta.Name, model.StatusNew, "")
				return false, nil
			}

			lastAct := state.Stats.LastAct
			status.LastActivity = &lastAct

			if now.Before(last.Add(timeout)) {
				status.Status = model.StatusActive
				status.Rendered = renderStatus(state.Meta.Name, model.StatusActive, "")
				return false, nil
			}

			idleFor, err := util.RenderIdleSince(last, now)
			if err != nil {
				return false, err
			}

			status.Status = model.StatusIdle
			status.IdleSeconds = int64(now.Sub(last) / time.Second)
			status.Rendered = renderStatus(state.Meta.Name, model.StatusIdle, idleFor)

			if state.Meta.Status != model.StatusActive {
				return false, nil
			}

			state.Stats.IdleStats.Rollup(now.Sub(last), historyCap)
			state.Meta.Status = model.StatusIdle
			return true, nil
		})

		return status, err
	})
}

// BootstrapMember seeds the cache record for a member. An existing record only gets its name
// refreshed; the returned bool reports whether a new record was written.
func (usecase *ActivityUsecase) BootstrapMember(ctx context.Context, guildID string, seed model.MemberSeed) (bool, error) {
	unlock := usecase.locks.Lock(memberLockKey(guildID, seed.MemberID))
	defer unlock()

	return RetryStore(ctx, usecase.Log, "BootstrapMember", func(ctx context.Context) (bool, error) {
		written := false

		err := usecase.ActivityRepository.MutateMember(ctx, guildID, seed.MemberID, func(state *repository.MemberState) (bool, error) {
			written = false

			if state.Exists {
				if seed.Name == "" || seed.Name == state.Member.Name {
					return false, nil
				}
				state.Member.Name = seed.Name
				return true, nil
			}

			state.Member = model.NewMemberActivity(guildID, seed, time.Now())
			written = true
			return true, nil
		})

		return written, err
	})
}

// BootstrapGuild writes the guild's cache records unless they already exist.
func (usecase *ActivityUsecase) BootstrapGuild(ctx context.Context, guildID string, record model.GuildRecord) (bool, error) {
	unlock := usecase.locks.Lock(guildLockKey(guildID))
	defer unlock()

	meta, stats := model.NewGuildCache(guildID, record, time.Now())

	return RetryStore(ctx, usecase.Log, "BootstrapGuild", func(ctx context.Context) (bool, error) {
		return usecase.ActivityRepository.CreateGuildIfAbsent(ctx, meta, stats)
	})
}

func (usecase *ActivityUsecase) RenameMember(ctx context.Context, guildID string, memberID string, name string) error {
	unlock := usecase.locks.Lock(memberLockKey(guildID, memberID))
	defer unlock()

	_, err := RetryStore(ctx, usecase.Log, "RenameMember", func(ctx context.Context) (struct{}, error) {
		err := usecase.ActivityRepository.MutateMember(ctx, guildID, memberID, func(state *repository.MemberState) (bool, error) {
			if !state.Exists {
				return false, model.NewNotFound("RenameMember", "member "+memberID)
			}
			if state.Member.Name == name {
				return false, nil
			}
			state.Member.Name = name
			return true, nil
		})
		return struct{}{}, err
	})
	return err
}

func (usecase *ActivityUsecase) RenameGuild(ctx context.Context, guildID string, name string) error {
	unlock := usecase.locks.Lock(guildLockKey(guildID))
	defer unlock()

	_, err := RetryStore(ctx, usecase.Log, "RenameGuild", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, usecase.ActivityRepository.UpdateGuildMeta(ctx, guildID, map[string]any{"name": name})
	})
	return err
}

// GuildHealth reports, per guild, whether its cache records are present.
func (usecase *ActivityUsecase) GuildHealth(ctx context.Context, guildIDs []string) (map[string]bool, error) {
	health := make(map[string]bool, len(guildIDs))

	for _, guildID := range guildIDs {
		exists, err := RetryStore(ctx, usecase.Log, "GuildHealth", func(ctx context.Context) (bool, error) {
			return usecase.ActivityRepository.GuildExists(ctx, guildID)
		})
		if err != nil {
			return health, err
		}
		health[guildID] = exists

		if !exists {
			usecase.Log.Warn("guild missing from activity cache", zap.String("guild_id", guildID))
		}
	}

	return health, nil
}

func renderStatus(name string, status model.ActivityStatus, idleFor string) string {
	switch status {
	case model.StatusActive:
		return fmt.Sprintf("%s is currently active.", name)
	case model.StatusIdle:
		return fmt.Sprintf("Last activity for %s was performed %s ago.", name, idleFor)
	default:
		return fmt.Sprintf("I'm sorry, but %s has no recorded activity yet.", name)
	}
}

// Ping reports whether the activity cache answers, without retrying.
func (usecase *ActivityUsecase) Ping(ctx context.Context) error {
	return usecase.ActivityRepository.Ping(ctx)
}
