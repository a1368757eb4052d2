package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/c0dezer019/Presence/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const maxTxRetries = 5

func GuildMetaKey(guildID string) string {
	return fmt.Sprintf("guild:%s:meta", guildID)
}

func GuildStatsKey(guildID string) string {
	return fmt.Sprintf("guild:%s:stats", guildID)
}

func GuildMembersKey(guildID string) string {
	return fmt.Sprintf("guild:%s:members", guildID)
}

func GuildMemberKey(guildID string, memberID string) string {
	return fmt.Sprintf("guild:%s:member:%s", guildID, memberID)
}

func MemberMetaKey(memberID string, guildID string) string {
	return fmt.Sprintf("member:%s:%s:meta", memberID, guildID)
}

func SessionKey(memberID string, guildID string) string {
	return fmt.Sprintf("session:%s:%s:expires_at", memberID, guildID)
}

// MemberState is handed to MutateMember. The callback edits Member and the session fields;
// the repository persists them in one MULTI/EXEC.
type MemberState struct {
	Member  model.MemberActivity
	Exists  bool
	Session time.Time

	// Set NewSession to store a marker expiring at that instant with SessionTTL,
	// or ClearSession to drop it.
	NewSession   time.Time
	SessionTTL   time.Duration
	ClearSession bool
}

func (s *MemberState) HasSession() bool {
	return !s.Session.IsZero()
}

type GuildState struct {
	Meta  model.GuildMeta
	Stats model.GuildStats
}

type ActivityRepository struct {
	Log     *zap.Logger
	DBCache *redis.Client
}

func NewActivityRepository(zap *zap.Logger, dbCache *redis.Client) *ActivityRepository {
	return &ActivityRepository{
		Log:     zap,
		DBCache: dbCache,
	}
}

func (repository *ActivityRepository) Ping(ctx context.Context) error {
	err := repository.DBCache.Ping(ctx).Err()
	if err != nil {
		return model.NewStoreUnavailable("PING", err)
	}
	return nil
}

func (repository *ActivityRepository) GuildExists(ctx context.Context, guildID string) (bool, error) {
	count, err := repository.DBCache.Exists(ctx, GuildMetaKey(guildID)).Result()
	if err != nil {
		return false, model.NewStoreUnavailable("EXISTS", err)
	}
	return count == 1, nil
}

// CreateGuildIfAbsent writes meta and stats only when the meta key does not exist yet.
func (repository *ActivityRepository) CreateGuildIfAbsent(ctx context.Context, meta model.GuildMeta, stats model.GuildStats) (bool, error) {
	metaKey := GuildMetaKey(meta.GuildID)

	metaHash, err := meta.ToHash()
	if err != nil {
		return false, err
	}
	statsHash, err := stats.ToHash()
	if err != nil {
		return false, err
	}

	written := false
	err = repository.transact(ctx, func(tx *redis.Tx) error {
		written = false

		count, err := tx.Exists(ctx, metaKey).Result()
		if err != nil {
			return err
		}
		if count == 1 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, metaKey, metaHash)
			pipe.HSet(ctx, GuildStatsKey(meta.GuildID), statsHash)
			return nil
		})
		if err != nil {
			return err
		}

		written = true
		return nil
	}, metaKey)

	return written, err
}

func (repository *ActivityRepository) GetGuildMeta(ctx context.Context, guildID string) (model.GuildMeta, error) {
	hash, err := repository.DBCache.HGetAll(ctx, GuildMetaKey(guildID)).Result()
	if err != nil {
		return model.GuildMeta{}, model.NewStoreUnavailable("HGETALL", err)
	}
	if len(hash) == 0 {
		return model.GuildMeta{}, model.NewNotFound("GetGuildMeta", "guild "+guildID)
	}

	meta, err := model.ParseGuildMeta(hash)
	if err != nil {
		return meta, model.NewCorruptRecord(GuildMetaKey(guildID), err)
	}
	return meta, nil
}

func (repository *ActivityRepository) GetGuildStats(ctx context.Context, guildID string) (model.GuildStats, error) {
	hash, err := repository.DBCache.HGetAll(ctx, GuildStatsKey(guildID)).Result()
	if err != nil {
		return model.GuildStats{}, model.NewStoreUnavailable("HGETALL", err)
	}

	stats, err := model.ParseGuildStats(hash)
	if err != nil {
		return stats, model.NewCorruptRecord(GuildStatsKey(guildID), err)
	}
	return stats, nil
}

// UpdateGuildMeta sets the given meta fields on an existing guild.
func (repository *ActivityRepository) UpdateGuildMeta(ctx context.Context, guildID string, fields map[string]any) error {
	metaKey := GuildMetaKey(guildID)

	return repository.transact(ctx, func(tx *redis.Tx) error {
		count, err := tx.Exists(ctx, metaKey).Result()
		if err != nil {
			return err
		}
		if count == 0 {
			return model.NewGuildNotBootstrapped(guildID)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, metaKey, fields)
			return nil
		})
		return err
	}, metaKey)
}

// MutateGuild loads meta and stats under WATCH, lets fn edit them and writes both back when
// fn reports a change.
func (repository *ActivityRepository) MutateGuild(ctx context.Context, guildID string, fn func(state *GuildState) (bool, error)) error {
	metaKey := GuildMetaKey(guildID)
	statsKey := GuildStatsKey(guildID)

	return repository.transact(ctx, func(tx *redis.Tx) error {
		metaRaw, err := tx.HGetAll(ctx, metaKey).Result()
		if err != nil {
			return err
		}
		if len(metaRaw) == 0 {
			return model.NewGuildNotBootstrapped(guildID)
		}

		statsRaw, err := tx.HGetAll(ctx, statsKey).Result()
		if err != nil {
			return err
		}

		state := GuildState{}
		state.Meta, err = model.ParseGuildMeta(metaRaw)
		if err != nil {
			return model.NewCorruptRecord(metaKey, err)
		}
		state.Stats, err = model.ParseGuildStats(statsRaw)
		if err != nil {
			return model.NewCorruptRecord(statsKey, err)
		}

		changed, err := fn(&state)
		if err != nil || !changed {
			return err
		}

		metaHash, err := state.Meta.ToHash()
		if err != nil {
			return err
		}
		statsHash, err := state.Stats.ToHash()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, metaKey, metaHash)
			pipe.HSet(ctx, statsKey, statsHash)
			return nil
		})
		return err
	}, metaKey, statsKey)
}

func (repository *ActivityRepository) GetMember(ctx context.Context, guildID string, memberID string) (model.MemberActivity, error) {
	hash, err := repository.DBCache.HGetAll(ctx, GuildMemberKey(guildID, memberID)).Result()
	if err != nil {
		return model.MemberActivity{}, model.NewStoreUnavailable("HGETALL", err)
	}
	if len(hash) == 0 {
		return model.MemberActivity{}, model.NewNotFound("GetMember", "member "+memberID)
	}

	member, err := model.ParseMemberActivity(hash)
	if err != nil {
		return member, model.NewCorruptRecord(GuildMemberKey(guildID, memberID), err)
	}
	return member, nil
}

func (repository *ActivityRepository) IsGuildMember(ctx context.Context, guildID string, memberID string) (bool, error) {
	isMember, err := repository.DBCache.SIsMember(ctx, GuildMembersKey(guildID), memberID).Result()
	if err != nil {
		return false, model.NewStoreUnavailable("SISMEMBER", err)
	}
	return isMember, nil
}

func (repository *ActivityRepository) GetGuildMemberIDs(ctx context.Context, guildID string) ([]string, error) {
	ids, err := repository.DBCache.SMembers(ctx, GuildMembersKey(guildID)).Result()
	if err != nil {
		return nil, model.NewStoreUnavailable("SMEMBERS", err)
	}
	return ids, nil
}

// MutateMember loads the member hash and its session marker under WATCH and persists the
// callback's edits atomically. The guild must already be in the cache.
func (repository *ActivityRepository) MutateMember(ctx context.Context, guildID string, memberID string, fn func(state *MemberState) (bool, error)) error {
	metaKey := GuildMetaKey(guildID)
	memberKey := GuildMemberKey(guildID, memberID)
	sessionKey := SessionKey(memberID, guildID)

	return repository.transact(ctx, func(tx *redis.Tx) error {
		guildCount, err := tx.Exists(ctx, metaKey).Result()
		if err != nil {
			return err
		}
		if guildCount == 0 {
			return model.NewGuildNotBootstrapped(guildID)
		}

		hash, err := tx.HGetAll(ctx, memberKey).Result()
		if err != nil {
			return err
		}

		state := MemberState{Exists: len(hash) > 0}
		if state.Exists {
			state.Member, err = model.ParseMemberActivity(hash)
			if err != nil {
				return model.NewCorruptRecord(memberKey, err)
			}
		}

		rawSession, err := tx.Get(ctx, sessionKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if rawSession != "" {
			state.Session, err = time.Parse(time.RFC3339Nano, rawSession)
			if err != nil {
				repository.Log.Warn("discarding malformed session marker", zap.String("key", sessionKey), zap.Error(err))
				state.Session = time.Time{}
			}
		}

		changed, err := fn(&state)
		if err != nil || !changed {
			return err
		}

		state.Member.GuildID = guildID
		state.Member.MemberID = memberID
		memberHash, err := state.Member.ToHash()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, memberKey, memberHash)
			pipe.SAdd(ctx, GuildMembersKey(guildID), memberID)

			if !state.NewSession.IsZero() {
				pipe.Set(ctx, sessionKey, state.NewSession.UTC().Format(time.RFC3339Nano), state.SessionTTL)
			} else if state.ClearSession {
				pipe.Del(ctx, sessionKey)
			}
			return nil
		})
		return err
	}, metaKey, memberKey, sessionKey)
}

func (repository *ActivityRepository) SetMemberSyncMeta(ctx context.Context, guildID string, memberID string, meta model.MemberSyncMeta) error {
	err := repository.DBCache.HSet(ctx, MemberMetaKey(memberID, guildID), meta.ToHash()).Err()
	if err != nil {
		return model.NewStoreUnavailable("HSET", err)
	}
	return nil
}

func (repository *ActivityRepository) GetMemberSyncMeta(ctx context.Context, guildID string, memberID string) (model.MemberSyncMeta, error) {
	hash, err := repository.DBCache.HGetAll(ctx, MemberMetaKey(memberID, guildID)).Result()
	if err != nil {
		return model.MemberSyncMeta{}, model.NewStoreUnavailable("HGETALL", err)
	}
	if len(hash) == 0 {
		return model.MemberSyncMeta{}, model.NewNotFound("GetMemberSyncMeta", "member "+memberID)
	}

	meta, err := model.ParseMemberSyncMeta(hash)
	if err != nil {
		return meta, model.NewCorruptRecord(MemberMetaKey(memberID, guildID), err)
	}
	return meta, nil
}

// transact runs fn under WATCH on keys, retrying when another writer touched them first.
// Errors that are not CoreErrors are reported as StoreUnavailable, so decode failures inside fn
// must already be wrapped as CorruptRecord.
func (repository *ActivityRepository) transact(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	var err error

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = repository.DBCache.Watch(ctx, fn, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			repository.Log.Debug("optimistic transaction conflict, retrying", zap.Strings("keys", keys), zap.Int("attempt", attempt+1))
			continue
		}

		var coreErr *model.CoreError
		if errors.As(err, &coreErr) {
			return err
		}

		return model.NewStoreUnavailable("WATCH", err)
	}

	return model.NewStoreUnavailable("WATCH", err)
}
