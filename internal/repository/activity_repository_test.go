package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/c0dezer019/Presence/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestActivityRepository(t *testing.T) (*ActivityRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewActivityRepository(zap.NewNop(), client), mr
}

func seedGuild(t *testing.T, repo *ActivityRepository, guildID string) {
	t.Helper()

	meta, stats := model.NewGuildCache(guildID, model.GuildRecord{GuildID: guildID, Name: "test guild"}, time.Now())
	written, err := repo.CreateGuildIfAbsent(context.Background(), meta, stats)
	require.NoError(t, err)
	require.True(t, written)
}

func TestKeySchema(t *testing.T) {
	assert.Equal(t, "guild:1:meta", GuildMetaKey("1"))
	assert.Equal(t, "guild:1:stats", GuildStatsKey("1"))
	assert.Equal(t, "guild:1:members", GuildMembersKey("1"))
	assert.Equal(t, "guild:1:member:2", GuildMemberKey("1", "2"))
	assert.Equal(t, "member:2:1:meta", MemberMetaKey("2", "1"))
	assert.Equal(t, "session:2:1:expires_at", SessionKey("2", "1"))
}

func TestCreateGuildIfAbsentIsIdempotent(t *testing.T) {
	repo, _ := newTestActivityRepository(t)
	ctx := context.Background()

	seedGuild(t, repo, "1")

	meta, stats := model.NewGuildCache("1", model.GuildRecord{GuildID: "1", Name: "other name"}, time.Now())
	written, err := repo.CreateGuildIfAbsent(ctx, meta, stats)
	require.NoError(t, err)
	assert.False(t, written)

	stored, err := repo.GetGuildMeta(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "test guild", stored.Name)
	assert.True(t, stored.Reconciled)
	assert.Equal(t, 200, stored.LastSyncCode)
}

func TestGetGuildMetaNotFound(t *testing.T) {
	repo, _ := newTestActivityRepository(t)

	_, err := repo.GetGuildMeta(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMutateMemberRequiresGuild(t *testing.T) {
	repo, _ := newTestActivityRepository(t)

	called := false
	err := repo.MutateMember(context.Background(), "1", "2", func(state *MemberState) (bool, error) {
		called = true
		return true, nil
	})
	assert.ErrorIs(t, err, model.ErrGuildNotBootstrapped)
	assert.False(t, called)
}

func TestMutateMemberWritesMemberAndSession(t *testing.T) {
	repo, mr := newTestActivityRepository(t)
	ctx := context.Background()
	seedGuild(t, repo, "1")

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	err := repo.MutateMember(ctx, "1", "2", func(state *MemberState) (bool, error) {
		assert.False(t, state.Exists)
		assert.False(t, state.HasSession())

		state.Member = model.NewMemberActivity("1", model.MemberSeed{MemberID: "2", Name: "ash"}, at)
		state.Member.Status = model.StatusActive
		state.Member.LastActivityAt = at
		state.NewSession = at.Add(10 * time.Minute)
		state.SessionTTL = 10 * time.Minute
		return true, nil
	})
	require.NoError(t, err)

	member, err := repo.GetMember(ctx, "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "ash", member.Name)
	assert.Equal(t, model.StatusActive, member.Status)
	assert.True(t, at.Equal(member.LastActivityAt))

	isMember, err := repo.IsGuildMember(ctx, "1", "2")
	require.NoError(t, err)
	assert.True(t, isMember)

	marker, err := mr.Get(SessionKey("2", "1"))
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T10:10:00Z", marker)
	assert.Equal(t, 10*time.Minute, mr.TTL(SessionKey("2", "1")))

	err = repo.MutateMember(ctx, "1", "2", func(state *MemberState) (bool, error) {
		assert.True(t, state.Exists)
		assert.True(t, state.HasSession())
		assert.True(t, at.Add(10*time.Minute).Equal(state.Session))

		state.Member.Status = model.StatusIdle
		state.ClearSession = true
		return true, nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(SessionKey("2", "1")))
}

func TestMutateMemberSkipsWriteWhenUnchanged(t *testing.T) {
	repo, mr := newTestActivityRepository(t)
	ctx := context.Background()
	seedGuild(t, repo, "1")

	err := repo.MutateMember(ctx, "1", "2", func(state *MemberState) (bool, error) {
		state.Member.Name = "ghost"
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(GuildMemberKey("1", "2")))
}

func TestMutateGuildUpdatesStats(t *testing.T) {
	repo, _ := newTestActivityRepository(t)
	ctx := context.Background()
	seedGuild(t, repo, "1")

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	err := repo.MutateGuild(ctx, "1", func(state *GuildState) (bool, error) {
		state.Meta.Status = model.StatusActive
		state.Stats.LastAct = model.LastActivity{ChannelID: "c1", ChannelType: "text", Timestamp: at}
		return true, nil
	})
	require.NoError(t, err)

	stats, err := repo.GetGuildStats(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "c1", stats.LastAct.ChannelID)
	assert.True(t, at.Equal(stats.LastAct.Timestamp))
	assert.Equal(t, 1, stats.LastAct.Version)

	meta, err := repo.GetGuildMeta(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, meta.Status)

	err = repo.MutateGuild(ctx, "2", func(state *GuildState) (bool, error) { return true, nil })
	assert.ErrorIs(t, err, model.ErrGuildNotBootstrapped)
}

func TestUpdateGuildMeta(t *testing.T) {
	repo, _ := newTestActivityRepository(t)
	ctx := context.Background()

	err := repo.UpdateGuildMeta(ctx, "1", map[string]any{"name": "renamed"})
	assert.ErrorIs(t, err, model.ErrGuildNotBootstrapped)

	seedGuild(t, repo, "1")
	err = repo.UpdateGuildMeta(ctx, "1", map[string]any{"name": "renamed", "reconciled": false, "last_sync_code": 502})
	require.NoError(t, err)

	meta, err := repo.GetGuildMeta(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", meta.Name)
	assert.False(t, meta.Reconciled)
	assert.Equal(t, 502, meta.LastSyncCode)
}

func TestMemberSyncMeta(t *testing.T) {
	repo, _ := newTestActivityRepository(t)
	ctx := context.Background()

	_, err := repo.GetMemberSyncMeta(ctx, "1", "2")
	assert.ErrorIs(t, err, model.ErrNotFound)

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	err = repo.SetMemberSyncMeta(ctx, "1", "2", model.MemberSyncMeta{LastSyncOp: "UpdateMember", LastSyncCode: 500, LastSyncAt: at})
	require.NoError(t, err)

	meta, err := repo.GetMemberSyncMeta(ctx, "1", "2")
	require.NoError(t, err)
	assert.False(t, meta.Reconciled)
	assert.Equal(t, "UpdateMember", meta.LastSyncOp)
	assert.Equal(t, 500, meta.LastSyncCode)
	assert.True(t, at.Equal(meta.LastSyncAt))
}

func TestCorruptRecordIsNotStoreUnavailable(t *testing.T) {
	repo, mr := newTestActivityRepository(t)
	ctx := context.Background()
	seedGuild(t, repo, "1")

	mr.HSet(GuildMemberKey("1", "2"), "name", "ash", "idle_stats", "{not json")

	called := false
	err := repo.MutateMember(ctx, "1", "2", func(state *MemberState) (bool, error) {
		called = true
		return false, nil
	})
	assert.ErrorIs(t, err, model.ErrCorruptRecord)
	assert.NotErrorIs(t, err, model.ErrStoreUnavailable)
	assert.False(t, model.IsRetryable(err))
	assert.False(t, called)

	_, err = repo.GetMember(ctx, "1", "2")
	assert.ErrorIs(t, err, model.ErrCorruptRecord)

	mr.HSet(GuildStatsKey("1"), "idle_stats", "[")
	err = repo.MutateGuild(ctx, "1", func(state *GuildState) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, model.ErrCorruptRecord)
}

func TestStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	repo := NewActivityRepository(zap.NewNop(), client)
	mr.Close()

	_, err = repo.GuildExists(context.Background(), "1")
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.True(t, model.IsRetryable(err))

	err = repo.MutateMember(context.Background(), "1", "2", func(state *MemberState) (bool, error) { return true, nil })
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}
