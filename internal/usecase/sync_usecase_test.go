package usecase

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/c0dezer019/Presence/internal/model"
	"github.com/c0dezer019/Presence/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGateway struct {
	mu    sync.Mutex
	calls []string

	guilds        map[string]model.GuildRecord
	members       map[string]model.MemberRecord
	purgeList     []model.PurgeListEntry
	upsertErr     error
	updateErr     error
	memberErr     error
	memberPatches []model.MemberPatch
	guildPatches  []model.GuildPatch
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		guilds:  make(map[string]model.GuildRecord),
		members: make(map[string]model.MemberRecord),
	}
}

func (s *stubGateway) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *stubGateway) called(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (s *stubGateway) FetchGuild(ctx context.Context, guildID string) (model.GuildRecord, error) {
	s.record("FetchGuild")
	record, ok := s.guilds[guildID]
	if !ok {
		return model.GuildRecord{}, model.NewNotFound("Guild", "guild "+guildID)
	}
	return record, nil
}

func (s *stubGateway) FetchGuilds(ctx context.Context) ([]model.GuildRecord, error) {
	s.record("FetchGuilds")
	records := make([]model.GuildRecord, 0, len(s.guilds))
	for _, record := range s.guilds {
		records = append(records, record)
	}
	return records, nil
}

func (s *stubGateway) FetchMember(ctx context.Context, guildID string, memberID string) (model.MemberRecord, bool, error) {
	s.record("FetchMember")
	if s.memberErr != nil {
		return model.MemberRecord{}, false, s.memberErr
	}
	record, ok := s.members[memberID]
	if !ok {
		return model.MemberRecord{}, false, model.NewNotFound("GetMember", "member "+memberID)
	}
	return record, false, nil
}

func (s *stubGateway) UpsertGuild(ctx context.Context, guildID string, name string) (model.GuildRecord, bool, error) {
	s.record("UpsertGuild")
	if s.upsertErr != nil {
		return model.GuildRecord{}, false, s.upsertErr
	}
	record, ok := s.guilds[guildID]
	if !ok {
		record = model.GuildRecord{GuildID: guildID, Name: name}
		s.guilds[guildID] = record
	}
	return record, !ok, nil
}

func (s *stubGateway) UpdateGuild(ctx context.Context, guildID string, patch model.GuildPatch) (model.GuildRecord, error) {
	s.record("UpdateGuild")
	s.mu.Lock()
	s.guildPatches = append(s.guildPatches, patch)
	s.mu.Unlock()
	return model.GuildRecord{GuildID: guildID}, s.updateErr
}

func (s *stubGateway) UpdateMember(ctx context.Context, guildID string, memberID string, patch model.MemberPatch) (model.MemberRecord, error) {
	s.record("UpdateMember")
	s.mu.Lock()
	s.memberPatches = append(s.memberPatches, patch)
	s.mu.Unlock()
	return model.MemberRecord{MemberID: memberID}, s.updateErr
}

func (s *stubGateway) RemoveGuild(ctx context.Context, guildID string) error {
	s.record("RemoveGuild")
	return s.updateErr
}

func (s *stubGateway) RemoveMember(ctx context.Context, memberID string) error {
	s.record("RemoveMember")
	return s.updateErr
}

func (s *stubGateway) GetPurgeList(ctx context.Context) ([]model.PurgeListEntry, error) {
	s.record("GetPurgeList")
	return s.purgeList, nil
}

func (s *stubGateway) AddToPurgeList(ctx context.Context, guildID string, memberID string) error {
	s.record("AddToPurgeList")
	return s.updateErr
}

func (s *stubGateway) RemoveFromPurgeList(ctx context.Context, memberID string) error {
	s.record("RemoveFromPurgeList")
	return nil
}

func newTestSyncUsecase(t *testing.T) (*SyncUsecase, *stubGateway, *repository.ActivityRepository) {
	t.Helper()

	activity, repo, _ := newTestActivityUsecase(t)
	gateway := newStubGateway()
	return NewSyncUsecase(activity, repo, gateway, zap.NewNop(), testSettings()), gateway, repo
}

func TestMemberJoinedSeedsFromRemote(t *testing.T) {
	usecase, gateway, repo := newTestSyncUsecase(t)
	ctx := context.Background()
	bootstrapGuild(t, usecase.ActivityUsecase, "1")

	gateway.members["2"] = model.MemberRecord{MemberID: "2", AdminAccess: true, Status: model.StatusIdle, Flags: []string{"vip"}}
	gateway.purgeList = []model.PurgeListEntry{{GuildID: "1", Members: []model.PurgeListMember{{MemberID: "2"}}}}

	notification, err := usecase.MemberJoined(ctx, "1", model.GuildMember{MemberID: "2", DisplayName: "ash"})
	require.NoError(t, err)
	assert.Nil(t, notification)

	member, err := repo.GetMember(ctx, "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "ash", member.Name)
	assert.True(t, member.AdminAccess)
	assert.Equal(t, []string{"vip"}, member.Flags)

	assert.Equal(t, 1, gateway.called("RemoveFromPurgeList"))

	meta, err := repo.GetMemberSyncMeta(ctx, "1", "2")
	require.NoError(t, err)
	assert.True(t, meta.Reconciled)
	assert.Equal(t, http.StatusOK, meta.LastSyncCode)
}

func TestMemberJoinedDefaultsWhenRemoteHasNoRecord(t *testing.T) {
	usecase, gateway, repo := newTestSyncUsecase(t)
	ctx := context.Background()
	bootstrapGuild(t, usecase.ActivityUsecase, "1")

	notification, err := usecase.MemberJoined(ctx, "1", model.GuildMember{MemberID: "2", DisplayName: "ash"})
	require.NoError(t, err)
	assert.Nil(t, notification)
	assert.Zero(t, gateway.called("RemoveFromPurgeList"))

	member, err := repo.GetMember(ctx, "1", "2")
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, member.Status)
	assert.False(t, member.AdminAccess)
	assert.Equal(t, []string{}, member.Flags)
}

func TestMemberJoinedReportsRemoteFailure(t *testing.T) {
	usecase, gateway, repo := newTestSyncUsecase(t)
	ctx := context.Background()
	bootstrapGuild(t, usecase.ActivityUsecase, "1")

	gateway.memberErr = model.NewSyncFailed("GetMember", http.StatusInternalServerError, nil)

	notification, err := usecase.MemberJoined(ctx, "1", model.GuildMember{MemberID: "2", DisplayName: "ash"})
	require.NoError(t, err)
	require.NotNil(t, notification)
	assert.Equal(t, http.StatusInternalServerError, notification.StatusCode)
	assert.Equal(t, "GetMember", notification.Operation)
	assert.Zero(t, gateway.called("GetPurgeList"))

	_, err = repo.GetMember(ctx, "1", "2")
	assert.ErrorIs(t, err, model.ErrNotFound, "no cache record without a remote read")

	gateway.memberErr = nil
	notification, err = usecase.MemberJoined(ctx, "1", model.GuildMember{MemberID: "2", DisplayName: "ash"})
	require.NoError(t, err)
	assert.Nil(t, notification)

	_, err = repo.GetMember(ctx, "1", "2")
	require.NoError(t, err)
}

func TestMemberJoinedIgnoresBots(t *testing.T) {
	usecase, gateway, _ := newTestSyncUsecase(t)

	notification, err := usecase.MemberJoined(context.Background(), "1", model.GuildMember{MemberID: "9", IsBot: true})
	require.NoError(t, err)
	assert.Nil(t, notification)
	assert.Empty(t, gateway.calls)
}

func TestMemberRenamed(t *testing.T) {
	usecase, gateway, repo := newTestSyncUsecase(t)
	ctx := context.Background()
	bootstrapGuild(t, usecase.ActivityUsecase, "1")

	_, err := usecase.MemberJoined(ctx, "1", model.GuildMember{MemberID: "2", DisplayName: "ash"})
	require.NoError(t, err)

	notification, err := usecase.MemberRenamed(ctx, model.MemberRename{GuildID: "1", MemberID: "2", NewNick: "X", DisplayName: "ash"})
	require.NoError(t, err)
	assert.Nil(t, notification)
	require.Len(t, gateway.memberPatches, 1)
	assert.Equal(t, map[string]any{"nickname": "X"}, gateway.memberPatches[0].Input())

	member, err := repo.GetMember(ctx, "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "X", member.Name)

	gateway.updateErr = model.NewSyncFailed("UpdateMember", http.StatusBadGateway, nil)
	notification, err = usecase.MemberRenamed(ctx, model.MemberRename{GuildID: "1", MemberID: "2", OldNick: "X", NewNick: "", DisplayName: "ash"})
	require.NoError(t, err)
	require.NotNil(t, notification)
	assert.Equal(t, http.StatusBadGateway, notification.StatusCode)

	require.Len(t, gateway.memberPatches, 2)
	assert.True(t, gateway.memberPatches[1].Nickname.IsNull())

	member, err = repo.GetMember(ctx, "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "ash", member.Name, "cache is updated even when the remote call fails")

	meta, err := repo.GetMemberSyncMeta(ctx, "1", "2")
	require.NoError(t, err)
	assert.False(t, meta.Reconciled)
	assert.Equal(t, "UpdateMember", meta.LastSyncOp)
	assert.Equal(t, http.StatusBadGateway, meta.LastSyncCode)
}

func TestMemberRenamedSeedsMissingMember(t *testing.T) {
	usecase, _, repo := newTestSyncUsecase(t)
	ctx := context.Background()
	bootstrapGuild(t, usecase.ActivityUsecase, "1")

	_, err := usecase.MemberRenamed(ctx, model.MemberRename{GuildID: "1", MemberID: "2", NewNick: "X"})
	require.NoError(t, err)

	member, err := repo.GetMember(ctx, "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "X", member.Name)
}

func TestUserRenamed(t *testing.T) {
	usecase, gateway, repo := newTestSyncUsecase(t)
	ctx := context.Background()
	bootstrapGuild(t, usecase.ActivityUsecase, "1")

	notification, err := usecase.UserRenamed(ctx, model.UserRename{GuildID: "1", MemberID: "2", OldName: "ash", NewName: "ember", DisplayName: "ember"})
	require.NoError(t, err)
	assert.Nil(t, notification)
	require.Len(t, gateway.memberPatches, 1)
	assert.Equal(t, map[string]any{"username": "ember"}, gateway.memberPatches[0].Input())

	member, err := repo.GetMember(ctx, "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "ember", member.Name)
}

func TestGuildRenamedReadsOldNameFromCache(t *testing.T) {
	usecase, gateway, repo := newTestSyncUsecase(t)
	ctx := context.Background()
	bootstrapGuild(t, usecase.ActivityUsecase, "1")

	notification, err := usecase.GuildRenamed(ctx, "1", "", "den")
	require.NoError(t, err)
	assert.Nil(t, notification)
	assert.Zero(t, gateway.called("UpdateGuild"), "same name is a no-op")

	notification, err = usecase.GuildRenamed(ctx, "1", "", "lair")
	require.NoError(t, err)
	assert.Nil(t, notification)
	require.Len(t, gateway.guildPatches, 1)
	assert.Equal(t, map[string]any{"name": "lair"}, gateway.guildPatches[0].Input())

	meta, err := repo.GetGuildMeta(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "lair", meta.Name)
	assert.True(t, meta.Reconciled)
}

func TestGuildJoined(t *testing.T) {
	usecase, gateway, repo := newTestSyncUsecase(t)
	ctx := context.Background()

	gateway.guilds["1"] = model.GuildRecord{
		GuildID: "1",
		Name:    "den",
		Members: []model.MemberRecord{{MemberID: "2", AdminAccess: true}},
	}

	report, err := usecase.GuildJoined(ctx, "1", "den", []model.GuildMember{
		{MemberID: "2", DisplayName: "ash"},
		{MemberID: "3", DisplayName: "birch"},
		{MemberID: "4", DisplayName: "bot", IsBot: true},
	})
	require.NoError(t, err)
	assert.True(t, report.GuildWritten)
	assert.Equal(t, 2, report.MembersSeeded)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 1, gateway.called("FetchMember"), "only members missing from the guild payload are looked up")

	ash, err := repo.GetMember(ctx, "1", "2")
	require.NoError(t, err)
	assert.True(t, ash.AdminAccess)

	ids, err := repo.GetGuildMemberIDs(ctx, "1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2", "3"}, ids)

	report, err = usecase.GuildJoined(ctx, "1", "den", []model.GuildMember{{MemberID: "2", DisplayName: "ash"}})
	require.NoError(t, err)
	assert.False(t, report.GuildWritten)
	assert.Zero(t, report.MembersSeeded)
}

func TestGuildJoinedWhenRemoteUnavailable(t *testing.T) {
	usecase, gateway, repo := newTestSyncUsecase(t)
	ctx := context.Background()

	gateway.upsertErr = model.NewSyncTimeout("AddGuild", nil)

	report, err := usecase.GuildJoined(ctx, "1", "den", []model.GuildMember{{MemberID: "2", DisplayName: "ash"}})
	require.NoError(t, err)
	assert.False(t, report.GuildWritten)
	assert.Zero(t, report.MembersSeeded)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, http.StatusGatewayTimeout, report.Failures[0].StatusCode)
	assert.Zero(t, gateway.called("FetchMember"))

	_, err = repo.GetGuildMeta(ctx, "1")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = repo.GetMember(ctx, "1", "2")
	assert.ErrorIs(t, err, model.ErrNotFound)

	health, err := usecase.ActivityUsecase.GuildHealth(ctx, []string{"1"})
	require.NoError(t, err)
	assert.False(t, health["1"], "the guild stays eligible for another bootstrap")

	gateway.upsertErr = nil
	report, err = usecase.GuildJoined(ctx, "1", "den", []model.GuildMember{{MemberID: "2", DisplayName: "ash"}})
	require.NoError(t, err)
	assert.True(t, report.GuildWritten)
	assert.Equal(t, 1, report.MembersSeeded)
	assert.Empty(t, report.Failures)
}

func TestGuildJoinedSkipsMembersWhoseLookupFails(t *testing.T) {
	usecase, gateway, repo := newTestSyncUsecase(t)
	ctx := context.Background()

	gateway.guilds["1"] = model.GuildRecord{
		GuildID: "1",
		Name:    "den",
		Members: []model.MemberRecord{{MemberID: "2"}},
	}
	gateway.memberErr = model.NewSyncFailed("GetMember", http.StatusInternalServerError, nil)

	report, err := usecase.GuildJoined(ctx, "1", "den", []model.GuildMember{
		{MemberID: "2", DisplayName: "ash"},
		{MemberID: "3", DisplayName: "birch"},
	})
	require.NoError(t, err)
	assert.True(t, report.GuildWritten)
	assert.Equal(t, 1, report.MembersSeeded)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "GetMember", report.Failures[0].Operation)

	_, err = repo.GetMember(ctx, "1", "2")
	require.NoError(t, err)
	_, err = repo.GetMember(ctx, "1", "3")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemberLeftAndPurge(t *testing.T) {
	usecase, gateway, repo := newTestSyncUsecase(t)
	ctx := context.Background()

	notification, err := usecase.MemberLeft(ctx, "1", "2")
	require.NoError(t, err)
	assert.Nil(t, notification)
	assert.Equal(t, 1, gateway.called("AddToPurgeList"))

	meta, err := repo.GetMemberSyncMeta(ctx, "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "AddToPurgeList", meta.LastSyncOp)

	require.NoError(t, usecase.PurgeMember(ctx, "1", "2"))
	assert.Equal(t, 1, gateway.called("RemoveMember"))
	assert.Equal(t, 1, gateway.called("RemoveFromPurgeList"))

	gateway.updateErr = model.NewSyncFailed("DeleteMember", http.StatusInternalServerError, nil)
	assert.ErrorIs(t, usecase.PurgeMember(ctx, "1", "2"), model.ErrSyncFailed)
}

func TestGuildRemoved(t *testing.T) {
	usecase, gateway, _ := newTestSyncUsecase(t)

	assert.Nil(t, usecase.GuildRemoved(context.Background(), "1"))

	gateway.updateErr = model.NewSyncFailed("DeleteGuild", http.StatusInternalServerError, nil)
	notification := usecase.GuildRemoved(context.Background(), "1")
	require.NotNil(t, notification)
	assert.Equal(t, "DeleteGuild", notification.Operation)
}

func TestRehydrate(t *testing.T) {
	usecase, gateway, repo := newTestSyncUsecase(t)
	ctx := context.Background()
	bootstrapGuild(t, usecase.ActivityUsecase, "1")

	nick := "ashy"
	gateway.guilds["2"] = model.GuildRecord{
		GuildID: "2",
		Name:    "lair",
		Members: []model.MemberRecord{{MemberID: "5", Nickname: &nick, Status: model.StatusIdle}},
	}

	unknown, err := usecase.Rehydrate(ctx, []string{"1", "2", "3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, unknown)
	assert.Equal(t, 1, gateway.called("FetchGuilds"))

	meta, err := repo.GetGuildMeta(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "lair", meta.Name)

	member, err := repo.GetMember(ctx, "2", "5")
	require.NoError(t, err)
	assert.Equal(t, "ashy", member.Name)
	assert.Equal(t, model.StatusIdle, member.Status)

	unknown, err = usecase.Rehydrate(ctx, []string{"1", "2"})
	require.NoError(t, err)
	assert.Empty(t, unknown)
	assert.Equal(t, 1, gateway.called("FetchGuilds"), "healthy guilds need no remote read")
}

func TestRehydrateSingleGuildUsesDirectFetch(t *testing.T) {
	usecase, gateway, _ := newTestSyncUsecase(t)

	unknown, err := usecase.Rehydrate(context.Background(), []string{"7"})
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, unknown)
	assert.Equal(t, 1, gateway.called("FetchGuild"))
	assert.Zero(t, gateway.called("FetchGuilds"))
}
