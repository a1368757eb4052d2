package usecase

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/c0dezer019/Presence/internal/model"
	"github.com/c0dezer019/Presence/internal/observability"
	"github.com/c0dezer019/Presence/internal/repository"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// SyncGateway is the remote record store as the sync flow sees it.
type SyncGateway interface {
	FetchGuild(ctx context.Context, guildID string) (model.GuildRecord, error)
	FetchGuilds(ctx context.Context) ([]model.GuildRecord, error)
	FetchMember(ctx context.Context, guildID string, memberID string) (model.MemberRecord, bool, error)
	UpsertGuild(ctx context.Context, guildID string, name string) (model.GuildRecord, bool, error)
	UpdateGuild(ctx context.Context, guildID string, patch model.GuildPatch) (model.GuildRecord, error)
	UpdateMember(ctx context.Context, guildID string, memberID string, patch model.MemberPatch) (model.MemberRecord, error)
	RemoveGuild(ctx context.Context, guildID string) error
	RemoveMember(ctx context.Context, memberID string) error
	GetPurgeList(ctx context.Context) ([]model.PurgeListEntry, error)
	AddToPurgeList(ctx context.Context, guildID string, memberID string) error
	RemoveFromPurgeList(ctx context.Context, memberID string) error
}

// SyncUsecase applies platform changes to both stores. Remote failures on updates do not stop
// the cache update; they come back as a SyncNotification and leave the record marked
// unreconciled. Bootstraps only write the cache after a successful remote read.
// Returned errors are cache failures only.
type SyncUsecase struct {
	ActivityUsecase    *ActivityUsecase
	ActivityRepository *repository.ActivityRepository
	Gateway            SyncGateway
	Log                *zap.Logger
	Settings           model.TrackingSettings
}

func NewSyncUsecase(activityUsecase *ActivityUsecase, activityRepository *repository.ActivityRepository, gateway SyncGateway, zap *zap.Logger, settings model.TrackingSettings) *SyncUsecase {
	return &SyncUsecase{
		ActivityUsecase:    activityUsecase,
		ActivityRepository: activityRepository,
		Gateway:            gateway,
		Log:                zap,
		Settings:           settings,
	}
}

// MemberJoined looks the member up remotely, seeds its cache record and drops it from the purge
// list if it had been queued there. Nothing is cached when the remote read fails.
func (usecase *SyncUsecase) MemberJoined(ctx context.Context, guildID string, member model.GuildMember) (*model.SyncNotification, error) {
	if member.IsBot {
		return nil, nil
	}

	seed, syncErr := usecase.lookupMember(ctx, guildID, member)
	if syncErr != nil {
		return usecase.notification(ctx, guildID, "GetMember", syncErr), nil
	}

	_, err := usecase.ActivityUsecase.BootstrapMember(ctx, guildID, seed)
	if err != nil {
		return nil, err
	}

	syncErr = usecase.leavePurgeList(ctx, guildID, member.MemberID)

	err = usecase.markMember(ctx, guildID, member.MemberID, "GetMember", syncErr)
	if err != nil {
		return nil, err
	}

	return usecase.notification(ctx, guildID, "GetMember", syncErr), nil
}

// MemberRenamed pushes a nickname change. An empty new nickname clears it remotely and the
// cache falls back to the display name.
func (usecase *SyncUsecase) MemberRenamed(ctx context.Context, rename model.MemberRename) (*model.SyncNotification, error) {
	if rename.OldNick == rename.NewNick {
		return nil, nil
	}

	patch := model.MemberPatch{Nickname: model.Set(rename.NewNick)}
	if rename.NewNick == "" {
		patch.Nickname = model.Null[string]()
	}
	_, syncErr := usecase.Gateway.UpdateMember(ctx, rename.GuildID, rename.MemberID, patch)

	name := rename.NewNick
	if name == "" {
		name = rename.DisplayName
	}
	err := usecase.renameCachedMember(ctx, rename.GuildID, rename.MemberID, name)
	if err != nil {
		return nil, err
	}

	err = usecase.markMember(ctx, rename.GuildID, rename.MemberID, "UpdateMember", syncErr)
	if err != nil {
		return nil, err
	}

	return usecase.notification(ctx, rename.GuildID, "UpdateMember", syncErr), nil
}

// UserRenamed pushes an account username change for one guild membership.
func (usecase *SyncUsecase) UserRenamed(ctx context.Context, rename model.UserRename) (*model.SyncNotification, error) {
	if rename.OldName == rename.NewName {
		return nil, nil
	}

	_, syncErr := usecase.Gateway.UpdateMember(ctx, rename.GuildID, rename.MemberID, model.MemberPatch{
		Username: model.Set(rename.NewName),
	})

	name := rename.DisplayName
	if name == "" {
		name = rename.NewName
	}
	err := usecase.renameCachedMember(ctx, rename.GuildID, rename.MemberID, name)
	if err != nil {
		return nil, err
	}

	err = usecase.markMember(ctx, rename.GuildID, rename.MemberID, "UpdateMember", syncErr)
	if err != nil {
		return nil, err
	}

	return usecase.notification(ctx, rename.GuildID, "UpdateMember", syncErr), nil
}

// GuildRenamed pushes a guild name change. An empty oldName is read from the cache.
func (usecase *SyncUsecase) GuildRenamed(ctx context.Context, guildID string, oldName string, newName string) (*model.SyncNotification, error) {
	if oldName == "" {
		meta, err := usecase.ActivityRepository.GetGuildMeta(ctx, guildID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		oldName = meta.Name
	}
	if oldName == newName {
		return nil, nil
	}

	_, syncErr := usecase.Gateway.UpdateGuild(ctx, guildID, model.GuildPatch{Name: model.Set(newName)})

	err := usecase.ActivityUsecase.RenameGuild(ctx, guildID, newName)
	if err != nil {
		return nil, err
	}

	err = usecase.markGuild(ctx, guildID, syncErr)
	if err != nil {
		return nil, err
	}

	usecase.Log.Info("guild renamed",
		zap.String("guild_id", guildID),
		zap.String("old_name", oldName),
		zap.String("new_name", newName),
	)
	return usecase.notification(ctx, guildID, "UpdateGuild", syncErr), nil
}

// GuildJoined fetches or creates the remote guild, bootstraps its cache records and seeds every
// human member with a bounded pool of workers. A failed remote read leaves the guild uncached so
// the next GuildCreate or Rehydrate retries it.
func (usecase *SyncUsecase) GuildJoined(ctx context.Context, guildID string, name string, members []model.GuildMember) (model.GuildJoinReport, error) {
	report := model.GuildJoinReport{}
	log := observability.WithContext(ctx, usecase.Log).With(zap.String("guild_id", guildID))

	record, created, syncErr := usecase.Gateway.UpsertGuild(ctx, guildID, name)
	if syncErr != nil {
		report.Failures = append(report.Failures, *usecase.notification(ctx, guildID, "AddGuild", syncErr))
		log.Warn("guild left out of the cache until the remote store answers")
		return report, nil
	}
	if record.Name == "" {
		record.Name = name
	}

	written, err := usecase.ActivityUsecase.BootstrapGuild(ctx, guildID, record)
	if err != nil {
		return report, err
	}
	report.GuildWritten = written

	known := make(map[string]model.MemberRecord, len(record.Members))
	for _, m := range record.Members {
		known[m.MemberID] = m
	}

	var mu sync.Mutex
	p := pool.New().WithContext(ctx).WithMaxGoroutines(usecase.workers())

	for _, member := range members {
		if member.IsBot {
			continue
		}

		p.Go(func(ctx context.Context) error {
			seed := model.MemberSeed{MemberID: member.MemberID, Name: member.DisplayName}

			if remote, ok := known[member.MemberID]; ok {
				seed.Record = &remote
			} else if !created {
				var memberErr error
				seed, memberErr = usecase.lookupMember(ctx, guildID, member)
				if memberErr != nil {
					mu.Lock()
					defer mu.Unlock()
					report.Failures = append(report.Failures, *usecase.notification(ctx, guildID, "GetMember", memberErr))
					return nil
				}
			}

			seeded, err := usecase.ActivityUsecase.BootstrapMember(ctx, guildID, seed)
			if err != nil {
				return err
			}

			err = usecase.markMember(ctx, guildID, member.MemberID, "GetMember", nil)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if seeded {
				report.MembersSeeded++
			}
			return nil
		})
	}

	err = p.Wait()
	if err != nil {
		return report, err
	}

	log.Info("guild bootstrapped",
		zap.Bool("created_remotely", created),
		zap.Bool("cache_written", report.GuildWritten),
		zap.Int("members_seeded", report.MembersSeeded),
		zap.Int("sync_failures", len(report.Failures)),
	)
	return report, nil
}

// MemberLeft queues the member on the remote purge list. The cache record is kept.
func (usecase *SyncUsecase) MemberLeft(ctx context.Context, guildID string, memberID string) (*model.SyncNotification, error) {
	syncErr := usecase.Gateway.AddToPurgeList(ctx, guildID, memberID)

	err := usecase.markMember(ctx, guildID, memberID, "AddToPurgeList", syncErr)
	if err != nil {
		return nil, err
	}

	return usecase.notification(ctx, guildID, "AddToPurgeList", syncErr), nil
}

// GuildRemoved deletes the remote guild after the bot was removed from it.
func (usecase *SyncUsecase) GuildRemoved(ctx context.Context, guildID string) *model.SyncNotification {
	syncErr := usecase.Gateway.RemoveGuild(ctx, guildID)
	if syncErr == nil {
		usecase.Log.Info("guild removed from remote store", zap.String("guild_id", guildID))
	}
	return usecase.notification(ctx, guildID, "DeleteGuild", syncErr)
}

// PurgeMember deletes a departed member remotely and clears its purge list entry.
func (usecase *SyncUsecase) PurgeMember(ctx context.Context, guildID string, memberID string) error {
	err := usecase.Gateway.RemoveMember(ctx, memberID)
	if err != nil {
		return err
	}

	err = usecase.Gateway.RemoveFromPurgeList(ctx, memberID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}

	usecase.Log.Info("member purged", zap.String("guild_id", guildID), zap.String("member_id", memberID))
	return nil
}

// Rehydrate rebuilds cache records for guilds whose meta key is missing, using one remote read.
// It returns the ids the remote store does not know about.
func (usecase *SyncUsecase) Rehydrate(ctx context.Context, guildIDs []string) ([]string, error) {
	health, err := usecase.ActivityUsecase.GuildHealth(ctx, guildIDs)
	if err != nil {
		return nil, err
	}

	missing := make([]string, 0)
	for _, guildID := range guildIDs {
		if !health[guildID] {
			missing = append(missing, guildID)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	records, err := usecase.fetchGuildRecords(ctx, missing)
	if err != nil {
		usecase.Log.Warn("could not fetch guilds for rehydration", zap.Error(err))
		return missing, nil
	}

	byID := make(map[string]model.GuildRecord, len(records))
	for _, record := range records {
		byID[record.GuildID] = record
	}

	unknown := make([]string, 0)
	for _, guildID := range missing {
		record, ok := byID[guildID]
		if !ok {
			unknown = append(unknown, guildID)
			continue
		}

		_, err = usecase.ActivityUsecase.BootstrapGuild(ctx, guildID, record)
		if err != nil {
			return unknown, err
		}

		for _, m := range record.Members {
			remote := m
			_, err = usecase.ActivityUsecase.BootstrapMember(ctx, guildID, model.MemberSeed{
				MemberID: m.MemberID,
				Name:     memberRecordName(m),
				Record:   &remote,
			})
			if err != nil {
				return unknown, err
			}
		}

		usecase.Log.Info("guild rehydrated from remote store",
			zap.String("guild_id", guildID),
			zap.Int("members", len(record.Members)),
		)
	}

	return unknown, nil
}

// fetchGuildRecords reads a single guild directly and falls back to the full listing otherwise.
func (usecase *SyncUsecase) fetchGuildRecords(ctx context.Context, guildIDs []string) ([]model.GuildRecord, error) {
	if len(guildIDs) != 1 {
		return usecase.Gateway.FetchGuilds(ctx)
	}

	record, err := usecase.Gateway.FetchGuild(ctx, guildIDs[0])
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if record.GuildID == "" {
		record.GuildID = guildIDs[0]
	}
	return []model.GuildRecord{record}, nil
}

func (usecase *SyncUsecase) lookupMember(ctx context.Context, guildID string, member model.GuildMember) (model.MemberSeed, error) {
	seed := model.MemberSeed{MemberID: member.MemberID, Name: member.DisplayName}

	record, created, err := usecase.Gateway.FetchMember(ctx, guildID, member.MemberID)
	switch {
	case err == nil:
		seed.Record = &record
		if created {
			usecase.Log.Debug("member created remotely", zap.String("guild_id", guildID), zap.String("member_id", member.MemberID))
		}
		return seed, nil
	case errors.Is(err, model.ErrNotFound):
		return seed, nil
	default:
		return seed, err
	}
}

func (usecase *SyncUsecase) leavePurgeList(ctx context.Context, guildID string, memberID string) error {
	list, err := usecase.Gateway.GetPurgeList(ctx)
	if err != nil {
		return err
	}

	for _, entry := range list {
		if entry.GuildID == guildID && entry.Contains(memberID) {
			return usecase.Gateway.RemoveFromPurgeList(ctx, memberID)
		}
	}
	return nil
}

func (usecase *SyncUsecase) renameCachedMember(ctx context.Context, guildID string, memberID string, name string) error {
	err := usecase.ActivityUsecase.RenameMember(ctx, guildID, memberID, name)
	if !errors.Is(err, model.ErrNotFound) {
		return err
	}

	_, err = usecase.ActivityUsecase.BootstrapMember(ctx, guildID, model.MemberSeed{MemberID: memberID, Name: name})
	return err
}

func (usecase *SyncUsecase) markMember(ctx context.Context, guildID string, memberID string, operation string, syncErr error) error {
	meta := model.MemberSyncMeta{
		Reconciled:   syncErr == nil,
		LastSyncOp:   operation,
		LastSyncCode: syncStatusCode(syncErr),
		LastSyncAt:   time.Now().UTC(),
	}

	_, err := RetryStore(ctx, usecase.Log, "SetMemberSyncMeta", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, usecase.ActivityRepository.SetMemberSyncMeta(ctx, guildID, memberID, meta)
	})
	return err
}

func (usecase *SyncUsecase) markGuild(ctx context.Context, guildID string, syncErr error) error {
	_, err := RetryStore(ctx, usecase.Log, "UpdateGuildMeta", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, usecase.ActivityRepository.UpdateGuildMeta(ctx, guildID, map[string]any{
			"reconciled":     syncErr == nil,
			"last_sync_code": syncStatusCode(syncErr),
		})
	})
	return err
}

func (usecase *SyncUsecase) notification(ctx context.Context, guildID string, operation string, syncErr error) *model.SyncNotification {
	if syncErr == nil {
		return nil
	}

	observability.WithContext(ctx, usecase.Log).Warn("remote store out of sync",
		zap.String("guild_id", guildID),
		zap.String("operation", operation),
		zap.Error(syncErr),
	)

	return &model.SyncNotification{
		GuildID:    guildID,
		Operation:  operation,
		StatusCode: syncStatusCode(syncErr),
		Message:    syncErr.Error(),
	}
}

func (usecase *SyncUsecase) workers() int {
	if usecase.Settings.BootstrapWorkers > 0 {
		return usecase.Settings.BootstrapWorkers
	}
	return 1
}

func syncStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, model.ErrSyncTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	}

	if code := model.StatusCodeOf(err); code != 0 {
		return code
	}
	return http.StatusInternalServerError
}

func memberRecordName(record model.MemberRecord) string {
	if record.Nickname != nil && *record.Nickname != "" {
		return *record.Nickname
	}
	if record.Name != "" {
		return record.Name
	}
	return record.Username
}
