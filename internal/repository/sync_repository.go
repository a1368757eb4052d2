package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/c0dezer019/Presence/internal/constant"
	"github.com/c0dezer019/Presence/internal/model"
	"github.com/c0dezer019/Presence/internal/observability"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// SyncRepository talks to the authoritative GraphQL store. It never retries; callers own
// retry policy.
type SyncRepository struct {
	Log     *zap.Logger
	Client  *fiber.Client
	URL     string
	Timeout time.Duration
}

func NewSyncRepository(zap *zap.Logger, url string, timeout time.Duration) *SyncRepository {
	return &SyncRepository{
		Log: zap,
		Client: &fiber.Client{
			UserAgent:   "presence-bot",
			JSONEncoder: sonic.Marshal,
			JSONDecoder: sonic.Unmarshal,
		},
		URL:     url,
		Timeout: timeout,
	}
}

func (repository *SyncRepository) FetchGuild(ctx context.Context, guildID string) (model.GuildRecord, error) {
	envelope, err := repository.call(ctx, opFetchGuild, map[string]any{"guildId": guildID})
	if err != nil {
		return model.GuildRecord{}, err
	}
	if envelope.Guild == nil {
		return model.GuildRecord{}, model.NewNotFound(opFetchGuild.Name, "guild "+guildID)
	}
	return *envelope.Guild, nil
}

func (repository *SyncRepository) FetchGuilds(ctx context.Context) ([]model.GuildRecord, error) {
	envelope, err := repository.call(ctx, opFetchGuilds, nil)
	if err != nil {
		return nil, err
	}
	return envelope.Guilds, nil
}

// FetchMember looks a member up. The bool reports whether the remote store created it.
func (repository *SyncRepository) FetchMember(ctx context.Context, guildID string, memberID string) (model.MemberRecord, bool, error) {
	envelope, err := repository.call(ctx, opFetchMember, map[string]any{
		"guildId":  guildID,
		"memberId": memberID,
	})
	if err != nil {
		return model.MemberRecord{}, false, err
	}
	if envelope.Member == nil {
		return model.MemberRecord{}, false, model.NewNotFound(opFetchMember.Name, "member "+memberID)
	}
	return *envelope.Member, envelope.Created, nil
}

func (repository *SyncRepository) FetchMembers(ctx context.Context) ([]model.MemberRecord, error) {
	envelope, err := repository.call(ctx, opFetchMembers, nil)
	if err != nil {
		return nil, err
	}
	return envelope.Members, nil
}

// UpsertGuild fetches the guild, creating it remotely when it does not exist.
func (repository *SyncRepository) UpsertGuild(ctx context.Context, guildID string, name string) (model.GuildRecord, bool, error) {
	envelope, err := repository.call(ctx, opUpsertGuild, map[string]any{
		"guildId": guildID,
		"name":    name,
	})
	if err != nil {
		return model.GuildRecord{}, false, err
	}
	if envelope.Guild == nil {
		return model.GuildRecord{}, false, model.NewSyncFailed(opUpsertGuild.Name, envelope.Code, errors.New("response carried no guild"))
	}
	return *envelope.Guild, envelope.Created, nil
}

func (repository *SyncRepository) UpdateGuild(ctx context.Context, guildID string, patch model.GuildPatch) (model.GuildRecord, error) {
	input := patch.Input()
	if len(input) == 0 {
		return model.GuildRecord{}, emptyPatchError()
	}

	envelope, err := repository.call(ctx, opUpdateGuild, map[string]any{
		"guildId": guildID,
		"input":   input,
	})
	if err != nil {
		return model.GuildRecord{}, err
	}
	if envelope.Guild == nil {
		return model.GuildRecord{}, model.NewSyncFailed(opUpdateGuild.Name, envelope.Code, errors.New("response carried no guild"))
	}
	return *envelope.Guild, nil
}

func (repository *SyncRepository) UpdateMember(ctx context.Context, guildID string, memberID string, patch model.MemberPatch) (model.MemberRecord, error) {
	input := patch.Input()
	if len(input) == 0 {
		return model.MemberRecord{}, emptyPatchError()
	}

	envelope, err := repository.call(ctx, opUpdateMember, map[string]any{
		"guildId":  guildID,
		"memberId": memberID,
		"input":    input,
	})
	if err != nil {
		return model.MemberRecord{}, err
	}
	if envelope.Member == nil {
		return model.MemberRecord{}, model.NewSyncFailed(opUpdateMember.Name, envelope.Code, errors.New("response carried no member"))
	}
	return *envelope.Member, nil
}

func (repository *SyncRepository) RemoveGuild(ctx context.Context, guildID string) error {
	_, err := repository.call(ctx, opRemoveGuild, map[string]any{"guildId": guildID})
	return err
}

func (repository *SyncRepository) RemoveMember(ctx context.Context, memberID string) error {
	_, err := repository.call(ctx, opRemoveMember, map[string]any{"memberId": memberID})
	return err
}

func (repository *SyncRepository) GetPurgeList(ctx context.Context) ([]model.PurgeListEntry, error) {
	envelope, err := repository.call(ctx, opPurgeList, nil)
	if err != nil {
		return nil, err
	}
	return envelope.List, nil
}

func (repository *SyncRepository) AddToPurgeList(ctx context.Context, guildID string, memberID string) error {
	_, err := repository.call(ctx, opAddToPurgeList, map[string]any{
		"guildId":  guildID,
		"memberId": memberID,
	})
	return err
}

func (repository *SyncRepository) RemoveFromPurgeList(ctx context.Context, memberID string) error {
	_, err := repository.call(ctx, opRemoveFromPurgeList, map[string]any{"memberId": memberID})
	return err
}

func (repository *SyncRepository) call(ctx context.Context, op syncOperation, variables map[string]any) (model.SyncEnvelope, error) {
	ctx, span := observability.Tracer().Start(ctx, "sync."+op.Name)
	defer span.End()

	log := observability.WithContext(ctx, repository.Log).With(zap.String("operation", op.Name))
	start := time.Now()

	envelope, err := repository.do(ctx, op, variables)

	log = log.With(zap.Duration("took", time.Since(start)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Int("sync.status_code", model.StatusCodeOf(err)))
		log.Warn("remote sync call failed", zap.Error(err))
		return envelope, err
	}

	span.SetAttributes(attribute.Int("sync.status_code", envelope.Code))
	log.Debug("remote sync call completed", zap.Int("code", envelope.Code))
	return envelope, nil
}

func (repository *SyncRepository) do(ctx context.Context, op syncOperation, variables map[string]any) (model.SyncEnvelope, error) {
	envelope := model.SyncEnvelope{}

	timeout := repository.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return envelope, model.NewSyncTimeout(op.Name, ctx.Err())
		}
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return envelope, model.NewSyncTimeout(op.Name, err)
	}

	var agent *fiber.Agent
	switch op.Method {
	case fiber.MethodPatch:
		agent = repository.Client.Patch(repository.URL)
	case fiber.MethodDelete:
		agent = repository.Client.Delete(repository.URL)
	default:
		agent = repository.Client.Post(repository.URL)
	}

	agent.Set("X-Request-Id", uuid.NewString())
	if timeout > 0 {
		agent.Timeout(timeout)
	}
	agent.JSON(model.GraphQLRequest{
		OperationName: op.Name,
		Query:         op.Query,
		Variables:     variables,
	})

	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		err := errors.Join(errs...)
		if isTimeout(err) {
			return envelope, model.NewSyncTimeout(op.Name, err)
		}
		return envelope, model.NewSyncFailed(op.Name, statusCode, err)
	}

	if statusCode != http.StatusOK {
		return envelope, model.NewSyncFailed(op.Name, statusCode, nil)
	}

	response := model.GraphQLResponse{}
	err := sonic.Unmarshal(body, &response)
	if err != nil {
		return envelope, model.NewSyncFailed(op.Name, statusCode, fmt.Errorf("decode response: %w", err))
	}

	raw, ok := response.Data[op.Field]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return envelope, model.NewSyncFailed(op.Name, statusCode, graphQLErrors(response.Errors))
	}

	err = sonic.Unmarshal(raw, &envelope)
	if err != nil {
		return envelope, model.NewSyncFailed(op.Name, statusCode, fmt.Errorf("decode %s: %w", op.Field, err))
	}

	switch {
	case envelope.Code == http.StatusNotFound:
		return envelope, model.NewNotFound(op.Name, op.Field)
	case envelope.Code != 0 && envelope.Code != http.StatusOK:
		return envelope, model.NewSyncFailed(op.Name, envelope.Code, envelopeErrors(envelope.Errors))
	case envelope.Code == 0 && !envelope.Success:
		return envelope, model.NewSyncFailed(op.Name, statusCode, envelopeErrors(envelope.Errors))
	}

	return envelope, nil
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func graphQLErrors(errs []model.GraphQLError) error {
	if len(errs) == 0 {
		return errors.New("response carried no data")
	}

	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Message)
	}
	return errors.New(strings.Join(messages, "; "))
}

func envelopeErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.New(strings.Join(errs, "; "))
}

func emptyPatchError() error {
	return &model.ValidationError{
		Code:    constant.ERR_VALIDATION_CODE,
		Message: "patch carries no fields",
		Param:   "input",
	}
}
