package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/c0dezer019/Presence/internal/constant"
	"github.com/c0dezer019/Presence/internal/middleware"
	"github.com/c0dezer019/Presence/internal/model"
	"github.com/c0dezer019/Presence/internal/usecase"
	"github.com/c0dezer019/Presence/internal/util"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type StatusController struct {
	ActivityUsecase *usecase.ActivityUsecase
	SyncUsecase     *usecase.SyncUsecase
	Log             *zap.Logger
	Now             func() time.Time
}

func NewStatusController(activityUsecase *usecase.ActivityUsecase, syncUsecase *usecase.SyncUsecase, zap *zap.Logger) *StatusController {
	return &StatusController{
		ActivityUsecase: activityUsecase,
		SyncUsecase:     syncUsecase,
		Log:             zap,
		Now:             time.Now,
	}
}

func (controller *StatusController) Health(ctx *fiber.Ctx) error {
	err := controller.ActivityUsecase.Ping(ctx.UserContext())
	if err != nil {
		middleware.GetLoggerFromContext(ctx, controller.Log).Warn("health check failed", zap.Error(err))
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"cache":  "unavailable",
		})
	}

	return ctx.JSON(fiber.Map{"status": "ok", "cache": "ok"})
}

func (controller *StatusController) GuildStatus(ctx *fiber.Ctx) error {
	log := middleware.GetLoggerFromContext(ctx, controller.Log)

	guildID, err := snowflakeParam(ctx, "guildId")
	if err != nil {
		return util.SendErrorResponse(ctx, err)
	}

	response, err := controller.ActivityUsecase.ReadGuildStatus(ctx.UserContext(), guildID, controller.Now())
	if err != nil {
		return util.SendCoreErrorResponse(ctx, log, err)
	}

	return util.SendSuccessResponseWithData(ctx, response)
}

func (controller *StatusController) MemberStatus(ctx *fiber.Ctx) error {
	log := middleware.GetLoggerFromContext(ctx, controller.Log)

	guildID, err := snowflakeParam(ctx, "guildId")
	if err != nil {
		return util.SendErrorResponse(ctx, err)
	}
	memberID, err := snowflakeParam(ctx, "memberId")
	if err != nil {
		return util.SendErrorResponse(ctx, err)
	}

	response, err := controller.ActivityUsecase.ReadStatus(ctx.UserContext(), guildID, memberID, controller.Now())
	if err != nil {
		return util.SendCoreErrorResponse(ctx, log, err)
	}

	return util.SendSuccessResponseWithData(ctx, response)
}

func (controller *StatusController) PurgeMember(ctx *fiber.Ctx) error {
	log := middleware.GetLoggerFromContext(ctx, controller.Log)

	guildID, err := snowflakeParam(ctx, "guildId")
	if err != nil {
		return util.SendErrorResponse(ctx, err)
	}
	memberID, err := snowflakeParam(ctx, "memberId")
	if err != nil {
		return util.SendErrorResponse(ctx, err)
	}

	err = controller.SyncUsecase.PurgeMember(ctx.UserContext(), guildID, memberID)
	if err != nil {
		var validationErr *model.ValidationError
		if errors.As(err, &validationErr) {
			return util.SendErrorResponse(ctx, err)
		}
		return util.SendCoreErrorResponse(ctx, log, err)
	}

	return util.SendSuccessResponseNoData(ctx)
}

// Discord ids are unsigned 64-bit snowflakes.
func snowflakeParam(ctx *fiber.Ctx, name string) (string, error) {
	value := ctx.Params(name)
	if _, err := strconv.ParseUint(value, 10, 64); err != nil {
		return "", &model.ValidationError{
			Code:    constant.ERR_VALIDATION_CODE,
			Message: name + " must be a discord snowflake",
			Param:   name,
		}
	}

	return value, nil
}
