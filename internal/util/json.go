package util

import (
	"errors"

	"github.com/c0dezer019/Presence/internal/constant"
	"github.com/c0dezer019/Presence/internal/model"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func SendSuccessResponseNoData(ctx *fiber.Ctx) error {
	err := ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "OK",
	})
	if err != nil {
		return err
	}
	return nil
}

func SendSuccessResponseWithData(ctx *fiber.Ctx, data interface{}) error {
	err := ctx.Status(fiber.StatusOK).JSON(data)
	if err != nil {
		return err
	}

	return nil
}

func SendErrorResponse(ctx *fiber.Ctx, error error) error {
	err := ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": error,
	})
	if err != nil {
		return err
	}

	return nil
}

func SendErrorResponseUnauthorized(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    constant.ERR_UNATHORIZED_ERROR,
			"message": "A valid admin token is required",
		},
	})
}

// SendCoreErrorResponse maps a CoreError code to its HTTP status. Anything else is a 500.
func SendCoreErrorResponse(ctx *fiber.Ctx, log *zap.Logger, error error) error {
	var coreErr *model.CoreError
	if !errors.As(error, &coreErr) {
		return SendErrorResponseInternalServer(ctx, log, error)
	}

	status := fiber.StatusInternalServerError
	switch coreErr.Code {
	case constant.ERR_NOT_FOUND_ERROR, constant.ERR_GUILD_NOT_BOOTSTRAPPED_CODE:
		status = fiber.StatusNotFound
	case constant.ERR_INVALID_RANGE_CODE:
		status = fiber.StatusBadRequest
	case constant.ERR_STORE_UNAVAILABLE_CODE:
		status = fiber.StatusServiceUnavailable
	case constant.ERR_SYNC_FAILED_CODE:
		status = fiber.StatusBadGateway
	case constant.ERR_SYNC_TIMEOUT_CODE:
		status = fiber.StatusGatewayTimeout
	}

	if status >= fiber.StatusInternalServerError {
		log.Warn("request failed", zap.Error(error))
	}

	return ctx.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    coreErr.Code,
			"message": coreErr.Message,
		},
	})
}

func SendErrorResponseInternalServer(ctx *fiber.Ctx, log *zap.Logger, error error) error {
	log.Error("internal server error occured", zap.Error(error))
	err := ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    constant.ERR_INTERNAL_SERVER_ERROR_CODE,
			"message": constant.ERR_INTENRAL_SERVER_ERROR_MESSAGE,
		},
	})

	if err != nil {
		return err
	}

	return err
}
