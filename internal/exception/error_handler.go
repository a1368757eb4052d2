package exception

import (
	"fmt"

	"github.com/c0dezer019/Presence/internal/constant"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func Recovery(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			var errMsg string
			switch v := r.(type) {
			case error:
				errMsg = v.Error()
			case string:
				errMsg = v
			default:
				errMsg = fmt.Sprintf("%v", v)
			}

			log.Error("panic occurred and recovered",
				zap.String("error", errMsg),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
			)

			err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    constant.ERR_INTERNAL_SERVER_ERROR_CODE,
					"message": constant.ERR_INTENRAL_SERVER_ERROR_MESSAGE,
				},
			})
		}()

		return c.Next()
	}
}
