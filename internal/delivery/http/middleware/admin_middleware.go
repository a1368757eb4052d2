package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/c0dezer019/Presence/internal/util"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AdminMiddleware struct {
	Log   *zap.Logger
	Token string
}

func NewAdminMiddleware(zap *zap.Logger, token string) *AdminMiddleware {
	return &AdminMiddleware{
		Log:   zap,
		Token: token,
	}
}

// ProtectedRoute accepts "Authorization: Bearer <ADMIN_TOKEN>". With no token configured
// every request is rejected.
func (middleware *AdminMiddleware) ProtectedRoute() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		header := ctx.Get(fiber.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")
		if middleware.Token == "" || !found ||
			subtle.ConstantTimeCompare([]byte(token), []byte(middleware.Token)) != 1 {
			middleware.Log.Warn("rejected admin request", zap.String("ip", ctx.IP()), zap.String("path", ctx.Path()))
			return util.SendErrorResponseUnauthorized(ctx)
		}

		return ctx.Next()
	}
}
