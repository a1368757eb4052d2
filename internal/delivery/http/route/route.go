package route

import (
	"github.com/c0dezer019/Presence/internal/delivery/http"
	"github.com/c0dezer019/Presence/internal/delivery/http/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type RouteConfig struct {
	App              *fiber.App
	Log              *zap.Logger
	AdminMiddleware  *middleware.AdminMiddleware
	StatusController *http.StatusController
}

func (c *RouteConfig) SetupRoute() {
	api := c.App.Group("/api")

	api.Get("/health", c.StatusController.Health)

	guildGroup := api.Group("/guilds")
	guildGroup.Get("/:guildId/status", c.StatusController.GuildStatus)
	guildGroup.Get("/:guildId/members/:memberId/status", c.StatusController.MemberStatus)

	adminGroup := api.Group("/admin", middleware.SetupAdminRateLimiter(c.Log), c.AdminMiddleware.ProtectedRoute())
	adminGroup.Delete("/guilds/:guildId/members/:memberId", c.StatusController.PurgeMember)
}
