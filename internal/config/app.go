package config

import (
	"context"
	"errors"

	"github.com/c0dezer019/Presence/internal/delivery/discord"
	http "github.com/c0dezer019/Presence/internal/delivery/http"
	"github.com/c0dezer019/Presence/internal/delivery/http/middleware"
	"github.com/c0dezer019/Presence/internal/delivery/http/route"
	"github.com/c0dezer019/Presence/internal/repository"
	"github.com/c0dezer019/Presence/internal/usecase"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AppConfig owns the process-wide clients. Close releases them in reverse start order.
type AppConfig struct {
	Router   *fiber.App
	DBCache  *redis.Client
	Discord  *discordgo.Session
	Log      *zap.Logger
	Presence PresenceConfig

	DiscordRouter *discord.Router
}

func App(config *AppConfig) {
	settings := config.Presence.Tracking

	activityRepository := repository.NewActivityRepository(config.Log, config.DBCache)
	syncRepository := repository.NewSyncRepository(config.Log, config.Presence.GraphQLURL, config.Presence.SyncTimeout)

	activityUsecase := usecase.NewActivityUsecase(activityRepository, config.Log, settings)
	syncUsecase := usecase.NewSyncUsecase(activityUsecase, activityRepository, syncRepository, config.Log, settings)

	statusController := http.NewStatusController(activityUsecase, syncUsecase, config.Log)
	adminMiddleware := middleware.NewAdminMiddleware(config.Log, config.Presence.AdminToken)

	routeConfig := route.RouteConfig{
		App:              config.Router,
		Log:              config.Log,
		AdminMiddleware:  adminMiddleware,
		StatusController: statusController,
	}
	routeConfig.SetupRoute()

	config.DiscordRouter = discord.NewRouter(config.Discord, activityUsecase, syncUsecase, config.Log, settings)
	config.DiscordRouter.Handlers()
}

func (config *AppConfig) Close(ctx context.Context) error {
	var errs []error

	if config.Discord != nil {
		if err := config.Discord.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if config.Router != nil {
		if err := config.Router.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if config.DBCache != nil {
		if err := config.DBCache.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
