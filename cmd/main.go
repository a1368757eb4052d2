package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c0dezer019/Presence/internal/config"
	"github.com/c0dezer019/Presence/internal/delivery/http/middleware"
	"github.com/c0dezer019/Presence/internal/exception"
	traceMiddleware "github.com/c0dezer019/Presence/internal/middleware"
	"github.com/c0dezer019/Presence/internal/observability"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2/middleware/compress"
	zapLog "go.uber.org/zap"
)

func main() {
	time.Local = time.UTC

	// koanf needs a logger before the log settings are known
	bootLog := config.NewZap(config.LogConfig{})
	koanf := config.NewKoanf(bootLog)

	zap := config.NewZap(config.LoadLogConfig(koanf))
	presence := config.LoadPresenceConfig(koanf, zap)

	shutdownTracing, err := observability.Init(context.Background(), config.LoadObservabilityConfig(koanf), zap)
	if err != nil {
		zap.Fatal("failed to init tracing", zapLog.Error(err))
	}

	fiber := config.NewFiber()
	rds := config.NewRedisClient(koanf, zap)
	discord := config.NewDiscord(presence.DiscordToken, zap)

	fiber.Use(exception.Recovery(zap))
	fiber.Use(otelfiber.Middleware())
	fiber.Use(traceMiddleware.TraceLoggerMiddleware(zap))
	fiber.Use(middleware.SetupCORS(presence.CORSAllowOrigins))
	fiber.Use(middleware.SetupRateLimiter(zap))
	fiber.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app := &config.AppConfig{
		Router:   fiber,
		DBCache:  rds,
		Discord:  discord,
		Log:      zap,
		Presence: presence,
	}
	config.App(app)

	err = discord.Open()
	if err != nil {
		zap.Fatal("failed to open discord session", zapLog.Error(err))
	}

	err = app.DiscordRouter.Register()
	if err != nil {
		zap.Warn("failed to register slash commands", zapLog.Error(err))
	}

	zap.Info("Server is running on: " + presence.HTTPAddr)

	go func() {
		err := fiber.Listen(presence.HTTPAddr)
		if err != nil {
			zap.Fatal("error starting server", zapLog.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	zap.Info("got one of stop signals")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = app.Close(ctx)
	if err != nil {
		zap.Warn("timeout, forced kill!", zapLog.Error(err))
		_ = zap.Sync()
		os.Exit(1)
	}

	err = shutdownTracing(ctx)
	if err != nil {
		zap.Warn("failed to flush traces", zapLog.Error(err))
	}

	zap.Info("presence has shut down gracefully")
	_ = zap.Sync()
}
