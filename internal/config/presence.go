package config

import (
	"strings"
	"time"

	"github.com/c0dezer019/Presence/internal/constant"
	"github.com/c0dezer019/Presence/internal/model"

	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

type PresenceConfig struct {
	Tracking         model.TrackingSettings
	GraphQLURL       string
	SyncTimeout      time.Duration
	DiscordToken     string
	AdminToken       string
	HTTPAddr         string
	CORSAllowOrigins string
}

func LoadPresenceConfig(config *koanf.Koanf, log *zap.Logger) PresenceConfig {
	presenceConfig := PresenceConfig{
		Tracking: model.TrackingSettings{
			IdleTimeout:      config.Duration("IDLE_TIMEOUT"),
			HistoryCap:       config.Int("IDLE_HISTORY_CAP"),
			BootstrapWorkers: config.Int("BOOTSTRAP_WORKERS"),
			CommandPrefixes:  splitList(config.String("COMMAND_PREFIXES")),
		},
		GraphQLURL:       graphQLURL(config),
		SyncTimeout:      config.Duration("SYNC_TIMEOUT"),
		DiscordToken:     config.String("DISCORD_TOKEN"),
		AdminToken:       config.String("ADMIN_TOKEN"),
		HTTPAddr:         config.String("HTTP_ADDR"),
		CORSAllowOrigins: config.String("CORS_ALLOW_ORIGINS"),
	}

	if presenceConfig.Tracking.IdleTimeout <= 0 {
		presenceConfig.Tracking.IdleTimeout = constant.DefaultIdleTimeout
	}
	if presenceConfig.Tracking.HistoryCap <= 0 {
		presenceConfig.Tracking.HistoryCap = constant.DefaultIdleHistoryCap
	}
	if presenceConfig.Tracking.BootstrapWorkers <= 0 {
		presenceConfig.Tracking.BootstrapWorkers = constant.DefaultBootstrapWorkers
	}
	if len(presenceConfig.Tracking.CommandPrefixes) == 0 {
		presenceConfig.Tracking.CommandPrefixes = append([]string(nil), constant.DefaultCommandPrefixes...)
	}
	if presenceConfig.SyncTimeout <= 0 {
		presenceConfig.SyncTimeout = constant.DefaultSyncTimeout
	}
	if presenceConfig.HTTPAddr == "" {
		presenceConfig.HTTPAddr = ":8080"
	}

	if presenceConfig.DiscordToken == "" {
		log.Fatal("failed to get presence config", zap.String("missing", "DISCORD_TOKEN"))
	}
	if presenceConfig.GraphQLURL == "" {
		log.Fatal("failed to get presence config", zap.String("missing", "GRAPHQL_URL"))
	}
	if presenceConfig.AdminToken == "" {
		log.Warn("ADMIN_TOKEN not set, admin routes will reject every request")
	}

	return presenceConfig
}

// GRAPHQL_URL wins over the per-environment endpoints.
func graphQLURL(config *koanf.Koanf) string {
	if url := config.String("GRAPHQL_URL"); url != "" {
		return url
	}

	if strings.EqualFold(config.String("ENVIRONMENT"), "production") {
		return config.String("GRAPHQL_URL_PROD")
	}

	return config.String("GRAPHQL_URL_DEV")
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}

	return items
}
