package constant

import "time"

const (
	DefaultIdleTimeout      = 10 * time.Minute
	DefaultIdleHistoryCap   = 50
	DefaultSyncTimeout      = 3 * time.Second
	DefaultBootstrapWorkers = 8

	// Version written into every structured cache value.
	CacheSchemaVersion = 1
)

// Legacy text commands; messages starting with one of these are not activity.
var DefaultCommandPrefixes = []string{"?ping", "?reset", "?check", "?sync"}
