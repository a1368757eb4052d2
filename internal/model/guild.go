package model

import (
	"time"
)

type GuildSettings struct {
	Version             int   `json:"v,omitempty"`
	KickInactiveMembers bool  `json:"kickInactiveMembers"`
	TimeBeforeInactive  []int `json:"timeBeforeInactive"`
}

// GuildRecord is the canonical guild as the remote store returns it.
type GuildRecord struct {
	GuildID   string         `json:"guildId"`
	Name      string         `json:"name"`
	LastAct   *LastActivity  `json:"lastAct,omitempty"`
	IdleStats IdleStats      `json:"idleStats"`
	Status    ActivityStatus `json:"status"`
	Settings  GuildSettings  `json:"settings"`
	Members   []MemberRecord `json:"members,omitempty"`
	DateAdded time.Time      `json:"dateAdded"`
}

// GuildMeta is the working copy kept under guild:{guild_id}:meta.
type GuildMeta struct {
	GuildID      string
	Name         string
	Status       ActivityStatus
	Settings     GuildSettings
	DateAdded    time.Time
	Reconciled   bool
	LastSyncCode int
}

// GuildStats is the working copy kept under guild:{guild_id}:stats.
type GuildStats struct {
	LastAct   LastActivity
	IdleStats IdleStats
}

func NewGuildCache(guildID string, record GuildRecord, now time.Time) (GuildMeta, GuildStats) {
	meta := GuildMeta{
		GuildID:      guildID,
		Name:         record.Name,
		Status:       ParseActivityStatus(string(record.Status)),
		Settings:     record.Settings,
		DateAdded:    record.DateAdded,
		Reconciled:   true,
		LastSyncCode: 200,
	}
	if meta.DateAdded.IsZero() {
		meta.DateAdded = now.UTC()
	}

	stats := GuildStats{IdleStats: record.IdleStats}
	if record.LastAct != nil {
		stats.LastAct = *record.LastAct
	}

	return meta, stats
}

func (m GuildMeta) ToHash() (map[string]any, error) {
	settings, err := EncodeCacheValue(&m.Settings)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"guild_id":       m.GuildID,
		"name":           m.Name,
		"status":         string(m.Status),
		"settings":       settings,
		"date_added":     formatTime(m.DateAdded),
		"reconciled":     m.Reconciled,
		"last_sync_code": m.LastSyncCode,
	}, nil
}

func ParseGuildMeta(hash map[string]string) (GuildMeta, error) {
	meta := GuildMeta{
		GuildID:      hash["guild_id"],
		Name:         hash["name"],
		Status:       ParseActivityStatus(hash["status"]),
		Reconciled:   parseBool(hash["reconciled"]),
		LastSyncCode: parseInt(hash["last_sync_code"]),
	}

	err := DecodeCacheValue(hash["settings"], &meta.Settings)
	if err != nil {
		return meta, err
	}

	meta.DateAdded, err = parseTime(hash["date_added"])
	return meta, err
}

func (s GuildStats) ToHash() (map[string]any, error) {
	lastAct, err := EncodeCacheValue(&s.LastAct)
	if err != nil {
		return nil, err
	}

	idleStats, err := EncodeCacheValue(&s.IdleStats)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"last_act":         lastAct,
		"last_activity_ts": formatTime(s.LastAct.Timestamp),
		"idle_stats":       idleStats,
	}, nil
}

func ParseGuildStats(hash map[string]string) (GuildStats, error) {
	stats := GuildStats{}

	err := DecodeCacheValue(hash["last_act"], &stats.LastAct)
	if err != nil {
		return stats, err
	}

	err = DecodeCacheValue(hash["idle_stats"], &stats.IdleStats)
	return stats, err
}
