package model

import (
	"time"
)

type ActivityStatus string

const (
	StatusNew    ActivityStatus = "new"
	StatusActive ActivityStatus = "active"
	StatusIdle   ActivityStatus = "idle"
)

func ParseActivityStatus(s string) ActivityStatus {
	switch ActivityStatus(s) {
	case StatusActive:
		return StatusActive
	case StatusIdle:
		return StatusIdle
	default:
		return StatusNew
	}
}

// LastActivity is where and when a guild last saw a qualifying message.
type LastActivity struct {
	Version     int       `json:"v,omitempty"`
	ChannelID   string    `json:"ch"`
	ChannelType string    `json:"type"`
	Timestamp   time.Time `json:"ts"`
}

// IdleStats keeps a bounded window of idle durations in seconds together with the running
// average and the averages it replaced.
type IdleStats struct {
	Version     int     `json:"v,omitempty"`
	TimesIdle   []int64 `json:"timesIdle"`
	AvgIdleTime int64   `json:"avgIdleTime"`
	PrevAvgs    []int64 `json:"prevAvgs"`
}

// Rollup records one idle period. The average covers the new entry before either history is
// trimmed from the front to historyCap.
func (s *IdleStats) Rollup(idle time.Duration, historyCap int) {
	s.TimesIdle = append(s.TimesIdle, int64(idle/time.Second))
	if s.AvgIdleTime != 0 {
		s.PrevAvgs = append(s.PrevAvgs, s.AvgIdleTime)
	}

	var sum int64
	for _, v := range s.TimesIdle {
		sum += v
	}
	s.AvgIdleTime = sum / int64(len(s.TimesIdle))

	s.TimesIdle = trimFront(s.TimesIdle, historyCap)
	s.PrevAvgs = trimFront(s.PrevAvgs, historyCap)
}

func trimFront(list []int64, limit int) []int64 {
	if limit > 0 && len(list) > limit {
		list = append([]int64(nil), list[len(list)-limit:]...)
	}
	return list
}

// ActivityEvent is a qualifying message seen by the router.
type ActivityEvent struct {
	GuildID     string
	MemberID    string
	MemberName  string
	ChannelID   string
	ChannelType string
	At          time.Time
}

type MemberStatus struct {
	GuildID        string         `json:"guildId"`
	MemberID       string         `json:"memberId"`
	Name           string         `json:"name"`
	Status         ActivityStatus `json:"status"`
	LastActivityAt *time.Time     `json:"lastActivityAt,omitempty"`
	IdleSeconds    int64          `json:"idleSeconds,omitempty"`
	Rendered       string         `json:"rendered"`
}

type GuildStatus struct {
	GuildID      string         `json:"guildId"`
	Name         string         `json:"name"`
	Status       ActivityStatus `json:"status"`
	LastActivity *LastActivity  `json:"lastActivity,omitempty"`
	IdleSeconds  int64          `json:"idleSeconds,omitempty"`
	Rendered     string         `json:"rendered"`
}

// TrackingSettings are the tunables of the activity store and the sync flow.
type TrackingSettings struct {
	IdleTimeout      time.Duration
	HistoryCap       int
	BootstrapWorkers int
	CommandPrefixes  []string
}
