package model

import (
	"time"
)

// MemberRecord is the canonical member as the remote store returns it.
type MemberRecord struct {
	MemberID    string         `json:"memberId"`
	GuildID     string         `json:"guildId,omitempty"`
	Name        string         `json:"name,omitempty"`
	Nickname    *string        `json:"nickname,omitempty"`
	Username    string         `json:"username,omitempty"`
	AdminAccess bool           `json:"adminAccess"`
	Status      ActivityStatus `json:"status"`
	Flags       []string       `json:"flags"`
	LastAct     *LastActivity  `json:"lastAct,omitempty"`
	IdleStats   IdleStats      `json:"idleStats"`
	DateAdded   time.Time      `json:"dateAdded"`
}

// MemberSeed is what BootstrapMember needs. Record is nil when the remote store had nothing.
type MemberSeed struct {
	MemberID string
	Name     string
	Record   *MemberRecord
}

// GuildMember is a member as reported by the platform.
type GuildMember struct {
	MemberID    string
	DisplayName string
	Nickname    string
	IsBot       bool
}

// MemberActivity is the working copy kept under guild:{guild_id}:member:{member_id}.
type MemberActivity struct {
	GuildID        string
	MemberID       string
	Name           string
	Status         ActivityStatus
	AdminAccess    bool
	Flags          []string
	LastActivityAt time.Time
	IdleStats      IdleStats
	DateAdded      time.Time
}

func NewMemberActivity(guildID string, seed MemberSeed, now time.Time) MemberActivity {
	member := MemberActivity{
		GuildID:   guildID,
		MemberID:  seed.MemberID,
		Name:      seed.Name,
		Status:    StatusNew,
		Flags:     []string{},
		DateAdded: now.UTC(),
	}

	record := seed.Record
	if record == nil {
		return member
	}

	member.AdminAccess = record.AdminAccess
	if record.Status != "" {
		member.Status = ParseActivityStatus(string(record.Status))
	}
	if record.Flags != nil {
		member.Flags = record.Flags
	}
	if record.LastAct != nil {
		member.LastActivityAt = record.LastAct.Timestamp
	}
	member.IdleStats = record.IdleStats
	if !record.DateAdded.IsZero() {
		member.DateAdded = record.DateAdded
	}
	if member.Name == "" {
		member.Name = record.Name
	}

	return member
}

func (m MemberActivity) ToHash() (map[string]any, error) {
	flags, err := encodeStrings(m.Flags)
	if err != nil {
		return nil, err
	}

	idleStats, err := EncodeCacheValue(&m.IdleStats)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"guild_id":         m.GuildID,
		"member_id":        m.MemberID,
		"name":             m.Name,
		"status":           string(m.Status),
		"admin_access":     m.AdminAccess,
		"flags":            flags,
		"last_activity_ts": formatTime(m.LastActivityAt),
		"idle_stats":       idleStats,
		"date_added":       formatTime(m.DateAdded),
	}, nil
}

func ParseMemberActivity(hash map[string]string) (MemberActivity, error) {
	member := MemberActivity{
		GuildID:     hash["guild_id"],
		MemberID:    hash["member_id"],
		Name:        hash["name"],
		Status:      ParseActivityStatus(hash["status"]),
		AdminAccess: parseBool(hash["admin_access"]),
	}

	var err error
	member.Flags, err = decodeStrings(hash["flags"])
	if err != nil {
		return member, err
	}

	member.LastActivityAt, err = parseTime(hash["last_activity_ts"])
	if err != nil {
		return member, err
	}

	member.DateAdded, err = parseTime(hash["date_added"])
	if err != nil {
		return member, err
	}

	err = DecodeCacheValue(hash["idle_stats"], &member.IdleStats)
	if err != nil {
		return member, err
	}

	return member, nil
}

// MemberSyncMeta lives under member:{member_id}:{guild_id}:meta and records whether the last
// remote-affecting change reached the remote store.
type MemberSyncMeta struct {
	Reconciled   bool      `json:"reconciled"`
	LastSyncOp   string    `json:"lastSyncOp"`
	LastSyncCode int       `json:"lastSyncCode"`
	LastSyncAt   time.Time `json:"lastSyncAt"`
}

func (m MemberSyncMeta) ToHash() map[string]any {
	return map[string]any{
		"reconciled":     m.Reconciled,
		"last_sync_op":   m.LastSyncOp,
		"last_sync_code": m.LastSyncCode,
		"last_sync_at":   formatTime(m.LastSyncAt),
	}
}

func ParseMemberSyncMeta(hash map[string]string) (MemberSyncMeta, error) {
	meta := MemberSyncMeta{
		Reconciled: parseBool(hash["reconciled"]),
		LastSyncOp: hash["last_sync_op"],
	}

	meta.LastSyncCode = parseInt(hash["last_sync_code"])

	var err error
	meta.LastSyncAt, err = parseTime(hash["last_sync_at"])
	return meta, err
}

// MemberRename carries a nickname change for one guild.
type MemberRename struct {
	GuildID     string
	MemberID    string
	OldNick     string
	NewNick     string
	DisplayName string
}

// UserRename carries an account username change as seen from one guild. DisplayName is what the
// member now shows as in that guild.
type UserRename struct {
	GuildID     string
	MemberID    string
	OldName     string
	NewName     string
	DisplayName string
}
