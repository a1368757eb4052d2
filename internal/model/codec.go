package model

import (
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/c0dezer019/Presence/internal/constant"
)

// versioned is implemented by structured cache values that carry a schema version.
type versioned interface {
	schemaVersion() *int
}

func (a *LastActivity) schemaVersion() *int  { return &a.Version }
func (s *IdleStats) schemaVersion() *int     { return &s.Version }
func (s *GuildSettings) schemaVersion() *int { return &s.Version }

// EncodeCacheValue stamps the current schema version on v and encodes it as JSON.
func EncodeCacheValue(v versioned) (string, error) {
	if p := v.schemaVersion(); *p == 0 {
		*p = constant.CacheSchemaVersion
	}

	b, err := sonic.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeCacheValue decodes a structured cache value. Empty input leaves v untouched and values
// written before versioning decode as version 1.
func DecodeCacheValue(raw string, v versioned) error {
	if raw == "" {
		return nil
	}

	err := sonic.UnmarshalString(raw, v)
	if err != nil {
		return err
	}

	if p := v.schemaVersion(); *p == 0 {
		*p = 1
	}
	return nil
}

func encodeStrings(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	return sonic.MarshalString(list)
}

func decodeStrings(raw string) ([]string, error) {
	list := []string{}
	if raw == "" {
		return list, nil
	}
	err := sonic.UnmarshalString(raw, &list)
	return list, err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}

func parseBool(raw string) bool {
	b, _ := strconv.ParseBool(raw)
	return b
}

func parseInt(raw string) int {
	n, _ := strconv.Atoi(raw)
	return n
}
