package model

import (
	"github.com/bytedance/sonic"
)

type GraphQLRequest struct {
	OperationName string         `json:"operationName"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type GraphQLError struct {
	Message string `json:"message"`
}

type GraphQLResponse struct {
	Data   map[string]sonic.NoCopyRawMessage `json:"data"`
	Errors []GraphQLError                    `json:"errors"`
}

// SyncEnvelope wraps every remote payload.
type SyncEnvelope struct {
	Code    int              `json:"code"`
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Errors  []string         `json:"errors"`
	Created bool             `json:"created,omitempty"`
	Guild   *GuildRecord     `json:"guild,omitempty"`
	Guilds  []GuildRecord    `json:"guilds,omitempty"`
	Member  *MemberRecord    `json:"member,omitempty"`
	Members []MemberRecord   `json:"members,omitempty"`
	List    []PurgeListEntry `json:"list,omitempty"`
}

type PurgeListMember struct {
	MemberID string `json:"memberId"`
}

type PurgeListEntry struct {
	GuildID string            `json:"guildId"`
	Members []PurgeListMember `json:"members"`
}

func (e PurgeListEntry) Contains(memberID string) bool {
	for _, m := range e.Members {
		if m.MemberID == memberID {
			return true
		}
	}
	return false
}

// SyncNotification is relayed by the router to an operator channel when a remote call fails.
type SyncNotification struct {
	GuildID    string `json:"guildId"`
	Operation  string `json:"operation"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// GuildJoinReport summarizes GuildJoined.
type GuildJoinReport struct {
	GuildWritten  bool
	MembersSeeded int
	Failures      []SyncNotification
}
