package repository

import "github.com/gofiber/fiber/v2"

// syncOperation names one remote query or mutation and the top-level field its envelope sits under.
type syncOperation struct {
	Name   string
	Field  string
	Method string
	Query  string
}

const guildFields = `
	guildId
	name
	lastAct { ch type ts }
	idleStats { timesIdle avgIdleTime prevAvgs }
	status
	settings
	dateAdded`

const memberFields = `
	memberId
	guildId
	name
	nickname
	username
	adminAccess
	status
	flags
	lastAct { ch type ts }
	idleStats { timesIdle avgIdleTime prevAvgs }
	dateAdded`

const envelopeFields = `
	code
	success
	errors`

var (
	opFetchGuild = syncOperation{
		Name:   "Guild",
		Field:  "guild",
		Method: fiber.MethodPost,
		Query: `query Guild($guildId: Snowflake!) {
	guild(guildId: $guildId) {` + envelopeFields + `
		guild {` + guildFields + `
			members {` + memberFields + ` }
		}
	}
}`,
	}

	opFetchGuilds = syncOperation{
		Name:   "Guilds",
		Field:  "guilds",
		Method: fiber.MethodPost,
		Query: `query Guilds {
	guilds {` + envelopeFields + `
		guilds {` + guildFields + `
			members {` + memberFields + ` }
		}
	}
}`,
	}

	opUpsertGuild = syncOperation{
		Name:   "AddGuild",
		Field:  "addGuild",
		Method: fiber.MethodPost,
		Query: `mutation AddGuild($guildId: Snowflake!, $name: String!) {
	addGuild(guildId: $guildId, name: $name) {` + envelopeFields + `
		created
		guild {` + guildFields + ` }
	}
}`,
	}

	opUpdateGuild = syncOperation{
		Name:   "UpdateGuild",
		Field:  "updateGuild",
		Method: fiber.MethodPatch,
		Query: `mutation UpdateGuild($guildId: Snowflake!, $input: GuildUpdate!) {
	updateGuild(guildId: $guildId, input: $input) {` + envelopeFields + `
		guild {` + guildFields + ` }
	}
}`,
	}

	opRemoveGuild = syncOperation{
		Name:   "DeleteGuild",
		Field:  "deleteGuild",
		Method: fiber.MethodDelete,
		Query: `mutation DeleteGuild($guildId: Snowflake!) {
	deleteGuild(guildId: $guildId) {` + envelopeFields + ` }
}`,
	}

	opFetchMember = syncOperation{
		Name:   "GetMember",
		Field:  "member",
		Method: fiber.MethodPost,
		Query: `query GetMember($guildId: Snowflake!, $memberId: Snowflake!) {
	member(guildId: $guildId, memberId: $memberId) {` + envelopeFields + `
		created
		member {` + memberFields + ` }
	}
}`,
	}

	opFetchMembers = syncOperation{
		Name:   "Members",
		Field:  "members",
		Method: fiber.MethodPost,
		Query: `query Members {
	members {` + envelopeFields + `
		members {` + memberFields + ` }
	}
}`,
	}

	opUpdateMember = syncOperation{
		Name:   "UpdateMember",
		Field:  "updateMember",
		Method: fiber.MethodPatch,
		Query: `mutation UpdateMember($memberId: Snowflake!, $guildId: Snowflake!, $input: MemberUpdate!) {
	updateMember(memberId: $memberId, guildId: $guildId, input: $input) {` + envelopeFields + `
		member {` + memberFields + ` }
	}
}`,
	}

	opRemoveMember = syncOperation{
		Name:   "DeleteMember",
		Field:  "deleteMember",
		Method: fiber.MethodDelete,
		Query: `mutation DeleteMember($memberId: Snowflake!) {
	deleteMember(memberId: $memberId) {` + envelopeFields + ` }
}`,
	}

	opPurgeList = syncOperation{
		Name:   "PurgeList",
		Field:  "purgeList",
		Method: fiber.MethodPost,
		Query: `query PurgeList {
	purgeList {` + envelopeFields + `
		list { guildId members { memberId } }
	}
}`,
	}

	opAddToPurgeList = syncOperation{
		Name:   "AddToPurgeList",
		Field:  "addToPurgeList",
		Method: fiber.MethodPost,
		Query: `mutation AddToPurgeList($memberId: Snowflake!, $guildId: Snowflake!) {
	addToPurgeList(memberId: $memberId, guildId: $guildId) {` + envelopeFields + ` }
}`,
	}

	opRemoveFromPurgeList = syncOperation{
		Name:   "DeletePurgeListEntry",
		Field:  "deletePurgeListEntry",
		Method: fiber.MethodDelete,
		Query: `mutation DeletePurgeListEntry($memberId: Snowflake!) {
	deletePurgeListEntry(memberId: $memberId) {` + envelopeFields + ` }
}`,
	}
)
