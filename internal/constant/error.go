package constant

const (
	ERR_VALIDATION_CODE               = "VALIDATION_ERROR"
	ERR_INTERNAL_SERVER_ERROR_CODE    = "INTERNAL_SERVER_ERROR"
	ERR_INTENRAL_SERVER_ERROR_MESSAGE = "Something went wrong. If the problem persists, please contact support"
	ERR_NOT_FOUND_ERROR               = "NOT_FOUND_ERROR"
	ERR_UNATHORIZED_ERROR             = "UNAUTHORIEZED_ERROR"

	ERR_INVALID_RANGE_CODE          = "INVALID_RANGE"
	ERR_STORE_UNAVAILABLE_CODE      = "STORE_UNAVAILABLE"
	ERR_SYNC_FAILED_CODE            = "SYNC_FAILED"
	ERR_SYNC_TIMEOUT_CODE           = "SYNC_TIMEOUT"
	ERR_GUILD_NOT_BOOTSTRAPPED_CODE = "GUILD_NOT_BOOTSTRAPPED"
	ERR_CORRUPT_RECORD_CODE         = "CORRUPT_RECORD"

	ERR_STORE_UNAVAILABLE_MESSAGE = "Activity cache is unavailable, tracking is suspended until it recovers"
)
