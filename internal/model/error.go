package model

import (
	"errors"
	"fmt"

	"github.com/c0dezer019/Presence/internal/constant"
)

type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// CoreError is the typed failure returned by the activity store and the sync gateway.
// Two CoreErrors match under errors.Is when their codes are equal.
type CoreError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Operation  string `json:"operation,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	Err        error  `json:"-"`
}

var (
	ErrInvalidRange         = &CoreError{Code: constant.ERR_INVALID_RANGE_CODE, Message: "now is before since"}
	ErrStoreUnavailable     = &CoreError{Code: constant.ERR_STORE_UNAVAILABLE_CODE, Message: constant.ERR_STORE_UNAVAILABLE_MESSAGE}
	ErrSyncFailed           = &CoreError{Code: constant.ERR_SYNC_FAILED_CODE, Message: "remote sync failed"}
	ErrSyncTimeout          = &CoreError{Code: constant.ERR_SYNC_TIMEOUT_CODE, Message: "remote sync timed out"}
	ErrNotFound             = &CoreError{Code: constant.ERR_NOT_FOUND_ERROR, Message: "record not found"}
	ErrGuildNotBootstrapped = &CoreError{Code: constant.ERR_GUILD_NOT_BOOTSTRAPPED_CODE, Message: "guild is not bootstrapped in the cache"}
	ErrCorruptRecord        = &CoreError{Code: constant.ERR_CORRUPT_RECORD_CODE, Message: "cache record could not be decoded"}
)

func (e *CoreError) Error() string {
	msg := e.Message
	if e.Operation != "" {
		msg = e.Operation + ": " + msg
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Retryable reports whether the caller may try the operation again.
func (e *CoreError) Retryable() bool {
	return e.Code == constant.ERR_STORE_UNAVAILABLE_CODE || e.Code == constant.ERR_SYNC_TIMEOUT_CODE
}

func NewStoreUnavailable(operation string, err error) *CoreError {
	return &CoreError{
		Code:      constant.ERR_STORE_UNAVAILABLE_CODE,
		Message:   constant.ERR_STORE_UNAVAILABLE_MESSAGE,
		Operation: operation,
		Err:       err,
	}
}

func NewSyncFailed(operation string, statusCode int, err error) *CoreError {
	return &CoreError{
		Code:       constant.ERR_SYNC_FAILED_CODE,
		Message:    "remote sync failed",
		Operation:  operation,
		StatusCode: statusCode,
		Err:        err,
	}
}

func NewSyncTimeout(operation string, err error) *CoreError {
	return &CoreError{
		Code:      constant.ERR_SYNC_TIMEOUT_CODE,
		Message:   "remote sync timed out",
		Operation: operation,
		Err:       err,
	}
}

func NewNotFound(operation string, param string) *CoreError {
	return &CoreError{
		Code:      constant.ERR_NOT_FOUND_ERROR,
		Message:   param + " not found",
		Operation: operation,
	}
}

func NewGuildNotBootstrapped(guildID string) *CoreError {
	return &CoreError{
		Code:    constant.ERR_GUILD_NOT_BOOTSTRAPPED_CODE,
		Message: "guild " + guildID + " is not bootstrapped in the cache",
	}
}

// NewCorruptRecord reports a cache value that no longer decodes. It is never retried.
func NewCorruptRecord(key string, err error) *CoreError {
	return &CoreError{
		Code:      constant.ERR_CORRUPT_RECORD_CODE,
		Message:   "cache record could not be decoded",
		Operation: key,
		Err:       err,
	}
}

// IsRetryable reports whether err carries a retryable CoreError.
func IsRetryable(err error) bool {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Retryable()
	}
	return false
}

// StatusCodeOf extracts the remote status code from a sync failure, or 0.
func StatusCodeOf(err error) int {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.StatusCode
	}
	return 0
}
