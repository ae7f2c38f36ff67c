package graph

import (
	"errors"
	"strings"

	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// NewReadOnlyViolationError creates the terminal error returned when a query
// contains a mutating keyword. Never retryable, independent of role.
func NewReadOnlyViolationError(keyword string) *types.DcafError {
	return types.NewError(types.GRAPH_READ_ONLY,
		"mutating keyword "+keyword+" is not allowed in read-only queries")
}

// NewConnectionError creates a retryable connection failure error.
func NewConnectionError(message string, cause error) *types.DcafError {
	return types.WrapRetryableError(types.GRAPH_CONNECTION_FAILED, message, cause)
}

// NewSessionExpiredError creates a retryable session expiry error.
func NewSessionExpiredError(cause error) *types.DcafError {
	return types.WrapRetryableError(types.GRAPH_SESSION_EXPIRED, "backend session expired", cause)
}

// NewQueryError creates a non-retryable query execution error.
func NewQueryError(message string, cause error) *types.DcafError {
	return types.WrapError(types.GRAPH_QUERY_FAILED, message, cause)
}

// transientFragments are error-message fragments that indicate a transient
// transport failure worth one reconnect-and-retry cycle. Everything else
// (syntax, auth, not-found) propagates immediately.
var transientFragments = []string{
	"connection reset",
	"connection refused",
	"broken pipe",
	"session expired",
	"sessionexpired",
	"unexpected eof",
	"eof",
	"i/o timeout",
	"connectivity",
	"server unavailable",
}

// IsTransient reports whether err looks like a transient backend failure.
// DcafErrors use their Retryable flag; other errors are classified by
// message content, mirroring how the upstream drivers surface resets and
// expired sessions.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var dcafErr *types.DcafError
	if errors.As(err, &dcafErr) {
		return dcafErr.Retryable
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range transientFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
