package game

// Kind identifies an error class for metrics and wire replies.
type Kind string

const (
	KindInvalidSettings      Kind = "invalid_settings"
	KindGameNotFound         Kind = "game_not_found"
	KindInvalidPlayerID      Kind = "invalid_player_id"
	KindInvalidToken         Kind = "invalid_token"
	KindNotAuthorized        Kind = "not_authorized"
	KindRateLimitExceeded    Kind = "rate_limit_exceeded"
	KindLockTimeout          Kind = "lock_timeout"
	KindOptimisticLockFailed Kind = "optimistic_lock_failed"
	KindBufferOverflow       Kind = "buffer_overflow"
	KindIDExhausted          Kind = "id_allocation_exhausted"
	KindInvalidMessageType   Kind = "invalid_message_type"
	KindInvalidJSON          Kind = "invalid_json"
	KindUnknownMessageType   Kind = "unknown_message_type"
	KindInvalidTarget        Kind = "invalid_target"
	KindWrongState           Kind = "wrong_state_for_op"
	KindInternal             Kind = "internal"
)

// Error is a domain error carrying its wire-visible message. The message
// strings are part of the wire contract and must not be reworded.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Catalog of fixed user-visible errors.
var (
	ErrInvalidSettings = &Error{KindInvalidSettings, "Invalid settings"}
	ErrGameNotFound    = &Error{KindGameNotFound, "Game not found"}
	ErrInvalidPlayerID = &Error{KindInvalidPlayerID, "Invalid player ID"}
	ErrInvalidToken    = &Error{KindInvalidToken, "Invalid token"}
	ErrRateLimited     = &Error{KindRateLimitExceeded, "Rate limit exceeded"}
	ErrCreateFailed    = &Error{KindIDExhausted, "Failed to create game"}
	ErrAlreadyClaimed  = &Error{KindNotAuthorized, "Player already claimed"}
	ErrNotRunning      = &Error{KindWrongState, "Game is not running"}
	ErrNoTargets       = &Error{KindInvalidTarget, "No targets selected"}
	ErrTargetsLocked   = &Error{KindWrongState, "Cannot change targets now"}
	ErrOwnerOnlyReset  = &Error{KindNotAuthorized, "Only the game owner can reset"}
	ErrUpdateConflict  = &Error{KindOptimisticLockFailed, "Update conflict, please retry"}
	ErrLockTimeout     = &Error{KindLockTimeout, "Operation timed out"}
	ErrInternal        = &Error{KindInternal, "Internal error"}
)

// NotAuthorized builds a "Not authorized to <verb>" error.
func NotAuthorized(verb string) *Error {
	return &Error{KindNotAuthorized, "Not authorized to " + verb}
}

// MustClaim builds a "You must claim a player to <verb>" error.
func MustClaim(verb string) *Error {
	return &Error{KindNotAuthorized, "You must claim a player to " + verb}
}
