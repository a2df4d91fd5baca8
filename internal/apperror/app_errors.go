package apperror

import "errors"

// wire and connection errors
var (
	ErrProtocol         = errors.New("protocol error")
	ErrConnectionClosed = errors.New("connection closed")
)

// lobby and store errors
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrUnknownGame     = errors.New("unknown game")
	ErrRoomFull        = errors.New("room is full")
	ErrWrongPassword   = errors.New("wrong password")
	ErrUnauthenticated = errors.New("login required")
	ErrPermission      = errors.New("permission denied")
	ErrInvalidRating   = errors.New("rating must be 1-5")
	ErrNotPlayed       = errors.New("you must play this game before reviewing")
	ErrStoreRequest    = errors.New("store request failed")
)

// session errors
var (
	ErrSpawn       = errors.New("spawn failed")
	ErrJoinTimeout = errors.New("join barrier timed out")
	ErrNoPlayers   = errors.New("no players connected")
)
