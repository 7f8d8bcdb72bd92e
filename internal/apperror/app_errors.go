package apperror

import "errors"

var (
	ErrOutOfRange     = errors.New("coordinates out of range")
	ErrBadBoardFormat = errors.New("malformed board string")
	ErrRoomFull       = errors.New("room already has two players")
	ErrRoomNotFound   = errors.New("room not found")
	ErrNotIdentified  = errors.New("connection is not identified")
	ErrNotInRoom      = errors.New("connection has not joined a room")
	ErrConnNotFound   = errors.New("connection not found")
)
