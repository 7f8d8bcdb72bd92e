package tcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/registry"
)

// Wire vocabulary. Replies answer the request that is in flight; pushSync
// and pushGameOver are the only unsolicited lines, and the client tells them
// apart from replies by prefix alone.
const (
	replyNone          = "none"
	replyDone          = "done"
	replyRoomsPrefix   = "rooms: "
	replyCreatedPrefix = "createSuccess: "

	pushSync          = "sync"
	pushMessagePrefix = "message: "
	replyErrorPrefix  = "error: "
)

// handleIdentify - "player: <name>": binds the display name and answers
// with the current room listing.
func (that *Server) handleIdentify(_ context.Context, conn *registry.Conn, name string) error {
	roomIDs, err := that.registry.Identify(conn.ID(), name)
	if err != nil {
		return that.sendError(conn, err)
	}

	return conn.Send(replyRoomsPrefix + "[" + strings.Join(roomIDs, ", ") + "]")
}

// handleNewRoom - "new": creates a room owned by the caller's name.
func (that *Server) handleNewRoom(_ context.Context, conn *registry.Conn, _ string) error {
	roomID, err := that.registry.CreateRoom(conn.ID())
	if err != nil {
		return that.sendError(conn, err)
	}

	return conn.Send(replyCreatedPrefix + roomID)
}

// handleJoin - "join: <roomId>": seats the caller and answers its turn
// index, or -1 when the room is already full.
func (that *Server) handleJoin(_ context.Context, conn *registry.Conn, roomID string) error {
	turnIndex, err := that.registry.JoinRoom(conn.ID(), roomID)
	if err != nil {
		return that.sendError(conn, err)
	}

	return conn.Send(strconv.Itoa(turnIndex))
}

// handleUpdate - "update": answers the serialized board of the caller's
// room.
func (that *Server) handleUpdate(_ context.Context, conn *registry.Conn, _ string) error {
	board, err := that.registry.Board(conn.ID())
	if err != nil {
		return that.sendError(conn, err)
	}

	return conn.Send(board)
}

// handlePlace - "place: <row> <col>": attempts the move and acknowledges
// with "done" whether or not it was applied; the client discovers a
// rejected move by updating and seeing an unchanged board. An applied move
// fans "sync" out to the room; a winning move fans the game-over message
// out and closes every participant.
func (that *Server) handlePlace(ctx context.Context, conn *registry.Conn, arg string) error {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		return conn.Send(replyNone)
	}

	row, errRow := strconv.Atoi(fields[0])
	col, errCol := strconv.Atoi(fields[1])
	if errRow != nil || errCol != nil {
		return conn.Send(replyNone)
	}

	result, err := that.registry.Place(ctx, conn.ID(), row, col)
	if err != nil {
		return that.sendError(conn, err)
	}

	// The mover's reply goes out before any push so its socket never
	// violates the strict request/reply framing.
	if err = conn.Send(replyDone); err != nil {
		return fmt.Errorf("failed to acknowledge move: %w", err)
	}

	switch {
	case result.Win:
		for _, peer := range result.Peers {
			peer.Push(pushMessagePrefix + result.Summary)
			if closeErr := peer.Close(); closeErr != nil {
				that.logger.Debug("failed to close finished game connection", "conn_id", peer.ID(), "error", closeErr)
			}
		}
	case result.Applied:
		for _, peer := range result.Peers {
			peer.Push(pushSync)
		}
	}

	return nil
}

// sendError - answers a failed command with an explicit error sentinel and
// keeps the connection alive. Unmet preconditions are client misbehavior,
// not server faults.
func (that *Server) sendError(conn *registry.Conn, err error) error {
	reason := "internal"

	switch {
	case errors.Is(err, apperror.ErrNotIdentified):
		reason = "identify first"
	case errors.Is(err, apperror.ErrNotInRoom):
		reason = "join a room first"
	case errors.Is(err, apperror.ErrRoomNotFound):
		reason = "room not found"
	case errors.Is(err, apperror.ErrOutOfRange):
		reason = "out of range"
	}

	that.logger.Warn("command rejected", "conn_id", conn.ID(), "reason", reason, "error", err)

	if sendErr := conn.Send(replyErrorPrefix + reason); sendErr != nil {
		return fmt.Errorf("failed to send error reply: %w", sendErr)
	}

	return nil
}
