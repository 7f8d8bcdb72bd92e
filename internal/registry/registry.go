package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

// matchArchive - where finished games are recorded. Optional: a nil archive
// disables recording without affecting gameplay.
type matchArchive interface {
	Save(ctx context.Context, record *entity.MatchRecord) error
}

// session is one connection's registry-side state: its outbound handle, the
// self-reported display name, and (after a successful join) the room it sits
// in together with its seat. seatName is the name the seat was taken under;
// a later re-identify changes player but must not orphan the seat.
type session struct {
	conn       *Conn
	player     string
	identified bool
	room       *entity.Room
	seatName   string
	turnIndex  int
}

// Registry is the process-wide session state: the room directory and the
// connection table. It is the single piece of state shared by all connection
// handlers, so every read and write goes through its mutex; room membership
// keeps direct connection handles so fan-out never scans the table by player
// name.
type Registry struct {
	logger  *slog.Logger
	archive matchArchive

	mu      sync.Mutex
	nextID  int64
	conns   map[int64]*session
	rooms   map[string]*entity.Room
	members map[string][]*session
}

func New(logger *slog.Logger, archive matchArchive) *Registry {
	return &Registry{
		logger:  logger.With("component", "registry"),
		archive: archive,
		conns:   make(map[int64]*session),
		rooms:   make(map[string]*entity.Room),
		members: make(map[string][]*session),
	}
}

// Add - registers a freshly accepted connection. It stays unidentified until
// the client introduces itself.
func (that *Registry) Add(wire Wire) *Conn {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.nextID++
	conn := newConn(that.nextID, wire, that.logger)
	that.conns[conn.ID()] = &session{conn: conn}

	return conn
}

// Identify - binds a display name to the connection and returns a snapshot
// of joinable room ids. Names are not checked for uniqueness; rooms and
// sessions are keyed by connection id, the name is presentation only.
func (that *Registry) Identify(connID int64, playerName string) ([]string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	sess, ok := that.conns[connID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", apperror.ErrConnNotFound, connID)
	}

	sess.player = playerName
	sess.identified = true

	return that.listRoomIDsLocked(), nil
}

// CreateRoom - inserts a new empty room owned by the caller's display name
// and returns its identifier. The creator does not join implicitly.
func (that *Registry) CreateRoom(connID int64) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	sess, ok := that.conns[connID]
	if !ok {
		return "", fmt.Errorf("%w: %d", apperror.ErrConnNotFound, connID)
	}

	if !sess.identified {
		return "", apperror.ErrNotIdentified
	}

	roomID := GenerateRoomID(sess.player)
	for {
		if _, exists := that.rooms[roomID]; !exists {
			break
		}
		roomID = GenerateRoomID(sess.player)
	}

	that.rooms[roomID] = entity.NewRoom(roomID)

	that.logger.Info("room created", "room_id", roomID, "player", sess.player)

	return roomID, nil
}

// JoinRoom - seats the connection in the room and returns its 1-based turn
// index, or entity.TurnNone if the room is already full. The member's push
// handle is recorded at join time so later fan-outs go straight to the
// room's sockets.
func (that *Registry) JoinRoom(connID int64, roomID string) (int, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	sess, ok := that.conns[connID]
	if !ok {
		return entity.TurnNone, fmt.Errorf("%w: %d", apperror.ErrConnNotFound, connID)
	}

	if !sess.identified {
		return entity.TurnNone, apperror.ErrNotIdentified
	}

	room, ok := that.rooms[roomID]
	if !ok {
		return entity.TurnNone, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, roomID)
	}

	// Rejoining the occupied seat keeps it: tearing it down first would
	// empty (and delete) a room the caller is alone in.
	if sess.room == room {
		return sess.turnIndex, nil
	}

	turnIndex, err := room.Join(sess.player)
	if err != nil {
		// Room full is a wire-level -1, not a failure, and must not
		// evict the caller from the room it already sits in.
		return entity.TurnNone, nil
	}

	// A connection sits in at most one room: the old seat is vacated only
	// once the new one is secured.
	that.leaveRoomLocked(sess)

	sess.room = room
	sess.seatName = sess.player
	sess.turnIndex = turnIndex
	that.members[roomID] = append(that.members[roomID], sess)

	that.logger.Info("player joined room", "room_id", roomID, "player", sess.player, "turn_index", turnIndex)

	return turnIndex, nil
}

// Board - the serialized board of the caller's room.
func (that *Registry) Board(connID int64) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	sess, ok := that.conns[connID]
	if !ok {
		return "", fmt.Errorf("%w: %d", apperror.ErrConnNotFound, connID)
	}

	if sess.room == nil {
		return "", apperror.ErrNotInRoom
	}

	return sess.room.Board().Serialize(), nil
}

// PlaceResult describes the outcome of one placement and who to notify.
// Peers carries the connections of every room member (the mover included)
// so the transport can fan out pushes without touching registry state again.
type PlaceResult struct {
	Applied bool
	Win     bool
	Summary string
	Peers   []*Conn
}

// Place - applies one stone for the calling connection. The whole
// read-counts / validate / write sequence runs under the registry lock, so
// placements within a room are strictly serialized and the count-derived
// turn check cannot be raced. An out-of-turn or occupied-cell move is a
// no-op with Applied=false; the transport still acknowledges it.
//
// On a win the room is torn down immediately; the finished match is handed
// to the archive after the lock is released.
func (that *Registry) Place(ctx context.Context, connID int64, row, col int) (*PlaceResult, error) {
	result, record, err := that.place(connID, row, col)
	if err != nil {
		return nil, err
	}

	if record != nil && that.archive != nil {
		if archiveErr := that.archive.Save(ctx, record); archiveErr != nil {
			that.logger.Error("failed to archive finished match", "room_id", record.RoomID, "error", archiveErr)
		}
	}

	return result, nil
}

func (that *Registry) place(connID int64, row, col int) (*PlaceResult, *entity.MatchRecord, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	sess, ok := that.conns[connID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", apperror.ErrConnNotFound, connID)
	}

	room := sess.room
	if room == nil {
		return nil, nil, apperror.ErrNotInRoom
	}

	applied, err := room.Place(sess.turnIndex, row, col)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to place stone: %w", err)
	}

	if !applied {
		return &PlaceResult{}, nil, nil
	}

	result := &PlaceResult{
		Applied: true,
		Peers:   that.roomConnsLocked(room.ID),
	}

	if !room.Board().CheckWin(row, col, entity.Cell(sess.turnIndex)) {
		return result, nil, nil
	}

	result.Win = true
	result.Summary = fmt.Sprintf("%s wins", sess.player)

	record := &entity.MatchRecord{
		RoomID:     room.ID,
		Players:    append([]string(nil), room.Players...),
		Winner:     sess.turnIndex,
		WinnerName: sess.player,
		Board:      room.Board().Serialize(),
		FinishedAt: time.Now().UTC(),
	}

	// The game is over: tear the room down now so its id disappears from
	// listings even before the losers' sockets finish closing.
	for _, member := range that.members[room.ID] {
		member.room = nil
		member.seatName = ""
		member.turnIndex = 0
	}
	delete(that.members, room.ID)
	delete(that.rooms, room.ID)

	that.logger.Info("game finished", "room_id", record.RoomID, "winner", record.WinnerName)

	return result, record, nil
}

// Drop - removes a closed connection. Its room seat is vacated and an
// emptied room is deleted from the directory. Remaining members are not
// notified of the departure; that is an accepted protocol limitation.
func (that *Registry) Drop(connID int64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	sess, ok := that.conns[connID]
	if !ok {
		return
	}

	that.leaveRoomLocked(sess)
	delete(that.conns, connID)
}

// ListRoomIDs - a stable snapshot of joinable room identifiers.
func (that *Registry) ListRoomIDs() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.listRoomIDsLocked()
}

// RoomInfo is one row of the observability snapshot.
type RoomInfo struct {
	ID      string   `json:"id"`
	Players []string `json:"players"`
}

// Snapshot - rooms with their current occupants, for the REST surface.
func (that *Registry) Snapshot() []RoomInfo {
	that.mu.Lock()
	defer that.mu.Unlock()

	infos := make([]RoomInfo, 0, len(that.rooms))
	for _, id := range that.listRoomIDsLocked() {
		room := that.rooms[id]
		infos = append(infos, RoomInfo{
			ID:      id,
			Players: append([]string(nil), room.Players...),
		})
	}

	return infos
}

func (that *Registry) listRoomIDsLocked() []string {
	ids := make([]string, 0, len(that.rooms))
	for id := range that.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

func (that *Registry) roomConnsLocked(roomID string) []*Conn {
	members := that.members[roomID]

	conns := make([]*Conn, 0, len(members))
	for _, member := range members {
		conns = append(conns, member.conn)
	}

	return conns
}

func (that *Registry) leaveRoomLocked(sess *session) {
	room := sess.room
	if room == nil {
		return
	}

	room.Leave(sess.seatName)

	remaining := that.members[room.ID][:0]
	for _, member := range that.members[room.ID] {
		if member != sess {
			remaining = append(remaining, member)
		}
	}
	that.members[room.ID] = remaining

	if room.IsEmpty() {
		delete(that.rooms, room.ID)
		delete(that.members, room.ID)
		that.logger.Info("room deleted", "room_id", room.ID)
	}

	sess.room = nil
	sess.seatName = ""
	sess.turnIndex = 0
}
