package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/registry"
	"github.com/rocketscienceinc/gomoku-backend/internal/repository"
)

type Handlers interface {
	PingHandler(w http.ResponseWriter, _ *http.Request)
	RoomsHandler(w http.ResponseWriter, _ *http.Request)
	MatchesHandler(w http.ResponseWriter, r *http.Request)
}

type roomLister interface {
	Snapshot() []registry.RoomInfo
}

type matchArchive interface {
	GetByRoomID(ctx context.Context, roomID string) (*entity.MatchRecord, error)
	ListRecentRoomIDs(ctx context.Context) ([]string, error)
}

type handlers struct {
	rooms   roomLister
	matches matchArchive
}

func NewHandlers(rooms roomLister, matches matchArchive) Handlers {
	return &handlers{
		rooms:   rooms,
		matches: matches,
	}
}

func (that *handlers) PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (that *handlers) RoomsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(that.rooms.Snapshot()); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// MatchesHandler - the recently finished games, newest first. A record that
// expired between the id listing and its fetch is skipped, not an error.
func (that *handlers) MatchesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roomIDs, err := that.matches.ListRecentRoomIDs(ctx)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	records := make([]*entity.MatchRecord, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		record, getErr := that.matches.GetByRoomID(ctx, roomID)
		if errors.Is(getErr, repository.ErrMatchNotFound) {
			continue
		}
		if getErr != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		records = append(records, record)
	}

	w.Header().Set("Content-Type", "application/json")

	if err = json.NewEncoder(w).Encode(records); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}
