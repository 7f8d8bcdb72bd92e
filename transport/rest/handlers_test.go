package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/registry"
	"github.com/rocketscienceinc/gomoku-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	rooms []registry.RoomInfo
}

func (that *stubLister) Snapshot() []registry.RoomInfo {
	return that.rooms
}

type stubArchive struct {
	records map[string]*entity.MatchRecord
	recent  []string
}

func (that *stubArchive) GetByRoomID(_ context.Context, roomID string) (*entity.MatchRecord, error) {
	record, ok := that.records[roomID]
	if !ok {
		return &entity.MatchRecord{}, repository.ErrMatchNotFound
	}

	return record, nil
}

func (that *stubArchive) ListRecentRoomIDs(_ context.Context) ([]string, error) {
	return that.recent, nil
}

func TestPingHandler(t *testing.T) {
	// Given: the handlers over empty backends
	h := NewHandlers(&stubLister{}, &stubArchive{})

	// When: pinging
	rec := httptest.NewRecorder()
	h.PingHandler(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	// Then: pong
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestRoomsHandler(t *testing.T) {
	// Given: a lister with one half-full room
	h := NewHandlers(&stubLister{
		rooms: []registry.RoomInfo{
			{ID: "alice#aabbccdd", Players: []string{"bob"}},
		},
	}, &stubArchive{})

	// When: requesting the room listing
	rec := httptest.NewRecorder()
	h.RoomsHandler(rec, httptest.NewRequest(http.MethodGet, "/rooms", nil))

	// Then: the snapshot comes back as JSON
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []registry.RoomInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "alice#aabbccdd", got[0].ID)
	assert.Equal(t, []string{"bob"}, got[0].Players)
}

func TestMatchesHandler(t *testing.T) {
	t.Run("Recent matches come back newest first", func(t *testing.T) {
		// Given: an archive with two finished matches
		newest := &entity.MatchRecord{
			RoomID:     "bob#22222222",
			Players:    []string{"bob", "carol"},
			Winner:     entity.TurnWhite,
			WinnerName: "carol",
			FinishedAt: time.Now().UTC(),
		}
		oldest := &entity.MatchRecord{
			RoomID:     "alice#11111111",
			Players:    []string{"alice", "bob"},
			Winner:     entity.TurnBlack,
			WinnerName: "alice",
			FinishedAt: time.Now().UTC().Add(-time.Hour),
		}
		h := NewHandlers(&stubLister{}, &stubArchive{
			records: map[string]*entity.MatchRecord{
				newest.RoomID: newest,
				oldest.RoomID: oldest,
			},
			recent: []string{newest.RoomID, oldest.RoomID},
		})

		// When: requesting the match listing
		rec := httptest.NewRecorder()
		h.MatchesHandler(rec, httptest.NewRequest(http.MethodGet, "/matches", nil))

		// Then: both records, in recency order
		assert.Equal(t, http.StatusOK, rec.Code)

		var got []*entity.MatchRecord
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, newest.RoomID, got[0].RoomID)
		assert.Equal(t, oldest.RoomID, got[1].RoomID)
	})

	t.Run("An expired record is skipped, not an error", func(t *testing.T) {
		// Given: a recent id whose record is already gone
		kept := &entity.MatchRecord{RoomID: "alice#11111111", WinnerName: "alice"}
		h := NewHandlers(&stubLister{}, &stubArchive{
			records: map[string]*entity.MatchRecord{kept.RoomID: kept},
			recent:  []string{"ghost#00000000", kept.RoomID},
		})

		// When: requesting the match listing
		rec := httptest.NewRecorder()
		h.MatchesHandler(rec, httptest.NewRequest(http.MethodGet, "/matches", nil))

		// Then: only the surviving record is returned
		assert.Equal(t, http.StatusOK, rec.Code)

		var got []*entity.MatchRecord
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, kept.RoomID, got[0].RoomID)
	})
}
