package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

var ErrMatchNotFound = errors.New("match not found")

// recentMatchesLimit caps the matches:recent list.
const recentMatchesLimit = 100

type MatchRepository interface {
	Save(ctx context.Context, record *entity.MatchRecord) error
	GetByRoomID(ctx context.Context, roomID string) (*entity.MatchRecord, error)
	ListRecentRoomIDs(ctx context.Context) ([]string, error)
}

type dbMatch struct {
	client *redis.Client
}

func NewMatchRepository(client *redis.Client) MatchRepository {
	return &dbMatch{
		client: client,
	}
}

func (that *dbMatch) Save(ctx context.Context, record *entity.MatchRecord) error {
	matchJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("could not marshal match: %w", err)
	}

	matchKey := "match:" + record.RoomID
	if err = that.client.Set(ctx, matchKey, matchJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set match: %w", err)
	}

	if err = that.client.LPush(ctx, "matches:recent", record.RoomID).Err(); err != nil {
		return fmt.Errorf("failed to push recent match: %w", err)
	}

	if err = that.client.LTrim(ctx, "matches:recent", 0, recentMatchesLimit-1).Err(); err != nil {
		return fmt.Errorf("failed to trim recent matches: %w", err)
	}

	return nil
}

func (that *dbMatch) GetByRoomID(ctx context.Context, roomID string) (*entity.MatchRecord, error) {
	matchKey := "match:" + roomID

	response, err := that.client.Get(ctx, matchKey).Result()

	if errors.Is(err, redis.Nil) {
		return &entity.MatchRecord{}, ErrMatchNotFound
	}

	if err != nil {
		return &entity.MatchRecord{}, fmt.Errorf("failed to get match by room ID: %w", err)
	}

	var existingMatch entity.MatchRecord
	if err = json.Unmarshal([]byte(response), &existingMatch); err != nil {
		return &entity.MatchRecord{}, fmt.Errorf("failed to unmarshal match: %w", err)
	}

	return &existingMatch, nil
}

func (that *dbMatch) ListRecentRoomIDs(ctx context.Context) ([]string, error) {
	ids, err := that.client.LRange(ctx, "matches:recent", 0, recentMatchesLimit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recent matches: %w", err)
	}

	return ids, nil
}
