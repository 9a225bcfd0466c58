package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/amalg/go-dungeon/internal/config"
	"github.com/amalg/go-dungeon/internal/dungeon"
)

// State is the persisted part of a session.
type State struct {
	PlayerPosition dungeon.Position `json:"player_position"`
	DungeonLevel   int              `json:"dungeon_level"`
}

// Store persists a single session state.
//
// Load never fails: a missing, unreadable or corrupt save reports false and
// the caller starts over. Stores log what they discard.
type Store interface {
	Save(ctx context.Context, s State) error
	Load(ctx context.Context) (State, bool)
	Close() error
}

// Open builds the store selected by cfg.
func Open(ctx context.Context, cfg config.Save, log *zap.Logger) (Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.Path, log), nil
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendPostgres:
		return NewPostgresStore(ctx, cfg.DSN, cfg.Slot, log)
	default:
		return nil, fmt.Errorf("unknown save backend %q", cfg.Backend)
	}
}

// stateRecord mirrors State with optional fields so incomplete saves can be
// told apart from zero values.
type stateRecord struct {
	PlayerPosition *dungeon.Position `json:"player_position"`
	DungeonLevel   *int              `json:"dungeon_level"`
}

// Decode parses an encoded State and rejects records with missing fields or
// a negative level.
func Decode(data []byte) (State, error) {
	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return State{}, fmt.Errorf("decode save: %w", err)
	}
	if rec.PlayerPosition == nil {
		return State{}, errors.New("decode save: missing player_position")
	}
	if rec.DungeonLevel == nil {
		return State{}, errors.New("decode save: missing dungeon_level")
	}
	if *rec.DungeonLevel < 0 {
		return State{}, fmt.Errorf("decode save: negative dungeon_level %d", *rec.DungeonLevel)
	}
	return State{PlayerPosition: *rec.PlayerPosition, DungeonLevel: *rec.DungeonLevel}, nil
}

// Encode is the inverse of Decode.
func Encode(s State) ([]byte, error) {
	return json.Marshal(s)
}
