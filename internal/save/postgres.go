package save

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
)

// PostgresStore keeps one save per slot in a dungeon_saves table. The row
// holds the same JSON document FileStore writes.
type PostgresStore struct {
	db   *sql.DB
	slot string
	log  *zap.Logger
}

// NewPostgresStore connects, pings and creates the table if needed.
func NewPostgresStore(ctx context.Context, dsn, slot string, log *zap.Logger) (*PostgresStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if slot == "" {
		slot = "default"
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &PostgresStore{db: db, slot: slot, log: log}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (p *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS dungeon_saves (
		slot TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	`
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *PostgresStore) Save(ctx context.Context, s State) error {
	data, err := Encode(s)
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}

	query := `
	INSERT INTO dungeon_saves (slot, data)
	VALUES ($1, $2)
	ON CONFLICT (slot)
	DO UPDATE SET data = $2, updated_at = NOW()
	`
	if _, err := p.db.ExecContext(ctx, query, p.slot, string(data)); err != nil {
		return fmt.Errorf("save slot %s: %w", p.slot, err)
	}
	return nil
}

func (p *PostgresStore) Load(ctx context.Context) (State, bool) {
	var data string
	err := p.db.QueryRowContext(ctx, `SELECT data FROM dungeon_saves WHERE slot = $1`, p.slot).Scan(&data)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			p.log.Warn("save query failed, ignoring", zap.String("slot", p.slot), zap.Error(err))
		}
		return State{}, false
	}

	s, err := Decode([]byte(data))
	if err != nil {
		p.log.Warn("save corrupt, ignoring", zap.String("slot", p.slot), zap.Error(err))
		return State{}, false
	}
	return s, true
}

// Delete removes the slot's row. Missing rows are not an error.
func (p *PostgresStore) Delete(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM dungeon_saves WHERE slot = $1`, p.slot)
	return err
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
