package save

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/amalg/go-dungeon/internal/config"
	"github.com/amalg/go-dungeon/internal/dungeon"
)

var sample = State{
	PlayerPosition: dungeon.Position{Direction: dungeon.Down, X: 3, Z: 1},
	DungeonLevel:   1,
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "save.json"), zap.NewNop())

	if _, ok := store.Load(ctx); ok {
		t.Fatal("missing save should load as nothing")
	}
	if err := store.Save(ctx, sample); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok := store.Load(ctx)
	if !ok || got != sample {
		t.Fatalf("load = %+v, %v; want %+v", got, ok, sample)
	}

	next := sample
	next.DungeonLevel = 0
	if err := store.Save(ctx, next); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Load(ctx); got != next {
		t.Errorf("second save not visible: %+v", got)
	}
}

func TestFileStoreCorruptIsAbsent(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{{{"},
		{"empty", ""},
		{"missing level", `{"player_position":{"direction":"up","x":0,"z":0}}`},
		{"missing position", `{"dungeon_level":0}`},
		{"bad direction", `{"player_position":{"direction":"north","x":0,"z":0},"dungeon_level":0}`},
		{"negative level", `{"player_position":{"direction":"up","x":0,"z":0},"dungeon_level":-2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "save.json")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if s, ok := NewFileStore(path, nil).Load(context.Background()); ok {
				t.Errorf("corrupt save loaded as %+v", s)
			}
		})
	}
}

func TestDecodeAcceptsAnyDirectionCase(t *testing.T) {
	s, err := Decode([]byte(`{"player_position":{"direction":"Left","x":2,"z":5},"dungeon_level":3}`))
	if err != nil {
		t.Fatal(err)
	}
	want := State{PlayerPosition: dungeon.Position{Direction: dungeon.Left, X: 2, Z: 5}, DungeonLevel: 3}
	if s != want {
		t.Errorf("decode = %+v, want %+v", s, want)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if _, ok := m.Load(ctx); ok {
		t.Fatal("fresh memory store should be empty")
	}
	if err := m.Save(ctx, sample); err != nil {
		t.Fatal(err)
	}
	if got, ok := m.Load(ctx); !ok || got != sample {
		t.Errorf("load = %+v, %v", got, ok)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := m.Save(cancelled, State{}); err == nil {
		t.Error("save with cancelled context should fail")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.Save{Backend: config.BackendFile, Path: filepath.Join(t.TempDir(), "s.json")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Errorf("file backend returned %T", s)
	}

	s, err = Open(ctx, config.Save{Backend: config.BackendMemory}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("memory backend returned %T", s)
	}

	if _, err := Open(ctx, config.Save{Backend: "floppy"}, nil); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("DUNGEON_TEST_DSN")
	if dsn == "" {
		t.Skip("DUNGEON_TEST_DSN not set")
	}
	ctx := context.Background()
	store, err := NewPostgresStore(ctx, dsn, "test-"+t.Name(), zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer store.Close()
	defer store.Delete(ctx)

	if err := store.Delete(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Load(ctx); ok {
		t.Fatal("empty slot should load as nothing")
	}
	if err := store.Save(ctx, sample); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, ok := store.Load(ctx); !ok || got != sample {
		t.Errorf("load = %+v, %v", got, ok)
	}
}
