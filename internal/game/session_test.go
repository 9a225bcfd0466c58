package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/amalg/go-dungeon/internal/dungeon"
	"github.com/amalg/go-dungeon/internal/save"
)

// testDungeon has two levels.
//
// Level 0 is 2x1: the player starts at (0,0) facing right, a cat with a
// message sits on (1,0), and (1,0) is walled on its right side.
// Level 1 is 1x1 with no PlayerStart.
func testDungeon() *dungeon.Dungeon {
	return &dungeon.Dungeon{Levels: []dungeon.Level{
		{
			Identifier: "first",
			Width:      2,
			Length:     1,
			Tiles: []dungeon.Tile{
				dungeon.NewTile(0, 0, dungeon.Up, dungeon.Down, dungeon.Left),
				dungeon.NewTile(1, 0, dungeon.Up, dungeon.Down, dungeon.Right),
			},
			Entities: []dungeon.Entity{
				{X: 0, Z: 0, Type: dungeon.PlayerStart, Direction: dungeon.Right},
				{X: 1, Z: 0, Type: dungeon.Cat, Message: msg("hello")},
			},
		},
		{Identifier: "second", Width: 1, Length: 1},
	}}
}

func TestSessionRequiresPlayer(t *testing.T) {
	s := NewSession(testDungeon(), nil, nil)
	if _, err := s.Apply(StepForward); !errors.Is(err, ErrNoPlayer) {
		t.Errorf("Apply without player: %v", err)
	}
	if err := s.Save(context.Background()); !errors.Is(err, ErrNoPlayer) {
		t.Errorf("Save without player: %v", err)
	}
	if s.HasPlayer() {
		t.Error("new session should have no player")
	}
}

func TestSessionReset(t *testing.T) {
	s := NewSession(testDungeon(), nil, nil)
	ev := s.Reset()
	if ev.Kind != EventLevel || ev.LevelIndex != 0 || ev.LevelCount != 2 {
		t.Fatalf("unexpected reset event %+v", ev)
	}
	if ev.Level == nil || ev.Level.Identifier != "first" {
		t.Errorf("reset should carry the level, got %+v", ev.Level)
	}
	if ev.Player == nil || *ev.Player != (dungeon.Position{Direction: dungeon.Right}) {
		t.Errorf("player should spawn on PlayerStart, got %+v", ev.Player)
	}
	if ev.Message != "" {
		t.Errorf("reset clears the message, got %q", ev.Message)
	}
}

func TestSessionApplyEmitsMessages(t *testing.T) {
	s := NewSession(testDungeon(), nil, nil)
	s.Reset()

	ev, err := s.Apply(StepForward)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != EventMove || ev.Level != nil {
		t.Errorf("move events should not resend the level: %+v", ev)
	}
	if ev.Result == nil || ev.Result.Outcome.Verdict != Accepted {
		t.Fatalf("step onto the cat should be accepted: %+v", ev.Result)
	}
	if !ev.Result.Emitted || ev.Result.Message != "hello" || ev.Message != "hello" {
		t.Errorf("expected hello, got result %q event %q", ev.Result.Message, ev.Message)
	}

	// Blocked by the wall: message stays, nothing emitted.
	ev, _ = s.Apply(StepForward)
	if ev.Result.Outcome.Verdict != Rejected || ev.Result.Emitted {
		t.Errorf("wall step: %+v", ev.Result)
	}
	if ev.Message != "hello" {
		t.Errorf("rejected step must keep the message, got %q", ev.Message)
	}

	// Rotating on the same cell re-emits the same message.
	ev, _ = s.Apply(RotateLeft)
	if !ev.Result.Emitted || ev.Result.Message != "hello" {
		t.Errorf("rotation should re-emit, got %+v", ev.Result)
	}

	// Facing up, backward crosses the down wall of (1,0).
	ev, _ = s.Apply(StepBackward)
	if ev.Result.Outcome.Verdict != Rejected || ev.Message != "hello" {
		t.Errorf("backward into a wall: %s, message %q", ev.Result.Outcome.Verdict, ev.Message)
	}

	// Leaving clears it; the PlayerStart on (0,0) is not an occupant.
	s.Apply(RotateLeft)
	ev, _ = s.Apply(StepForward)
	if ev.Result.Outcome.Verdict != Accepted || ev.Message != "" || !ev.Result.Emitted {
		t.Errorf("leaving the cat should clear the message: %+v msg %q", ev.Result, ev.Message)
	}
}

func TestSessionChangeLevel(t *testing.T) {
	s := NewSession(testDungeon(), nil, nil)
	s.Reset()

	ev, err := s.ChangeLevel(1)
	if err != nil {
		t.Fatal(err)
	}
	if ev.LevelIndex != 1 || ev.Level.Identifier != "second" {
		t.Errorf("unexpected level event %+v", ev)
	}
	if *ev.Player != (dungeon.Position{Direction: dungeon.Left}) {
		t.Errorf("level without start should use the default spawn, got %+v", *ev.Player)
	}

	for _, i := range []int{-1, 2} {
		if _, err := s.ChangeLevel(i); !errors.Is(err, ErrLevelOutOfRange) {
			t.Errorf("ChangeLevel(%d): %v", i, err)
		}
	}
	if s.LevelIndex() != 1 {
		t.Error("failed change must keep the current level")
	}
}

func TestSessionSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := save.NewMemoryStore()
	s := NewSession(testDungeon(), store, nil)
	s.Reset()
	s.Apply(StepForward)
	if err := s.Save(ctx); err != nil {
		t.Fatal(err)
	}

	restored := NewSession(testDungeon(), store, nil)
	ev := restored.Load(ctx)
	if ev.LevelIndex != 0 || *ev.Player != (dungeon.Position{Direction: dungeon.Right, X: 1, Z: 0}) {
		t.Errorf("restored %+v at level %d", *ev.Player, ev.LevelIndex)
	}
}

func TestSessionLoadFallsBackToReset(t *testing.T) {
	ctx := context.Background()

	s := NewSession(testDungeon(), save.NewMemoryStore(), nil)
	ev := s.Load(ctx)
	if ev.LevelIndex != 0 || *ev.Player != (dungeon.Position{Direction: dungeon.Right}) {
		t.Errorf("empty store should reset, got %+v", ev)
	}

	store := save.NewMemoryStore()
	store.Save(ctx, save.State{DungeonLevel: 7, PlayerPosition: dungeon.Position{X: 9}})
	s = NewSession(testDungeon(), store, nil)
	ev = s.Load(ctx)
	if ev.LevelIndex != 0 || ev.Player.X != 0 {
		t.Errorf("save for a missing level should reset, got %+v", ev)
	}
}

func TestSessionReload(t *testing.T) {
	s := NewSession(testDungeon(), nil, nil)
	s.Reset()
	s.ChangeLevel(1)

	ev := s.Reload(testDungeon())
	if ev.LevelIndex != 1 {
		t.Errorf("reload should keep a level that still exists, got %d", ev.LevelIndex)
	}

	smaller := &dungeon.Dungeon{Levels: testDungeon().Levels[:1]}
	ev = s.Reload(smaller)
	if ev.LevelIndex != 0 || ev.LevelCount != 1 {
		t.Errorf("reload without the active level should reset, got %+v", ev)
	}

	s.Despawn()
	if ev = s.Reload(testDungeon()); ev.Player != nil || s.HasPlayer() {
		t.Errorf("reload must not spawn a player into an empty session: %+v", ev.Player)
	}
}

func TestSessionOnEvent(t *testing.T) {
	s := NewSession(testDungeon(), nil, nil)

	var mu sync.Mutex
	var kinds []EventKind
	s.OnEvent(func(ev Event) {
		// Calling back into the session must not deadlock.
		_ = s.LevelIndex()
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})

	s.Reset()
	s.Apply(RotateRight)
	s.Reload(testDungeon())

	mu.Lock()
	defer mu.Unlock()
	want := []EventKind{EventLevel, EventMove, EventLevel}
	if len(kinds) != len(want) {
		t.Fatalf("got %d events, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestSessionDespawn(t *testing.T) {
	s := NewSession(testDungeon(), nil, nil)
	s.Reset()
	s.Despawn()
	if s.HasPlayer() {
		t.Error("despawn should remove the player")
	}
	if ev := s.View(); ev.Player != nil {
		t.Errorf("view after despawn shows a player: %+v", ev.Player)
	}
}

func TestSessionConcurrentApply(t *testing.T) {
	s := NewSession(testDungeon(), nil, nil)
	s.Reset()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Apply(RotateRight)
				s.View()
			}
		}()
	}
	wg.Wait()

	// 400 right turns is a whole number of full turns.
	if got := s.View().Player.Direction; got != dungeon.Right {
		t.Errorf("facing %s after full turns", got)
	}
}
