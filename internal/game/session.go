package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/amalg/go-dungeon/internal/dungeon"
	"github.com/amalg/go-dungeon/internal/save"
)

var (
	// ErrLevelOutOfRange is returned when a level index has no level.
	ErrLevelOutOfRange = errors.New("level index out of range")
	// ErrNoPlayer is returned by operations that need a spawned player.
	ErrNoPlayer = errors.New("no active player")
)

// Session is the authoritative state of one play-through: the dungeon, the
// active level index and at most one player. All methods are safe for
// concurrent use; the dungeon itself is never mutated, only replaced.
type Session struct {
	mu      sync.Mutex
	dungeon *dungeon.Dungeon
	level   int
	player  *dungeon.Position // nil when nobody is playing
	message string
	store   save.Store
	log     *zap.Logger
	onEvent func(Event) // Called after every change, outside the lock
}

// NewSession creates a session on level 0 with no player. Call Reset or
// Load to spawn one.
func NewSession(d *dungeon.Dungeon, store save.Store, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if store == nil {
		store = save.NewMemoryStore()
	}
	return &Session{dungeon: d, store: store, log: log}
}

// OnEvent sets a callback invoked with every event the session produces,
// including those triggered by other goroutines (hot reload, remote
// controls). It is called without the session lock held.
func (s *Session) OnEvent(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvent = fn
}

// Reset moves to level 0 and respawns the player.
func (s *Session) Reset() Event {
	s.mu.Lock()
	ev := s.respawnLocked(0)
	fn := s.onEvent
	s.mu.Unlock()

	s.log.Info("session reset", zap.Int("level", ev.LevelIndex))
	s.emit(fn, ev)
	return ev
}

// Apply resolves one command for the player. Rejected steps leave the
// position and displayed message untouched.
func (s *Session) Apply(cmd Command) (Event, error) {
	s.mu.Lock()
	if s.player == nil {
		s.mu.Unlock()
		return Event{}, ErrNoPlayer
	}

	level := s.activeLevelLocked()
	before := *s.player
	out := Step(level, before, cmd)
	res := &Result{
		Command:    cmd,
		Outcome:    out,
		Transition: Plan(before, out),
	}
	if out.Verdict == Accepted {
		*s.player = out.Position
		res.Message = ResolveMessage(level, out.Position.X, out.Position.Z)
		res.Emitted = true
		s.message = res.Message
	}

	ev := s.eventLocked(EventMove)
	ev.Result = res
	fn := s.onEvent
	s.mu.Unlock()

	s.log.Debug("command resolved",
		zap.Stringer("command", cmd),
		zap.Stringer("verdict", out.Verdict),
		zap.Int("x", out.Position.X),
		zap.Int("z", out.Position.Z),
		zap.Stringer("facing", out.Position.Direction),
	)
	s.emit(fn, ev)
	return ev, nil
}

// ChangeLevel switches to level i and respawns the player there.
func (s *Session) ChangeLevel(i int) (Event, error) {
	s.mu.Lock()
	if _, ok := s.dungeon.Level(i); !ok {
		count := s.dungeon.Len()
		s.mu.Unlock()
		return Event{}, fmt.Errorf("change to level %d of %d: %w", i, count, ErrLevelOutOfRange)
	}
	ev := s.respawnLocked(i)
	fn := s.onEvent
	s.mu.Unlock()

	s.log.Info("level changed", zap.Int("level", i))
	s.emit(fn, ev)
	return ev, nil
}

// Save persists the player position and level index.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.player == nil {
		s.mu.Unlock()
		return ErrNoPlayer
	}
	state := save.State{PlayerPosition: *s.player, DungeonLevel: s.level}
	s.mu.Unlock()

	if err := s.store.Save(ctx, state); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.log.Info("session saved",
		zap.Int("level", state.DungeonLevel),
		zap.Int("x", state.PlayerPosition.X),
		zap.Int("z", state.PlayerPosition.Z),
	)
	return nil
}

// Load restores the saved level and position. With no usable save, or one
// naming a level this dungeon does not have, it resets instead.
func (s *Session) Load(ctx context.Context) Event {
	state, ok := s.store.Load(ctx)

	s.mu.Lock()
	if ok {
		if _, exists := s.dungeon.Level(state.DungeonLevel); !exists {
			s.log.Warn("save names a missing level, resetting",
				zap.Int("level", state.DungeonLevel),
				zap.Int("levels", s.dungeon.Len()),
			)
			ok = false
		}
	}

	var ev Event
	if ok {
		pos := state.PlayerPosition
		s.level = state.DungeonLevel
		s.player = &pos
		s.message = ""
		ev = s.eventLocked(EventLevel)
	} else {
		ev = s.respawnLocked(0)
	}
	fn := s.onEvent
	s.mu.Unlock()

	s.log.Info("session loaded", zap.Bool("restored", ok), zap.Int("level", ev.LevelIndex))
	s.emit(fn, ev)
	return ev
}

// Reload swaps in a rebuilt dungeon. The player stays put if the active
// level still exists, otherwise the session resets. A session without a
// player stays without one.
func (s *Session) Reload(d *dungeon.Dungeon) Event {
	s.mu.Lock()
	s.dungeon = d
	var ev Event
	kept := s.level < d.Len()
	switch {
	case s.player == nil:
		if !kept {
			s.level = 0
		}
		ev = s.eventLocked(EventLevel)
	case kept:
		ev = s.eventLocked(EventLevel)
	default:
		ev = s.respawnLocked(0)
	}
	fn := s.onEvent
	s.mu.Unlock()

	s.log.Info("dungeon reloaded", zap.Int("levels", d.Len()), zap.Bool("kept_position", kept))
	s.emit(fn, ev)
	return ev
}

// Despawn removes the player. The level index is kept.
func (s *Session) Despawn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player = nil
	s.message = ""
}

// View returns the current state as a level event without changing it.
func (s *Session) View() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventLocked(EventLevel)
}

// LevelIndex returns the active level index.
func (s *Session) LevelIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// LevelCount returns how many levels the current dungeon has.
func (s *Session) LevelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dungeon.Len()
}

// HasPlayer reports whether a player is spawned.
func (s *Session) HasPlayer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player != nil
}

// respawnLocked MUST be called while s.mu is held.
func (s *Session) respawnLocked(i int) Event {
	s.level = i
	pos := Spawn(s.activeLevelLocked())
	s.player = &pos
	s.message = ""
	return s.eventLocked(EventLevel)
}

// activeLevelLocked MUST be called while s.mu is held.
func (s *Session) activeLevelLocked() *dungeon.Level {
	level, _ := s.dungeon.Level(s.level)
	return level
}

// eventLocked copies the state into an Event. MUST be called while s.mu is held.
func (s *Session) eventLocked(kind EventKind) Event {
	ev := Event{
		Kind:       kind,
		LevelIndex: s.level,
		LevelCount: s.dungeon.Len(),
		Message:    s.message,
	}
	if kind == EventLevel {
		ev.Level = s.activeLevelLocked()
	}
	if s.player != nil {
		pos := *s.player
		ev.Player = &pos
	}
	return ev
}

func (s *Session) emit(fn func(Event), ev Event) {
	if fn != nil {
		fn(ev)
	}
}
