package game

import (
	"github.com/amalg/go-dungeon/internal/dungeon"
	"github.com/amalg/go-dungeon/internal/motion"
)

// Plan describes how to animate an outcome from the position held before
// the command. Accepted outcomes glide; rejected ones bounce off the wall
// and end where they started.
func Plan(before dungeon.Position, out Outcome) motion.Transition {
	if out.Verdict == Rejected {
		return motion.NewBounce(before, out.Attempted)
	}
	return motion.NewGlide(before, out.Position)
}

// ResolveMessage is the text to show for a player standing on (x, z): the
// occupant's message, or "" when there is none. It keeps no state, so the
// same cell yields the same text every time.
func ResolveMessage(level *dungeon.Level, x, z int) string {
	if level == nil {
		return ""
	}
	e, ok := level.EntityAt(x, z)
	if !ok || e.Type != dungeon.Cat {
		return ""
	}
	return e.Text()
}

// Spawn is the starting position on a level: its PlayerStart marker, or
// the top-left cell facing left when the level has none.
func Spawn(level *dungeon.Level) dungeon.Position {
	if level != nil {
		if start, ok := level.PlayerStart(); ok {
			return start.Position()
		}
	}
	return dungeon.Position{Direction: dungeon.Left}
}
