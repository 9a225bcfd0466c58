package game

import "github.com/amalg/go-dungeon/internal/dungeon"

// Step resolves one command against the level.
//
// Rotations always succeed. A step is blocked only when the tile at the
// current cell has a wall on the side being crossed: the facing side for
// StepForward, the opposite side for StepBackward. The destination tile is
// never consulted, and a cell without a tile record is open. Walls are
// expected to be authored on both sides of a shared edge.
func Step(level *dungeon.Level, pos dungeon.Position, cmd Command) Outcome {
	var next dungeon.Position
	var side dungeon.Direction

	switch cmd {
	case RotateLeft:
		next = pos.RotatedLeft()
		return Outcome{Verdict: Accepted, Position: next, Attempted: next}
	case RotateRight:
		next = pos.RotatedRight()
		return Outcome{Verdict: Accepted, Position: next, Attempted: next}
	case StepForward:
		next = pos.Forward()
		side = pos.Direction
	case StepBackward:
		next = pos.Backward()
		side = pos.Direction.Reverse()
	default:
		return Outcome{Verdict: Rejected, Position: pos, Attempted: pos}
	}

	if blocked(level, pos, side) {
		return Outcome{Verdict: Rejected, Position: pos, Attempted: next}
	}
	return Outcome{Verdict: Accepted, Position: next, Attempted: next}
}

func blocked(level *dungeon.Level, pos dungeon.Position, side dungeon.Direction) bool {
	if level == nil {
		return false
	}
	tile, ok := level.TileAt(pos.X, pos.Z)
	return ok && tile.HasWall(side)
}
