package dungeon

import (
	"fmt"
	"strings"
)

// Direction is a facing or a tile edge on the grid.
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

// Directions lists every direction in clockwise order starting at Up.
var Directions = [...]Direction{Up, Right, Down, Left}

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	return d >= Up && d <= Left
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	default:
		return d
	}
}

// RotateRight turns clockwise: Right -> Down -> Left -> Up -> Right.
func (d Direction) RotateRight() Direction {
	switch d {
	case Right:
		return Down
	case Down:
		return Left
	case Left:
		return Up
	case Up:
		return Right
	default:
		return d
	}
}

// RotateLeft is the inverse of RotateRight.
func (d Direction) RotateLeft() Direction {
	switch d {
	case Right:
		return Up
	case Up:
		return Left
	case Left:
		return Down
	case Down:
		return Right
	default:
		return d
	}
}

// Delta returns the grid offset of one step in this direction.
// Up is towards negative z.
func (d Direction) Delta() (dx, dz int) {
	switch d {
	case Up:
		return 0, -1
	case Right:
		return 1, 0
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	default:
		return 0, 0
	}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection parses one of the four direction names, ignoring case.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(s) {
	case "up":
		return Up, true
	case "right":
		return Right, true
	case "down":
		return Down, true
	case "left":
		return Left, true
	default:
		return Up, false
	}
}

// ParseDirectionOr parses s and falls back to def when s is not a direction.
func ParseDirectionOr(s string, def Direction) Direction {
	if d, ok := ParseDirection(s); ok {
		return d
	}
	return def
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid direction %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	parsed, ok := ParseDirection(string(text))
	if !ok {
		return fmt.Errorf("invalid direction %q", string(text))
	}
	*d = parsed
	return nil
}
