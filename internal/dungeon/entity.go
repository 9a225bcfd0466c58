package dungeon

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEntity is returned for entity identifiers outside the closed set
// the authoring schema defines.
var ErrUnknownEntity = errors.New("unknown entity identifier")

// EntityType is the kind of point marker a level author placed.
type EntityType int

const (
	// PlayerStart only seeds the initial Position; it is never an occupant.
	PlayerStart EntityType = iota
	Cat
)

// ParseEntityType maps an authored identifier to its type, ignoring case.
func ParseEntityType(s string) (EntityType, error) {
	switch strings.ToLower(s) {
	case "playerstart":
		return PlayerStart, nil
	case "cat":
		return Cat, nil
	default:
		return PlayerStart, fmt.Errorf("%w: %q", ErrUnknownEntity, s)
	}
}

func (t EntityType) String() string {
	switch t {
	case PlayerStart:
		return "PlayerStart"
	case Cat:
		return "Cat"
	default:
		return fmt.Sprintf("EntityType(%d)", int(t))
	}
}

func (t EntityType) MarshalText() ([]byte, error) {
	switch t {
	case PlayerStart, Cat:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("invalid entity type %d", int(t))
	}
}

func (t *EntityType) UnmarshalText(text []byte) error {
	parsed, err := ParseEntityType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Entity is a point marker on a level.
type Entity struct {
	X         int        `json:"x"`
	Z         int        `json:"z"`
	Type      EntityType `json:"type"`
	Direction Direction  `json:"direction"`
	// Message is nil when the author left the field unset.
	Message *string `json:"message,omitempty"`
}

// Text returns the message, or "" when there is none.
func (e Entity) Text() string {
	if e.Message == nil {
		return ""
	}
	return *e.Message
}

// Position returns the entity's cell and facing as a Position.
func (e Entity) Position() Position {
	return Position{Direction: e.Direction, X: e.X, Z: e.Z}
}
