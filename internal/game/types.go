package game

import (
	"fmt"
	"strings"

	"github.com/amalg/go-dungeon/internal/dungeon"
	"github.com/amalg/go-dungeon/internal/motion"
)

// Command is one abstract player input. Exactly one is resolved per call.
type Command int

const (
	StepForward Command = iota
	StepBackward
	RotateLeft
	RotateRight
)

var commandNames = [...]string{
	StepForward:  "step_forward",
	StepBackward: "step_backward",
	RotateLeft:   "rotate_left",
	RotateRight:  "rotate_right",
}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return fmt.Sprintf("Command(%d)", int(c))
	}
	return commandNames[c]
}

// ParseCommand accepts the names produced by String, in any case.
func ParseCommand(s string) (Command, error) {
	for c, name := range commandNames {
		if strings.EqualFold(s, name) {
			return Command(c), nil
		}
	}
	return 0, fmt.Errorf("unknown command %q", s)
}

func (c Command) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(commandNames) {
		return nil, fmt.Errorf("unknown command %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Command) UnmarshalText(b []byte) error {
	parsed, err := ParseCommand(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// IsStep reports whether the command moves between cells.
func (c Command) IsStep() bool {
	return c == StepForward || c == StepBackward
}

// Verdict classifies a resolved command. A wall is a Rejected verdict,
// not an error.
type Verdict int

const (
	Accepted Verdict = iota
	Rejected
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

func (v Verdict) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *Verdict) UnmarshalText(b []byte) error {
	switch string(b) {
	case "accepted":
		*v = Accepted
	case "rejected":
		*v = Rejected
	default:
		return fmt.Errorf("unknown verdict %q", b)
	}
	return nil
}

// Outcome is what Step decided. Position is where the player is afterwards.
// Attempted is the cell the command aimed for; for a rejected step it
// differs from Position and drives the bounce.
type Outcome struct {
	Verdict   Verdict          `json:"verdict"`
	Position  dungeon.Position `json:"position"`
	Attempted dungeon.Position `json:"attempted"`
}

// Result bundles everything the presentation layer needs after a command.
type Result struct {
	Command    Command           `json:"command"`
	Outcome    Outcome           `json:"outcome"`
	Transition motion.Transition `json:"transition"`
	// Message is the occupant text at the new cell. It is only set when
	// Emitted is true; rejected commands leave the displayed text alone.
	Message string `json:"message"`
	Emitted bool   `json:"emitted"`
}

// EventKind distinguishes a move from a wholesale level (re)load.
type EventKind int

const (
	EventMove  EventKind = iota // A command was resolved
	EventLevel                  // The active level or player was replaced
)

func (k EventKind) String() string {
	switch k {
	case EventMove:
		return "move"
	case EventLevel:
		return "level"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *EventKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "move":
		*k = EventMove
	case "level":
		*k = EventLevel
	default:
		return fmt.Errorf("unknown event kind %q", b)
	}
	return nil
}

// Event is a snapshot of the session after a change. Level is only sent
// with EventLevel; move events reuse the level the receiver already has.
type Event struct {
	Kind       EventKind         `json:"kind"`
	LevelIndex int               `json:"level_index"`
	LevelCount int               `json:"level_count"`
	Level      *dungeon.Level    `json:"level,omitempty"`
	Player     *dungeon.Position `json:"player,omitempty"`
	Message    string            `json:"message"`
	Result     *Result           `json:"result,omitempty"`
}
