package dungeon

import (
	"encoding/json"

	"github.com/zyedidia/generic/mapset"
)

// Tile is one grid cell and the set of its edges that are walled off.
// The wall set is private so a built tile cannot be edited.
type Tile struct {
	X     int
	Z     int
	walls mapset.Set[Direction]
}

// NewTile builds a tile. Duplicate and invalid directions are dropped.
func NewTile(x, z int, walls ...Direction) Tile {
	set := mapset.New[Direction]()
	for _, d := range walls {
		if d.Valid() {
			set.Put(d)
		}
	}
	return Tile{X: x, Z: z, walls: set}
}

// HasWall reports whether the edge facing d is blocked.
func (t Tile) HasWall(d Direction) bool {
	return t.walls.Has(d)
}

// Walls returns the blocked edges in clockwise order starting at Up.
func (t Tile) Walls() []Direction {
	walls := make([]Direction, 0, 4)
	for _, d := range Directions {
		if t.walls.Has(d) {
			walls = append(walls, d)
		}
	}
	return walls
}

// Open reports whether no edge of the tile is walled.
func (t Tile) Open() bool {
	return t.walls.Size() == 0
}

type tileJSON struct {
	X     int         `json:"x"`
	Z     int         `json:"z"`
	Walls []Direction `json:"walls"`
}

func (t Tile) MarshalJSON() ([]byte, error) {
	return json.Marshal(tileJSON{X: t.X, Z: t.Z, Walls: t.Walls()})
}

func (t *Tile) UnmarshalJSON(data []byte) error {
	var raw tileJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = NewTile(raw.X, raw.Z, raw.Walls...)
	return nil
}
