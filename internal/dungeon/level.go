package dungeon

// Level is one playable floor. Its tile and entity lists are fixed once built.
type Level struct {
	Identifier string   `json:"identifier,omitempty"`
	Width      int      `json:"width"`
	Length     int      `json:"length"`
	Tiles      []Tile   `json:"tiles"`
	Entities   []Entity `json:"entities"`
}

// TileAt returns the first tile recorded at (x, z).
func (l *Level) TileAt(x, z int) (Tile, bool) {
	for _, t := range l.Tiles {
		if t.X == x && t.Z == z {
			return t, true
		}
	}
	return Tile{}, false
}

// EntityAt returns the occupant of (x, z). PlayerStart markers are never
// occupants, so they are skipped even when they share the cell.
func (l *Level) EntityAt(x, z int) (Entity, bool) {
	for _, e := range l.Entities {
		if e.X != x || e.Z != z {
			continue
		}
		switch e.Type {
		case PlayerStart:
			continue
		case Cat:
			return e, true
		}
	}
	return Entity{}, false
}

// PlayerStart returns the spawn marker. When an author placed several the
// last one in document order wins.
func (l *Level) PlayerStart() (Entity, bool) {
	var (
		start Entity
		found bool
	)
	for _, e := range l.Entities {
		if e.Type == PlayerStart {
			start = e
			found = true
		}
	}
	return start, found
}

// Dungeon is every level of one authored document, read-only after Build.
type Dungeon struct {
	Levels []Level `json:"levels"`
}

// Level returns the level at index i.
func (d *Dungeon) Level(i int) (*Level, bool) {
	if d == nil || i < 0 || i >= len(d.Levels) {
		return nil, false
	}
	return &d.Levels[i], true
}

// Len returns the number of levels.
func (d *Dungeon) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Levels)
}
