package dungeon

// Position is the player's facing and grid cell. Methods return new values;
// a Position is never shared between owners.
type Position struct {
	Direction Direction `json:"direction"`
	X         int       `json:"x"`
	Z         int       `json:"z"`
}

// Forward returns the position one cell ahead of the facing direction.
func (p Position) Forward() Position {
	dx, dz := p.Direction.Delta()
	p.X += dx
	p.Z += dz
	return p
}

// Backward returns the position one cell behind the facing direction.
// The facing is unchanged.
func (p Position) Backward() Position {
	dx, dz := p.Direction.Delta()
	p.X -= dx
	p.Z -= dz
	return p
}

func (p Position) RotatedRight() Position {
	p.Direction = p.Direction.RotateRight()
	return p
}

func (p Position) RotatedLeft() Position {
	p.Direction = p.Direction.RotateLeft()
	return p
}

// SameCell reports whether both positions address the same grid cell.
func (p Position) SameCell(o Position) bool {
	return p.X == o.X && p.Z == o.Z
}
