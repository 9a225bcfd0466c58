package motion

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/amalg/go-dungeon/internal/dungeon"
)

const (
	// eyeHeight is the camera height above the floor.
	eyeHeight = 0.4
	// eyeSetback pulls the camera back from the tile centre, against the facing.
	eyeSetback = 0.4
)

var yAxis = mgl64.Vec3{0, 1, 0}

// Pose is a world-space translation and orientation.
type Pose struct {
	Translation mgl64.Vec3 `json:"translation"`
	Rotation    mgl64.Quat `json:"rotation"`
}

// Facing returns the yaw rotation for a grid direction. Up looks down -Z.
func Facing(d dungeon.Direction) mgl64.Quat {
	switch d {
	case dungeon.Up:
		return mgl64.QuatRotate(0, yAxis)
	case dungeon.Right:
		return mgl64.QuatRotate(-math.Pi/2, yAxis)
	case dungeon.Down:
		return mgl64.QuatRotate(math.Pi, yAxis)
	case dungeon.Left:
		return mgl64.QuatRotate(math.Pi/2, yAxis)
	default:
		return mgl64.QuatIdent()
	}
}

// PlayerPose is the camera pose for a player facing d on cell (x, z).
// x and z are floats so poses between cells can be expressed.
func PlayerPose(d dungeon.Direction, x, z float64) Pose {
	dx, dz := d.Delta()
	back := mgl64.Vec3{-float64(dx), 0, -float64(dz)}.Mul(eyeSetback)
	return Pose{
		Translation: mgl64.Vec3{x, 0, z}.Add(back).Add(mgl64.Vec3{0, eyeHeight, 0}),
		Rotation:    Facing(d),
	}
}

// PoseAt is PlayerPose for a grid position.
func PoseAt(p dungeon.Position) Pose {
	return PlayerPose(p.Direction, float64(p.X), float64(p.Z))
}

// Lerp interpolates translation linearly and rotation along the shortest arc.
func (p Pose) Lerp(to Pose, t float64) Pose {
	return Pose{
		Translation: p.Translation.Add(to.Translation.Sub(p.Translation).Mul(t)),
		Rotation:    slerpShortest(p.Rotation, to.Rotation, t),
	}
}

// ApproxEqual compares poses, treating q and -q as the same orientation.
func (p Pose) ApproxEqual(o Pose) bool {
	if !p.Translation.ApproxEqualThreshold(o.Translation, 1e-9) {
		return false
	}
	return math.Abs(math.Abs(p.Rotation.Dot(o.Rotation))-1) < 1e-9
}

// Heading returns the yaw of a rotation in degrees: 0 for Up, 90 for Right,
// 180 for Down and -90 for Left.
func Heading(q mgl64.Quat) float64 {
	v := q.Rotate(mgl64.Vec3{0, 0, -1})
	return mgl64.RadToDeg(math.Atan2(v.X(), -v.Z()))
}

func slerpShortest(a, b mgl64.Quat, t float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t)
}
