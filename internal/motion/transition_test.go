package motion

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/amalg/go-dungeon/internal/dungeon"
)

func TestEaseEndpoints(t *testing.T) {
	for _, e := range []Ease{Linear, QuadraticOut} {
		if got := e.Apply(0); got != 0 {
			t.Errorf("%s(0) = %v", e, got)
		}
		if got := e.Apply(1); got != 1 {
			t.Errorf("%s(1) = %v", e, got)
		}
	}
	if got := QuadraticOut.Apply(0.5); got != 0.75 {
		t.Errorf("quadratic-out(0.5) = %v, want 0.75", got)
	}
}

func TestHeading(t *testing.T) {
	tests := map[dungeon.Direction]float64{
		dungeon.Up:    0,
		dungeon.Right: 90,
		dungeon.Down:  180,
		dungeon.Left:  -90,
	}
	for d, want := range tests {
		got := Heading(Facing(d))
		if math.Abs(math.Abs(got)-math.Abs(want)) > 1e-6 || (want != 180 && math.Abs(got-want) > 1e-6) {
			t.Errorf("Heading(%s) = %v, want %v", d, got, want)
		}
	}
}

func TestPlayerPoseSetsBackFromFacing(t *testing.T) {
	p := PlayerPose(dungeon.Right, 2, 3)
	want := mgl64.Vec3{1.6, 0.4, 3}
	if !p.Translation.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("translation = %v, want %v", p.Translation, want)
	}

	p = PlayerPose(dungeon.Up, 0, 0)
	want = mgl64.Vec3{0, 0.4, 0.4}
	if !p.Translation.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("translation = %v, want %v", p.Translation, want)
	}
}

func TestGlide(t *testing.T) {
	from := dungeon.Position{Direction: dungeon.Right, X: 0, Z: 0}
	to := dungeon.Position{Direction: dungeon.Right, X: 1, Z: 0}
	tr := NewGlide(from, to)

	if tr.Kind != KindGlide || len(tr.Phases) != 1 {
		t.Fatalf("expected single-phase glide, got %s with %d phases", tr.Kind, len(tr.Phases))
	}
	if tr.Duration() != 200*time.Millisecond {
		t.Errorf("glide should last 200ms, got %v", tr.Duration())
	}
	if tr.Phases[0].Ease != QuadraticOut {
		t.Errorf("glide should ease quadratic-out, got %s", tr.Phases[0].Ease)
	}
	if !tr.Sample(0).ApproxEqual(PoseAt(from)) {
		t.Error("glide should start at the old pose")
	}
	if !tr.Sample(tr.Duration()).ApproxEqual(PoseAt(to)) {
		t.Error("glide should end at the new pose")
	}
	if !tr.Sample(time.Hour).ApproxEqual(PoseAt(to)) {
		t.Error("sampling past the end should clamp")
	}

	mid := tr.Sample(100 * time.Millisecond)
	wantX := PoseAt(from).Translation.X() + 0.75
	if math.Abs(mid.Translation.X()-wantX) > 1e-9 {
		t.Errorf("eased midpoint x = %v, want %v", mid.Translation.X(), wantX)
	}
}

func TestGlideRotationTakesShortestArc(t *testing.T) {
	from := dungeon.Position{Direction: dungeon.Left}
	to := from.RotatedLeft() // Down: a 90 degree turn
	tr := NewGlide(from, to)

	// Make the end quaternion point the long way round; slerp must still turn 90 degrees.
	tr.Phases[0].To.Rotation = tr.Phases[0].To.Rotation.Scale(-1)

	mid := tr.Phases[0].From.Lerp(tr.Phases[0].To, 0.5)
	heading := Heading(mid.Rotation)
	if math.Abs(math.Abs(heading)-135) > 1e-6 {
		t.Errorf("half way from left to down should face 135 degrees, got %v", heading)
	}
}

func TestBounce(t *testing.T) {
	current := dungeon.Position{Direction: dungeon.Up, X: 0, Z: 0}
	attempted := current.Forward()
	tr := NewBounce(current, attempted)

	if tr.Kind != KindBounce || len(tr.Phases) != 2 {
		t.Fatalf("expected two-phase bounce, got %s with %d phases", tr.Kind, len(tr.Phases))
	}
	if tr.Phases[0].Duration != 50*time.Millisecond || tr.Phases[1].Duration != 100*time.Millisecond {
		t.Errorf("unexpected phase durations %v, %v", tr.Phases[0].Duration, tr.Phases[1].Duration)
	}
	if tr.Duration() != 150*time.Millisecond {
		t.Errorf("bounce should total 150ms, got %v", tr.Duration())
	}

	start := PoseAt(current)
	if !tr.Start().ApproxEqual(start) || !tr.End().ApproxEqual(start) {
		t.Error("bounce must start and end at the current pose")
	}

	peak := tr.Sample(50 * time.Millisecond)
	want := PlayerPose(dungeon.Up, 0, -0.1)
	if !peak.ApproxEqual(want) {
		t.Errorf("bounce peak = %v, want %v", peak.Translation, want.Translation)
	}

	delta := peak.Translation.Sub(start.Translation)
	if math.Abs(delta.Len()-0.1) > 1e-9 {
		t.Errorf("bounce should reach 10%% of a cell, got %v", delta.Len())
	}
	if !tr.Done(150*time.Millisecond) || tr.Done(149*time.Millisecond) {
		t.Error("Done should flip exactly at the total duration")
	}
}

func TestEmptyTransition(t *testing.T) {
	var tr Transition
	if tr.Duration() != 0 || !tr.Done(0) {
		t.Error("empty transition is already done")
	}
	if tr.Sample(time.Second) != (Pose{}) {
		t.Error("empty transition samples the zero pose")
	}
}
