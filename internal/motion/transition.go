package motion

import (
	"fmt"
	"time"

	"github.com/amalg/go-dungeon/internal/dungeon"
)

// Timing of the two canonical transitions.
const (
	GlideDuration      = 200 * time.Millisecond
	BounceOutDuration  = 50 * time.Millisecond
	BounceBackDuration = 100 * time.Millisecond
	// BounceReach is how far towards the blocked cell the bounce travels.
	BounceReach = 0.1
)

// Ease is a timing curve over normalized progress.
type Ease int

const (
	Linear Ease = iota
	QuadraticOut
)

// Apply maps progress t in [0,1] through the curve.
func (e Ease) Apply(t float64) float64 {
	switch e {
	case QuadraticOut:
		return -t * (t - 2)
	default:
		return t
	}
}

func (e Ease) String() string {
	switch e {
	case Linear:
		return "linear"
	case QuadraticOut:
		return "quadratic-out"
	default:
		return fmt.Sprintf("Ease(%d)", int(e))
	}
}

// Kind tells playback which canonical shape a transition has.
type Kind int

const (
	KindGlide Kind = iota
	KindBounce
)

func (k Kind) String() string {
	switch k {
	case KindGlide:
		return "glide"
	case KindBounce:
		return "bounce"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Phase interpolates From to To over Duration.
type Phase struct {
	From     Pose          `json:"from"`
	To       Pose          `json:"to"`
	Duration time.Duration `json:"duration"`
	Ease     Ease          `json:"ease"`
}

// Transition is a declarative description of a timed pose change. Nothing
// here plays it; hosts sample it frame by frame.
type Transition struct {
	Kind   Kind    `json:"kind"`
	Phases []Phase `json:"phases"`
}

// NewGlide plans the single-phase move from one position to another. It is
// used for accepted steps and rotations alike.
func NewGlide(from, to dungeon.Position) Transition {
	return Transition{
		Kind: KindGlide,
		Phases: []Phase{{
			From:     PoseAt(from),
			To:       PoseAt(to),
			Duration: GlideDuration,
			Ease:     QuadraticOut,
		}},
	}
}

// NewBounce plans the refused-step feedback: a short nudge towards the
// attempted cell and back. It starts and ends at the current pose.
func NewBounce(current, attempted dungeon.Position) Transition {
	start := PoseAt(current)
	nudge := PlayerPose(
		attempted.Direction,
		float64(current.X)+float64(attempted.X-current.X)*BounceReach,
		float64(current.Z)+float64(attempted.Z-current.Z)*BounceReach,
	)
	return Transition{
		Kind: KindBounce,
		Phases: []Phase{
			{From: start, To: nudge, Duration: BounceOutDuration, Ease: QuadraticOut},
			{From: nudge, To: start, Duration: BounceBackDuration, Ease: QuadraticOut},
		},
	}
}

// Duration is the summed length of all phases.
func (t Transition) Duration() time.Duration {
	var total time.Duration
	for _, p := range t.Phases {
		total += p.Duration
	}
	return total
}

// Done reports whether playback has reached the end.
func (t Transition) Done(elapsed time.Duration) bool {
	return elapsed >= t.Duration()
}

// Start is the pose at time zero.
func (t Transition) Start() Pose {
	if len(t.Phases) == 0 {
		return Pose{}
	}
	return t.Phases[0].From
}

// End is the pose once playback completes.
func (t Transition) End() Pose {
	if len(t.Phases) == 0 {
		return Pose{}
	}
	return t.Phases[len(t.Phases)-1].To
}

// Sample returns the pose elapsed into playback, clamped to the end pose.
func (t Transition) Sample(elapsed time.Duration) Pose {
	if len(t.Phases) == 0 {
		return Pose{}
	}
	if elapsed <= 0 {
		return t.Start()
	}
	for _, p := range t.Phases {
		if elapsed < p.Duration {
			progress := float64(elapsed) / float64(p.Duration)
			return p.From.Lerp(p.To, p.Ease.Apply(progress))
		}
		elapsed -= p.Duration
	}
	return t.End()
}
