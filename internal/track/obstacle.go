package track

import (
	"fmt"
	"math"
	"math/rand"
)

type ObstacleKind int

const (
	Normal ObstacleKind = iota
	Wide
	Moving
)

func (k ObstacleKind) String() string {
	switch k {
	case Normal:
		return "normal"
	case Wide:
		return "wide"
	case Moving:
		return "moving"
	default:
		return fmt.Sprintf("ObstacleKind(%d)", int(k))
	}
}

// spawn weights: six normal, two wide, two moving out of ten.
var kindWeights = []struct {
	kind   ObstacleKind
	weight int
}{
	{Normal, 6},
	{Wide, 2},
	{Moving, 2},
}

func pickKind(rng *rand.Rand) ObstacleKind {
	total := 0
	for _, kw := range kindWeights {
		total += kw.weight
	}
	n := rng.Intn(total)
	for _, kw := range kindWeights {
		if n < kw.weight {
			return kw.kind
		}
		n -= kw.weight
	}
	return Normal
}

// Obstacle is a box on the road. X is lateral position from the road
// centre, Y is longitudinal distance ahead of the vehicle; both in metres.
type Obstacle struct {
	Kind       ObstacleKind
	X, Y       float64
	HalfWidth  float64
	HalfLength float64
	// VX is the lateral speed of a moving obstacle in m/s.
	VX float64
}

func newObstacle(rng *rand.Rand, cfg Config, speed float64) Obstacle {
	o := Obstacle{
		Kind:       pickKind(rng),
		Y:          cfg.SpawnAhead,
		HalfWidth:  0.8,
		HalfLength: 0.8,
	}
	switch o.Kind {
	case Wide:
		o.HalfWidth = 2.0
	case Moving:
		dir := 1.0
		if rng.Intn(2) == 0 {
			dir = -1
		}
		o.VX = dir * cfg.DriftSpeed * (1 + speed/20)
	}

	span := cfg.HalfWidth - o.HalfWidth
	o.X = (2*rng.Float64() - 1) * span
	return o
}

// advance moves the obstacle toward the vehicle and bounces moving ones
// off the road edges.
func (o *Obstacle) advance(closing, halfWidth, dt float64) {
	o.Y -= closing * dt
	if o.VX == 0 {
		return
	}
	o.X += o.VX * dt
	edge := halfWidth - o.HalfWidth
	if (o.X < -edge && o.VX < 0) || (o.X > edge && o.VX > 0) {
		o.VX = -o.VX
	}
}

func (o Obstacle) hits(x, carHalfWidth, carHalfLength float64) bool {
	return math.Abs(o.X-x) < o.HalfWidth+carHalfWidth && math.Abs(o.Y) < o.HalfLength+carHalfLength
}
