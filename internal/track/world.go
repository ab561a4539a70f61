package track

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/lqrdrive/internal/dynamo"
)

var ErrInvalidConfig = errors.New("track: invalid configuration")

// Config describes the road and its traffic. Lengths are in metres,
// speeds in m/s, times in seconds.
type Config struct {
	Seed       int64   `yaml:"seed"`
	HalfWidth  float64 `yaml:"half_width"`
	StartSpeed float64 `yaml:"start_speed"`
	MaxSpeed   float64 `yaml:"max_speed"`
	Accel      float64 `yaml:"accel"`

	// Obstacles spawn every max(SpawnMin, SpawnBase − v/SpawnSpeedScale)
	// seconds, SpawnAhead metres in front of the vehicle.
	SpawnBase       float64 `yaml:"spawn_base"`
	SpawnMin        float64 `yaml:"spawn_min"`
	SpawnSpeedScale float64 `yaml:"spawn_speed_scale"`
	SpawnAhead      float64 `yaml:"spawn_ahead"`
	DriftSpeed      float64 `yaml:"drift_speed"`

	// An obstacle closer than LookAhead and within AvoidWindow of the
	// vehicle laterally moves the target line to ±AvoidOffset on the
	// other side of the road.
	LookAhead   float64 `yaml:"look_ahead"`
	AvoidWindow float64 `yaml:"avoid_window"`
	AvoidOffset float64 `yaml:"avoid_offset"`

	CarHalfWidth  float64 `yaml:"car_half_width"`
	CarHalfLength float64 `yaml:"car_half_length"`
}

func DefaultConfig() Config {
	return Config{
		Seed:            1,
		HalfWidth:       10,
		StartSpeed:      6,
		MaxSpeed:        30,
		Accel:           0.24,
		SpawnBase:       1.0,
		SpawnMin:        0.2,
		SpawnSpeedScale: 30,
		SpawnAhead:      60,
		DriftSpeed:      2,
		LookAhead:       12.5,
		AvoidWindow:     4,
		AvoidOffset:     6.5,
		CarHalfWidth:    0.8,
		CarHalfLength:   1.4,
	}
}

func (c Config) Validate() error {
	switch {
	case c.HalfWidth <= 0:
		return fmt.Errorf("%w: half width %g", ErrInvalidConfig, c.HalfWidth)
	case c.StartSpeed <= 0 || c.MaxSpeed < c.StartSpeed:
		return fmt.Errorf("%w: speeds start %g max %g", ErrInvalidConfig, c.StartSpeed, c.MaxSpeed)
	case c.SpawnMin <= 0 || c.SpawnBase < c.SpawnMin || c.SpawnSpeedScale <= 0:
		return fmt.Errorf("%w: spawn interval", ErrInvalidConfig)
	case c.AvoidOffset >= c.HalfWidth:
		return fmt.Errorf("%w: avoid offset %g outside the road", ErrInvalidConfig, c.AvoidOffset)
	}
	return nil
}

// Event is what happened to the vehicle during one Advance.
type Event int

const (
	Running Event = iota
	OffRoad
	Collision
)

func (e Event) String() string {
	switch e {
	case Running:
		return "running"
	case OffRoad:
		return "off road"
	case Collision:
		return "collision"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// World is the vehicle, the road and the traffic. Not safe for concurrent
// use.
type World struct {
	cfg       Config
	wheelbase float64
	rng       *rand.Rand

	X        float64
	Heading  float64
	Speed    float64
	Steer    float64
	Target   float64
	Distance float64 // km
	Passed   int
	Elapsed  float64

	Obstacles []Obstacle

	spawnTimer float64
	event      Event
}

func NewWorld(cfg Config, wheelbase float64) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if wheelbase <= 0 {
		return nil, fmt.Errorf("%w: wheelbase %g", ErrInvalidConfig, wheelbase)
	}
	w := &World{cfg: cfg, wheelbase: wheelbase}
	w.Reset()
	return w, nil
}

// Reset starts a new run with the configured seed.
func (w *World) Reset() {
	w.rng = rand.New(rand.NewSource(w.cfg.Seed))
	w.X, w.Heading, w.Steer, w.Target = 0, 0, 0, 0
	w.Speed = w.cfg.StartSpeed
	w.Distance, w.Passed, w.Elapsed = 0, 0, 0
	w.Obstacles = w.Obstacles[:0]
	w.spawnTimer = 0
	w.event = Running
}

func (w *World) Config() Config     { return w.cfg }
func (w *World) Wheelbase() float64 { return w.wheelbase }
func (w *World) Event() Event       { return w.event }
func (w *World) Over() bool         { return w.event != Running }

// Observe returns the error state (lateral offset from the target line,
// heading error) for the controller.
func (w *World) Observe() dynamo.State {
	return dynamo.State{w.X - w.Target, w.Heading}
}

// SpawnInterval is the time between obstacles at the current speed.
func (w *World) SpawnInterval() float64 {
	return math.Max(w.cfg.SpawnMin, w.cfg.SpawnBase-w.Speed/w.cfg.SpawnSpeedScale)
}

// Advance applies steering angle steer for dt seconds. Once the run has
// ended it does nothing and keeps returning the terminal event.
func (w *World) Advance(steer, dt float64) Event {
	if w.event != Running {
		return w.event
	}

	w.Steer = steer
	w.X += w.Speed * math.Sin(w.Heading) * dt
	w.Heading += w.Speed / w.wheelbase * math.Tan(steer) * dt
	w.Distance += w.Speed * dt / 1000
	w.Elapsed += dt
	if w.Speed < w.cfg.MaxSpeed {
		w.Speed = math.Min(w.cfg.MaxSpeed, w.Speed+w.cfg.Accel*dt)
	}

	w.spawnTimer += dt
	if w.spawnTimer > w.SpawnInterval() {
		w.Obstacles = append(w.Obstacles, newObstacle(w.rng, w.cfg, w.Speed))
		w.spawnTimer = 0
	}

	kept := w.Obstacles[:0]
	for _, o := range w.Obstacles {
		o.advance(w.Speed, w.cfg.HalfWidth, dt)
		if o.Y < -(o.HalfLength + w.cfg.CarHalfLength) {
			w.Passed++
			continue
		}
		kept = append(kept, o)
	}
	w.Obstacles = kept

	w.Target = w.target()

	switch {
	case math.Abs(w.X) > w.cfg.HalfWidth:
		w.event = OffRoad
	case w.collided():
		w.event = Collision
	}
	return w.event
}

// target picks the line to follow: the road centre, or the far side of
// the road when an obstacle ahead is in the way.
func (w *World) target() float64 {
	for _, o := range w.Obstacles {
		if o.Y <= 0 || o.Y >= w.cfg.LookAhead {
			continue
		}
		if math.Abs(o.X-w.X) < w.cfg.AvoidWindow {
			if o.X < 0 {
				return w.cfg.AvoidOffset
			}
			return -w.cfg.AvoidOffset
		}
	}
	return 0
}

func (w *World) collided() bool {
	for _, o := range w.Obstacles {
		if o.hits(w.X, w.cfg.CarHalfWidth, w.cfg.CarHalfLength) {
			return true
		}
	}
	return false
}
