package track

import (
	"errors"
	"math"

	"github.com/charmbracelet/log"
	"github.com/san-kum/lqrdrive/internal/control"
	"github.com/san-kum/lqrdrive/internal/riccati"
)

var ErrNilDependency = errors.New("track: session needs a world and a driver")

// SpeedQuantum is how far the speed may drift from the one the gain was
// solved for before the bicycle plant is rebuilt.
const SpeedQuantum = 0.25

// Recorder persists the best distance.
type Recorder interface {
	Load() float64
	Save(v float64) error
}

// Frame is the outcome of one session step, for renderers and logs.
type Frame struct {
	Tick      int
	X         float64
	Heading   float64
	Target    float64
	Speed     float64
	Steer     float64
	Distance  float64
	Best      float64
	Passed    int
	Obstacles []Obstacle
	Output    control.Output
	Event     Event
	// Over is set on the step a run ends, whether the world or the
	// driver's safety bound ended it.
	Over bool
}

// Session runs the lane-keeping loop: it observes the world, asks the
// driver for a steering angle, applies it and keeps the best distance.
type Session struct {
	world  *World
	driver *control.Driver
	record Recorder
	logger *log.Logger

	best      float64
	planSpeed float64
	ticks     int
	runs      int
}

// NewSession reads the stored best distance. record may be nil.
func NewSession(world *World, driver *control.Driver, record Recorder, logger *log.Logger) (*Session, error) {
	if world == nil || driver == nil {
		return nil, ErrNilDependency
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Session{world: world, driver: driver, record: record, logger: logger}
	if record != nil {
		s.best = record.Load()
	}
	return s, nil
}

func (s *Session) World() *World           { return s.world }
func (s *Session) Driver() *control.Driver { return s.driver }
func (s *Session) Best() float64           { return s.best }
func (s *Session) Runs() int               { return s.runs }
func (s *Session) Active() bool            { return s.driver.Mode() == control.Active }

// Start resets the world and solves the gain for its start speed.
func (s *Session) Start() riccati.Result {
	s.world.Reset()
	s.driver.SetSpeed(s.world.Speed)
	s.planSpeed = s.world.Speed
	s.ticks = 0
	s.runs++
	return s.driver.Start()
}

// Step advances the session by dt. While idle it only reports the world.
func (s *Session) Step(dt float64) Frame {
	if !s.Active() {
		return s.frame(control.Output{Mode: control.Idle})
	}

	if math.Abs(s.world.Speed-s.planSpeed) >= SpeedQuantum {
		s.driver.SetSpeed(s.world.Speed)
		s.planSpeed = s.world.Speed
	}

	out := s.driver.Tick(s.world.Observe(), dt)
	if out.Terminated {
		s.finish()
		f := s.frame(out)
		f.Over = true
		return f
	}

	s.ticks++
	event := s.world.Advance(out.U[0], dt)
	f := s.frame(out)
	if event != Running {
		s.driver.Stop()
		s.finish()
		f.Best = s.best
		f.Over = true
	}
	return f
}

// Run steps until the run ends or maxSteps elapse and returns the last
// frame.
func (s *Session) Run(dt float64, maxSteps int) Frame {
	var f Frame
	for i := 0; i < maxSteps; i++ {
		f = s.Step(dt)
		if f.Over || !s.Active() {
			break
		}
	}
	return f
}

func (s *Session) finish() {
	d := s.world.Distance
	s.logger.Info("run ended", "event", s.world.Event(), "distance_km", d, "passed", s.world.Passed, "ticks", s.ticks)
	if d <= s.best {
		return
	}
	s.best = d
	if s.record == nil {
		return
	}
	if err := s.record.Save(d); err != nil {
		s.logger.Error("saving best distance", "err", err)
	}
}

func (s *Session) frame(out control.Output) Frame {
	w := s.world
	obstacles := make([]Obstacle, len(w.Obstacles))
	copy(obstacles, w.Obstacles)
	return Frame{
		Tick:      s.ticks,
		X:         w.X,
		Heading:   w.Heading,
		Target:    w.Target,
		Speed:     w.Speed,
		Steer:     w.Steer,
		Distance:  w.Distance,
		Best:      s.best,
		Passed:    w.Passed,
		Obstacles: obstacles,
		Output:    out,
		Event:     w.Event(),
	}
}
