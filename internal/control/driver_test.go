package control_test

import (
	"bytes"
	"math"
	"strings"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/lqrdrive/internal/control"
	"github.com/san-kum/lqrdrive/internal/dynamo"
	"github.com/san-kum/lqrdrive/internal/plant"
)

var _ = Describe("Driver", func() {
	const (
		dt       = 0.01
		maxSteer = 30 * math.Pi / 180
	)

	var (
		logs   *bytes.Buffer
		tuner  *control.Tuner
		driver *control.Driver
	)

	newDriver := func(p plant.Model) {
		cfg := control.DefaultTunerConfig()
		cfg.Q, cfg.R, cfg.Secondary = 10, 0.1, 1
		var err error
		tuner, err = control.NewTuner(p, cfg)
		Expect(err).NotTo(HaveOccurred())

		logs = &bytes.Buffer{}
		driver, err = control.NewDriver(tuner, control.Limits{
			MaxControl:  maxSteer,
			SafetyBound: dynamo.State{5, 0},
		}, log.New(logs))
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		newDriver(plant.NewBicycle(10, 2.5))
	})

	It("requires a tuner", func() {
		_, err := control.NewDriver(nil, control.Limits{}, nil)
		Expect(err).To(MatchError(control.ErrNoTuner))
	})

	Context("when idle", func() {
		It("emits a zero command without solving", func() {
			out := driver.Tick(dynamo.State{1, 0}, dt)
			Expect(out.Mode).To(Equal(control.Idle))
			Expect(out.U).To(Equal(dynamo.Control{0}))
			Expect(out.Terminated).To(BeFalse())
			Expect(tuner.Solves()).To(Equal(0))
		})
	})

	Context("when active", func() {
		BeforeEach(func() {
			res := driver.Start()
			Expect(res.Degraded()).To(BeFalse())
			Expect(driver.Mode()).To(Equal(control.Active))
		})

		It("passes small commands through unclamped", func() {
			out := driver.Tick(dynamo.State{0.01, 0}, dt)
			Expect(out.Mode).To(Equal(control.Active))
			Expect(out.Saturated).To(BeFalse())
			Expect(out.U[0]).To(BeNumerically("~", -0.1, 1e-6))
			Expect(out.U).To(Equal(out.Raw))
			Expect(out.Predicted).To(HaveLen(2))
		})

		It("clamps large commands to the actuator limit", func() {
			out := driver.Tick(dynamo.State{2, 0}, dt)
			Expect(out.Saturated).To(BeTrue())
			Expect(out.Raw[0]).To(BeNumerically("~", -20, 1e-6))
			Expect(out.U[0]).To(Equal(-maxSteer))

			// prediction uses the clamped command: θ' = v/L · u
			Expect(out.Predicted[1]).To(BeNumerically("~", dt*4*-maxSteer, 1e-12))
		})

		It("keeps every command within the limit along a run", func() {
			x := dynamo.State{4, -0.3}
			for i := 0; i < 2000; i++ {
				out := driver.Tick(x, dt)
				Expect(out.Terminated).To(BeFalse())
				Expect(math.Abs(out.U[0])).To(BeNumerically("<=", maxSteer))
				x = out.Predicted
			}
			Expect(math.Abs(x[0])).To(BeNumerically("<", 1e-3))
			Expect(driver.Ticks()).To(Equal(2000))
		})

		It("terminates when the state leaves the safety bound", func() {
			out := driver.Tick(dynamo.State{5.5, 0}, dt)
			Expect(out.Terminated).To(BeTrue())
			Expect(out.Mode).To(Equal(control.Idle))
			Expect(out.U).To(Equal(dynamo.Control{0}))
			Expect(driver.Mode()).To(Equal(control.Idle))
			Expect(logs.String()).To(ContainSubstring("control loop terminated"))

			out = driver.Tick(dynamo.State{0.1, 0}, dt)
			Expect(out.Terminated).To(BeFalse())
			Expect(out.U).To(Equal(dynamo.Control{0}))
		})

		It("terminates on a non-finite observation", func() {
			out := driver.Tick(dynamo.State{math.NaN(), 0}, dt)
			Expect(out.Terminated).To(BeTrue())
		})

		It("does not check unbounded components", func() {
			out := driver.Tick(dynamo.State{0, 100}, dt)
			Expect(out.Terminated).To(BeFalse())
		})

		It("applies a retuned gain on the next tick", func() {
			before := driver.Tick(dynamo.State{0.01, 0}, dt)
			tuner.DecreaseQ()
			after := driver.Tick(dynamo.State{0.01, 0}, dt)

			Expect(tuner.Solves()).To(Equal(2))
			Expect(math.Abs(after.U[0])).To(BeNumerically("<", math.Abs(before.U[0])))
		})

		It("returns to idle on Stop without reporting a termination", func() {
			driver.Stop()
			out := driver.Tick(dynamo.State{1, 0}, dt)
			Expect(out.Mode).To(Equal(control.Idle))
			Expect(out.Terminated).To(BeFalse())
		})
	})

	Describe("speed changes", func() {
		It("rebuilds the bicycle plant", func() {
			driver.SetSpeed(20)
			Expect(tuner.Plant().Speed).To(Equal(20.0))
			Expect(tuner.Stale()).To(BeTrue())
		})

		It("refuses speeds without control authority", func() {
			tuner.Gain()
			driver.SetSpeed(0)
			driver.SetSpeed(-3)
			Expect(tuner.Plant().Speed).To(Equal(10.0))
			Expect(tuner.Stale()).To(BeFalse())
			Expect(logs.String()).To(ContainSubstring("ignoring speed"))
		})

		It("leaves the normalized model alone", func() {
			newDriver(plant.NewNormalized())
			driver.SetSpeed(20)
			Expect(tuner.Plant().Kind).To(Equal(plant.Normalized))
		})
	})

	Context("with a degenerate plant", func() {
		BeforeEach(func() {
			newDriver(plant.NewBicycle(0, 2.5))
		})

		It("runs on the fallback gain and logs the degraded mode once", func() {
			res := driver.Start()
			Expect(res.Degraded()).To(BeTrue())

			for i := 0; i < 10; i++ {
				out := driver.Tick(dynamo.State{0.2, 0.1}, dt)
				Expect(out.Degraded).To(BeTrue())
				Expect(out.U[0]).To(BeNumerically("~", -(1.0*0.2 + 0.5*0.1), 1e-12))
			}
			Expect(strings.Count(logs.String(), "using fallback gain")).To(Equal(1))
		})
	})
})
