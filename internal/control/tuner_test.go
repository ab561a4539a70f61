package control_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/lqrdrive/internal/control"
	"github.com/san-kum/lqrdrive/internal/plant"
)

var _ = Describe("Tuner", func() {
	var (
		cfg   control.TunerConfig
		tuner *control.Tuner
	)

	BeforeEach(func() {
		cfg = control.DefaultTunerConfig()
		var err error
		tuner, err = control.NewTuner(plant.NewNormalized(), cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	It("starts stale with the configured weights", func() {
		q, r := tuner.Weights()
		Expect(q).To(Equal(10.0))
		Expect(r).To(Equal(1.0))
		Expect(tuner.Stale()).To(BeTrue())
		Expect(tuner.Solves()).To(Equal(0))
	})

	It("builds Q and R from the weights", func() {
		Expect(tuner.Q().RawMatrix().Data).To(Equal([]float64{10, 0, 0, 0.1}))
		Expect(tuner.R().RawMatrix().Data).To(Equal([]float64{1}))
	})

	It("solves once and then serves the cached gain", func() {
		first := tuner.Gain()
		Expect(first.Degraded()).To(BeFalse())
		Expect(tuner.Stale()).To(BeFalse())

		second := tuner.Gain()
		Expect(second.K).To(BeIdenticalTo(first.K))
		Expect(tuner.Solves()).To(Equal(1))

		k := first.Gain()
		Expect(k).To(HaveLen(2))
		Expect(k[0]).To(BeNumerically("~", 3.1622776601683795, 1e-6))
		Expect(k[1]).To(BeNumerically("~", 2.5346706532282965, 1e-6))
	})

	Describe("adjustments", func() {
		It("scales q and r by the factor", func() {
			tuner.IncreaseQ()
			tuner.DecreaseR()
			q, r := tuner.Weights()
			Expect(q).To(BeNumerically("~", 15, 1e-12))
			Expect(r).To(BeNumerically("~", 1/1.5, 1e-12))

			tuner.DecreaseQ()
			tuner.IncreaseR()
			q, r = tuner.Weights()
			Expect(q).To(BeNumerically("~", 10, 1e-12))
			Expect(r).To(BeNumerically("~", 1, 1e-12))
		})

		It("marks the gain stale and re-solves on the next read", func() {
			before := tuner.Gain().Gain()
			tuner.IncreaseQ()
			Expect(tuner.Stale()).To(BeTrue())

			after := tuner.Gain().Gain()
			Expect(tuner.Solves()).To(Equal(2))
			Expect(math.Abs(after[0])).To(BeNumerically(">", math.Abs(before[0])))
		})

		It("clamps at the top of the range", func() {
			for i := 0; i < 100; i++ {
				tuner.IncreaseQ()
				tuner.IncreaseR()
			}
			q, r := tuner.Weights()
			Expect(q).To(Equal(cfg.QRange.Max))
			Expect(r).To(Equal(cfg.RRange.Max))

			tuner.Gain()
			tuner.IncreaseQ()
			tuner.IncreaseR()
			Expect(tuner.Stale()).To(BeFalse(), "a clamped no-op must not invalidate K")
		})

		It("clamps at the strictly positive floor", func() {
			for i := 0; i < 100; i++ {
				tuner.DecreaseQ()
				tuner.DecreaseR()
			}
			q, r := tuner.Weights()
			Expect(q).To(Equal(cfg.QRange.Min))
			Expect(r).To(Equal(cfg.RRange.Min))
			Expect(tuner.Gain().Degraded()).To(BeFalse())
		})

		It("clamps explicit weights and ignores NaN", func() {
			tuner.SetWeights(-5, 1e9)
			q, r := tuner.Weights()
			Expect(q).To(Equal(cfg.QRange.Min))
			Expect(r).To(Equal(cfg.RRange.Max))

			tuner.SetWeights(math.NaN(), 2)
			q, r = tuner.Weights()
			Expect(q).To(Equal(cfg.QRange.Min))
			Expect(r).To(Equal(2.0))
		})
	})

	It("re-solves after a plant change", func() {
		tuner.Gain()
		tuner.SetPlant(plant.NewBicycle(10, 2.5))
		Expect(tuner.Stale()).To(BeTrue())

		res := tuner.Gain()
		Expect(res.Degraded()).To(BeFalse())
		Expect(tuner.Solves()).To(Equal(2))
	})

	It("reports a fallback for a stopped vehicle", func() {
		tuner.SetPlant(plant.NewBicycle(0, 2.5))
		res := tuner.Gain()
		Expect(res.Degraded()).To(BeTrue())
		Expect(res.Reason).To(HaveOccurred())
		Expect(res.Gain()).To(Equal([]float64{1.0, 0.5}))
	})

	DescribeTable("rejects ill-posed configurations",
		func(mutate func(*control.TunerConfig)) {
			bad := control.DefaultTunerConfig()
			mutate(&bad)
			_, err := control.NewTuner(plant.NewNormalized(), bad)
			Expect(err).To(MatchError(control.ErrInvalidTuning))
		},
		Entry("zero q floor", func(c *control.TunerConfig) { c.QRange.Min = 0 }),
		Entry("negative r floor", func(c *control.TunerConfig) { c.RRange.Min = -1 }),
		Entry("inverted q range", func(c *control.TunerConfig) { c.QRange = control.Range{Min: 10, Max: 1} }),
		Entry("unit factor", func(c *control.TunerConfig) { c.Factor = 1 }),
		Entry("negative secondary weight", func(c *control.TunerConfig) { c.Secondary = -0.1 }),
	)

	It("rejects a plant without matrices", func() {
		_, err := control.NewTuner(plant.Model{}, control.DefaultTunerConfig())
		Expect(err).To(MatchError(control.ErrInvalidTuning))
	})

	It("clamps out-of-range initial weights", func() {
		c := control.DefaultTunerConfig()
		c.Q, c.R = 1e7, 0
		t, err := control.NewTuner(plant.NewNormalized(), c)
		Expect(err).NotTo(HaveOccurred())
		q, r := t.Weights()
		Expect(q).To(Equal(c.QRange.Max))
		Expect(r).To(Equal(c.RRange.Min))
	})
})
