package metrics

import "github.com/san-kum/lqrdrive/internal/dynamo"

// Cost accumulates the LQR objective ∫ xᵀQx + uᵀRu dt for diagonal Q and
// R, using the sample spacing as dt.
type Cost struct {
	q, r    []float64
	sum     float64
	lastT   float64
	samples int
}

// NewCost takes the diagonals of Q and R.
func NewCost(q, r []float64) *Cost {
	return &Cost{q: q, r: r}
}

func (c *Cost) Name() string { return "cost" }

func (c *Cost) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if c.samples > 0 {
		c.sum += c.integrand(x, u) * (t - c.lastT)
	}
	c.lastT = t
	c.samples++
}

func (c *Cost) integrand(x dynamo.State, u dynamo.Control) float64 {
	v := 0.0
	for i := 0; i < len(x) && i < len(c.q); i++ {
		v += c.q[i] * x[i] * x[i]
	}
	for i := 0; i < len(u) && i < len(c.r); i++ {
		v += c.r[i] * u[i] * u[i]
	}
	return v
}

func (c *Cost) Value() float64 { return c.sum }

func (c *Cost) Reset() {
	c.sum = 0
	c.lastT = 0
	c.samples = 0
}
