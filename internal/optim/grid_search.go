package optim

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/san-kum/lqrdrive/internal/dynamo"
	"github.com/san-kum/lqrdrive/internal/experiment"
)

var ErrEmptyGrid = errors.New("optim: empty grid")

// Point is one evaluated (q, r) pair.
type Point struct {
	Q, R     float64
	K        []float64
	Fallback bool
	Value    float64
	Err      error
}

// GridSearch evaluates every (q, r) pair on a grid and ranks them by a
// run metric, lower is better.
type GridSearch struct {
	Q      []float64
	R      []float64
	Metric string
}

func NewGridSearch(q, r []float64, metric string) *GridSearch {
	return &GridSearch{Q: q, R: r, Metric: metric}
}

// Search runs one experiment per grid point in parallel and returns all
// points sorted best first. Points whose build or run failed, or whose
// metric is missing or NaN, sort last with Value +Inf.
func (g *GridSearch) Search(ctx context.Context, build func(q, r float64) *experiment.Experiment, reg *experiment.Registry) ([]Point, error) {
	if len(g.Q) == 0 || len(g.R) == 0 {
		return nil, ErrEmptyGrid
	}

	points := make([]Point, len(g.Q)*len(g.R))
	for i, q := range g.Q {
		for j, r := range g.R {
			points[i*len(g.R)+j] = Point{Q: q, R: r, Value: math.Inf(1)}
		}
	}

	dynamo.ParallelFor(len(points), 1, func(start, end int) {
		for i := start; i < end; i++ {
			g.evaluate(ctx, &points[i], build(points[i].Q, points[i].R), reg)
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Value < points[j].Value })
	return points, nil
}

func (g *GridSearch) evaluate(ctx context.Context, p *Point, exp *experiment.Experiment, reg *experiment.Registry) {
	if p.Err = exp.Setup(reg); p.Err != nil {
		return
	}
	gain := exp.Gain()
	p.K, p.Fallback = gain.Gain(), gain.Degraded()

	res, err := exp.Run(ctx)
	if err != nil {
		p.Err = err
		return
	}
	if v, ok := res.Metrics[g.Metric]; ok && !math.IsNaN(v) && len(res.Errors) == 0 {
		p.Value = v
	}
}
