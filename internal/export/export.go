// Package export renders closed-loop runs as figures: PNG panels with
// gonum/plot and interactive HTML charts with go-echarts.
package export

import (
	"errors"

	"github.com/san-kum/lqrdrive/internal/dynamo"
)

var ErrNoData = errors.New("export: no data to plot")

// Series is one labelled run.
type Series struct {
	Label  string
	Result *dynamo.Result
}

// lateral returns (t, e) pairs for the first state component.
func (s Series) lateral() (ts, es []float64) {
	r := s.Result
	n := min(len(r.Times), len(r.States))
	ts, es = make([]float64, 0, n), make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if len(r.States[i]) == 0 {
			continue
		}
		ts = append(ts, r.Times[i])
		es = append(es, r.States[i][0])
	}
	return ts, es
}

// steering returns (t, u) pairs for the first control component. Controls
// are applied from the start of each step, so u[i] pairs with t[i].
func (s Series) steering() (ts, us []float64) {
	r := s.Result
	n := min(len(r.Times), len(r.Controls))
	ts, us = make([]float64, 0, n), make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if len(r.Controls[i]) == 0 {
			continue
		}
		ts = append(ts, r.Times[i])
		us = append(us, r.Controls[i][0])
	}
	return ts, us
}

func validate(series []Series) error {
	if len(series) == 0 {
		return ErrNoData
	}
	for _, s := range series {
		if s.Result == nil || len(s.Result.States) == 0 {
			return ErrNoData
		}
	}
	return nil
}
