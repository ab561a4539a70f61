package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/lqrdrive/internal/dynamo"
)

var ErrNoSamples = errors.New("analysis: no samples")

type Point struct{ X, Y float64 }

// Portrait is a trajectory projected on two state components.
type Portrait struct {
	XIndex, YIndex int
	Points         []Point
}

func NewPortrait(states []dynamo.State, xIdx, yIdx int) (*Portrait, error) {
	if len(states) == 0 {
		return nil, ErrNoSamples
	}
	if xIdx < 0 || yIdx < 0 || xIdx >= len(states[0]) || yIdx >= len(states[0]) {
		return nil, fmt.Errorf("analysis: indices (%d, %d) outside a %d-component state", xIdx, yIdx, len(states[0]))
	}
	p := &Portrait{XIndex: xIdx, YIndex: yIdx, Points: make([]Point, 0, len(states))}
	for _, s := range states {
		if len(s) <= max(xIdx, yIdx) {
			continue
		}
		p.Points = append(p.Points, Point{X: s[xIdx], Y: s[yIdx]})
	}
	return p, nil
}

// ASCII draws the trajectory with axes through the origin when it is in
// view. The first point is marked 'o' and the last 'x'.
func (p *Portrait) ASCII(width, height int) string {
	if len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}
	// 10% margin; a flat axis gets a unit span
	padX, padY := (maxX-minX)*0.1, (maxY-minY)*0.1
	if padX == 0 {
		padX = 0.5
	}
	if padY == 0 {
		padY = 0.5
	}
	minX, maxX, minY, maxY = minX-padX, maxX+padX, minY-padY, maxY+padY

	col := func(x float64) int { return int((x - minX) / (maxX - minX) * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/(maxY-minY)*float64(height-1)) }

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}
	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := range grid {
			grid[r][c] = '│'
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := range grid[r] {
			if grid[r][c] == '│' {
				grid[r][c] = '┼'
			} else {
				grid[r][c] = '─'
			}
		}
	}

	for _, pt := range p.Points {
		grid[row(pt.Y)][col(pt.X)] = '•'
	}
	first, last := p.Points[0], p.Points[len(p.Points)-1]
	grid[row(first.Y)][col(first.X)] = 'o'
	grid[row(last.Y)][col(last.X)] = 'x'

	var sb strings.Builder
	for _, r := range grid {
		sb.WriteString(string(r))
		sb.WriteByte('\n')
	}
	return sb.String()
}
