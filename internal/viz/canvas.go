package viz

import "strings"

const blankCell = 0x2800

// dot bits of one braille cell, [row][col]
var cellDots = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a grid of braille cells. Drawing happens in dots: each cell
// is 2 dots wide and 4 dots tall, with (0, 0) at the top left.
type Canvas struct {
	Width, Height int
	cells         [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, cells: make([][]rune, h)}
	for i := range c.cells {
		c.cells[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Dots returns the drawable size in dots.
func (c *Canvas) Dots() (w, h int) { return c.Width * 2, c.Height * 4 }

func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x >= c.Width*2 || y >= c.Height*4 {
		return
	}
	c.cells[y/4][x/2] |= cellDots[y%4][x%2]
}

func (c *Canvas) Clear() {
	for _, row := range c.cells {
		for j := range row {
			row[j] = blankCell
		}
	}
}

// VLine draws column x from y0 to y1 inclusive, dash dots on and dash
// dots off starting at offset. A dash of zero draws a solid line.
func (c *Canvas) VLine(x, y0, y1, dash, offset int) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		if dash > 0 && ((y+offset)/dash)%2 == 1 {
			continue
		}
		c.Set(x, y)
	}
}

// Rect draws the outline of the box with corners (x0, y0) and (x1, y1);
// filled boxes have every dot set.
func (c *Canvas) Rect(x0, y0, x1, y1 int, filled bool) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if filled || x == x0 || x == x1 || y == y0 || y == y1 {
				c.Set(x, y)
			}
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for i, row := range c.cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(row))
	}
	return b.String()
}
