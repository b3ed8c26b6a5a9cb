package viz

import (
	"math"
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set sets a pixel in sub-pixel coordinates; the canvas spans
// (Width*2) x (Height*4) sub-pixels.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// center and radius of the largest circle that fits, in sub-pixels
func (c *Canvas) circleFrame() (cx, cy int, radius float64) {
	w, h := c.Width*2, c.Height*4
	cx, cy = w/2, h/2
	radius = math.Min(float64(w), float64(h))/2 - 2
	return
}

func (c *Canvas) point(cx, cy int, radius, angle float64) (int, int) {
	x := cx + int(math.Round(radius*math.Cos(angle)))
	y := cy - int(math.Round(radius*math.Sin(angle)))
	return x, y
}

// DrawPhases plots every phase as a dot on the unit circle and the mean
// phasor r·e^{iφ} as a line from the centre.
func (c *Canvas) DrawPhases(theta []float64, r, phi float64) {
	cx, cy, radius := c.circleFrame()
	if radius <= 0 {
		return
	}

	steps := int(2 * math.Pi * radius)
	for k := 0; k < steps; k += 3 {
		x, y := c.point(cx, cy, radius, 2*math.Pi*float64(k)/float64(steps))
		c.Set(x, y)
	}

	for _, th := range theta {
		x, y := c.point(cx, cy, radius-2, th)
		c.Set(x, y)
		c.Set(x+1, y)
		c.Set(x, y+1)
		c.Set(x+1, y+1)
	}

	x, y := c.point(cx, cy, r*(radius-3), phi)
	c.DrawLine(cx, cy, x, y)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
