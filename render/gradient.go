// Package render turns a decoded byte stream and its heat trace into a
// coloured terminal view. Bytes are painted on a gradient by information
// cost, with a scale ruler and per-row summary swatches.
package render

// colorPoint anchors a colour at a position along the gradient.
type colorPoint struct {
	r, g, b float64
	val     float64
}

// Gradient maps a value in [0, 1] to an RGB colour by interpolating
// between anchored colour points, held in ascending value order.
type Gradient struct {
	points []colorPoint
}

// Viridis returns the default gradient, a four-point approximation of the
// matplotlib viridis colour map.
func Viridis() *Gradient {
	return &Gradient{points: []colorPoint{
		{0x44 / 255.0, 0x02 / 255.0, 0x55 / 255.0, 0.0},
		{0x2C / 255.0, 0x70 / 255.0, 0x8E / 255.0, 0.33},
		{0x3D / 255.0, 0xBB / 255.0, 0x74 / 255.0, 0.66},
		{0xFA / 255.0, 0xE6 / 255.0, 0x22 / 255.0, 1.0},
	}}
}

// Jet returns the classic five-point heat map gradient: black, blue,
// green, yellow, red.
func Jet() *Gradient {
	return &Gradient{points: []colorPoint{
		{0, 0, 0, 0.0},
		{0, 0, 1, 0.2},
		{0, 1, 0, 0.5},
		{1, 1, 0, 0.7},
		{1, 0, 0, 0.9},
	}}
}

// Lookup returns the colour at value, interpolating between the two
// neighbouring points. Values beyond the last point clamp to its colour.
func (g *Gradient) Lookup(value float64) (r, gr, b float64) {
	if len(g.points) == 0 {
		return 0, 0, 0
	}
	for i := range g.points {
		curr := g.points[i]
		if value < curr.val {
			prev := g.points[i]
			if i > 0 {
				prev = g.points[i-1]
			}
			valueDiff := prev.val - curr.val
			fract := 0.0
			if valueDiff != 0 {
				fract = (value - curr.val) / valueDiff
			}
			r = (prev.r-curr.r)*fract + curr.r
			gr = (prev.g-curr.g)*fract + curr.g
			b = (prev.b-curr.b)*fract + curr.b
			return r, gr, b
		}
	}
	last := g.points[len(g.points)-1]
	return last.r, last.g, last.b
}
