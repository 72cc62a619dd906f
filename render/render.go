package render

import (
	"bufio"
	"fmt"
	"io"
	"math"
)

// Options configures a Renderer. The zero value gets the defaults filled
// in: 64-byte rows, a ruler every 16 rows, viridis colours.
type Options struct {
	// Width is the number of bytes per row.
	Width int
	// ScaleEvery is the number of rows between gradient rulers.
	ScaleEvery int
	// Jet selects the jet gradient instead of viridis.
	Jet bool
	// Literals colours bytes by origin (literal vs match copy) instead
	// of by heat.
	Literals bool
}

// Renderer writes the coloured view of a decode to a terminal.
type Renderer struct {
	w          io.Writer
	grad       *Gradient
	width      int
	scaleEvery int
	literals   bool
}

// New returns a Renderer writing to w. opts may be nil for defaults.
func New(w io.Writer, opts *Options) *Renderer {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Width <= 0 {
		o.Width = 64
	}
	if o.ScaleEvery <= 0 {
		o.ScaleEvery = 16
	}
	grad := Viridis()
	if o.Jet {
		grad = Jet()
	}
	return &Renderer{
		w:          w,
		grad:       grad,
		width:      o.Width,
		scaleEvery: o.ScaleEvery,
		literals:   o.Literals,
	}
}

// Render paints data byte by byte, coloured by the per-byte heat trace.
// Heat values are normalised by the trace maximum and tone-mapped with a
// square root so that the long tail of cheap match bytes stays visible.
// Each full row ends with three swatches: the row's min, mean and max
// heat. The three slices must have identical lengths.
func (rn *Renderer) Render(data []byte, heat []float64, literals []bool) error {
	bw := bufio.NewWriter(rn.w)

	maxHeat := 0.0
	for _, h := range heat {
		if h > maxHeat {
			maxHeat = h
		}
	}
	if maxHeat <= 0 {
		maxHeat = 1
	}

	minRow, maxRow, sumRow := 1.0, 0.0, 0.0
	for j, b := range data {
		if j%rn.width == 0 && (j/rn.width)%rn.scaleEvery == 0 {
			rn.writeScale(bw)
		}

		h := math.Sqrt(heat[j] / maxHeat)
		sumRow += h
		if h > maxRow {
			maxRow = h
		}
		if h < minRow {
			minRow = h
		}
		if rn.literals {
			h = 0
			if literals[j] {
				h = 1
			}
		}

		c := b
		if c < 0x20 || c > 0x7E {
			c = '.'
		}
		bw.WriteString(rn.grad.cell(h))
		bw.WriteByte(c)
		bw.WriteString(ansiReset)

		if j%rn.width == rn.width-1 {
			bw.WriteString(" ")
			bw.WriteString(rn.grad.cell(minRow))
			bw.WriteString(" ")
			bw.WriteString(rn.grad.cell(sumRow / float64(rn.width)))
			bw.WriteString(" ")
			bw.WriteString(rn.grad.cell(maxRow))
			bw.WriteString(" ")
			bw.WriteString(ansiReset)
			bw.WriteString("\n")
			minRow, maxRow, sumRow = 1, 0, 0
		}
	}
	bw.WriteString("\n")
	return bw.Flush()
}

// writeScale draws a ruler across the gradient, one glyph per column.
func (rn *Renderer) writeScale(bw *bufio.Writer) {
	for i := 0; i < rn.width; i++ {
		r, g, b := rn.grad.Lookup(float64(i) / float64(rn.width))
		bw.WriteString(ansiFg(r, g, b))
		bw.WriteString("━")
	}
	bw.WriteString(ansiReset)
	bw.WriteString("\n")
}

// WriteRaw prints the heat trace as plain numbers, one per line,
// normalised by the trace maximum. This is the machine-readable output
// used when stdout is not a terminal.
func WriteRaw(w io.Writer, heat []float64) error {
	maxHeat := 0.0
	for _, h := range heat {
		if h > maxHeat {
			maxHeat = h
		}
	}
	if maxHeat <= 0 {
		maxHeat = 1
	}
	bw := bufio.NewWriter(w)
	for _, h := range heat {
		fmt.Fprintf(bw, "%g\n", h/maxHeat)
	}
	return bw.Flush()
}
