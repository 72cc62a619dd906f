package render

import "fmt"

// 24-bit SGR escape helpers. Channel values are fractions in [0, 1],
// scaled to 0..255 on output.

const ansiReset = "\x1b[0m"

func ansiFg(r, g, b float64) string {
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", int(r*0xFF), int(g*0xFF), int(b*0xFF))
}

func ansiBg(r, g, b float64) string {
	return fmt.Sprintf("\x1b[48;2;%d;%d;%dm", int(r*0xFF), int(g*0xFF), int(b*0xFF))
}

// cell returns the escape that paints a glyph on the gradient colour for
// value: the colour as background, its complement as foreground so the
// byte stays readable on any part of the gradient.
func (g *Gradient) cell(value float64) string {
	r, gr, b := g.Lookup(value)
	return ansiBg(r, gr, b) + ansiFg(1-r, 1-gr, 1-b)
}
