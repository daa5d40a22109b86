// Package render is a small software renderer: framebuffer, camera, and
// triangle rasterizer. It backs the terminal viewport and PNG snapshots.
package render

// Color is an 8-bit RGB color.
type Color struct {
	R, G, B uint8
}

// RGB creates a color from components.
func RGB(r, g, b uint8) Color {
	return Color{r, g, b}
}

// Common colors.
var (
	ColorBlack = RGB(0, 0, 0)
	ColorWhite = RGB(255, 255, 255)
	ColorRed   = RGB(255, 0, 0)
	ColorGreen = RGB(0, 255, 0)
	ColorBlue  = RGB(0, 0, 255)
)

// Scale multiplies each component by s, clamping to [0, 255].
func (c Color) Scale(s float64) Color {
	return Color{clamp8(float64(c.R) * s), clamp8(float64(c.G) * s), clamp8(float64(c.B) * s)}
}

// Add returns the component-wise saturating sum.
func (c Color) Add(o Color) Color {
	return Color{
		clamp8(float64(c.R) + float64(o.R)),
		clamp8(float64(c.G) + float64(o.G)),
		clamp8(float64(c.B) + float64(o.B)),
	}
}

// FromFloats creates a color from 0-1 range components.
func FromFloats(r, g, b float64) Color {
	return Color{clamp8(r * 255), clamp8(g * 255), clamp8(b * 255)}
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
