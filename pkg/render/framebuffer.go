package render

import (
	"image"
	"image/color"
	"image/png"
	"os"
)

// Framebuffer is a simple RGB pixel buffer.
type Framebuffer struct {
	Width  int
	Height int
	BG     color.RGBA
	Pixels []Color
}

// NewFramebuffer creates a framebuffer of the given size.
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Pixels: make([]Color, width*height),
	}
}

// Resize reallocates the buffer for a new size.
func (fb *Framebuffer) Resize(width, height int) {
	fb.Width = width
	fb.Height = height
	fb.Pixels = make([]Color, width*height)
}

// Clear fills the buffer with the background color.
func (fb *Framebuffer) Clear() {
	bg := RGB(fb.BG.R, fb.BG.G, fb.BG.B)
	for i := range fb.Pixels {
		fb.Pixels[i] = bg
	}
}

// SetPixel writes a pixel; out-of-bounds coordinates are ignored.
func (fb *Framebuffer) SetPixel(x, y int, c Color) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	fb.Pixels[y*fb.Width+x] = c
}

// GetPixel reads a pixel; out-of-bounds coordinates return black.
func (fb *Framebuffer) GetPixel(x, y int) Color {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return Color{}
	}
	return fb.Pixels[y*fb.Width+x]
}

// ToImage converts the framebuffer to an image.RGBA.
func (fb *Framebuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for y := range fb.Height {
		for x := range fb.Width {
			p := fb.Pixels[y*fb.Width+x]
			img.SetRGBA(x, y, color.RGBA{p.R, p.G, p.B, 255})
		}
	}
	return img
}

// SavePNG writes the framebuffer to a PNG file.
func (fb *Framebuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, fb.ToImage())
}
