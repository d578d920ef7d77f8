package image

import (
	"fmt"
	"image/color"
)

// ColorFormat tags the channel layout of a Decoded sample buffer. 16-bit
// formats store each sample as two big-endian bytes.
type ColorFormat int

const (
	Gray8 ColorFormat = iota + 1
	Gray16
	RGB8
	RGBA8
	RGB16
	RGBA16
)

func (f ColorFormat) String() string {
	switch f {
	case Gray8:
		return "Gray8"
	case Gray16:
		return "Gray16"
	case RGB8:
		return "RGB8"
	case RGBA8:
		return "RGBA8"
	case RGB16:
		return "RGB16"
	case RGBA16:
		return "RGBA16"
	default:
		return fmt.Sprintf("ColorFormat(%d)", int(f))
	}
}

func (f ColorFormat) BytesPerPixel() int {
	switch f {
	case Gray8:
		return 1
	case Gray16:
		return 2
	case RGB8:
		return 3
	case RGBA8:
		return 4
	case RGB16:
		return 6
	case RGBA16:
		return 8
	default:
		return 0
	}
}

// Decoded is an image flattened to tightly packed rows of samples.
type Decoded struct {
	Width  int
	Height int
	Format ColorFormat
	Pix    []byte
}

// NRGBAAt returns the pixel at x, y reduced to 8 bits per channel.
func (d *Decoded) NRGBAAt(x int, y int) color.NRGBA {
	bpp := d.Format.BytesPerPixel()
	o := (y*d.Width + x) * bpp
	p := d.Pix[o : o+bpp]

	switch d.Format {
	case Gray8:
		return color.NRGBA{R: p[0], G: p[0], B: p[0], A: 255}
	case Gray16:
		return color.NRGBA{R: p[0], G: p[0], B: p[0], A: 255}
	case RGB8:
		return color.NRGBA{R: p[0], G: p[1], B: p[2], A: 255}
	case RGBA8:
		return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
	case RGB16:
		return color.NRGBA{R: p[0], G: p[2], B: p[4], A: 255}
	case RGBA16:
		return color.NRGBA{R: p[0], G: p[2], B: p[4], A: p[6]}
	default:
		return color.NRGBA{}
	}
}

type DiffResult struct {
	// Found is false when every sample pair is within tolerance
	Found      bool
	Offset     int
	Difference uint8
	X          int
	Y          int
}
