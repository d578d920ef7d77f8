package image

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/xerrors"
)

// Decode decodes any registered image format and flattens it with FromImage.
func Decode(data []byte) (*Decoded, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, xerrors.Errorf("failed to decode image: %w", err)
	}
	return FromImage(img), nil
}

// FromImage picks a ColorFormat from the concrete image type and copies the
// samples. Opaque RGBA images become RGB since the PNG decoder returns
// *image.RGBA for RGB files; straight-alpha images keep their alpha channel.
func FromImage(img image.Image) *Decoded {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	switch src := img.(type) {
	case *image.Gray:
		return &Decoded{width, height, Gray8, copyRows(src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y), width, height)}
	case *image.Gray16:
		return &Decoded{width, height, Gray16, copyRows(src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y), width*2, height)}
	case *image.NRGBA:
		return &Decoded{width, height, RGBA8, copyRows(src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y), width*4, height)}
	case *image.NRGBA64:
		return &Decoded{width, height, RGBA16, copyRows(src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y), width*8, height)}
	case *image.RGBA:
		if src.Opaque() {
			return &Decoded{width, height, RGB8, dropAlpha(src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y), width, height, 1)}
		}
	case *image.RGBA64:
		if src.Opaque() {
			return &Decoded{width, height, RGB16, dropAlpha(src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y), width, height, 2)}
		}
		return fromGeneric16(img, width, height)
	case *image.Paletted:
		if paletteOpaque(src.Palette) {
			return fromOpaque(img, width, height)
		}
		return fromGeneric(img, width, height)
	case *image.YCbCr:
		return fromYCbCr(src, width, height)
	}

	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return fromOpaque(img, width, height)
	}
	return fromGeneric(img, width, height)
}

func copyRows(pix []byte, stride int, start int, rowBytes int, height int) []byte {
	out := make([]byte, rowBytes*height)
	for y := 0; y < height; y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], pix[start+y*stride:])
	}
	return out
}

func dropAlpha(pix []byte, stride int, start int, width int, height int, sampleBytes int) []byte {
	in := 4 * sampleBytes
	keep := 3 * sampleBytes
	out := make([]byte, 0, width*height*keep)
	for y := 0; y < height; y++ {
		row := pix[start+y*stride:]
		for x := 0; x < width; x++ {
			out = append(out, row[x*in:x*in+keep]...)
		}
	}
	return out
}

func paletteOpaque(p color.Palette) bool {
	for _, c := range p {
		if _, _, _, a := c.RGBA(); a != 0xffff {
			return false
		}
	}
	return true
}

func fromOpaque(img image.Image, width int, height int) *Decoded {
	bounds := img.Bounds()
	pix := make([]byte, 0, width*height*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			pix = append(pix, c.R, c.G, c.B)
		}
	}
	return &Decoded{width, height, RGB8, pix}
}

func fromGeneric(img image.Image, width int, height int) *Decoded {
	bounds := img.Bounds()
	pix := make([]byte, 0, width*height*4)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			pix = append(pix, c.R, c.G, c.B, c.A)
		}
	}
	return &Decoded{width, height, RGBA8, pix}
}

func fromGeneric16(img image.Image, width int, height int) *Decoded {
	bounds := img.Bounds()
	pix := make([]byte, 0, width*height*8)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			pix = append(pix,
				uint8(c.R>>8), uint8(c.R),
				uint8(c.G>>8), uint8(c.G),
				uint8(c.B>>8), uint8(c.B),
				uint8(c.A>>8), uint8(c.A),
			)
		}
	}
	return &Decoded{width, height, RGBA16, pix}
}

func fromYCbCr(src *image.YCbCr, width int, height int) *Decoded {
	bounds := src.Bounds()
	pix := make([]byte, 0, width*height*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			yOffset := src.YOffset(x, y)
			cOffset := src.COffset(x, y)
			r, g, b := ycbcrToRGB(src.Y[yOffset], src.Cb[cOffset], src.Cr[cOffset])
			pix = append(pix, r, g, b)
		}
	}
	return &Decoded{width, height, RGB8, pix}
}

func ycbcrToRGB(y uint8, cb uint8, cr uint8) (uint8, uint8, uint8) {
	// ITU-R BT.601 full range, as used by JFIF:
	// R = Y + 1.402 * (Cr - 128)
	// G = Y - 0.344136 * (Cb - 128) - 0.714136 * (Cr - 128)
	// B = Y + 1.772 * (Cb - 128)
	// with coefficients scaled by 2^16.
	const (
		crToR = 91881
		cbToG = 22554
		crToG = 46802
		cbToB = 116130
	)

	yy := int32(y)<<16 + 1<<15
	cb1 := int32(cb) - 128
	cr1 := int32(cr) - 128

	r := (yy + crToR*cr1) >> 16
	g := (yy - cbToG*cb1 - crToG*cr1) >> 16
	b := (yy + cbToB*cb1) >> 16

	return clamp(r), clamp(g), clamp(b)
}

func clamp(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
