package model

import (
	"image"
	"image/draw"
)

// TextureRowAlignment is the row pitch alignment of texture pixel data.
const TextureRowAlignment = 256

// AlignTo rounds size up to the next multiple of alignment,
// which has to be a power of two.
func AlignTo(size, alignment int) int {
	return (size + alignment - 1) &^ (alignment - 1)
}

// AlignTo256 rounds size up to a multiple of 256.
func AlignTo256(size int) int {
	return AlignTo(size, TextureRowAlignment)
}

// Texture is a decoded image laid out as RGBA rows,
// each row padded to RowPitch bytes.
type Texture struct {
	Name     string
	Width    int
	Height   int
	RowPitch int
	Pixels   []uint8
}

// NewTexture converts a decoded image to a Texture.
func NewTexture(name string, img image.Image) *Texture {
	bounds := img.Bounds()
	pitch := AlignTo256(4 * bounds.Dx())
	return &Texture{
		Name:     name,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		RowPitch: pitch,
		Pixels:   GetPixels(img, pitch),
	}
}

// Pixel returns the RGBA value at x, y. Coordinates outside the
// texture, or any pixel of a released texture, read as zero.
func (t *Texture) Pixel(x, y int) [4]uint8 {
	var px [4]uint8
	if x < 0 || y < 0 || x >= t.Width || y >= t.Height {
		return px
	}
	off := y*t.RowPitch + x*4
	if off+4 > len(t.Pixels) {
		return px
	}
	copy(px[:], t.Pixels[off:off+4])
	return px
}

// Release drops the pixel data.
func (t *Texture) Release() {
	t.Pixels = nil
}

// GetPixels transforms a given image into right arrangement of pixels
// by drawing the decoded image onto a controlled RGBA canvas.
// Rows are rowPitch bytes apart, a pitch smaller than the row is ignored.
func GetPixels(img image.Image, rowPitch int) []uint8 {
	bounds := img.Bounds()
	canvas := image.Rect(0, 0, bounds.Dx(), bounds.Dy())
	if rowPitch < 4*canvas.Dx() {
		rowPitch = 4 * canvas.Dx()
	}
	newImg := &image.RGBA{
		Pix:    make([]uint8, rowPitch*canvas.Dy()),
		Stride: rowPitch,
		Rect:   canvas,
	}
	draw.Draw(newImg, canvas, img, bounds.Min, draw.Src)
	return newImg.Pix
}
