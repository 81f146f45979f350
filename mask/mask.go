// Package mask provides bit-packed pixel masks for pixel-perfect collision tests.
package mask

import (
	"image"
	"math/bits"
)

// DefaultThreshold is the alpha value a pixel must exceed to be solid.
const DefaultThreshold = 127

// Mask is a bit-packed solid/empty grid. Rows are stored in 64-bit words.
type Mask struct {
	w, h   int
	stride int // words per row
	bits   []uint64
}

// New creates an empty mask of the given size.
func New(w, h int) *Mask {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	stride := (w + 63) / 64
	return &Mask{w: w, h: h, stride: stride, bits: make([]uint64, stride*h)}
}

// FromImage builds a mask where every pixel with alpha above threshold is solid.
func FromImage(img image.Image, threshold uint8) *Mask {
	b := img.Bounds()
	m := New(b.Dx(), b.Dy())
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			_, _, _, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if uint8(a>>8) > threshold {
				m.Set(x, y)
			}
		}
	}
	return m
}

// Size returns the mask dimensions.
func (m *Mask) Size() (w, h int) {
	return m.w, m.h
}

// Set marks (x, y) solid. Out of range coordinates are ignored.
func (m *Mask) Set(x, y int) {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return
	}
	m.bits[y*m.stride+x/64] |= 1 << uint(x%64)
}

// Get reports whether (x, y) is solid.
func (m *Mask) Get(x, y int) bool {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return false
	}
	return m.bits[y*m.stride+x/64]&(1<<uint(x%64)) != 0
}

// Fill marks every pixel solid.
func (m *Mask) Fill() {
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			m.Set(x, y)
		}
	}
}

// Count returns the number of solid pixels.
func (m *Mask) Count() int {
	n := 0
	for _, w := range m.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

// FlipV returns a vertically mirrored copy.
func (m *Mask) FlipV() *Mask {
	out := New(m.w, m.h)
	for y := 0; y < m.h; y++ {
		copy(out.bits[(m.h-1-y)*m.stride:(m.h-y)*m.stride], m.bits[y*m.stride:(y+1)*m.stride])
	}
	return out
}

// Overlap places other at offset (dx, dy) relative to m and returns the
// first solid pixel they share, in m's coordinates, scanning row by row.
func (m *Mask) Overlap(other *Mask, dx, dy int) (x, y int, ok bool) {
	if other == nil {
		return 0, 0, false
	}
	x0, x1 := max(0, dx), min(m.w, dx+other.w)
	y0, y1 := max(0, dy), min(m.h, dy+other.h)
	if x0 >= x1 || y0 >= y1 {
		return 0, 0, false
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if m.Get(x, y) && other.Get(x-dx, y-dy) {
				return x, y, true
			}
		}
	}
	return 0, 0, false
}

// Overlaps reports whether m and other share any solid pixel at the offset.
func (m *Mask) Overlaps(other *Mask, dx, dy int) bool {
	_, _, ok := m.Overlap(other, dx, dy)
	return ok
}
