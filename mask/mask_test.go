package mask

import (
	"image"
	"image/color"
	"testing"
)

func solid(w, h int) *Mask {
	m := New(w, h)
	m.Fill()
	return m
}

func TestFromImageThreshold(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	img.SetNRGBA(0, 0, color.NRGBA{A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{A: 128})
	img.SetNRGBA(2, 0, color.NRGBA{A: 127})
	img.SetNRGBA(3, 1, color.NRGBA{R: 200, A: 200})

	m := FromImage(img, DefaultThreshold)
	want := map[[2]int]bool{{0, 0}: true, {1, 0}: true, {3, 1}: true}
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			if got := m.Get(x, y); got != want[[2]int{x, y}] {
				t.Errorf("Get(%d,%d) = %v, want %v", x, y, got, want[[2]int{x, y}])
			}
		}
	}
	if m.Count() != 3 {
		t.Errorf("Count = %d, want 3", m.Count())
	}
}

func TestOverlap(t *testing.T) {
	tests := []struct {
		name   string
		a, b   *Mask
		dx, dy int
		want   bool
	}{
		{"same origin", solid(10, 10), solid(5, 5), 0, 0, true},
		{"touching edge does not overlap", solid(10, 10), solid(5, 5), 10, 0, false},
		{"one pixel inside", solid(10, 10), solid(5, 5), 9, 9, true},
		{"negative offset inside", solid(10, 10), solid(5, 5), -4, -4, true},
		{"negative offset outside", solid(10, 10), solid(5, 5), -5, 0, false},
		{"far away", solid(10, 10), solid(5, 5), 100, 100, false},
		{"empty mask", New(10, 10), solid(5, 5), 0, 0, false},
		{"wide mask crosses word boundary", solid(130, 2), solid(3, 2), 127, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b, tt.dx, tt.dy); got != tt.want {
				t.Errorf("Overlaps(dx=%d, dy=%d) = %v, want %v", tt.dx, tt.dy, got, tt.want)
			}
		})
	}
}

func TestOverlapSymmetry(t *testing.T) {
	a := New(20, 20)
	a.Set(3, 4)
	a.Set(15, 15)
	b := New(8, 8)
	b.Set(1, 1)

	for dy := -10; dy <= 25; dy++ {
		for dx := -10; dx <= 25; dx++ {
			ab := a.Overlaps(b, dx, dy)
			ba := b.Overlaps(a, -dx, -dy)
			if ab != ba {
				t.Fatalf("asymmetric at (%d,%d): a∩b=%v b∩a=%v", dx, dy, ab, ba)
			}
		}
	}
}

func TestOverlapPoint(t *testing.T) {
	a := New(10, 10)
	a.Set(6, 7)
	b := New(3, 3)
	b.Set(2, 2)

	x, y, ok := a.Overlap(b, 4, 5)
	if !ok || x != 6 || y != 7 {
		t.Errorf("Overlap = (%d,%d,%v), want (6,7,true)", x, y, ok)
	}
}

func TestFlipV(t *testing.T) {
	m := New(70, 3)
	m.Set(65, 0)
	f := m.FlipV()
	if !f.Get(65, 2) || f.Get(65, 0) {
		t.Error("FlipV did not mirror rows")
	}
	if f.Count() != 1 {
		t.Errorf("Count = %d, want 1", f.Count())
	}
}
