package assets

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/pthm-cable/flappy/config"
)

// Palette for procedurally drawn sprites.
var (
	birdBody  = color.NRGBA{R: 250, G: 200, B: 40, A: 255}
	birdWing  = color.NRGBA{R: 240, G: 240, B: 230, A: 255}
	birdEye   = color.NRGBA{R: 20, G: 20, B: 20, A: 255}
	birdBeak  = color.NRGBA{R: 235, G: 110, B: 30, A: 255}
	pipeBody  = color.NRGBA{R: 90, G: 180, B: 50, A: 255}
	pipeLip   = color.NRGBA{R: 70, G: 150, B: 40, A: 255}
	baseDirt  = color.NRGBA{R: 220, G: 210, B: 150, A: 255}
	baseGrass = color.NRGBA{R: 110, G: 190, B: 60, A: 255}
	skyTop    = color.NRGBA{R: 80, G: 190, B: 205, A: 255}
	skyBottom = color.NRGBA{R: 200, G: 240, B: 245, A: 255}
)

// wingOffsets is the wing's vertical offset per frame, as a fraction of bird height.
var wingOffsets = [BirdFrames]float64{0.30, 0.45, 0.60}

// Procedural draws a complete bundle sized from the config. Masks are not built.
func Procedural(cfg *config.Config) *Bundle {
	b := &Bundle{}
	for i := range b.Bird {
		b.Bird[i] = drawBird(cfg.Bird.Width, cfg.Bird.Height, wingOffsets[i])
	}
	b.PipeBottom = drawPipe(cfg.Pipes.Width, cfg.Pipes.Height)
	b.PipeTop = flipV(b.PipeBottom)
	b.Base = drawBase(cfg.Ground.Width, cfg.Ground.Height)
	b.Background = drawSky(cfg.Screen.Width, cfg.Screen.Height)
	return b
}

func drawBird(w, h int, wing float64) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	cx, cy := float64(w)*0.45, float64(h)*0.5
	fillEllipse(img, cx, cy, float64(w)*0.42, float64(h)*0.45, birdBody)
	fillEllipse(img, float64(w)*0.30, float64(h)*wing+float64(h)*0.1, float64(w)*0.18, float64(h)*0.14, birdWing)
	fillEllipse(img, float64(w)*0.65, float64(h)*0.32, float64(w)*0.06, float64(h)*0.09, birdEye)
	fillEllipse(img, float64(w)*0.86, float64(h)*0.58, float64(w)*0.12, float64(h)*0.10, birdBeak)
	return img
}

func drawPipe(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	inset := w / 12
	draw.Draw(img, image.Rect(inset, 0, w-inset, h), image.NewUniform(pipeBody), image.Point{}, draw.Src)
	// Lip at the opening (top of the bottom piece).
	draw.Draw(img, image.Rect(0, 0, w, h/16), image.NewUniform(pipeLip), image.Point{}, draw.Src)
	return img
}

func drawBase(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(baseDirt), image.Point{}, draw.Src)
	grass := h / 10
	stripe := max(w/28, 1)
	for x := 0; x < w; x += stripe * 2 {
		draw.Draw(img, image.Rect(x, 0, x+stripe, grass), image.NewUniform(baseGrass), image.Point{}, draw.Src)
	}
	return img
}

func drawSky(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		t := float64(y) / float64(max(h-1, 1))
		c := color.NRGBA{
			R: lerp8(skyTop.R, skyBottom.R, t),
			G: lerp8(skyTop.G, skyBottom.G, t),
			B: lerp8(skyTop.B, skyBottom.B, t),
			A: 255,
		}
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func fillEllipse(img *image.NRGBA, cx, cy, rx, ry float64, c color.NRGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dx := (float64(x) + 0.5 - cx) / rx
			dy := (float64(y) + 0.5 - cy) / ry
			if dx*dx+dy*dy <= 1 {
				img.SetNRGBA(x, y, c)
			}
		}
	}
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}
