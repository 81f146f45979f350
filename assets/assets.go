// Package assets builds the sprite and collision-mask bundle shared by the
// game loop and the renderers. A bundle is constructed once at startup.
package assets

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/pthm-cable/flappy/config"
	"github.com/pthm-cable/flappy/mask"
	"github.com/pthm-cable/flappy/systems"
)

// BirdFrames is the number of wing animation frames.
const BirdFrames = 3

// Sprite file names looked up in assets.dir.
var (
	birdFiles = [BirdFrames]string{"bird1.png", "bird2.png", "bird3.png"}
	pipeFile  = "pipe.png"
	baseFile  = "base.png"
	bgFile    = "bg.png"
)

// Bundle holds every sprite and the masks derived from them.
type Bundle struct {
	Bird       [BirdFrames]*image.NRGBA
	PipeBottom *image.NRGBA
	PipeTop    *image.NRGBA // PipeBottom flipped vertically
	Base       *image.NRGBA
	Background *image.NRGBA

	birdMasks [BirdFrames]*mask.Mask
	pipeMasks systems.PipeMasks
}

// Load builds a bundle. Sprites come from cfg.Assets.Dir when set (scaled by
// cfg.Assets.Scale); otherwise they are drawn procedurally at the configured sizes.
func Load(cfg *config.Config) (*Bundle, error) {
	var b *Bundle
	if cfg.Assets.Dir == "" {
		b = Procedural(cfg)
	} else {
		var err error
		b, err = loadDir(cfg.Assets.Dir, cfg.Assets.Scale)
		if err != nil {
			return nil, err
		}
	}
	b.buildMasks(cfg.Assets.AlphaThreshold)
	return b, nil
}

func loadDir(dir string, scale int) (*Bundle, error) {
	b := &Bundle{}
	for i, name := range birdFiles {
		img, err := loadPNG(filepath.Join(dir, name), scale)
		if err != nil {
			return nil, err
		}
		b.Bird[i] = img
	}

	var err error
	if b.PipeBottom, err = loadPNG(filepath.Join(dir, pipeFile), scale); err != nil {
		return nil, err
	}
	if b.Base, err = loadPNG(filepath.Join(dir, baseFile), scale); err != nil {
		return nil, err
	}
	if b.Background, err = loadPNG(filepath.Join(dir, bgFile), scale); err != nil {
		return nil, err
	}
	b.PipeTop = flipV(b.PipeBottom)
	return b, nil
}

func loadPNG(path string, scale int) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sprite: %w", err)
	}
	defer f.Close()

	src, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return Scale(src, scale), nil
}

// Scale resizes src by an integer factor with nearest-neighbour sampling.
func Scale(src image.Image, factor int) *image.NRGBA {
	if factor < 1 {
		factor = 1
	}
	sb := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, sb.Dx()*factor, sb.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
	return dst
}

func flipV(src *image.NRGBA) *image.NRGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		copy(dst.Pix[(h-1-y)*dst.Stride:], row)
	}
	return dst
}

func (b *Bundle) buildMasks(threshold uint8) {
	for i, img := range b.Bird {
		b.birdMasks[i] = mask.FromImage(img, threshold)
	}
	bottom := mask.FromImage(b.PipeBottom, threshold)
	b.pipeMasks = systems.PipeMasks{Top: bottom.FlipV(), Bottom: bottom}
}

// BirdMask returns the collision mask for a wing frame.
func (b *Bundle) BirdMask(frame int) *mask.Mask {
	if frame < 0 || frame >= BirdFrames {
		frame = 0
	}
	return b.birdMasks[frame]
}

// PipeMasks returns the collision masks of the two pipe pieces.
func (b *Bundle) PipeMasks() systems.PipeMasks {
	return b.pipeMasks
}

// BirdSize returns the bird sprite dimensions.
func (b *Bundle) BirdSize() (w, h int) {
	r := b.Bird[0].Bounds()
	return r.Dx(), r.Dy()
}

// PipeSize returns the pipe sprite dimensions.
func (b *Bundle) PipeSize() (w, h int) {
	r := b.PipeBottom.Bounds()
	return r.Dx(), r.Dy()
}

// BaseWidth returns the ground tile width.
func (b *Bundle) BaseWidth() int {
	return b.Base.Bounds().Dx()
}
