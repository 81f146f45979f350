// Package renderer draws published game frames in a raylib window.
package renderer

import (
	"image"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flappy/assets"
)

// Textures holds the GPU copies of a sprite bundle.
type Textures struct {
	Bird       [assets.BirdFrames]rl.Texture2D
	PipeTop    rl.Texture2D
	PipeBottom rl.Texture2D
	Base       rl.Texture2D
	Background rl.Texture2D
}

// LoadTextures uploads every sprite in the bundle. The window must be open.
func LoadTextures(b *assets.Bundle) *Textures {
	t := &Textures{
		PipeTop:    upload(b.PipeTop),
		PipeBottom: upload(b.PipeBottom),
		Base:       upload(b.Base),
		Background: upload(b.Background),
	}
	for i, img := range b.Bird {
		t.Bird[i] = upload(img)
	}
	return t
}

func upload(img *image.NRGBA) rl.Texture2D {
	rimg := rl.NewImageFromImage(img)
	defer rl.UnloadImage(rimg)
	return rl.LoadTextureFromImage(rimg)
}

// Unload frees the textures.
func (t *Textures) Unload() {
	for _, tex := range t.Bird {
		rl.UnloadTexture(tex)
	}
	rl.UnloadTexture(t.PipeTop)
	rl.UnloadTexture(t.PipeBottom)
	rl.UnloadTexture(t.Base)
	rl.UnloadTexture(t.Background)
}
