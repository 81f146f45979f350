package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flappy/game"
)

// TintFunc returns the tint for a pilot, or false for the plain sprite.
type TintFunc func(id int) (rl.Color, bool)

// SceneRenderer draws the playfield layers of a frame: background, pipes,
// ground, then birds.
type SceneRenderer struct {
	tex *Textures
}

// NewSceneRenderer creates a scene renderer over loaded textures.
func NewSceneRenderer(tex *Textures) *SceneRenderer {
	return &SceneRenderer{tex: tex}
}

// Draw renders the frame. tint may be nil.
func (s *SceneRenderer) Draw(f *game.Frame, tint TintFunc) {
	bg := s.tex.Background
	rl.DrawTexturePro(bg,
		rl.NewRectangle(0, 0, float32(bg.Width), float32(bg.Height)),
		rl.NewRectangle(0, 0, float32(f.Width), float32(f.Height)),
		rl.Vector2{}, 0, rl.White)

	for _, p := range f.Pipes {
		rl.DrawTexture(s.tex.PipeTop, int32(p.X), int32(p.Top), rl.White)
		rl.DrawTexture(s.tex.PipeBottom, int32(p.X), int32(p.Bottom), rl.White)
	}

	if f.HasGround {
		rl.DrawTexture(s.tex.Base, int32(f.Ground.X1), int32(f.Ground.Y), rl.White)
		rl.DrawTexture(s.tex.Base, int32(f.Ground.X2), int32(f.Ground.Y), rl.White)
	}

	// Lead bird last so it is on top.
	for i := len(f.Birds) - 1; i >= 0; i-- {
		bv := f.Birds[i]
		color := rl.White
		if tint != nil {
			if c, ok := tint(bv.ID); ok {
				color = c
			}
		}
		s.drawBird(bv, color)
	}
}

// drawBird rotates the sprite about its center. Tilt is counter-clockwise
// positive; raylib rotates clockwise.
func (s *SceneRenderer) drawBird(bv game.BirdView, color rl.Color) {
	tex := s.tex.Bird[bv.Bird.Frame%len(s.tex.Bird)]
	w, h := float32(tex.Width), float32(tex.Height)
	rl.DrawTexturePro(tex,
		rl.NewRectangle(0, 0, w, h),
		rl.NewRectangle(float32(bv.Bird.X)+w/2, float32(bv.Bird.Y)+h/2, w, h),
		rl.NewVector2(w/2, h/2),
		-float32(bv.Bird.Tilt),
		color)
}

// DrawHitboxes outlines the unrotated sprite boxes the masks are tested in.
func (s *SceneRenderer) DrawHitboxes(f *game.Frame) {
	bird := s.tex.Bird[0]
	for _, bv := range f.Birds {
		rl.DrawRectangleLines(int32(bv.Bird.X), int32(bv.Bird.Y), bird.Width, bird.Height, rl.Red)
	}
	pipe := s.tex.PipeBottom
	for _, p := range f.Pipes {
		rl.DrawRectangleLines(int32(p.X), int32(p.Top), pipe.Width, pipe.Height, rl.Orange)
		rl.DrawRectangleLines(int32(p.X), int32(p.Bottom), pipe.Width, pipe.Height, rl.Orange)
	}
	if f.HasGround {
		rl.DrawLine(0, int32(f.Ground.Y), int32(f.Width), int32(f.Ground.Y), rl.Yellow)
	}
}

// DrawSensors draws each bird's lines to the edges of the sensed gap.
func (s *SceneRenderer) DrawSensors(f *game.Frame) {
	ref := f.RefPipe()
	if ref == nil {
		return
	}
	gapX := float32(ref.X) + float32(s.tex.PipeBottom.Width)/2
	top := rl.NewVector2(gapX, float32(ref.Anchor))
	bottom := rl.NewVector2(gapX, float32(ref.Bottom))
	bird := s.tex.Bird[0]
	for _, bv := range f.Birds {
		c := rl.NewVector2(float32(bv.Bird.X)+float32(bird.Width)/2, float32(bv.Bird.Y)+float32(bird.Height)/2)
		rl.DrawLineV(c, top, rl.Color{R: 255, G: 80, B: 80, A: 160})
		rl.DrawLineV(c, bottom, rl.Color{R: 80, G: 255, B: 80, A: 160})
	}
}
