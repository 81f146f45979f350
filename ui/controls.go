package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// MaxSpeed bounds the speed slider.
const MaxSpeed = 50

// ControlsPanel renders the overlay toggles and the run controls:
// a speed slider (ticks simulated per drawn frame) and a pause button.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel, hidden.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Draw renders the panel and returns the updated speed and paused state.
func (c *ControlsPanel) Draw(overlays *OverlayRegistry, speed int, paused bool) (int, bool) {
	if !c.visible {
		return speed, paused
	}

	r := c.renderer
	pad := r.Theme.Padding
	line := r.Theme.LineHeight

	categories := overlays.Categories()
	rows := len(overlays.All()) + len(categories)
	height := int32(rows)*line + pad*3 + line*4
	r.DrawPanel(c.x, c.y, c.width, height)

	x, y := c.x+pad, c.y+pad
	inner := c.width - pad*2
	rl.DrawText("Controls", x, y, 16, rl.White)
	y += line + 4

	rl.DrawText(fmt.Sprintf("Speed %dx", speed), x, y, r.Theme.FontSize, r.Theme.LabelColor)
	y += line
	v := gui.SliderBar(rl.NewRectangle(float32(x+16), float32(y), float32(inner-48), 14), "1", fmt.Sprint(MaxSpeed),
		float32(speed), 1, MaxSpeed)
	speed = max(1, min(MaxSpeed, int(v+0.5)))
	y += line + 4

	label := "Pause"
	if paused {
		label = "Resume"
	}
	if gui.Button(rl.NewRectangle(float32(x), float32(y), float32(inner), 20), label) {
		paused = !paused
	}
	y += line + 10

	for _, category := range categories {
		rl.DrawText(categoryLabel(category), x, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
		y += line
		for _, desc := range overlays.ByCategory(category) {
			c.drawToggle(x, y, desc, overlays.IsEnabled(desc.ID), inner)
			y += line
		}
	}
	return speed, paused
}

func (c *ControlsPanel) drawToggle(x, y int32, desc OverlayDescriptor, enabled bool, width int32) {
	r := c.renderer

	status := rl.Color{R: 80, G: 80, B: 80, A: 255}
	name := r.Theme.LabelColor
	if enabled {
		status = rl.Color{R: 100, G: 200, B: 100, A: 255}
		name = rl.White
	}
	rl.DrawRectangle(x, y+2, 8, 8, status)
	rl.DrawText(desc.Name, x+14, y, r.Theme.FontSize, name)

	if desc.KeyLabel != "" {
		key := fmt.Sprintf("[%s]", desc.KeyLabel)
		w := rl.MeasureText(key, r.Theme.FontSize)
		rl.DrawText(key, x+width-w, y, r.Theme.FontSize, rl.Color{R: 150, G: 150, B: 150, A: 255})
	}
}

func categoryLabel(cat string) string {
	switch cat {
	case "visual":
		return "Visual"
	case "ai":
		return "AI"
	case "debug":
		return "Debug"
	default:
		return cat
	}
}
