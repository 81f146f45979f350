package ui

import (
	"fmt"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flappy/game"
	"github.com/pthm-cable/flappy/neural"
)

// InspectorData is what the inspector shows for the lead bird.
type InspectorData struct {
	Bird    game.BirdView
	Sensors []float64
	Genome  *neural.GenomeRecord // nil outside training
}

func inspected(data any) *InspectorData {
	return data.(*InspectorData)
}

func sensor(i int) func(any) float32 {
	return func(data any) float32 {
		d := inspected(data)
		if i >= len(d.Sensors) {
			return 0
		}
		return float32(d.Sensors[i])
	}
}

// InspectorSections lists the lead-bird readouts.
func InspectorSections() []SectionDescriptor {
	return []SectionDescriptor{
		{
			ID:    "bird",
			Title: "Bird",
			Fields: []FieldDescriptor{
				{ID: "id", Label: "Pilot", Widget: WidgetText, Format: "%.0f",
					Getter: func(d any) float32 { return float32(inspected(d).Bird.ID) }},
				{ID: "y", Label: "Y", Widget: WidgetText, Format: "%.1f",
					Getter: func(d any) float32 { return float32(inspected(d).Bird.Bird.Y) }},
				{ID: "tilt", Label: "Tilt", Widget: WidgetCenteredBar, Range: FieldRange{Min: -90, Max: 25},
					Getter: func(d any) float32 { return float32(inspected(d).Bird.Bird.Tilt) }},
				{ID: "ticks", Label: "Airtime", Widget: WidgetText, Format: "%.0f",
					Getter: func(d any) float32 { return float32(inspected(d).Bird.Bird.Ticks) }},
			},
		},
		{
			ID:    "sensors",
			Title: "Sensors",
			Fields: []FieldDescriptor{
				{ID: "height", Label: "Height", Widget: WidgetBar, Range: FieldRange{Min: 0, Max: 800}, Getter: sensor(0)},
				{ID: "top", Label: "Gap top", Widget: WidgetBar, Range: FieldRange{Min: 0, Max: 600}, Getter: sensor(1)},
				{ID: "bottom", Label: "Gap bot", Widget: WidgetBar, Range: FieldRange{Min: 0, Max: 600}, Getter: sensor(2)},
			},
			Visible: func(d any) bool { return len(inspected(d).Sensors) > 0 },
		},
		{
			ID:    "brain",
			Title: "Brain",
			Fields: []FieldDescriptor{
				{ID: "species", Label: "Species", Widget: WidgetText, Format: "%.0f",
					Getter: func(d any) float32 { return float32(inspected(d).Genome.Species) }},
				{ID: "fitness", Label: "Fitness", Widget: WidgetText, Format: "%.1f",
					Getter: func(d any) float32 { return float32(inspected(d).Genome.Fitness) }},
				{ID: "size", Label: "Size", Widget: WidgetText,
					TextGetter: func(d any) string {
						g := inspected(d).Genome
						return fmt.Sprintf("%d nodes, %d genes", len(g.Nodes), len(g.Genes))
					}},
			},
			Visible: func(d any) bool { return inspected(d).Genome != nil },
		},
	}
}

// Inspector renders the lead bird panel.
type Inspector struct {
	renderer *Renderer
	sections []SectionDescriptor
	x, y     int32
	width    int32
}

// NewInspector creates a new inspector panel.
func NewInspector(x, y, width int32) *Inspector {
	return &Inspector{
		renderer: NewRenderer(),
		sections: InspectorSections(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the inspector position.
func (ins *Inspector) SetPosition(x, y int32) {
	ins.x = x
	ins.y = y
}

const graphHeight = 120

// Draw renders the panel and returns the y below it.
func (ins *Inspector) Draw(data *InspectorData) int32 {
	r := ins.renderer
	pad := r.Theme.Padding
	inner := ins.width - pad*2

	height := pad * 2
	for _, sd := range ins.sections {
		height += r.SectionHeight(sd, data)
	}
	if data.Genome != nil {
		height += graphHeight + 6
	}
	r.DrawPanel(ins.x, ins.y, ins.width, height)

	x, y := ins.x+pad, ins.y+pad
	for _, sd := range ins.sections {
		y = r.DrawSection(x, y, sd, data, inner)
	}
	if data.Genome != nil {
		drawBrainGraph(x, y, inner, graphHeight, data.Genome)
		y += graphHeight + 6
	}
	return y
}

// drawBrainGraph draws inputs on the left, outputs on the right and hidden
// nodes in columns of eight between them. Link color encodes the weight sign.
func drawBrainGraph(x, y, width, height int32, rec *neural.GenomeRecord) {
	rl.DrawRectangle(x, y, width, height, rl.Color{R: 30, G: 35, B: 40, A: 255})

	var inputs, outputs, hidden []neural.NodeRecord
	for _, n := range rec.Nodes {
		switch n.Kind {
		case "input", "bias":
			inputs = append(inputs, n)
		case "output":
			outputs = append(outputs, n)
		default:
			hidden = append(hidden, n)
		}
	}

	pad := float32(15)
	span := float32(height) - pad*2
	pos := make(map[int]rl.Vector2, len(rec.Nodes))
	column := func(nodes []neural.NodeRecord, cx float32) {
		step := span / float32(max(len(nodes), 1))
		for i, n := range nodes {
			pos[n.ID] = rl.NewVector2(cx, float32(y)+pad+float32(i)*step+step/2)
		}
	}
	column(inputs, float32(x)+pad)
	column(outputs, float32(x+width)-pad)
	if len(hidden) > 0 {
		cols := (len(hidden) + 7) / 8
		colWidth := (float32(width) - pad*4) / float32(cols+1)
		for c := 0; c < cols; c++ {
			column(hidden[c*8:min(len(hidden), c*8+8)], float32(x)+pad*2+colWidth*float32(c+1))
		}
	}

	for _, g := range rec.Genes {
		if !g.Enabled {
			continue
		}
		in, ok1 := pos[g.In]
		out, ok2 := pos[g.Out]
		if !ok1 || !ok2 {
			continue
		}
		w := float32(g.Weight)
		alpha := uint8(math32.Min(255, math32.Abs(w)*100+50))
		color := rl.Color{R: 100, G: 200, B: 100, A: alpha}
		if w < 0 {
			color = rl.Color{R: 200, G: 100, B: 100, A: alpha}
		}
		rl.DrawLineV(in, out, color)
	}

	draw := func(nodes []neural.NodeRecord, color rl.Color) {
		for _, n := range nodes {
			rl.DrawCircleV(pos[n.ID], 4, color)
		}
	}
	draw(inputs, rl.Color{R: 100, G: 150, B: 255, A: 255})
	draw(outputs, rl.Color{R: 255, G: 180, B: 100, A: 255})
	draw(hidden, rl.Color{R: 180, G: 180, B: 180, A: 255})
}
