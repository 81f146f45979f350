package terminal

// layout maps playfield pixels to terminal cells.
type layout struct {
	sx, sy     float64 // pixels per cell
	cols, rows int
}

type cellRect struct {
	x0, y0, x1, y1 int
}

func newLayout(width, height, cols, rows int) layout {
	return layout{
		sx:   float64(width) / float64(cols),
		sy:   float64(height) / float64(rows),
		cols: cols,
		rows: rows,
	}
}

// cell returns the cell containing pixel (x, y), clamped to the screen.
func (l layout) cell(x, y float64) (int, int) {
	return clamp(int(x/l.sx), 0, l.cols-1), clamp(int(y/l.sy), 0, l.rows-1)
}

// rect returns the cells covered by a pixel rectangle, clipped to the screen.
func (l layout) rect(x, y, w, h float64) cellRect {
	return cellRect{
		x0: clamp(int(x/l.sx), 0, l.cols),
		y0: clamp(int(y/l.sy), 0, l.rows),
		x1: clamp(int((x+w)/l.sx+0.5), 0, l.cols),
		y1: clamp(int((y+h)/l.sy+0.5), 0, l.rows),
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
