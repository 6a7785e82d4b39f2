package vec

// Vec2 - клетка навигационной сетки: X по оси X мира, Y по оси Z
type Vec2 struct {
	X, Y int
}

// Offset сдвигает клетку на (dx, dy)
func (c Vec2) Offset(dx, dy int) Vec2 {
	return Vec2{X: c.X + dx, Y: c.Y + dy}
}

// Delta возвращает модули разностей координат
func (c Vec2) Delta(other Vec2) (dx, dy int) {
	dx, dy = c.X-other.X, c.Y-other.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx, dy
}
