package physics

import (
	"github.com/Nootest/3DShooting/internal/vec"
)

// Axis определяет ось, по которой было разрешено пересечение
type Axis uint8

const (
	AxisNone Axis = iota
	AxisX
	AxisY
	AxisZ
)

// String возвращает имя оси
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "none"
	}
}

// AABB представляет выровненный по осям параллелепипед
type AABB struct {
	Min vec.Vec3Float
	Max vec.Vec3Float
}

// NewAABB создаёт коробку по центру и размерам
func NewAABB(center, size vec.Vec3Float) AABB {
	half := size.Mul(0.5)
	return AABB{Min: center.Sub(half), Max: center.Add(half)}
}

// CubeAABB создаёт куб со стороной side вокруг центра
func CubeAABB(center vec.Vec3Float, side float64) AABB {
	return NewAABB(center, vec.V3(side, side, side))
}

// Center возвращает центр коробки
func (b AABB) Center() vec.Vec3Float {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Expand расширяет коробку на margin по всем осям
func (b AABB) Expand(margin float64) AABB {
	m := vec.V3(margin, margin, margin)
	return AABB{Min: b.Min.Sub(m), Max: b.Max.Add(m)}
}

// Translate сдвигает коробку
func (b AABB) Translate(d vec.Vec3Float) AABB {
	return AABB{Min: b.Min.Add(d), Max: b.Max.Add(d)}
}

// Intersects проверяет строгое пересечение двух коробок (касание не считается)
func (b AABB) Intersects(o AABB) bool {
	return b.Min.X < o.Max.X && b.Max.X > o.Min.X &&
		b.Min.Y < o.Max.Y && b.Max.Y > o.Min.Y &&
		b.Min.Z < o.Max.Z && b.Max.Z > o.Min.Z
}

// ContainsPoint проверяет, лежит ли точка внутри коробки
func (b AABB) ContainsPoint(p vec.Vec3Float) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Overlap возвращает глубину взаимного проникновения по каждой оси
func Overlap(a, b AABB) (ox, oy, oz float64) {
	ox = min(a.Max.X-b.Min.X, b.Max.X-a.Min.X)
	oy = min(a.Max.Y-b.Min.Y, b.Max.Y-a.Min.Y)
	oz = min(a.Max.Z-b.Min.Z, b.Max.Z-a.Min.Z)
	return ox, oy, oz
}

// ObstacleFunc возвращает коробки препятствий, лежащих в области area
type ObstacleFunc func(area AABB) []AABB

// CollidesAt проверяет, пересекает ли коробка хотя бы одно препятствие
func CollidesAt(box AABB, obstacles ObstacleFunc) bool {
	if obstacles == nil {
		return false
	}
	for _, o := range obstacles(box) {
		if box.Intersects(o) {
			return true
		}
	}
	return false
}

// MTV вычисляет минимальный вектор выталкивания box из obstacle.
// Выталкивание идёт только по оси наименьшего проникновения; при равенстве
// выбирается Y. epsilon добавляется к сдвигу, чтобы коробки не касались.
func MTV(box, obstacle AABB, epsilon float64) (vec.Vec3Float, Axis) {
	if !box.Intersects(obstacle) {
		return vec.Vec3Float{}, AxisNone
	}
	ox, oy, oz := Overlap(box, obstacle)
	bc := box.Center()
	oc := obstacle.Center()

	switch {
	case ox < oy && ox < oz:
		if bc.X < oc.X {
			return vec.V3(obstacle.Min.X-box.Max.X-epsilon, 0, 0), AxisX
		}
		return vec.V3(obstacle.Max.X-box.Min.X+epsilon, 0, 0), AxisX
	case oz < oy && oz < ox:
		if bc.Z < oc.Z {
			return vec.V3(0, 0, obstacle.Min.Z-box.Max.Z-epsilon), AxisZ
		}
		return vec.V3(0, 0, obstacle.Max.Z-box.Min.Z+epsilon), AxisZ
	default:
		if bc.Y < oc.Y {
			return vec.V3(0, obstacle.Min.Y-box.Max.Y-epsilon, 0), AxisY
		}
		return vec.V3(0, obstacle.Max.Y-box.Min.Y+epsilon, 0), AxisY
	}
}

// GroundMTV - вариант MTV для наземных юнитов: ось Y выбирается, только если
// проникновение по XZ не очевидно меньше. Сдвиг равен глубине проникновения.
func GroundMTV(box, obstacle AABB) (vec.Vec3Float, Axis) {
	if !box.Intersects(obstacle) {
		return vec.Vec3Float{}, AxisNone
	}
	ox, oy, oz := Overlap(box, obstacle)
	halfHeight := (box.Max.Y - box.Min.Y) / 2
	bc := box.Center()
	oc := obstacle.Center()

	switch {
	case ox < oz && (ox < oy || oy > halfHeight):
		if bc.X < oc.X {
			return vec.V3(-ox, 0, 0), AxisX
		}
		return vec.V3(ox, 0, 0), AxisX
	case oz < ox && (oz < oy || oy > halfHeight):
		if bc.Z < oc.Z {
			return vec.V3(0, 0, -oz), AxisZ
		}
		return vec.V3(0, 0, oz), AxisZ
	case oy > 0:
		if bc.Y < oc.Y {
			return vec.V3(0, -oy, 0), AxisY
		}
		return vec.V3(0, oy, 0), AxisY
	}
	return vec.Vec3Float{}, AxisNone
}

// Resolution описывает итог выталкивания из препятствий
type Resolution struct {
	Offset  vec.Vec3Float // Суммарный сдвиг центра коробки
	Pushes  int           // Сколько раз коробку пришлось сдвинуть
	Ceiling bool          // Коробку вытолкнуло вниз (удар головой)
	Landed  bool          // Коробку вытолкнуло вверх (стоит на препятствии)
}

// ResolveBox последовательно выталкивает коробку из всех препятствий,
// найденных в её исходной области. Коробка обновляется после каждого сдвига.
func ResolveBox(box AABB, obstacles ObstacleFunc, epsilon float64) Resolution {
	return resolve(box, obstacles, func(b, o AABB) (vec.Vec3Float, Axis) {
		return MTV(b, o, epsilon)
	})
}

// ResolveGroundBox делает то же, что ResolveBox, но с правилом GroundMTV
func ResolveGroundBox(box AABB, obstacles ObstacleFunc) Resolution {
	return resolve(box, obstacles, GroundMTV)
}

func resolve(box AABB, obstacles ObstacleFunc, mtv func(b, o AABB) (vec.Vec3Float, Axis)) Resolution {
	var res Resolution
	if obstacles == nil {
		return res
	}
	for _, o := range obstacles(box) {
		push, axis := mtv(box, o)
		if axis == AxisNone {
			continue
		}
		box = box.Translate(push)
		res.Offset = res.Offset.Add(push)
		res.Pushes++
		if axis == AxisY {
			if push.Y < 0 {
				res.Ceiling = true
			} else {
				res.Landed = true
			}
		}
	}
	return res
}
