package vec

import "math"

// Vec2Float - направление ввода в осях камеры: X вправо, Y вперёд
type Vec2Float struct {
	X, Y float64
}

func (v Vec2Float) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Normalized приводит к единичной длине; диагональ не быстрее прямого хода
func (v Vec2Float) Normalized() Vec2Float {
	l := math.Hypot(v.X, v.Y)
	if l == 0 {
		return Vec2Float{}
	}
	return Vec2Float{X: v.X / l, Y: v.Y / l}
}

// Basis раскладывает вектор по мировым осям right и forward
func (v Vec2Float) Basis(right, forward Vec3Float) Vec3Float {
	return right.Mul(v.X).Add(forward.Mul(v.Y))
}
