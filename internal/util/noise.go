package util

import (
	"github.com/aquilax/go-perlin"
)

// Noise оборачивает генератор шума Перлина с фиксированным сидом
type Noise struct {
	p     *perlin.Perlin
	scale float64
}

// NewNoise создаёт генератор шума; scale задаёт масштаб координат (чем меньше, тем крупнее пятна)
func NewNoise(seed int64, scale float64) *Noise {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	if scale <= 0 {
		scale = 1
	}
	return &Noise{p: perlin.NewPerlin(alpha, beta, n, seed), scale: scale}
}

// Sample2D возвращает значение шума в точке (от 0 до 1)
func (n *Noise) Sample2D(x, y float64) float64 {
	v := n.p.Noise2D(x*n.scale, y*n.scale)
	v = (v + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
