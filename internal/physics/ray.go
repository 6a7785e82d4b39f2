package physics

import (
	"math"

	"github.com/Nootest/3DShooting/internal/vec"
)

// RayIntersect возвращает расстояние от origin до входа луча в коробку.
// dir должен быть нормализован. Если origin внутри коробки, расстояние 0.
func RayIntersect(origin, dir vec.Vec3Float, box AABB) (float64, bool) {
	tMin := 0.0
	tMax := math.Inf(1)

	axes := [3][4]float64{
		{origin.X, dir.X, box.Min.X, box.Max.X},
		{origin.Y, dir.Y, box.Min.Y, box.Max.Y},
		{origin.Z, dir.Z, box.Min.Z, box.Max.Z},
	}
	for _, a := range axes {
		o, d, lo, hi := a[0], a[1], a[2], a[3]
		if d == 0 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		inv := 1 / d
		t1 := (lo - o) * inv
		t2 := (hi - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// SweptAABB возвращает коробку, покрывающую box в начале и в конце сдвига
func SweptAABB(box AABB, move vec.Vec3Float) AABB {
	end := box.Translate(move)
	return AABB{
		Min: vec.V3(min(box.Min.X, end.Min.X), min(box.Min.Y, end.Min.Y), min(box.Min.Z, end.Min.Z)),
		Max: vec.V3(max(box.Max.X, end.Max.X), max(box.Max.Y, end.Max.Y), max(box.Max.Z, end.Max.Z)),
	}
}
