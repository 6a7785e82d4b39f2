package world

import (
	"math"

	"github.com/Nootest/3DShooting/internal/physics"
	"github.com/Nootest/3DShooting/internal/vec"
)

// segmentVoxels - длина участка луча (в вокселях), для которого собирается
// набор кандидатов из хеша
const segmentVoxels = 2.0

// RayHit описывает попадание луча в воксель
type RayHit struct {
	Voxel    *Voxel
	Distance float64
	Point    vec.Vec3Float
}

// Raycast ищет ближайший воксель вдоль луча в пределах maxDist.
// Луч режется на короткие участки; для каждого участка кандидаты берутся
// из хеша по его коробке, поэтому стоимость зависит от длины луча, а не от мира.
func (g *VoxelGrid) Raycast(origin, dir vec.Vec3Float, maxDist float64) (RayHit, bool) {
	if g == nil || len(g.voxels) == 0 || maxDist <= 0 {
		return RayHit{}, false
	}
	dir = dir.Normalized()
	if dir.IsZero() {
		return RayHit{}, false
	}

	step := segmentVoxels * g.voxelSize
	for t0 := 0.0; t0 < maxDist; t0 += step {
		t1 := math.Min(t0+step, maxDist)
		a := origin.Add(dir.Mul(t0))
		b := origin.Add(dir.Mul(t1))
		segment := physics.AABB{
			Min: vec.V3(math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Min(a.Z, b.Z)),
			Max: vec.V3(math.Max(a.X, b.X), math.Max(a.Y, b.Y), math.Max(a.Z, b.Z)),
		}

		best := RayHit{Distance: math.Inf(1)}
		g.forEachInRange(segment, func(v *Voxel) bool {
			d, ok := physics.RayIntersect(origin, dir, v.Box(g.voxelSize))
			if ok && d <= t1 && d < best.Distance {
				best = RayHit{Voxel: v, Distance: d}
			}
			return true
		})
		if best.Voxel != nil {
			best.Point = origin.Add(dir.Mul(best.Distance))
			return best, true
		}
	}
	return RayHit{}, false
}

// LineOfSight проверяет, что отрезок from→to не перекрыт вокселями
func (g *VoxelGrid) LineOfSight(from, to vec.Vec3Float) bool {
	delta := to.Sub(from)
	dist := delta.Length()
	if dist == 0 {
		return true
	}
	hit, ok := g.Raycast(from, delta, dist)
	return !ok || hit.Distance >= dist
}
