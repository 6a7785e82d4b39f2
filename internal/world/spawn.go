package world

import (
	"math"
	"math/rand"

	"github.com/Nootest/3DShooting/internal/vec"
)

// SpawnConstraints описывает поиск свободной точки появления
type SpawnConstraints struct {
	Attempts    int                                 // Сколько кандидатов проверить
	Sample      func(rng *rand.Rand) (x, z float64) // Генератор кандидатов
	HalfWidth   float64                             // Полуширина проверяемой площадки по X/Z
	MinY, MaxY  float64                             // Вертикальная полоса проверки
	SpawnY      float64                             // Высота возвращаемой точки
	Reference   vec.Vec3Float                       // Точка, от которой считается дистанция
	MinDistance float64                             // Минимальная дистанция до Reference по XZ (0 - без ограничения)
	Fallback    vec.Vec3Float                       // Точка на случай неудачи
}

// FindSafeSpawn перебирает кандидатов и возвращает первую точку, площадка
// вокруг которой свободна от вокселей. Если за Attempts попыток точка не
// найдена, возвращается Fallback и false.
func (g *VoxelGrid) FindSafeSpawn(rng *rand.Rand, c SpawnConstraints) (vec.Vec3Float, bool) {
	minDistSq := c.MinDistance * c.MinDistance
	vs := g.VoxelSize()

	for i := 0; i < c.Attempts; i++ {
		x, z := c.Sample(rng)

		if c.MinDistance > 0 {
			dx := x - c.Reference.X
			dz := z - c.Reference.Z
			if dx*dx+dz*dz < minDistSq {
				continue
			}
		}

		lo := vec.Vec3{
			X: int(math.Floor((x - c.HalfWidth) / vs)),
			Y: int(math.Floor(c.MinY / vs)),
			Z: int(math.Floor((z - c.HalfWidth) / vs)),
		}
		hi := vec.Vec3{
			X: int(math.Floor((x + c.HalfWidth) / vs)),
			Y: int(math.Floor(c.MaxY / vs)),
			Z: int(math.Floor((z + c.HalfWidth) / vs)),
		}
		if !g.AnyInCells(lo, hi) {
			return vec.Vec3Float{X: x, Y: c.SpawnY, Z: z}, true
		}
	}
	return c.Fallback, false
}

// PlayerSpawnConstraints - кольцо 5..20 вокруг центра, свободная площадка 7×7×4 вокселя
func PlayerSpawnConstraints(voxelSize float64) SpawnConstraints {
	return SpawnConstraints{
		Attempts: 100,
		Sample: func(rng *rand.Rand) (float64, float64) {
			angle := rng.Float64() * math.Pi * 2
			distance := 5 + rng.Float64()*15
			return math.Cos(angle) * distance, math.Sin(angle) * distance
		},
		HalfWidth: 3 * voxelSize,
		MinY:      0,
		MaxY:      3 * voxelSize,
		SpawnY:    0,
		Fallback:  vec.V3(15, 0, 15),
	}
}

// EnemySpawnConstraints - любая точка карты с отступом 5, не ближе minDistance к игроку
func EnemySpawnConstraints(mapSize float64, player vec.Vec3Float, minDistance float64) SpawnConstraints {
	return SpawnConstraints{
		Attempts: 100,
		Sample: func(rng *rand.Rand) (float64, float64) {
			x := rng.Float64()*(mapSize-10) - (mapSize/2 - 5)
			z := rng.Float64()*(mapSize-10) - (mapSize/2 - 5)
			return x, z
		},
		HalfWidth:   0.75,
		MinY:        0,
		MaxY:        3,
		SpawnY:      1.5,
		Reference:   player,
		MinDistance: minDistance,
		Fallback:    vec.V3(0, 1.5, 0),
	}
}
