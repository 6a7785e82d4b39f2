package world

import (
	"math"
	"math/rand"

	"github.com/Nootest/3DShooting/internal/util"
	"github.com/Nootest/3DShooting/internal/vec"
)

// Константы генерации построек
const (
	minStructureWidth  = 5
	widthSpread        = 6 // ширина 5..10
	minStructureHeight = 5
	heightSpread       = 12 // высота 5..16
	minStructureDepth  = 5
	depthSpread        = 6 // глубина 5..10

	structureMargin  = 20   // отступ от краёв карты при выборе основания
	darkStoneChance  = 0.8  // порог случайного числа для тёмного камня
	weatheringSpread = 0.1  // насколько шум выветривания сдвигает порог
	weatheringScale  = 0.08 // масштаб шума выветривания
)

// WorldGenerator генерирует набор вокселей мира
type WorldGenerator struct {
	Seed      int64   // Сид генерации
	VoxelSize float64 // Сторона вокселя
	rng       *rand.Rand
	noise     *util.Noise
}

// Structure описывает сгенерированную постройку (для отладки и статистики)
type Structure struct {
	Origin vec.Vec2 // Угол основания в ячейках (X, Z)
	Width  int
	Height int
	Depth  int
}

// NewWorldGenerator создаёт генератор с указанным сидом
func NewWorldGenerator(seed int64, voxelSize float64) *WorldGenerator {
	if voxelSize <= 0 {
		voxelSize = 1
	}
	return &WorldGenerator{
		Seed:      seed,
		VoxelSize: voxelSize,
		rng:       rand.New(rand.NewSource(seed)),
		noise:     util.NewNoise(seed, weatheringScale),
	}
}

// Generate строит structureCount полых призм на карте mapSize×mapSize
// и возвращает заполненную сетку вместе с описанием построек.
func (wg *WorldGenerator) Generate(mapSize float64, structureCount int) (*VoxelGrid, []Structure) {
	grid := NewVoxelGrid(wg.VoxelSize)
	structures := make([]Structure, 0, structureCount)

	span := mapSize - structureMargin
	if span < 1 {
		span = 1
	}
	offset := int(mapSize/2 - structureMargin/2)

	for i := 0; i < structureCount; i++ {
		s := Structure{
			Width:  wg.rng.Intn(widthSpread) + minStructureWidth,
			Height: wg.rng.Intn(heightSpread) + minStructureHeight,
			Depth:  wg.rng.Intn(depthSpread) + minStructureDepth,
		}
		s.Origin = vec.Vec2{
			X: int(math.Floor(wg.rng.Float64()*span)) - offset,
			Y: int(math.Floor(wg.rng.Float64()*span)) - offset,
		}
		wg.emitStructure(grid, s)
		structures = append(structures, s)
	}

	return grid, structures
}

// emitStructure регистрирует воксели одной постройки
func (wg *WorldGenerator) emitStructure(grid *VoxelGrid, s Structure) {
	vs := wg.VoxelSize
	for x := 0; x < s.Width; x++ {
		for z := 0; z < s.Depth; z++ {
			for y := 0; y < s.Height; y++ {
				if !isShell(x, y, z, s) || isWindow(x, y, z, s) {
					continue
				}

				center := vec.Vec3Float{
					X: float64(s.Origin.X+x) * vs,
					Y: float64(y)*vs + vs/2,
					Z: float64(s.Origin.Y+z) * vs,
				}
				grid.Insert(center, wg.pickMaterial(x, y, z, s, center))
			}
		}
	}
}

// isShell - ячейка лежит на любой грани призмы
func isShell(x, y, z int, s Structure) bool {
	return y == 0 || y == s.Height-1 || onSideFace(x, z, s)
}

func onSideFace(x, z int, s Structure) bool {
	return x == 0 || x == s.Width-1 || z == 0 || z == s.Depth-1
}

// isWindow - вырез окна: только боковые грани в средней полосе высоты,
// по решётке с чередованием осей
func isWindow(x, y, z int, s Structure) bool {
	if y <= 2 || y >= s.Height-2 || !onSideFace(x, z, s) {
		return false
	}
	return (x%3 == 0 && z%2 == 0) || (z%3 == 0 && x%2 == 0)
}

// pickMaterial выбирает материал: акцент для угловых колонн и крыши,
// иначе камень с редким тёмным вариантом. Шум выветривания слегка
// смещает порог, чтобы тёмные блоки собирались в пятна.
func (wg *WorldGenerator) pickMaterial(x, y, z int, s Structure, center vec.Vec3Float) Material {
	corner := (x == 0 || x == s.Width-1) && (z == 0 || z == s.Depth-1)
	if corner || y == s.Height-1 {
		return MaterialAccent
	}
	weathering := wg.noise.Sample2D(center.X, center.Z)
	threshold := darkStoneChance - (weathering-0.5)*weatheringSpread*2
	if wg.rng.Float64() > threshold {
		return MaterialDarkStone
	}
	return MaterialStone
}
