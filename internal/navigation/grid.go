package navigation

import (
	"math"

	"github.com/Nootest/3DShooting/internal/vec"
	"github.com/Nootest/3DShooting/internal/world"
)

// Параметры сетки проходимости
const (
	DefaultCellSize  = 2.0 // Сторона клетки в мировых единицах
	DefaultClearance = 2.0 // Минимальная высота прохода
	PathHeight       = 1.5 // Высота точек пути
	bandStart        = 0.1 // Нижняя граница проверяемой полосы (над землёй)
)

// Grid - грубая 2D сетка проходимости поверх вокселей.
// Клетка (x, y) соответствует мировой точке (X, Z). Строится один раз на генерацию мира.
type Grid struct {
	width, height int
	cellSize      float64
	mapSize       float64
	blocked       []bool

	stats Stats
}

// BuildGrid строит сетку: клетка закрыта, если в её пятне в полосе высот
// [0.1, 0.1+clearance] есть хотя бы один воксель
func BuildGrid(voxels *world.VoxelGrid, mapSize, cellSize, clearance float64) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	size := int(math.Floor(mapSize / cellSize))
	if size < 1 {
		size = 1
	}
	g := &Grid{
		width:    size,
		height:   size,
		cellSize: cellSize,
		mapSize:  mapSize,
		blocked:  make([]bool, size*size),
	}

	vs := voxels.VoxelSize()
	minY := int(math.Floor(bandStart / vs))
	maxY := int(math.Floor((bandStart + clearance) / vs))
	radius := int(math.Floor(cellSize / (2 * vs)))

	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			center := g.CellToWorld(vec.Vec2{X: x, Y: y})
			cx := int(math.Floor(center.X / vs))
			cz := int(math.Floor(center.Z / vs))
			lo := vec.Vec3{X: cx - radius, Y: minY, Z: cz - radius}
			hi := vec.Vec3{X: cx + radius, Y: maxY, Z: cz + radius}
			g.blocked[g.index(x, y)] = voxels.AnyInCells(lo, hi)
		}
	}
	return g
}

// NewOpenGrid создаёт полностью проходимую сетку (используется в тестах и до генерации мира)
func NewOpenGrid(mapSize, cellSize float64) *Grid {
	return BuildGrid(world.NewVoxelGrid(1), mapSize, cellSize, DefaultClearance)
}

// Width возвращает количество клеток по X
func (g *Grid) Width() int { return g.width }

// Height возвращает количество клеток по Z
func (g *Grid) Height() int { return g.height }

// CellSize возвращает сторону клетки
func (g *Grid) CellSize() float64 { return g.cellSize }

func (g *Grid) index(x, y int) int {
	return y*g.width + x
}

// InBounds проверяет, лежит ли клетка внутри сетки
func (g *Grid) InBounds(c vec.Vec2) bool {
	return g != nil && c.X >= 0 && c.Y >= 0 && c.X < g.width && c.Y < g.height
}

// IsWalkable - клетка внутри сетки и не закрыта
func (g *Grid) IsWalkable(c vec.Vec2) bool {
	if !g.InBounds(c) {
		return false
	}
	return !g.blocked[g.index(c.X, c.Y)]
}

// SetBlocked меняет проходимость клетки (для тестов и отладочных инструментов)
func (g *Grid) SetBlocked(c vec.Vec2, blocked bool) {
	if g.InBounds(c) {
		g.blocked[g.index(c.X, c.Y)] = blocked
	}
}

// BlockedCount возвращает число закрытых клеток
func (g *Grid) BlockedCount() int {
	n := 0
	for _, b := range g.blocked {
		if b {
			n++
		}
	}
	return n
}

// WorldToCell переводит мировую точку в клетку, прижимая координаты к карте
func (g *Grid) WorldToCell(p vec.Vec3Float) (vec.Vec2, bool) {
	if g == nil || g.width == 0 {
		return vec.Vec2{}, false
	}
	half := g.mapSize / 2
	x := math.Max(-half, math.Min(half-0.1, p.X))
	z := math.Max(-half, math.Min(half-0.1, p.Z))
	c := vec.Vec2{
		X: int(math.Floor((x + half) / g.cellSize)),
		Y: int(math.Floor((z + half) / g.cellSize)),
	}
	if !g.InBounds(c) {
		return vec.Vec2{}, false
	}
	return c, true
}

// CellToWorld возвращает центр клетки на высоте пути
func (g *Grid) CellToWorld(c vec.Vec2) vec.Vec3Float {
	half := g.mapSize / 2
	return vec.Vec3Float{
		X: float64(c.X)*g.cellSize - half + g.cellSize/2,
		Y: PathHeight,
		Z: float64(c.Y)*g.cellSize - half + g.cellSize/2,
	}
}

// GetStats возвращает накопленную статистику поиска
func (g *Grid) GetStats() Stats {
	return g.stats
}
