package navigation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nootest/3DShooting/internal/vec"
	"github.com/Nootest/3DShooting/internal/world"
)

// wallWorld строит мир 20x20 со стеной по x=0 от z=-10 до z=5
func wallWorld(t *testing.T) *world.VoxelGrid {
	t.Helper()
	voxels := world.NewVoxelGrid(1)
	for z := -10; z <= 5; z++ {
		for y := 0; y < 4; y++ {
			voxels.Insert(vec.V3(0, float64(y)+0.5, float64(z)), world.MaterialStone)
		}
	}
	return voxels
}

func requireValidPath(t *testing.T, g *Grid, cells []vec.Vec2) {
	t.Helper()
	for i, c := range cells {
		require.True(t, g.IsWalkable(c), "клетка %v пути должна быть проходимой", c)
		if i == 0 {
			continue
		}
		prev := cells[i-1]
		dx, dy := c.X-prev.X, c.Y-prev.Y
		require.True(t, abs(dx) <= 1 && abs(dy) <= 1 && (dx != 0 || dy != 0),
			"шаг %v -> %v должен быть к одному из 8 соседей", prev, c)
		if dx != 0 && dy != 0 {
			assert.True(t, g.IsWalkable(vec.Vec2{X: prev.X + dx, Y: prev.Y}), "диагональ не должна срезать угол")
			assert.True(t, g.IsWalkable(vec.Vec2{X: prev.X, Y: prev.Y + dy}), "диагональ не должна срезать угол")
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestBuildGrid(t *testing.T) {
	t.Run("пустой мир полностью проходим", func(t *testing.T) {
		g := NewOpenGrid(100, 2)
		assert.Equal(t, 50, g.Width())
		assert.Equal(t, 50, g.Height())
		assert.Equal(t, 0, g.BlockedCount())
	})

	t.Run("воксель у земли закрывает клетку", func(t *testing.T) {
		voxels := world.NewVoxelGrid(1)
		voxels.Insert(vec.V3(-9, 0.5, -9), world.MaterialStone)
		g := BuildGrid(voxels, 20, 2, DefaultClearance)
		assert.False(t, g.IsWalkable(vec.Vec2{X: 0, Y: 0}))
		assert.True(t, g.IsWalkable(vec.Vec2{X: 3, Y: 3}))
	})

	t.Run("воксель выше полосы не мешает", func(t *testing.T) {
		voxels := world.NewVoxelGrid(1)
		voxels.Insert(vec.V3(-9, 5.5, -9), world.MaterialStone)
		g := BuildGrid(voxels, 20, 2, DefaultClearance)
		assert.True(t, g.IsWalkable(vec.Vec2{X: 0, Y: 0}))
	})

	t.Run("стена закрывает два столбца клеток", func(t *testing.T) {
		g := BuildGrid(wallWorld(t), 20, 2, DefaultClearance)
		assert.False(t, g.IsWalkable(vec.Vec2{X: 4, Y: 0}))
		assert.False(t, g.IsWalkable(vec.Vec2{X: 5, Y: 0}))
		assert.True(t, g.IsWalkable(vec.Vec2{X: 4, Y: 9}), "верхний ряд открыт")
	})
}

func TestWorldToCell(t *testing.T) {
	g := NewOpenGrid(100, 2)

	c, ok := g.WorldToCell(vec.V3(0, 0, 0))
	require.True(t, ok)
	assert.Equal(t, vec.Vec2{X: 25, Y: 25}, c)

	c, ok = g.WorldToCell(vec.V3(-500, 0, 500))
	require.True(t, ok, "точка за картой прижимается к краю")
	assert.Equal(t, vec.Vec2{X: 0, Y: 49}, c)

	center := g.CellToWorld(vec.Vec2{X: 0, Y: 0})
	assert.Equal(t, vec.V3(-49, PathHeight, -49), center)

	back, ok := g.WorldToCell(center)
	require.True(t, ok)
	assert.Equal(t, vec.Vec2{X: 0, Y: 0}, back, "центр клетки возвращается в ту же клетку")
}

func TestFindPath(t *testing.T) {
	t.Run("прямой путь в открытом поле", func(t *testing.T) {
		g := NewOpenGrid(20, 2)
		cells := g.FindCells(vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 9, Y: 0})
		require.NotNil(t, cells)
		assert.Len(t, cells, 10)
		assert.Equal(t, vec.Vec2{X: 0, Y: 0}, cells[0])
		assert.Equal(t, vec.Vec2{X: 9, Y: 0}, cells[len(cells)-1])
		requireValidPath(t, g, cells)
	})

	t.Run("диагональ стоит sqrt2", func(t *testing.T) {
		g := NewOpenGrid(20, 2)
		cells := g.FindCells(vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 5, Y: 5})
		require.NotNil(t, cells)
		assert.Len(t, cells, 6, "оптимальный путь идёт по диагонали")
	})

	t.Run("обход стены", func(t *testing.T) {
		g := BuildGrid(wallWorld(t), 20, 2, DefaultClearance)
		start := vec.Vec2{X: 0, Y: 0}
		goal := vec.Vec2{X: 9, Y: 0}
		cells := g.FindCells(start, goal)
		require.NotNil(t, cells, "путь в обход стены существует")
		assert.Equal(t, start, cells[0])
		assert.Equal(t, goal, cells[len(cells)-1])
		requireValidPath(t, g, cells)

		path := g.FindPath(start, goal)
		require.Len(t, path, len(cells))
		for i := range path {
			assert.Equal(t, PathHeight, path[i].Y)
		}
	})

	t.Run("угол не срезается", func(t *testing.T) {
		g := NewOpenGrid(20, 2)
		g.SetBlocked(vec.Vec2{X: 1, Y: 0}, true)
		cells := g.FindCells(vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 1, Y: 1})
		require.NotNil(t, cells)
		assert.Len(t, cells, 3, "диагональ через закрытый угол запрещена")
		requireValidPath(t, g, cells)
	})

	t.Run("старт равен цели", func(t *testing.T) {
		g := NewOpenGrid(20, 2)
		path := g.FindPath(vec.Vec2{X: 3, Y: 3}, vec.Vec2{X: 3, Y: 3})
		require.Len(t, path, 1)
		assert.Equal(t, g.CellToWorld(vec.Vec2{X: 3, Y: 3}), path[0])
	})

	t.Run("закрытый старт или цель", func(t *testing.T) {
		g := NewOpenGrid(20, 2)
		g.SetBlocked(vec.Vec2{X: 0, Y: 0}, true)
		assert.Nil(t, g.FindPath(vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 5, Y: 5}))
		assert.Nil(t, g.FindPath(vec.Vec2{X: 5, Y: 5}, vec.Vec2{X: 0, Y: 0}))
		assert.Nil(t, g.FindPath(vec.Vec2{X: -1, Y: 0}, vec.Vec2{X: 5, Y: 5}), "клетка вне сетки")
	})

	t.Run("недостижимая цель", func(t *testing.T) {
		g := NewOpenGrid(20, 2)
		goal := vec.Vec2{X: 5, Y: 5}
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				if dx != 0 || dy != 0 {
					g.SetBlocked(vec.Vec2{X: goal.X + dx, Y: goal.Y + dy}, true)
				}
			}
		}
		assert.Nil(t, g.FindPath(vec.Vec2{X: 0, Y: 0}, goal))
		stats := g.GetStats()
		assert.Equal(t, uint64(1), stats.Failed)
		assert.Equal(t, uint64(0), stats.BudgetHits, "малая сетка исчерпывается до бюджета")
	})

	t.Run("бюджет поиска", func(t *testing.T) {
		g := NewOpenGrid(200, 2)
		goal := vec.Vec2{X: 90, Y: 90}
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				if dx != 0 || dy != 0 {
					g.SetBlocked(vec.Vec2{X: goal.X + dx, Y: goal.Y + dy}, true)
				}
			}
		}
		assert.Nil(t, g.FindPath(vec.Vec2{X: 0, Y: 0}, goal))
		stats := g.GetStats()
		assert.Equal(t, uint64(1), stats.BudgetHits)
		assert.Equal(t, uint64(MaxSearchSteps), stats.ExpandedNodes)
	})
}

func TestHeuristic(t *testing.T) {
	assert.Equal(t, 0.0, Heuristic(vec.Vec2{}, vec.Vec2{}))
	assert.Equal(t, 3.0, Heuristic(vec.Vec2{}, vec.Vec2{X: 3}))
	assert.InDelta(t, 3*math.Sqrt2, Heuristic(vec.Vec2{}, vec.Vec2{X: 3, Y: 3}), 1e-9)
	assert.InDelta(t, 2+math.Sqrt2, Heuristic(vec.Vec2{}, vec.Vec2{X: 3, Y: 1}), 1e-9)
}

func TestSmooth(t *testing.T) {
	straight := []vec.Vec3Float{vec.V3(0, 1.5, 0), vec.V3(1, 1.5, 0), vec.V3(2, 1.5, 0), vec.V3(3, 1.5, 0)}

	t.Run("короткий путь без изменений", func(t *testing.T) {
		short := straight[:2]
		assert.Equal(t, short, Smooth(short, func(a, b vec.Vec3Float) bool { return true }))
	})

	t.Run("полная видимость оставляет концы", func(t *testing.T) {
		out := Smooth(straight, func(a, b vec.Vec3Float) bool { return true })
		assert.Equal(t, []vec.Vec3Float{straight[0], straight[3]}, out)
	})

	t.Run("без видимости путь не меняется", func(t *testing.T) {
		out := Smooth(straight, func(a, b vec.Vec3Float) bool { return false })
		assert.Equal(t, straight, out)
	})

	t.Run("сглаживание вокруг стены", func(t *testing.T) {
		voxels := wallWorld(t)
		g := BuildGrid(voxels, 20, 2, DefaultClearance)
		path := g.FindPath(vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 9, Y: 0})
		require.NotNil(t, path)

		out := Smooth(path, voxels.LineOfSight)
		require.NotEmpty(t, out)
		assert.Equal(t, path[0], out[0], "первая точка сохраняется")
		assert.Equal(t, path[len(path)-1], out[len(out)-1], "последняя точка сохраняется")
		assert.LessOrEqual(t, len(out), len(path))
		for i := 1; i < len(out); i++ {
			assert.True(t, voxels.LineOfSight(out[i-1], out[i]), "между соседними точками нет препятствий")
		}
	})
}
