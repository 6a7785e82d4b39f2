package world

import (
	"math"

	"github.com/Nootest/3DShooting/internal/physics"
	"github.com/Nootest/3DShooting/internal/vec"
)

// VoxelGrid - разреженный пространственный хеш вокселей.
// Ключ - целочисленная ячейка floor(center/voxelSize). Отсутствие ключа - пустота.
// Сами воксели лежат в непрерывном срезе, хеш хранит индексы.
type VoxelGrid struct {
	voxelSize float64
	cells     map[vec.Vec3]int32
	voxels    []Voxel

	queries      uint64
	cellsScanned uint64
}

// GridStats содержит статистику хеша
type GridStats struct {
	Voxels       int
	Queries      uint64
	CellsScanned uint64
	ByMaterial   map[Material]int
}

// NewVoxelGrid создаёт пустую сетку
func NewVoxelGrid(voxelSize float64) *VoxelGrid {
	if voxelSize <= 0 {
		voxelSize = 1
	}
	return &VoxelGrid{
		voxelSize: voxelSize,
		cells:     make(map[vec.Vec3]int32),
	}
}

// VoxelSize возвращает сторону вокселя
func (g *VoxelGrid) VoxelSize() float64 {
	return g.voxelSize
}

// CellOf переводит мировую точку в ключ ячейки
func (g *VoxelGrid) CellOf(p vec.Vec3Float) vec.Vec3 {
	return vec.CellOf(p, g.voxelSize)
}

// Insert регистрирует воксель с центром center. Повторная вставка в ту же
// ячейку заменяет материал и центр.
func (g *VoxelGrid) Insert(center vec.Vec3Float, material Material) vec.Vec3 {
	cell := g.CellOf(center)
	if idx, ok := g.cells[cell]; ok {
		g.voxels[idx].Center = center
		g.voxels[idx].Material = material
		return cell
	}
	g.cells[cell] = int32(len(g.voxels))
	g.voxels = append(g.voxels, Voxel{Cell: cell, Center: center, Material: material})
	return cell
}

// IsOccupied проверяет наличие вокселя в ячейке
func (g *VoxelGrid) IsOccupied(cell vec.Vec3) bool {
	if g == nil {
		return false
	}
	_, ok := g.cells[cell]
	return ok
}

// At возвращает воксель ячейки или nil
func (g *VoxelGrid) At(cell vec.Vec3) *Voxel {
	if g == nil {
		return nil
	}
	idx, ok := g.cells[cell]
	if !ok {
		return nil
	}
	return &g.voxels[idx]
}

// Len возвращает количество вокселей
func (g *VoxelGrid) Len() int {
	if g == nil {
		return 0
	}
	return len(g.voxels)
}

// Voxels возвращает срез всех вокселей (только для чтения)
func (g *VoxelGrid) Voxels() []Voxel {
	if g == nil {
		return nil
	}
	return g.voxels
}

// Clear удаляет все воксели
func (g *VoxelGrid) Clear() {
	g.cells = make(map[vec.Vec3]int32)
	g.voxels = g.voxels[:0]
}

// cellRange вычисляет диапазон ячеек, покрывающих коробку.
// Коробка расширяется на полвокселя: центр вокселя лежит на границе ячеек по X/Z.
func (g *VoxelGrid) cellRange(box physics.AABB) (lo, hi vec.Vec3) {
	pad := g.voxelSize / 2
	lo = vec.Vec3{
		X: int(math.Floor((box.Min.X - pad) / g.voxelSize)),
		Y: int(math.Floor((box.Min.Y - pad) / g.voxelSize)),
		Z: int(math.Floor((box.Min.Z - pad) / g.voxelSize)),
	}
	hi = vec.Vec3{
		X: int(math.Floor((box.Max.X + pad) / g.voxelSize)),
		Y: int(math.Floor((box.Max.Y + pad) / g.voxelSize)),
		Z: int(math.Floor((box.Max.Z + pad) / g.voxelSize)),
	}
	return lo, hi
}

// forEachInRange обходит воксели в ячейках, покрывающих коробку.
// Стоимость ограничена размером коробки, а не размером мира.
func (g *VoxelGrid) forEachInRange(box physics.AABB, fn func(v *Voxel) bool) {
	if g == nil || len(g.voxels) == 0 {
		return
	}
	g.queries++
	lo, hi := g.cellRange(box)
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				g.cellsScanned++
				idx, ok := g.cells[vec.Vec3{X: x, Y: y, Z: z}]
				if !ok {
					continue
				}
				if !fn(&g.voxels[idx]) {
					return
				}
			}
		}
	}
}

// QueryAABB возвращает воксели, чьи коробки пересекают box.
// На пустом мире возвращает пустой результат.
func (g *VoxelGrid) QueryAABB(box physics.AABB) []*Voxel {
	var result []*Voxel
	g.forEachInRange(box, func(v *Voxel) bool {
		if v.Box(g.voxelSize).Intersects(box) {
			result = append(result, v)
		}
		return true
	})
	return result
}

// AnyInAABB сообщает, пересекает ли box хотя бы один воксель
func (g *VoxelGrid) AnyInAABB(box physics.AABB) bool {
	found := false
	g.forEachInRange(box, func(v *Voxel) bool {
		if v.Box(g.voxelSize).Intersects(box) {
			found = true
			return false
		}
		return true
	})
	return found
}

// AnyInCells проверяет занятость прямоугольного диапазона ячеек (включительно)
func (g *VoxelGrid) AnyInCells(lo, hi vec.Vec3) bool {
	if g == nil || len(g.voxels) == 0 {
		return false
	}
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				if _, ok := g.cells[vec.Vec3{X: x, Y: y, Z: z}]; ok {
					return true
				}
			}
		}
	}
	return false
}

// Obstacles возвращает коробки вокселей в области; подходит как physics.ObstacleFunc
func (g *VoxelGrid) Obstacles(area physics.AABB) []physics.AABB {
	var boxes []physics.AABB
	g.forEachInRange(area, func(v *Voxel) bool {
		boxes = append(boxes, v.Box(g.voxelSize))
		return true
	})
	return boxes
}

// GetStats возвращает статистику хеша
func (g *VoxelGrid) GetStats() GridStats {
	stats := GridStats{ByMaterial: make(map[Material]int)}
	if g == nil {
		return stats
	}
	stats.Voxels = len(g.voxels)
	stats.Queries = g.queries
	stats.CellsScanned = g.cellsScanned
	for i := range g.voxels {
		stats.ByMaterial[g.voxels[i].Material]++
	}
	return stats
}
