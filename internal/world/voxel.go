package world

import (
	"github.com/Nootest/3DShooting/internal/physics"
	"github.com/Nootest/3DShooting/internal/vec"
)

// Material определяет материал вокселя
type Material uint8

const (
	MaterialStone     Material = iota // Основной материал стен
	MaterialDarkStone                 // Редкий вариант стены
	MaterialAccent                    // Угловые колонны и крыша
)

// String возвращает имя материала
func (m Material) String() string {
	switch m {
	case MaterialStone:
		return "stone"
	case MaterialDarkStone:
		return "dark_stone"
	case MaterialAccent:
		return "accent"
	default:
		return "unknown"
	}
}

// Voxel представляет единичный куб геометрии мира
type Voxel struct {
	Cell     vec.Vec3      // Ключ в пространственном хеше
	Center   vec.Vec3Float // Центр в мировых координатах
	Material Material
}

// Box возвращает коробку вокселя для стороны size
func (v *Voxel) Box(size float64) physics.AABB {
	return physics.CubeAABB(v.Center, size)
}
