package world

import (
	"time"

	"github.com/Nootest/3DShooting/internal/logging"
)

// Config - стартовые константы мира
type Config struct {
	MapSize        float64 // Сторона квадратной карты
	VoxelSize      float64 // Сторона вокселя
	StructureCount int     // Количество построек
}

// DefaultConfig возвращает параметры карты по умолчанию
func DefaultConfig() Config {
	return Config{
		MapSize:        100,
		VoxelSize:      1,
		StructureCount: 20,
	}
}

// WorldManager владеет набором вокселей текущей партии.
// До первого вызова Generate сетка пуста, и все запросы к ней возвращают пустой результат.
type WorldManager struct {
	cfg        Config
	grid       *VoxelGrid
	structures []Structure
	seed       int64
	generation uint64 // Счётчик перегенераций
	logger     *logging.Logger
}

// NewWorldManager создаёт менеджер с пустым (не сгенерированным) миром
func NewWorldManager(cfg Config) *WorldManager {
	if cfg.VoxelSize <= 0 {
		cfg.VoxelSize = 1
	}
	return &WorldManager{
		cfg:    cfg,
		grid:   NewVoxelGrid(cfg.VoxelSize),
		logger: logging.GetWorldLogger(),
	}
}

// Generate очищает мир и строит его заново с указанным сидом
func (wm *WorldManager) Generate(seed int64) {
	start := time.Now()
	gen := NewWorldGenerator(seed, wm.cfg.VoxelSize)
	wm.grid, wm.structures = gen.Generate(wm.cfg.MapSize, wm.cfg.StructureCount)
	wm.seed = seed
	wm.generation++

	stats := wm.grid.GetStats()
	wm.logger.Info("🧱 Мир #%d сгенерирован за %v: сид=%d, построек=%d, вокселей=%d (камень=%d, тёмный=%d, акцент=%d)",
		wm.generation, time.Since(start), seed, len(wm.structures), stats.Voxels,
		stats.ByMaterial[MaterialStone], stats.ByMaterial[MaterialDarkStone], stats.ByMaterial[MaterialAccent])
}

// Grid возвращает текущую сетку вокселей
func (wm *WorldManager) Grid() *VoxelGrid {
	return wm.grid
}

// Config возвращает параметры мира
func (wm *WorldManager) Config() Config {
	return wm.cfg
}

// Structures возвращает постройки последней генерации
func (wm *WorldManager) Structures() []Structure {
	return wm.structures
}

// Seed возвращает сид последней генерации
func (wm *WorldManager) Seed() int64 {
	return wm.seed
}

// Generation возвращает номер генерации (0 - мир ещё не строился)
func (wm *WorldManager) Generation() uint64 {
	return wm.generation
}

// Boundary возвращает предел координат X/Z для сущностей
func (wm *WorldManager) Boundary() float64 {
	return wm.cfg.MapSize/2 - wm.cfg.VoxelSize
}
