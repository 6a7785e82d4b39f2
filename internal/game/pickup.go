package game

import (
	"math/rand"

	"github.com/Nootest/3DShooting/internal/vec"
	"github.com/Nootest/3DShooting/internal/world"
)

// PickupConfig - параметры аптечек
type PickupConfig struct {
	Heal        float64
	Radius      float64 // Радиус подбора
	MinDistance float64 // Минимальная дистанция появления от игрока
	Height      float64
	FromWave    int // Аптечки появляются с этой волны
}

// DefaultPickupConfig возвращает стандартные аптечки
func DefaultPickupConfig() PickupConfig {
	return PickupConfig{
		Heal:        50,
		Radius:      2,
		MinDistance: 10,
		Height:      0.75,
		FromWave:    2,
	}
}

// HealthPickup - аптечка на карте
type HealthPickup struct {
	ID       uint32        `msgpack:"id" json:"id"`
	Position vec.Vec3Float `msgpack:"position" json:"position"`
}

// pickups - аптечки текущей партии
type pickups struct {
	cfg    PickupConfig
	items  []HealthPickup
	nextID uint32
}

// spawn ставит аптечку в свободную точку не ближе MinDistance к игроку
func (p *pickups) spawn(grid *world.VoxelGrid, rng *rand.Rand, mapSize float64, player vec.Vec3Float) (HealthPickup, bool) {
	c := world.EnemySpawnConstraints(mapSize, player, p.cfg.MinDistance)
	pos, ok := grid.FindSafeSpawn(rng, c)
	if !ok {
		return HealthPickup{}, false
	}
	pos.Y = p.cfg.Height
	p.nextID++
	item := HealthPickup{ID: p.nextID, Position: pos}
	p.items = append(p.items, item)
	return item, true
}

// collect забирает аптечки в радиусе подбора от игрока
func (p *pickups) collect(player vec.Vec3Float, fn func(HealthPickup)) {
	r2 := p.cfg.Radius * p.cfg.Radius
	kept := p.items[:0]
	for _, item := range p.items {
		d := item.Position.Sub(player)
		if d.Dot(d) < r2 {
			fn(item)
			continue
		}
		kept = append(kept, item)
	}
	p.items = kept
}

func (p *pickups) clear() {
	p.items = p.items[:0]
}
