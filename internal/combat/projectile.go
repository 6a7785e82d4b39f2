package combat

import (
	"time"

	"github.com/Nootest/3DShooting/internal/physics"
	"github.com/Nootest/3DShooting/internal/vec"
	enemy "github.com/Nootest/3DShooting/internal/world/entity"
)

// Owner - сторона, выпустившая снаряд
type Owner uint8

const (
	OwnerPlayer Owner = iota
	OwnerEnemy
)

func (o Owner) String() string {
	switch o {
	case OwnerPlayer:
		return "player"
	case OwnerEnemy:
		return "enemy"
	default:
		return "unknown"
	}
}

const (
	PlayerProjectileLifetime = 3000 * time.Millisecond
	EnemyProjectileLifetime  = 5000 * time.Millisecond
	EnemyProjectileDamage    = 10

	// MuzzleOffset - вынос точки вылета снаряда игрока от глаз
	MuzzleOffset = 1.0

	// ProjectileSize - сторона коробки снаряда для заметания
	ProjectileSize = 0.2
)

// Projectile - запись снаряда в пуле
type Projectile struct {
	Position  vec.Vec3Float
	Velocity  vec.Vec3Float
	Owner     Owner
	Shooter   enemy.Handle // Для вражеских снарядов
	Damage    float64
	Headshots bool // Засчитывает ли попадание в голову
	SpawnTick uint64
	Lifetime  uint64 // В тиках
}

// Box возвращает коробку снаряда в текущей позиции
func (p *Projectile) Box() physics.AABB {
	return physics.CubeAABB(p.Position, ProjectileSize)
}

// Expired проверяет, что снаряд прожил дольше своего срока
func (p *Projectile) Expired(tick uint64) bool {
	return tick-p.SpawnTick > p.Lifetime
}
