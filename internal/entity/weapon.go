package entity

import (
	"math/rand"
	"time"

	"github.com/Nootest/3DShooting/internal/logging"
	"github.com/Nootest/3DShooting/internal/util"
	"github.com/Nootest/3DShooting/internal/vec"
)

// WeaponKind - тип оружия
type WeaponKind uint8

const (
	WeaponCarbine WeaponKind = iota
	WeaponPistol
	WeaponAssaultRifle
	WeaponShotgun
)

// aimLift - поправка вверх, совмещающая снаряд с прицелом
const aimLift = 0.025

// WeaponSpec - характеристики оружия
type WeaponSpec struct {
	Kind            WeaponKind
	Name            string
	Damage          float64
	FireInterval    time.Duration
	ClipSize        int
	ReloadTime      time.Duration
	ProjectileSpeed float64
	Spread          float64
	Pellets         int
	Automatic       bool
	UnlockWave      int
}

// weaponTable - порядок слотов оружия
var weaponTable = []WeaponSpec{
	{Kind: WeaponCarbine, Name: "Carbine", Damage: 1, FireInterval: 150 * time.Millisecond, ClipSize: 30,
		ReloadTime: 1500 * time.Millisecond, ProjectileSpeed: 100, Pellets: 1, Automatic: true},
	{Kind: WeaponPistol, Name: "Pistol", Damage: 1, FireInterval: 250 * time.Millisecond, ClipSize: 15,
		ReloadTime: 1200 * time.Millisecond, ProjectileSpeed: 80, Spread: 0.02, Pellets: 1},
	{Kind: WeaponAssaultRifle, Name: "Assault Rifle", Damage: 0.8, FireInterval: 100 * time.Millisecond, ClipSize: 30,
		ReloadTime: 1800 * time.Millisecond, ProjectileSpeed: 120, Spread: 0.03, Pellets: 1, Automatic: true, UnlockWave: 2},
	{Kind: WeaponShotgun, Name: "Shotgun", Damage: 0.5, FireInterval: 600 * time.Millisecond, ClipSize: 8,
		ReloadTime: 2200 * time.Millisecond, ProjectileSpeed: 60, Spread: 0.15, Pellets: 8, UnlockWave: 3},
}

// Weapons возвращает копию таблицы оружия
func Weapons() []WeaponSpec {
	out := make([]WeaponSpec, len(weaponTable))
	copy(out, weaponTable)
	return out
}

type weaponSlot struct {
	spec     WeaponSpec
	ammo     int
	unlocked bool
}

// Shot - результат выстрела: направления снарядов и оружие
type Shot struct {
	Weapon     WeaponSpec
	Directions []vec.Vec3Float
}

// Arsenal - оружие игрока: патроны, перезарядка и темп стрельбы в тиках
type Arsenal struct {
	slots       []weaponSlot
	current     int
	reload      util.Countdown
	cooldown    util.Countdown
	triggerHeld bool
	rate        util.Rate
}

// NewArsenal создаёт арсенал с полными магазинами; открыто оружие без требования волны
func NewArsenal(rate util.Rate) *Arsenal {
	a := &Arsenal{rate: rate}
	a.Reset()
	return a
}

// Reset возвращает арсенал к началу игры
func (a *Arsenal) Reset() {
	a.slots = a.slots[:0]
	for _, spec := range weaponTable {
		a.slots = append(a.slots, weaponSlot{
			spec:     spec,
			ammo:     spec.ClipSize,
			unlocked: spec.UnlockWave == 0,
		})
	}
	a.current = 0
	a.reload.Stop()
	a.cooldown.Stop()
	a.triggerHeld = false
}

// Current возвращает характеристики текущего оружия
func (a *Arsenal) Current() WeaponSpec {
	return a.slots[a.current].spec
}

// CurrentIndex возвращает номер текущего слота (с 0)
func (a *Arsenal) CurrentIndex() int {
	return a.current
}

// Ammo возвращает патроны в магазине текущего оружия
func (a *Arsenal) Ammo() int {
	return a.slots[a.current].ammo
}

// Reloading - идёт перезарядка
func (a *Arsenal) Reloading() bool {
	return a.reload.Active()
}

// IsUnlocked проверяет доступность слота
func (a *Arsenal) IsUnlocked(index int) bool {
	return index >= 0 && index < len(a.slots) && a.slots[index].unlocked
}

// UnlockForWave открывает оружие, доступное с указанной волны, и возвращает новые
func (a *Arsenal) UnlockForWave(wave int) []WeaponSpec {
	var unlocked []WeaponSpec
	for i := range a.slots {
		s := &a.slots[i]
		if !s.unlocked && s.spec.UnlockWave <= wave {
			s.unlocked = true
			unlocked = append(unlocked, s.spec)
			logging.Info("🔓 Открыто оружие %s (волна %d)", s.spec.Name, wave)
		}
	}
	return unlocked
}

// Switch переключает оружие; во время перезарядки и на закрытый слот нельзя
func (a *Arsenal) Switch(index int) bool {
	if index == a.current || !a.IsUnlocked(index) || a.reload.Active() {
		return false
	}
	a.current = index
	a.cooldown.Stop()
	return true
}

// StartReload начинает перезарядку, если магазин не полон
func (a *Arsenal) StartReload() bool {
	slot := &a.slots[a.current]
	if a.reload.Active() || slot.ammo == slot.spec.ClipSize {
		return false
	}
	a.reload.Start(slot.spec.ReloadTime, a.rate)
	return true
}

// Tick отсчитывает темп стрельбы и перезарядку; возвращает true, когда магазин заполнен
func (a *Arsenal) Tick() bool {
	a.cooldown.Tick()
	if a.reload.Tick() {
		slot := &a.slots[a.current]
		slot.ammo = slot.spec.ClipSize
		return true
	}
	return false
}

// TryFire стреляет, если курок нажат, темп позволяет, есть патроны и нет перезарядки.
// Полуавтоматическое оружие стреляет только по новому нажатию.
func (a *Arsenal) TryFire(trigger bool, look vec.Vec3Float, rng *rand.Rand) (Shot, bool) {
	pressed := trigger && !a.triggerHeld
	a.triggerHeld = trigger
	if !trigger {
		return Shot{}, false
	}

	slot := &a.slots[a.current]
	if !slot.spec.Automatic && !pressed {
		return Shot{}, false
	}
	if a.cooldown.Active() || a.reload.Active() || slot.ammo <= 0 {
		return Shot{}, false
	}

	a.cooldown.Start(slot.spec.FireInterval, a.rate)
	slot.ammo--

	pellets := slot.spec.Pellets
	if pellets < 1 {
		pellets = 1
	}
	shot := Shot{Weapon: slot.spec, Directions: make([]vec.Vec3Float, 0, pellets)}
	for i := 0; i < pellets; i++ {
		dir := look
		if slot.spec.Spread > 0 && rng != nil {
			dir.X += (rng.Float64() - 0.5) * slot.spec.Spread
			dir.Y += (rng.Float64() - 0.5) * slot.spec.Spread
			dir.Z += (rng.Float64() - 0.5) * slot.spec.Spread
		}
		dir.Y += aimLift
		shot.Directions = append(shot.Directions, dir.Normalized())
	}
	return shot, true
}
