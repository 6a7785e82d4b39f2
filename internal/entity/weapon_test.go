package entity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nootest/3DShooting/internal/util"
	"github.com/Nootest/3DShooting/internal/vec"
)

var forward = vec.V3(0, 0, -1)

func TestArsenal_Defaults(t *testing.T) {
	a := NewArsenal(util.DefaultRate)
	assert.Equal(t, WeaponCarbine, a.Current().Kind)
	assert.Equal(t, 30, a.Ammo())
	assert.True(t, a.IsUnlocked(1), "пистолет доступен сразу")
	assert.False(t, a.IsUnlocked(2), "автомат открывается со второй волны")
	assert.False(t, a.Switch(2))

	unlocked := a.UnlockForWave(2)
	require.Len(t, unlocked, 1)
	assert.Equal(t, WeaponAssaultRifle, unlocked[0].Kind)
	assert.True(t, a.Switch(2))
	assert.Empty(t, a.UnlockForWave(2), "повторно не открывается")
}

func TestArsenal_FireRate(t *testing.T) {
	a := NewArsenal(util.DefaultRate)
	rng := rand.New(rand.NewSource(1))

	shot, ok := a.TryFire(true, forward, rng)
	require.True(t, ok)
	require.Len(t, shot.Directions, 1)
	assert.InDelta(t, 1.0, shot.Directions[0].Length(), 1e-9)
	assert.Greater(t, shot.Directions[0].Y, 0.0, "снаряд чуть поднят к прицелу")
	assert.Equal(t, 29, a.Ammo())

	_, ok = a.TryFire(true, forward, rng)
	assert.False(t, ok, "темп стрельбы не позволяет")

	for i := 0; i < 8; i++ {
		a.Tick()
	}
	_, ok = a.TryFire(true, forward, rng)
	assert.False(t, ok, "150 мс ещё не прошли")

	a.Tick()
	_, ok = a.TryFire(true, forward, rng)
	assert.True(t, ok, "автоматическое оружие стреляет при удержании")
}

func TestArsenal_SemiAuto(t *testing.T) {
	a := NewArsenal(util.DefaultRate)
	rng := rand.New(rand.NewSource(1))
	require.True(t, a.Switch(1))

	_, ok := a.TryFire(true, forward, rng)
	require.True(t, ok)
	for i := 0; i < 30; i++ {
		a.Tick()
	}
	_, ok = a.TryFire(true, forward, rng)
	assert.False(t, ok, "пистолет требует нового нажатия")

	a.TryFire(false, forward, rng)
	_, ok = a.TryFire(true, forward, rng)
	assert.True(t, ok)
}

func TestArsenal_ShotgunPellets(t *testing.T) {
	a := NewArsenal(util.DefaultRate)
	a.UnlockForWave(3)
	require.True(t, a.Switch(3))

	shot, ok := a.TryFire(true, forward, rand.New(rand.NewSource(7)))
	require.True(t, ok)
	assert.Len(t, shot.Directions, 8, "дробовик выпускает 8 дробин")
	for _, d := range shot.Directions {
		assert.InDelta(t, 1.0, d.Length(), 1e-9)
	}
	assert.Equal(t, 7, a.Ammo(), "одна дробь - один патрон")
}

func TestArsenal_Reload(t *testing.T) {
	a := NewArsenal(util.DefaultRate)
	assert.False(t, a.StartReload(), "полный магазин не перезаряжается")

	_, ok := a.TryFire(true, forward, nil)
	require.True(t, ok)
	require.True(t, a.StartReload())
	assert.True(t, a.Reloading())
	assert.False(t, a.Switch(1), "во время перезарядки оружие не меняется")

	for i := 0; i < 20; i++ {
		a.Tick()
	}
	_, ok = a.TryFire(true, forward, nil)
	assert.False(t, ok, "во время перезарядки не стреляем")

	reloaded := false
	for i := 0; i < 70; i++ {
		if a.Tick() {
			reloaded = true
		}
	}
	assert.True(t, reloaded, "перезарядка 1.5 с завершена")
	assert.Equal(t, 30, a.Ammo())
	assert.False(t, a.Reloading())
}

func TestArsenal_EmptyClip(t *testing.T) {
	a := NewArsenal(util.DefaultRate)
	for i := 0; i < 30; i++ {
		_, ok := a.TryFire(true, forward, nil)
		require.True(t, ok)
		for j := 0; j < 9; j++ {
			a.Tick()
		}
	}
	assert.Equal(t, 0, a.Ammo())
	_, ok := a.TryFire(true, forward, nil)
	assert.False(t, ok, "без патронов выстрела нет")
}
