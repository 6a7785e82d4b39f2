package entity

import (
	"math"

	"github.com/Nootest/3DShooting/internal/vec"
)

// Input - состояние управления игрока на один тик.
// Jump, Slide и Reload - нажатия в этом тике, остальные кнопки - удержание.
type Input struct {
	Forward  bool `json:"forward"`
	Backward bool `json:"backward"`
	Left     bool `json:"left"`
	Right    bool `json:"right"`
	Sprint   bool `json:"sprint"`
	Jump     bool `json:"jump"`
	Slide    bool `json:"slide"`
	Shield   bool `json:"shield"`
	Fire     bool `json:"fire"`
	Reload   bool `json:"reload"`
	Weapon   int  `json:"weapon"` // Номер слота с 1; 0 - не переключать

	Yaw   float64 `json:"yaw"`   // Поворот камеры вокруг Y, 0 - взгляд вдоль -Z
	Pitch float64 `json:"pitch"` // Наклон камеры вверх/вниз
}

// Moving - нажата хотя бы одна клавиша движения
func (in Input) Moving() bool {
	return in.Forward || in.Backward || in.Left || in.Right
}

// LocalDirection возвращает нормализованное направление в осях камеры (X - вправо, Y - вперёд)
func (in Input) LocalDirection() vec.Vec2Float {
	d := vec.Vec2Float{
		X: boolAxis(in.Right) - boolAxis(in.Left),
		Y: boolAxis(in.Forward) - boolAxis(in.Backward),
	}
	return d.Normalized()
}

func boolAxis(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ForwardVector - горизонтальное направление «вперёд» для поворота yaw
func ForwardVector(yaw float64) vec.Vec3Float {
	return vec.V3(-math.Sin(yaw), 0, -math.Cos(yaw))
}

// RightVector - горизонтальное направление «вправо» для поворота yaw
func RightVector(yaw float64) vec.Vec3Float {
	return vec.V3(math.Cos(yaw), 0, -math.Sin(yaw))
}

// LookVector - направление взгляда с учётом наклона
func LookVector(yaw, pitch float64) vec.Vec3Float {
	cp := math.Cos(pitch)
	return vec.V3(-math.Sin(yaw)*cp, math.Sin(pitch), -math.Cos(yaw)*cp)
}

// WorldDirection переводит ввод в мировое горизонтальное направление
func (in Input) WorldDirection() vec.Vec3Float {
	local := in.LocalDirection()
	if local.IsZero() {
		return vec.Vec3Float{}
	}
	return local.Basis(RightVector(in.Yaw), ForwardVector(in.Yaw))
}
