package entity

import (
	"math"

	"github.com/Nootest/3DShooting/internal/physics"
	"github.com/Nootest/3DShooting/internal/vec"
)

// PartKind - тип попадаемой части тела
type PartKind uint8

const (
	PartTorso PartKind = iota
	PartHead
	PartHelmet
	PartArm
	PartLeg
)

func (k PartKind) String() string {
	switch k {
	case PartTorso:
		return "torso"
	case PartHead:
		return "head"
	case PartHelmet:
		return "helmet"
	case PartArm:
		return "arm"
	case PartLeg:
		return "leg"
	default:
		return "unknown"
	}
}

// IsHead - попадание в эту часть считается выстрелом в голову
func (k PartKind) IsHead() bool {
	return k == PartHead || k == PartHelmet
}

// bodyScale - масштаб модели врага относительно вокселя
const bodyScale = 0.42

type partTemplate struct {
	kind   PartKind
	offset vec.Vec3Float
	size   vec.Vec3Float
}

// bodyParts - части тела относительно позиции врага (до поворота)
var bodyParts = [...]partTemplate{
	{PartTorso, vec.V3(0, 0, 0), vec.V3(1.2, 1.8, 0.8)},
	{PartHead, vec.V3(0, 1.5, 0), vec.V3(0.7, 0.8, 0.7)},
	{PartHelmet, vec.V3(0, 1.7, 0), vec.V3(0.75, 0.6, 0.75)},
	{PartArm, vec.V3(-0.75, -0.2, 0), vec.V3(0.3, 1.4, 0.3)},
	{PartArm, vec.V3(0.75, -0.2, 0), vec.V3(0.3, 1.4, 0.3)},
	{PartLeg, vec.V3(-0.35, -1.7, 0), vec.V3(0.4, 1.6, 0.4)},
	{PartLeg, vec.V3(0.35, -1.7, 0), vec.V3(0.4, 1.6, 0.4)},
}

// PartCount - число попадаемых частей одного врага
const PartCount = len(bodyParts)

// HitPart - попадаемая часть; хранит хендл владельца, поэтому попадание
// сразу указывает на врага без обхода иерархии
type HitPart struct {
	Owner Handle
	Kind  PartKind
	Box   physics.AABB
}

// HitParts заполняет dst частями врага с учётом его поворота.
// Повёрнутая коробка заменяется описанной осевой.
func (e *Enemy) HitParts(dst []HitPart) []HitPart {
	sin, cos := math.Sincos(e.Yaw)
	for _, p := range bodyParts {
		off := p.offset.Mul(bodyScale)
		size := p.size.Mul(bodyScale)
		rotated := vec.V3(off.X*cos+off.Z*sin, off.Y, -off.X*sin+off.Z*cos)
		extX := math.Abs(size.X*cos) + math.Abs(size.Z*sin)
		extZ := math.Abs(size.X*sin) + math.Abs(size.Z*cos)
		dst = append(dst, HitPart{
			Owner: e.Handle,
			Kind:  p.kind,
			Box:   physics.NewAABB(e.Position.Add(rotated), vec.V3(extX, size.Y, extZ)),
		})
	}
	return dst
}
