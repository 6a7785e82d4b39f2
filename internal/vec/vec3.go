package vec

import "math"

// Vec3 представляет трехмерный вектор с целочисленными координатами (ячейка вокселя)
type Vec3 struct {
	X int
	Y int
	Z int
}

// Vec3Float представляет трехмерный вектор с плавающими координатами
type Vec3Float struct {
	X float64
	Y float64
	Z float64
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// CellOf возвращает ячейку, в которой лежит точка, для размера ячейки size
func CellOf(p Vec3Float, size float64) Vec3 {
	return Vec3{
		X: int(math.Floor(p.X / size)),
		Y: int(math.Floor(p.Y / size)),
		Z: int(math.Floor(p.Z / size)),
	}
}

// V3 короткий конструктор Vec3Float
func V3(x, y, z float64) Vec3Float {
	return Vec3Float{X: x, Y: y, Z: z}
}

// Add складывает два вектора
func (v Vec3Float) Add(o Vec3Float) Vec3Float {
	return Vec3Float{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub вычитает вектор
func (v Vec3Float) Sub(o Vec3Float) Vec3Float {
	return Vec3Float{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Mul умножает вектор на скаляр
func (v Vec3Float) Mul(s float64) Vec3Float {
	return Vec3Float{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot скалярное произведение
func (v Vec3Float) Dot(o Vec3Float) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Length возвращает длину вектора
func (v Vec3Float) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// LengthXZ возвращает длину проекции на плоскость земли
func (v Vec3Float) LengthXZ() float64 {
	return math.Sqrt(v.X*v.X + v.Z*v.Z)
}

// Normalized возвращает нормализованный вектор (нулевой остаётся нулевым)
func (v Vec3Float) Normalized() Vec3Float {
	l := v.Length()
	if l == 0 {
		return Vec3Float{}
	}
	return Vec3Float{X: v.X / l, Y: v.Y / l, Z: v.Z / l}
}

// FlatXZ обнуляет вертикальную компоненту
func (v Vec3Float) FlatXZ() Vec3Float {
	return Vec3Float{X: v.X, Z: v.Z}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec3Float) DistanceTo(o Vec3Float) float64 {
	return v.Sub(o).Length()
}

// DistanceXZ вычисляет расстояние в плоскости земли
func (v Vec3Float) DistanceXZ(o Vec3Float) float64 {
	dx := v.X - o.X
	dz := v.Z - o.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// IsZero сообщает, нулевой ли вектор
func (v Vec3Float) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}
