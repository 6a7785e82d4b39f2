package navigation

import "github.com/Nootest/3DShooting/internal/vec"

// SightFunc сообщает, виден ли отрезок a→b
type SightFunc func(a, b vec.Vec3Float) bool

// Smooth сокращает путь жадно: из текущей точки прыгаем в самую дальнюю
// следующую точку, до которой есть прямая видимость. Первая и последняя
// точки сохраняются. Пути короче трёх точек возвращаются как есть.
func Smooth(path []vec.Vec3Float, sight SightFunc) []vec.Vec3Float {
	if len(path) < 3 || sight == nil {
		return path
	}

	smoothed := []vec.Vec3Float{path[0]}
	current := 0
	for current < len(path)-1 {
		lastVisible := current + 1
		for i := current + 2; i < len(path); i++ {
			if !sight(path[current], path[i]) {
				break
			}
			lastVisible = i
		}
		smoothed = append(smoothed, path[lastVisible])
		current = lastVisible
	}
	return smoothed
}
