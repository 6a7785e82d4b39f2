package entity

import "github.com/Nootest/3DShooting/internal/vec"

// steerAlongPath ведёт врага по пути: детектор застревания, пересчёт пути
// по интервалу, исчерпанию или застреванию, следование к текущей точке
// и боковой рывок при застревании
func (m *Manager) steerAlongPath(e *Enemy, env Environment, behavior RoleBehavior, player vec.Vec3Float, out *TickOutput) vec.Vec3Float {
	var move vec.Vec3Float

	if e.Position.DistanceTo(e.LastPosition) < StuckThreshold {
		e.StuckTicks++
	} else {
		e.StuckTicks = 0
		e.LastPosition = e.Position
	}
	stuck := e.StuckTicks > StuckTicks

	if !e.replan.Active() || e.PathExhausted() || stuck {
		path := env.FindPath(e.Position, player)
		if len(path) > 0 {
			e.Path = path
			e.PathCursor = 0
			if stuck {
				e.StuckTicks = 0
				toFirst := path[0].Sub(e.Position).FlatXZ()
				if !toFirst.IsZero() && toFirst.Length() < StuckPushRadius {
					move = move.Add(toFirst.Normalized().Mul(StuckPushForce))
				}
			}
		} else {
			e.Path = nil
			e.PathCursor = 0
			m.stats.PathFailures++
		}
		e.replan.Start(behavior.ReplanInterval(), m.rate)
		out.Replans++
	}

	// Без пути - прямо на игрока (если роль это умеет)
	if len(e.Path) == 0 {
		if w := behavior.DirectFallback(); w > 0 {
			move = move.Add(player.Sub(e.Position).FlatXZ().Normalized().Mul(w))
		}
	}

	if e.PathCursor < len(e.Path) {
		target := e.Path[e.PathCursor]
		toWaypoint := target.Sub(e.Position).FlatXZ()
		if !toWaypoint.IsZero() {
			move = move.Add(toWaypoint.Normalized().Mul(behavior.PathWeight()))
		}
		// Точки пути лежат на фиксированной высоте, поэтому прибытие меряем по XZ
		if e.Position.DistanceXZ(target) < ArrivalRadius {
			e.PathCursor++
		}
	}

	if stuck {
		toPlayer := player.Sub(e.Position).FlatXZ().Normalized()
		perpendicular := vec.V3(-toPlayer.Z, 0, toPlayer.X)
		if m.rng.Float64() > 0.5 {
			perpendicular = perpendicular.Mul(-1)
		}
		move = move.Add(perpendicular.Mul(StuckEscapeForce))
		m.stats.StuckEscapes++
	}
	return move
}

// separation - усреднённая сумма векторов «от соседа», взвешенных обратно
// расстоянию, нормированная и умноженная на силу. Только XZ, по снимку начала тика.
func (m *Manager) separation(slot int) vec.Vec3Float {
	self := m.snapshot[slot]
	var sum vec.Vec3Float
	neighbors := 0
	for j, other := range m.snapshot {
		if j == slot || !m.enemies[j].alive {
			continue
		}
		diff := self.Sub(other).FlatXZ()
		d2 := diff.Dot(diff)
		if d2 <= 0 || d2 >= SeparationRadius*SeparationRadius {
			continue
		}
		sum = sum.Add(diff.Mul(1 / d2))
		neighbors++
	}
	if neighbors == 0 {
		return vec.Vec3Float{}
	}
	avg := sum.Mul(1 / float64(neighbors))
	if avg.IsZero() {
		return vec.Vec3Float{}
	}
	return avg.Normalized().Mul(SeparationForce)
}
