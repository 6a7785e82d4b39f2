package entity

import (
	"github.com/Nootest/3DShooting/internal/logging"
	"github.com/Nootest/3DShooting/internal/physics"
	"github.com/Nootest/3DShooting/internal/util"
	"github.com/Nootest/3DShooting/internal/vec"
)

// Stance - высота коллизии игрока
type Stance uint8

const (
	StanceStanding Stance = iota
	StanceCrouched
	StanceSliding
)

func (s Stance) String() string {
	switch s {
	case StanceStanding:
		return "standing"
	case StanceCrouched:
		return "crouched"
	case StanceSliding:
		return "sliding"
	default:
		return "unknown"
	}
}

// StanceState представляет состояние конечного автомата стойки
type StanceState interface {
	Stance() Stance
	Enter(p *Player)
	Update(p *Player, in Input, obstacles physics.ObstacleFunc) StanceState
	Exit(p *Player)
}

// updateStance продвигает автомат стойки на один тик
func (p *Player) updateStance(in Input, obstacles physics.ObstacleFunc) {
	if p.stance == nil {
		p.setStance(&standingState{})
		return
	}
	next := p.stance.Update(p, in, obstacles)
	if next != p.stance {
		p.setStance(next)
	}
}

// setStance устанавливает новое состояние стойки
func (p *Player) setStance(state StanceState) {
	if p.stance != nil {
		p.stance.Exit(p)
		logging.Trace("🏃 Стойка: %s -> %s", p.stance.Stance(), state.Stance())
	}
	p.stance = state
	p.stance.Enter(p)
}

// === Конкретные состояния ===

// standingState - обычная стойка
type standingState struct{}

func (s *standingState) Stance() Stance { return StanceStanding }

func (s *standingState) Enter(p *Player) {}

func (s *standingState) Update(p *Player, in Input, obstacles physics.ObstacleFunc) StanceState {
	// Подкат - по нажатию, в движении и только с земли
	if in.Slide && in.Moving() && p.CanJump {
		return &slidingState{direction: in.WorldDirection()}
	}
	// Над головой препятствие - вынужденно приседаем
	if p.Position.Y < p.cfg.Height-0.1 && !p.CanStandUp(obstacles) {
		return &crouchedState{}
	}
	return s
}

func (s *standingState) Exit(p *Player) {}

// crouchedState - вынужденный присед под низким потолком
type crouchedState struct{}

func (s *crouchedState) Stance() Stance { return StanceCrouched }

func (s *crouchedState) Enter(p *Player) {}

func (s *crouchedState) Update(p *Player, in Input, obstacles physics.ObstacleFunc) StanceState {
	if p.CanStandUp(obstacles) {
		return &standingState{}
	}
	return s
}

func (s *crouchedState) Exit(p *Player) {}

// slidingState - подкат с зафиксированным направлением
type slidingState struct {
	direction vec.Vec3Float
	timer     util.Countdown
}

func (s *slidingState) Stance() Stance { return StanceSliding }

func (s *slidingState) Enter(p *Player) {
	p.CanJump = false
	s.timer.Start(p.cfg.SlideDuration, p.cfg.TickRate)
}

func (s *slidingState) Update(p *Player, in Input, obstacles physics.ObstacleFunc) StanceState {
	if !s.timer.Tick() {
		return s
	}
	if p.CanStandUp(obstacles) {
		return &standingState{}
	}
	return &crouchedState{}
}

func (s *slidingState) Exit(p *Player) {
	s.timer.Stop()
}
