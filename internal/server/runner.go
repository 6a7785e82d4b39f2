package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Nootest/3DShooting/internal/entity"
	"github.com/Nootest/3DShooting/internal/game"
	"github.com/Nootest/3DShooting/internal/logging"
	"github.com/Nootest/3DShooting/internal/protocol"
	"github.com/Nootest/3DShooting/internal/storage"
)

// Archiver сохраняет финальный снимок партии
type Archiver interface {
	Archive(ctx context.Context, sessionID string, frame []byte) error
}

// Session выдаёт идентификатор партии для записей и событий
type Session interface {
	Session() string
	NewSession() string
}

// tickStamper - приёмник событий, который ставит на конверт номер тика
type tickStamper interface {
	SetClock(clock func() uint64)
}

// Options - зависимости и параметры Runner
type Options struct {
	Game         game.Config
	TickInterval time.Duration
	Profile      string
	AutoStart    bool

	Sink     game.EventSink        // Может быть nil
	Session  Session               // Может быть nil: тогда Runner генерирует id сам
	Scores   storage.HighScoreRepo // Может быть nil
	Archive  Archiver              // Может быть nil
	Frames   *protocol.Serializer  // Нужен только вместе с Archive
	SaveWait time.Duration         // Таймаут сохранения итога партии
}

// Runner владеет контекстом симуляции и крутит его с фиксированным шагом.
// Все обращения к game.Context идут под mu.
type Runner struct {
	opts Options

	mu       sync.Mutex
	game     *game.Context
	input    entity.Input
	outcome  game.Event
	lastTick time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	saves   sync.WaitGroup
	stopped bool

	logger *logging.Logger
}

// NewRunner создаёт контекст партии и подтягивает рекорд профиля из хранилища
func NewRunner(ctx context.Context, opts Options) (*Runner, error) {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second / 60
	}
	if opts.Profile == "" {
		opts.Profile = storage.DefaultProfile
	}
	if opts.SaveWait <= 0 {
		opts.SaveWait = 5 * time.Second
	}
	if opts.Session == nil {
		opts.Session = &localSession{}
		opts.Session.NewSession()
	}

	r := &Runner{
		opts:   opts,
		logger: logging.GetServerLogger(),
	}
	r.game = game.New(opts.Game, game.MultiSink{game.SinkFunc(r.watchOutcome), sinkOrNop(opts.Sink)})
	r.game.SetPaused(!opts.AutoStart)
	if ts, ok := opts.Sink.(tickStamper); ok {
		ts.SetClock(r.tickClock)
	}

	if opts.Scores != nil {
		hs, err := storage.LoadHighScore(ctx, opts.Scores, opts.Profile)
		if err != nil {
			return nil, err
		}
		r.game.SetHighScore(hs)
		r.logger.Info("🏅 Рекорд профиля %s: %d", opts.Profile, hs)
	}
	return r, nil
}

// Start запускает цикл тиков
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil || r.stopped {
		return
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.opts.TickInterval)
		defer ticker.Stop()

		lastTick := time.Now()
		for {
			select {
			case <-r.ctx.Done():
				return
			case tickTime := <-ticker.C:
				dt := tickTime.Sub(lastTick).Seconds()
				lastTick = tickTime
				r.Step(dt)
			}
		}
	}()
	r.logger.Info("▶️ Симуляция запущена, тик %s", r.opts.TickInterval)
}

// Stop останавливает цикл и дожидается сохранения итогов
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
	r.saves.Wait()
	r.logger.Info("⏹️ Симуляция остановлена")
}

// Step выполняет один тик с текущим вводом. Используется циклом и тестами.
func (r *Runner) Step(dt float64) {
	r.mu.Lock()
	start := time.Now()
	r.game.Tick(r.input, dt)
	r.lastTick = time.Since(start)
	// Нажатия действуют один тик; удержание кнопок сохраняется
	r.input.Jump = false
	r.input.Slide = false
	r.input.Reload = false
	r.input.Weapon = 0

	outcome := r.outcome
	r.outcome = nil
	var snap game.Snapshot
	var rec storage.ScoreRecord
	if outcome != nil {
		snap = r.game.Snapshot()
		_, victory := outcome.(game.VictoryEvent)
		rec = storage.ScoreRecord{
			Profile:    r.opts.Profile,
			SessionID:  r.opts.Session.Session(),
			Score:      snap.Score,
			Wave:       snap.Wave,
			Kills:      r.game.Score().Kills(),
			Headshots:  r.game.Score().Headshots(),
			Victory:    victory,
			Seed:       snap.WorldSeed,
			RecordedAt: time.Now().UTC(),
		}
	}
	r.mu.Unlock()

	if outcome != nil {
		r.saves.Add(1)
		go func() {
			defer r.saves.Done()
			r.saveOutcome(rec, snap)
		}()
	}
}

// SetInput заменяет текущий ввод игрока
func (r *Runner) SetInput(in entity.Input) {
	r.mu.Lock()
	r.input = in
	r.mu.Unlock()
}

// SetPaused ставит или снимает паузу
func (r *Runner) SetPaused(paused bool) {
	r.mu.Lock()
	r.game.SetPaused(paused)
	r.mu.Unlock()
}

// Reset начинает новую партию; seed == 0 - мир со случайным сидом
func (r *Runner) Reset(seed int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seed != 0 {
		r.game.ResetWithSeed(seed)
	} else {
		r.game.Reset()
	}
	r.input = entity.Input{}
	r.outcome = nil
	session := r.opts.Session.NewSession()
	r.logger.Info("🔄 Новая партия %s", session)
	return session
}

// Snapshot возвращает копию состояния партии
func (r *Runner) Snapshot() game.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.Snapshot()
}

// Stats возвращает сводку и длительность последнего тика
func (r *Runner) Stats() game.Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.game.GetStats()
	s.LastTickTime = r.lastTick
	return s
}

// Session возвращает идентификатор текущей партии
func (r *Runner) Session() string {
	return r.opts.Session.Session()
}

// Ticks возвращает номер текущего тика
func (r *Runner) Ticks() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.Ticks()
}

// tickClock - часы приёмника событий. Вызывается только изнутри Tick, где mu уже взят.
func (r *Runner) tickClock() uint64 {
	return r.game.Ticks()
}

// watchOutcome вызывается внутри Tick под mu
func (r *Runner) watchOutcome(ev game.Event) {
	switch ev.(type) {
	case game.GameOverEvent, game.VictoryEvent:
		r.outcome = ev
	}
}

// saveOutcome пишет итог партии и архивирует её последний снимок
func (r *Runner) saveOutcome(rec storage.ScoreRecord, snap game.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.SaveWait)
	defer cancel()

	session := rec.SessionID

	if r.opts.Scores != nil {
		newBest, err := r.opts.Scores.Submit(ctx, rec)
		if err != nil {
			r.logger.Error("❌ Не удалось сохранить итог партии %s: %v", session, err)
		} else {
			r.logger.Info("💾 Итог партии %s: %d очков, волна %d, рекорд: %v", session, rec.Score, rec.Wave, newBest)
		}
	}

	if r.opts.Archive != nil && r.opts.Frames != nil {
		frame, err := r.opts.Frames.Marshal(snap, true)
		if err != nil {
			r.logger.Error("❌ Не удалось сериализовать снимок %s: %v", session, err)
			return
		}
		if err := r.opts.Archive.Archive(ctx, session, frame); err != nil {
			r.logger.Error("❌ Не удалось архивировать снимок %s: %v", session, err)
		}
	}
}

// WaitSaves ждёт фоновые сохранения итогов
func (r *Runner) WaitSaves() {
	r.saves.Wait()
}

// localSession - идентификаторы партий без шины событий
type localSession struct {
	mu sync.Mutex
	id string
}

func (s *localSession) Session() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *localSession) NewSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = uuid.NewString()
	return s.id
}

type nopSink struct{}

func (nopSink) Emit(game.Event) {}

func sinkOrNop(s game.EventSink) game.EventSink {
	if s == nil {
		return nopSink{}
	}
	return s
}
