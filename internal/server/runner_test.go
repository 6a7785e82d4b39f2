package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nootest/3DShooting/internal/entity"
	"github.com/Nootest/3DShooting/internal/game"
	"github.com/Nootest/3DShooting/internal/protocol"
	"github.com/Nootest/3DShooting/internal/storage"
	enemy "github.com/Nootest/3DShooting/internal/world/entity"
)

const dt = 1.0 / 60.0

// memArchive - архив снимков в памяти
type memArchive struct {
	mu     sync.Mutex
	frames map[string][]byte
}

func (a *memArchive) Archive(_ context.Context, session string, frame []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frames == nil {
		a.frames = make(map[string][]byte)
	}
	a.frames[session] = frame
	return nil
}

func (a *memArchive) get(session string) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frames[session]
}

// stampSink запоминает номер тика на каждом событии
type stampSink struct {
	clock  func() uint64
	stamps []uint64
}

func (s *stampSink) SetClock(clock func() uint64) { s.clock = clock }

func (s *stampSink) Emit(game.Event) { s.stamps = append(s.stamps, s.clock()) }

func testGameConfig() game.Config {
	cfg := game.DefaultConfig()
	cfg.Seed = 7
	cfg.World.StructureCount = 0
	cfg.Combat.EnemyDamage = 0
	cfg.Waves.TotalWaves = 1
	cfg.Waves.WaveDelay = 100 * time.Millisecond
	return cfg
}

type fixture struct {
	runner  *Runner
	scores  *storage.MemoryScoreRepo
	archive *memArchive
	frames  *protocol.Serializer
}

func newFixture(t *testing.T, highScore int) *fixture {
	t.Helper()
	scores := storage.NewMemoryScoreRepo()
	if highScore > 0 {
		_, err := scores.Submit(context.Background(), storage.ScoreRecord{Profile: "tester", Score: highScore})
		require.NoError(t, err)
	}
	frames, err := protocol.NewSerializer(0)
	require.NoError(t, err)
	t.Cleanup(frames.Close)

	f := &fixture{scores: scores, archive: &memArchive{}, frames: frames}
	f.runner, err = NewRunner(context.Background(), Options{
		Game:      testGameConfig(),
		Profile:   "tester",
		AutoStart: true,
		Scores:    scores,
		Archive:   f.archive,
		Frames:    frames,
	})
	require.NoError(t, err)
	t.Cleanup(f.runner.Stop)
	return f
}

// stepUntilWave крутит тики до старта первой волны
func (f *fixture) stepUntilWave(t *testing.T) {
	t.Helper()
	for i := 0; i < 60; i++ {
		f.runner.Step(dt)
		if f.runner.Snapshot().Wave == 1 {
			return
		}
	}
	t.Fatal("первая волна так и не началась")
}

func (f *fixture) killAll() {
	f.runner.mu.Lock()
	defer f.runner.mu.Unlock()
	var handles []enemy.Handle
	f.runner.game.Enemies().ForEach(func(e *enemy.Enemy) bool {
		handles = append(handles, e.Handle)
		return true
	})
	for _, h := range handles {
		f.runner.game.Enemies().ApplyHit(h, 0, true)
	}
}

func TestRunner(t *testing.T) {
	t.Run("рекорд из хранилища", func(t *testing.T) {
		f := newFixture(t, 1234)
		snap := f.runner.Snapshot()
		assert.Equal(t, 1234, snap.HighScore)
		assert.NotEmpty(t, f.runner.Session())
	})

	t.Run("победа сохраняет итог и архив", func(t *testing.T) {
		f := newFixture(t, 0)
		session := f.runner.Session()
		f.stepUntilWave(t)
		f.killAll()
		f.runner.Step(dt)
		f.runner.WaitSaves()

		assert.Equal(t, "victory", f.runner.Snapshot().Phase)

		best, err := f.scores.Best(context.Background(), "tester")
		require.NoError(t, err)
		assert.Equal(t, 500, best.Score)
		assert.Equal(t, 1, best.Wave)
		assert.True(t, best.Victory)
		assert.Equal(t, session, best.SessionID)
		assert.Equal(t, int64(7), best.Seed)

		frame := f.archive.get(session)
		require.NotEmpty(t, frame, "снимок партии архивирован")
		var snap game.Snapshot
		require.NoError(t, f.frames.Unmarshal(frame, &snap))
		assert.Equal(t, "victory", snap.Phase)
		assert.Equal(t, 500, snap.Score)
	})

	t.Run("поражение", func(t *testing.T) {
		f := newFixture(t, 0)
		f.stepUntilWave(t)
		f.runner.mu.Lock()
		f.runner.game.Player().TakeDamage(10000)
		f.runner.mu.Unlock()
		f.runner.Step(dt)
		f.runner.WaitSaves()

		assert.Equal(t, "game_over", f.runner.Snapshot().Phase)
		best, err := f.scores.Best(context.Background(), "tester")
		require.NoError(t, err)
		assert.False(t, best.Victory)
		assert.Len(t, f.scores.History(), 1, "итог сохраняется один раз")

		f.runner.Step(dt)
		f.runner.WaitSaves()
		assert.Len(t, f.scores.History(), 1)
	})

	t.Run("новая партия", func(t *testing.T) {
		f := newFixture(t, 0)
		first := f.runner.Session()
		f.stepUntilWave(t)

		second := f.runner.Reset(99)
		assert.NotEqual(t, first, second)
		assert.Equal(t, second, f.runner.Session())

		snap := f.runner.Snapshot()
		assert.Equal(t, 0, snap.Wave)
		assert.Equal(t, int64(99), snap.WorldSeed)
	})

	t.Run("ввод и пауза", func(t *testing.T) {
		f := newFixture(t, 0)
		z := f.runner.Snapshot().Player.Position.Z

		f.runner.SetInput(entity.Input{Forward: true, Weapon: 1, Reload: true, Jump: true})
		f.runner.Step(dt)
		assert.Less(t, f.runner.Snapshot().Player.Position.Z, z)
		assert.Zero(t, f.runner.input.Weapon, "разовые действия сбрасываются")
		assert.False(t, f.runner.input.Reload)
		assert.False(t, f.runner.input.Jump)
		assert.True(t, f.runner.input.Forward, "удержание клавиш сохраняется")

		f.runner.SetPaused(true)
		ticks := f.runner.Stats().Ticks
		f.runner.Step(dt)
		assert.True(t, f.runner.Snapshot().Paused)
		assert.Equal(t, ticks, f.runner.Stats().Ticks)
		assert.Equal(t, uint64(1), f.runner.Stats().PausedTicks)
	})

	t.Run("удержанный подкат - один подкат", func(t *testing.T) {
		f := newFixture(t, 0)
		f.runner.Step(dt)
		f.runner.SetInput(entity.Input{Forward: true, Slide: true})

		sliding := entity.StanceSliding.String()
		slides := 0
		prev := f.runner.Snapshot().Player.Stance
		for i := 0; i < 180; i++ {
			f.runner.Step(dt)
			stance := f.runner.Snapshot().Player.Stance
			if stance == sliding && prev != sliding {
				slides++
			}
			prev = stance
		}
		assert.Equal(t, 1, slides, "за 3 секунды одно нажатие даёт один подкат")
		assert.False(t, f.runner.input.Slide, "нажатие подката сбрасывается после тика")
		assert.True(t, f.runner.input.Forward)
	})

	t.Run("номер тика на событиях", func(t *testing.T) {
		sink := &stampSink{}
		r, err := NewRunner(context.Background(), Options{Game: testGameConfig(), AutoStart: true, Sink: sink})
		require.NoError(t, err)
		t.Cleanup(r.Stop)

		for i := 0; i < 60 && r.Snapshot().Wave == 0; i++ {
			r.Step(dt)
		}
		require.NotEmpty(t, sink.stamps, "старт волны попал в приёмник")
		assert.Equal(t, r.Ticks(), sink.stamps[len(sink.stamps)-1], "событие помечено тиком, в котором случилось")
	})

	t.Run("цикл тиков", func(t *testing.T) {
		f := newFixture(t, 0)
		f.runner.Start()
		f.runner.Start()
		assert.Eventually(t, func() bool {
			return f.runner.Stats().Ticks > 3
		}, 2*time.Second, 10*time.Millisecond)
		f.runner.Stop()

		ticks := f.runner.Stats().Ticks
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, ticks, f.runner.Stats().Ticks, "после Stop тики не идут")
	})
}
