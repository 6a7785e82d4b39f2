package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nootest/3DShooting/internal/logging"
	"github.com/Nootest/3DShooting/internal/util"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("без файла - значения по умолчанию", func(t *testing.T) {
		t.Setenv("GAME_CONFIG", "")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
		assert.Equal(t, time.Second/60, cfg.TickInterval())
	})

	t.Run("файл перекрывает часть полей", func(t *testing.T) {
		path := writeConfig(t, `
game:
  seed: 42
  profile: alice
world:
  structure_count: 5
waves:
  total: 3
  delay_ms: 1000
storage:
  backend: badger
  data_dir: /tmp/scores
cache:
  mode: memory
  nats_url: nats://cache:4222
eventbus:
  mode: nats
logging:
  components:
    ai: debug
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, int64(42), cfg.Game.Seed)
		assert.Equal(t, "alice", cfg.Game.Profile)
		assert.Equal(t, 60, cfg.Game.TickRate, "неуказанные поля берутся из Default")
		assert.Equal(t, 100.0, cfg.World.MapSize)
		assert.Equal(t, StorageBadger, cfg.Storage.Backend)
		assert.Equal(t, BusNATS, cfg.EventBus.Mode)
		assert.Equal(t, "SHOOTER", cfg.EventBus.Stream)
		assert.Equal(t, CacheMemory, cfg.Cache.Mode)
		assert.Equal(t, 30*time.Second, cfg.Cache.TTL())
		assert.Equal(t, "logs", cfg.Logging.Dir)
		assert.Equal(t, logging.DEBUG, cfg.ComponentLevels()["ai"])

		gc := cfg.ToGameConfig()
		assert.Equal(t, int64(42), gc.Seed)
		assert.Equal(t, 5, gc.World.StructureCount)
		assert.Equal(t, 3, gc.Waves.TotalWaves)
		assert.Equal(t, time.Second, gc.Waves.WaveDelay)
		assert.Equal(t, 49.0, gc.Player.Boundary)
	})

	t.Run("путь из GAME_CONFIG", func(t *testing.T) {
		path := writeConfig(t, "game:\n  tick_rate: 30\n")
		t.Setenv("GAME_CONFIG", path)
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 30, cfg.Game.TickRate)
		assert.Equal(t, time.Second/30, cfg.TickInterval())
		assert.Equal(t, util.Rate(30), cfg.ToGameConfig().TickRate, "частота тика доходит до симуляции")
	})

	t.Run("ошибки", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)

		_, err = Load(writeConfig(t, "storage:\n  backend: mongo\n"))
		assert.Error(t, err)

		_, err = Load(writeConfig(t, "cache:\n  mode: memcached\n"))
		assert.Error(t, err)

		_, err = Load(writeConfig(t, "game: [1, 2"))
		assert.Error(t, err)

		_, err = Load(writeConfig(t, "game:\n  tick_rate: 0\n"))
		assert.Error(t, err)

		_, err = Load(writeConfig(t, "game:\n  tick_rate: 10\n"))
		assert.Error(t, err, "шаг 0.1 с обрезался бы max_delta 0.05")
	})
}

func TestPorts(t *testing.T) {
	t.Run("порт из конфига", func(t *testing.T) {
		s := ServerConfig{RESTPort: 9000}
		assert.Equal(t, 9000, s.GetRESTPort())
	})

	t.Run("порт из окружения", func(t *testing.T) {
		t.Setenv("GAME_REST_PORT", "9100")
		s := ServerConfig{Host: "127.0.0.1"}
		assert.Equal(t, "127.0.0.1:9100", s.Addr())
	})

	t.Run("порт по умолчанию", func(t *testing.T) {
		t.Setenv("GAME_REST_PORT", "abc")
		s := ServerConfig{}
		assert.Equal(t, 8088, s.GetRESTPort())
	})
}
