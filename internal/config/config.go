package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Nootest/3DShooting/internal/game"
	"github.com/Nootest/3DShooting/internal/logging"
	"github.com/Nootest/3DShooting/internal/storage"
	"github.com/Nootest/3DShooting/internal/util"
)

// Config корневая структура конфигурации сервера симуляции
type Config struct {
	Game      GameConfig      `yaml:"game"`
	World     WorldConfig     `yaml:"world"`
	Waves     WavesConfig     `yaml:"waves"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type GameConfig struct {
	Seed      int64   `yaml:"seed"`       // 0 - случайный
	TickRate  int     `yaml:"tick_rate"`  // Тиков в секунду
	MaxDelta  float64 `yaml:"max_delta"`  // Предел dt, секунды
	Profile   string  `yaml:"profile"`    // Профиль рекорда
	Knockback float64 `yaml:"knockback"`  // Толчок от вражеского снаряда
	AutoStart bool    `yaml:"auto_start"` // false - стартовать на паузе
}

type WorldConfig struct {
	MapSize        float64 `yaml:"map_size"`
	VoxelSize      float64 `yaml:"voxel_size"`
	StructureCount int     `yaml:"structure_count"`
	NavCellSize    float64 `yaml:"nav_cell_size"`
	NavClearance   float64 `yaml:"nav_clearance"`
}

type WavesConfig struct {
	Total          int `yaml:"total"`
	BaseEnemies    int `yaml:"base_enemies"`
	EnemiesPerWave int `yaml:"enemies_per_wave"`
	DelayMs        int `yaml:"delay_ms"`
}

type ServerConfig struct {
	RESTPort int    `yaml:"rest_port"`
	Host     string `yaml:"host"`
}

// Бэкенды хранилища рекордов
const (
	StorageMemory = "memory"
	StorageBadger = "badger"
	StorageRedis  = "redis"
	StorageMaria  = "mysql"
)

type StorageConfig struct {
	Backend       string `yaml:"backend"`
	DataDir       string `yaml:"data_dir"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	MariaDSN      string `yaml:"maria_dsn"`
}

// Режимы кеша рекордов
const (
	CacheOff    = ""
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig - кеш таблицы рекордов перед redis/mysql.
// В режиме memory узлы согласуются через NATS, если задан nats_url.
type CacheConfig struct {
	Mode      string `yaml:"mode"`
	TTLSec    int    `yaml:"ttl_sec"`
	RedisAddr string `yaml:"redis_addr"`
	NATSURL   string `yaml:"nats_url"`
}

// TTL возвращает время жизни записи кеша
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// Режимы шины событий
const (
	BusMemory = "memory"
	BusNATS   = "nats"
)

type EventBusConfig struct {
	Mode      string `yaml:"mode"`
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
	LogEvents bool   `yaml:"log_events"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type LoggingConfig struct {
	Dir        string            `yaml:"dir"`
	Level      string            `yaml:"level"`
	Components map[string]string `yaml:"components"` // уровень по компоненту: ai: debug
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	gc := game.DefaultConfig()
	return &Config{
		Game: GameConfig{
			TickRate:  60,
			MaxDelta:  gc.MaxDelta,
			Profile:   storage.DefaultProfile,
			Knockback: gc.Knockback,
			AutoStart: true,
		},
		World: WorldConfig{
			MapSize:        gc.World.MapSize,
			VoxelSize:      gc.World.VoxelSize,
			StructureCount: gc.World.StructureCount,
			NavCellSize:    gc.NavCellSize,
			NavClearance:   gc.NavClearance,
		},
		Waves: WavesConfig{
			Total:          gc.Waves.TotalWaves,
			BaseEnemies:    gc.Waves.BaseEnemies,
			EnemiesPerWave: gc.Waves.EnemiesPerWave,
			DelayMs:        int(gc.Waves.WaveDelay / time.Millisecond),
		},
		Storage: StorageConfig{
			Backend: StorageMemory,
			DataDir: "data",
		},
		Cache: CacheConfig{
			TTLSec: 30,
		},
		EventBus: EventBusConfig{
			Mode:      BusMemory,
			URL:       "nats://127.0.0.1:4222",
			Stream:    "SHOOTER",
			Retention: 24,
			Buffer:    4096,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "3dshooting",
			SampleRatio: 1,
		},
		Logging: LoggingConfig{
			Dir:   "logs",
			Level: "info",
		},
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "GAME_REST_PORT", 8088)
}

// Addr возвращает адрес для net/http
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.GetRESTPort())
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}
	return defaultPort
}

// Load читает YAML файл поверх Default().
// Если path == "", путь берётся из ENV GAME_CONFIG; без него возвращается Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("конфигурация %s: %w", path, err)
	}
	return cfg, nil
}

// Validate проверяет значения, без которых симуляция не запустится
func (c *Config) Validate() error {
	if c.Game.TickRate <= 0 {
		return fmt.Errorf("game.tick_rate должен быть > 0")
	}
	// Шаг тика не должен обрезаться: таймеры считают тики, движение - dt
	if c.Game.MaxDelta < 1/float64(c.Game.TickRate) {
		return fmt.Errorf("game.max_delta %.4f меньше шага тика 1/%d", c.Game.MaxDelta, c.Game.TickRate)
	}
	if c.World.MapSize <= 0 || c.World.VoxelSize <= 0 {
		return fmt.Errorf("world.map_size и world.voxel_size должны быть > 0")
	}
	if c.Waves.Total < 1 {
		return fmt.Errorf("waves.total должен быть >= 1")
	}
	switch c.Storage.Backend {
	case StorageMemory, StorageBadger, StorageRedis, StorageMaria:
	default:
		return fmt.Errorf("неизвестный storage.backend %q", c.Storage.Backend)
	}
	switch c.Cache.Mode {
	case CacheOff, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("неизвестный cache.mode %q", c.Cache.Mode)
	}
	switch c.EventBus.Mode {
	case BusMemory, BusNATS:
	default:
		return fmt.Errorf("неизвестный eventbus.mode %q", c.EventBus.Mode)
	}
	return nil
}

// TickInterval возвращает длительность одного тика
func (c *Config) TickInterval() time.Duration {
	return util.Rate(c.Game.TickRate).Interval()
}

// ToGameConfig собирает параметры симуляции
func (c *Config) ToGameConfig() game.Config {
	gc := game.DefaultConfig()
	if c.Game.Seed != 0 {
		gc.Seed = c.Game.Seed
	}
	gc.TickRate = util.Rate(c.Game.TickRate)
	gc.MaxDelta = c.Game.MaxDelta
	gc.Knockback = c.Game.Knockback

	gc.World.MapSize = c.World.MapSize
	gc.World.VoxelSize = c.World.VoxelSize
	gc.World.StructureCount = c.World.StructureCount
	gc.Player.Boundary = c.World.MapSize/2 - c.World.VoxelSize
	gc.NavCellSize = c.World.NavCellSize
	gc.NavClearance = c.World.NavClearance

	gc.Waves.TotalWaves = c.Waves.Total
	gc.Waves.BaseEnemies = c.Waves.BaseEnemies
	gc.Waves.EnemiesPerWave = c.Waves.EnemiesPerWave
	gc.Waves.WaveDelay = time.Duration(c.Waves.DelayMs) * time.Millisecond
	return gc
}

// LogLevel возвращает уровень консольного лога
func (c *Config) LogLevel() logging.LogLevel {
	return logging.ParseLevel(c.Logging.Level)
}

// ComponentLevels возвращает переопределения уровней по компонентам
func (c *Config) ComponentLevels() map[string]logging.LogLevel {
	levels := make(map[string]logging.LogLevel, len(c.Logging.Components))
	for component, level := range c.Logging.Components {
		levels[component] = logging.ParseLevel(level)
	}
	return levels
}
