package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Nootest/3DShooting/internal/api"
	"github.com/Nootest/3DShooting/internal/cache"
	"github.com/Nootest/3DShooting/internal/config"
	"github.com/Nootest/3DShooting/internal/eventbus"
	"github.com/Nootest/3DShooting/internal/logging"
	"github.com/Nootest/3DShooting/internal/observability"
	"github.com/Nootest/3DShooting/internal/protocol"
	"github.com/Nootest/3DShooting/internal/server"
	"github.com/Nootest/3DShooting/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $GAME_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if err := logging.InitDefaultLogger("server", cfg.Logging.Dir, cfg.LogLevel()); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	logging.GetLoggerManager().SetLevels(cfg.ComponentLevels())
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🎮 Запуск сервера симуляции 3D шутера...")

	ctx := context.Background()

	// === ТЕЛЕМЕТРИЯ ===
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, observability.Options{
			ServiceName: cfg.Telemetry.ServiceName,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			logging.Warn("⚠️ OpenTelemetry не инициализирован: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Error("❌ Ошибка остановки OpenTelemetry: %v", err)
				}
			}()
		}
	}

	// === ХРАНИЛИЩЕ ===
	scores, archive, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		logging.Error("❌ Ошибка открытия хранилища: %v", err)
		log.Fatalf("❌ Ошибка открытия хранилища: %v", err)
	}

	hostname, _ := os.Hostname()
	scores, err = wrapCache(ctx, cfg.Cache, scores, hostname)
	if err != nil {
		logging.Warn("⚠️ Кеш рекордов не запущен: %v", err)
	}
	defer scores.Close()

	frames, err := protocol.NewSerializer(0)
	if err != nil {
		log.Fatalf("❌ Ошибка создания сериализатора: %v", err)
	}
	defer frames.Close()

	// === ШИНА СОБЫТИЙ ===
	bus, err := openBus(cfg.EventBus)
	if err != nil {
		logging.Error("❌ Ошибка подключения шины событий: %v", err)
		log.Fatalf("❌ Ошибка подключения шины событий: %v", err)
	}
	defer bus.Close()

	if cfg.EventBus.LogEvents {
		if sub, err := eventbus.StartLoggingListener(bus); err != nil {
			logging.Warn("⚠️ Логирование событий не запущено: %v", err)
		} else {
			defer sub.Unsubscribe()
		}
	}

	exporter := eventbus.NewMetricsExporter(bus, prometheus.DefaultRegisterer)
	exporter.Start(5 * time.Second)
	defer exporter.Stop()

	sink := eventbus.NewSink(bus, "shooter@"+hostname)

	// === СИМУЛЯЦИЯ ===
	opts := server.Options{
		Game:         cfg.ToGameConfig(),
		TickInterval: cfg.TickInterval(),
		Profile:      cfg.Game.Profile,
		AutoStart:    cfg.Game.AutoStart,
		Sink:         sink,
		Session:      sink,
		Scores:       scores,
		Frames:       frames,
	}
	if archive != nil {
		opts.Archive = archive
	}
	runner, err := server.NewRunner(ctx, opts)
	if err != nil {
		logging.Error("❌ Ошибка создания симуляции: %v", err)
		log.Fatalf("❌ Ошибка создания симуляции: %v", err)
	}
	runner.Start()

	// === REST API ===
	restConfig := api.Config{
		Addr:   cfg.Server.Addr(),
		Game:   runner,
		Scores: scores,
		Frames: frames,
	}
	if archive != nil {
		restConfig.Archive = archive
	}
	rest := api.NewRestServer(restConfig)
	rest.Start()

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🗄️  Хранилище: %s, кеш: %q, шина событий: %s", cfg.Storage.Backend, cfg.Cache.Mode, cfg.EventBus.Mode)
	logging.Info("   🌐 REST API: http://%s", cfg.Server.Addr())
	logging.Info("   ❤️  Health check: http://%s/health", cfg.Server.Addr())

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	// === GRACEFUL SHUTDOWN ===
	if err := rest.Stop(context.Background()); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	runner.Stop()

	logging.Info("👋 Сервер успешно остановлен")
}

// openStorage открывает хранилище рекордов; архив снимков есть только у Badger
func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.HighScoreRepo, *storage.BadgerStore, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		logging.Warn("⚠️ Рекорды хранятся в памяти и пропадут после перезапуска")
		return storage.NewMemoryScoreRepo(), nil, nil
	case config.StorageBadger:
		store, err := storage.NewBadgerStore(filepath.Clean(cfg.DataDir))
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.StorageRedis:
		rc := storage.DefaultRedisConfig()
		if cfg.RedisAddr != "" {
			rc.Addr = cfg.RedisAddr
		}
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		repo, err := storage.NewRedisScoreRepo(ctx, rc)
		if err != nil {
			return nil, nil, err
		}
		return repo, nil, nil
	case config.StorageMaria:
		repo, err := storage.NewMariaScoreRepo(ctx, cfg.MariaDSN)
		if err != nil {
			return nil, nil, err
		}
		return repo, nil, nil
	default:
		return nil, nil, fmt.Errorf("неизвестный backend %q", cfg.Backend)
	}
}

// wrapCache ставит ScoreCache перед хранилищем рекордов.
// При ошибке возвращает repo без кеша.
func wrapCache(ctx context.Context, cfg config.CacheConfig, repo storage.HighScoreRepo, nodeID string) (storage.HighScoreRepo, error) {
	var store cache.Store
	switch cfg.Mode {
	case config.CacheOff:
		return repo, nil
	case config.CacheMemory:
		store = cache.NewMemoryStore()
	case config.CacheRedis:
		rs, err := cache.NewRedisStore(ctx, cache.RedisConfig{Addr: cfg.RedisAddr})
		if err != nil {
			return repo, err
		}
		store = rs
	default:
		return repo, fmt.Errorf("неизвестный режим кеша %q", cfg.Mode)
	}

	var inv cache.Invalidator
	if cfg.Mode == config.CacheMemory && cfg.NATSURL != "" {
		ni, err := cache.NewNATSInvalidator(cache.InvalidatorConfig{NATSURL: cfg.NATSURL}, nodeID)
		if err != nil {
			return repo, err
		}
		inv = ni
	}

	sc, err := cache.NewScoreCache(ctx, repo, store, inv, cfg.TTL())
	if err != nil {
		if inv != nil {
			inv.Close()
		}
		store.Close()
		return repo, err
	}
	return sc, nil
}

// openBus создаёт in-memory шину или подключается к NATS JetStream
func openBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.Mode == config.BusNATS {
		bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
		if err != nil {
			return nil, err
		}
		return bus, nil
	}
	return eventbus.NewMemoryBus(cfg.Buffer), nil
}
