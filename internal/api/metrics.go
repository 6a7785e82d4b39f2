package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/Nootest/3DShooting/internal/game"
	"github.com/Nootest/3DShooting/internal/pool"
)

// ServerMetrics содержит метрики процесса сервера
type ServerMetrics struct {
	StartTime time.Time
}

// NewServerMetrics создает новый экземпляр метрик
func NewServerMetrics() *ServerMetrics {
	return &ServerMetrics{
		StartTime: time.Now(),
	}
}

// GetUptime возвращает время работы сервера
func (sm *ServerMetrics) GetUptime() string {
	uptime := time.Since(sm.StartTime)

	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// GetCPUUsage возвращает использование CPU процессом в процентах
func (sm *ServerMetrics) GetCPUUsage() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		// Если не удалось получить метрику процесса, берём системную
		cpuPercents, err := cpu.Percent(100*time.Millisecond, false)
		if err != nil || len(cpuPercents) == 0 {
			return 0, err
		}
		return cpuPercents[0], nil
	}
	return cpuPercent, nil
}

// GetProcessMemory возвращает RSS процесса в MB
func (sm *ServerMetrics) GetProcessMemory() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return float64(info.RSS) / 1024 / 1024, nil
}

// ServerInfo - сводка по процессу и машине
type ServerInfo struct {
	Uptime        string  `json:"uptime"`
	CPUPercent    float64 `json:"cpu_percent"`
	RSSMB         float64 `json:"rss_mb"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
	Goroutines    int     `json:"goroutines"`
	SystemMemUsed float64 `json:"system_mem_used_percent"`
	CPUs          int     `json:"cpus"`
	GoVersion     string  `json:"go_version"`
}

// Collect собирает ServerInfo; недоступные метрики остаются нулевыми
func (sm *ServerMetrics) Collect() ServerInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	info := ServerInfo{
		Uptime:      sm.GetUptime(),
		HeapAllocMB: float64(m.HeapAlloc) / 1024 / 1024,
		NumGC:       m.NumGC,
		Goroutines:  runtime.NumGoroutine(),
		CPUs:        runtime.NumCPU(),
		GoVersion:   runtime.Version(),
	}
	info.CPUPercent, _ = sm.GetCPUUsage()
	info.RSSMB, _ = sm.GetProcessMemory()
	if vm, err := mem.VirtualMemory(); err == nil {
		info.SystemMemUsed = vm.UsedPercent
	}
	return info
}

// StatsSource - откуда коллектор берёт сводку партии
type StatsSource interface {
	Stats() game.Stats
}

// GameCollector отдаёт состояние симуляции в Prometheus при каждом scrape
type GameCollector struct {
	src StatsSource

	ticks        *prometheus.Desc
	pausedTicks  *prometheus.Desc
	tickDuration *prometheus.Desc
	wave         *prometheus.Desc
	score        *prometheus.Desc
	highScore    *prometheus.Desc
	voxels       *prometheus.Desc
	enemiesAlive *prometheus.Desc
	enemyEvents  *prometheus.Desc
	pathSearches *prometheus.Desc
	shots        *prometheus.Desc
	hits         *prometheus.Desc
	poolActive   *prometheus.Desc
	poolCapacity *prometheus.Desc
	poolEvents   *prometheus.Desc
}

// NewGameCollector создаёт коллектор; регистрировать его через prometheus.Registerer
func NewGameCollector(src StatsSource) *GameCollector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("shooter", "game", name), help, labels, nil)
	}
	return &GameCollector{
		src:          src,
		ticks:        desc("ticks_total", "Выполненные тики симуляции."),
		pausedTicks:  desc("paused_ticks_total", "Тики, пропущенные на паузе или после конца партии."),
		tickDuration: desc("last_tick_seconds", "Длительность последнего тика."),
		wave:         desc("wave", "Номер текущей волны."),
		score:        desc("score", "Текущий счёт."),
		highScore:    desc("high_score", "Рекорд профиля."),
		voxels:       desc("voxels", "Вокселей в мире."),
		enemiesAlive: desc("enemies_alive", "Живые враги."),
		enemyEvents:  desc("enemy_events_total", "События врагов по видам.", "kind"),
		pathSearches: desc("path_searches_total", "Запросы A* по исходу.", "result"),
		shots:        desc("shots_total", "Выстрелы по владельцу.", "owner"),
		hits:         desc("hits_total", "Попадания по цели.", "target"),
		poolActive:   desc("pool_active", "Занятые слоты пула.", "pool"),
		poolCapacity: desc("pool_capacity", "Ёмкость пула.", "pool"),
		poolEvents:   desc("pool_events_total", "События пула.", "pool", "kind"),
	}
}

// Describe реализует prometheus.Collector
func (gc *GameCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		gc.ticks, gc.pausedTicks, gc.tickDuration, gc.wave, gc.score, gc.highScore,
		gc.voxels, gc.enemiesAlive, gc.enemyEvents, gc.pathSearches, gc.shots,
		gc.hits, gc.poolActive, gc.poolCapacity, gc.poolEvents,
	} {
		ch <- d
	}
}

// Collect реализует prometheus.Collector
func (gc *GameCollector) Collect(ch chan<- prometheus.Metric) {
	s := gc.src.Stats()

	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	counter(gc.ticks, s.Ticks)
	counter(gc.pausedTicks, s.PausedTicks)
	gauge(gc.tickDuration, s.LastTickTime.Seconds())
	gauge(gc.wave, float64(s.Wave))
	gauge(gc.score, float64(s.Score))
	gauge(gc.highScore, float64(s.HighScore))
	gauge(gc.voxels, float64(s.Voxels))

	gauge(gc.enemiesAlive, float64(s.Enemies.Alive))
	counter(gc.enemyEvents, s.Enemies.Spawned, "spawned")
	counter(gc.enemyEvents, s.Enemies.Killed, "killed")
	counter(gc.enemyEvents, s.Enemies.Replans, "replan")
	counter(gc.enemyEvents, s.Enemies.PathFailures, "path_failure")
	counter(gc.enemyEvents, s.Enemies.StuckEscapes, "stuck_escape")

	counter(gc.pathSearches, s.Navigation.Found, "found")
	counter(gc.pathSearches, s.Navigation.Failed-s.Navigation.BudgetHits, "failed")
	counter(gc.pathSearches, s.Navigation.BudgetHits, "budget")

	counter(gc.shots, s.Combat.PlayerFired, "player")
	counter(gc.shots, s.Combat.EnemyFired, "enemy")
	counter(gc.hits, s.Combat.PlayerHits, "player")
	counter(gc.hits, s.Combat.EnemyHits, "enemy")
	counter(gc.hits, s.Combat.Headshots, "headshot")
	counter(gc.hits, s.Combat.WorldHits, "world")

	for name, ps := range map[string]pool.Stats{
		"player_projectiles": s.Combat.PlayerPool,
		"enemy_projectiles":  s.Combat.EnemyPool,
		"effects":            s.Combat.EffectPool,
	} {
		gauge(gc.poolActive, float64(ps.Active), name)
		gauge(gc.poolCapacity, float64(ps.Capacity), name)
		counter(gc.poolEvents, ps.Acquires, name, "acquire")
		counter(gc.poolEvents, ps.Releases, name, "release")
		counter(gc.poolEvents, ps.Grows, name, "grow")
		counter(gc.poolEvents, ps.Exhausted, name, "exhausted")
	}
}
