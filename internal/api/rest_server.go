package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Nootest/3DShooting/internal/entity"
	"github.com/Nootest/3DShooting/internal/game"
	"github.com/Nootest/3DShooting/internal/logging"
	"github.com/Nootest/3DShooting/internal/middleware"
	"github.com/Nootest/3DShooting/internal/protocol"
	"github.com/Nootest/3DShooting/internal/storage"
)

// ContentTypeFrame - тип содержимого кадра protocol.Serializer
const ContentTypeFrame = "application/x-msgpack"

// GameService - управление партией, которое нужно REST API
type GameService interface {
	StatsSource
	Snapshot() game.Snapshot
	SetInput(in entity.Input)
	SetPaused(paused bool)
	Reset(seed int64) string
	Session() string
}

// ArchiveReader отдаёт архивированные снимки партий
type ArchiveReader interface {
	LoadArchive(ctx context.Context, sessionID string) ([]byte, error)
}

// RestServer представляет REST API сервер
type RestServer struct {
	router     *gin.Engine
	httpServer *http.Server
	addr       string
	game       GameService
	scores     storage.HighScoreRepo
	archive    ArchiveReader
	frames     *protocol.Serializer
	metrics    *ServerMetrics
	logger     *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Addr     string                // адрес для запуска сервера
	Game     GameService           // партия
	Scores   storage.HighScoreRepo // таблица рекордов, может быть nil
	Archive  ArchiveReader         // архив снимков, может быть nil
	Frames   *protocol.Serializer  // кодек бинарных снимков
	Registry *prometheus.Registry  // nil - дефолтный регистр
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Addr == "" {
		config.Addr = ":8088"
	}

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if config.Registry != nil {
		reg, gatherer = config.Registry, config.Registry
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// === Observability middleware ===
	router.Use(otelgin.Middleware("shooter_api"))
	router.Use(middleware.NewRequestLogger("/api/snapshot", "/metrics", "/health").Handler())
	promMw := middleware.NewPrometheusMiddleware("shooter_api", reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)
	router.Use(middleware.CORS())

	if config.Game != nil {
		reg.MustRegister(NewGameCollector(config.Game))
	}

	rs := &RestServer{
		router:  router,
		addr:    config.Addr,
		game:    config.Game,
		scores:  config.Scores,
		archive: config.Archive,
		frames:  config.Frames,
		metrics: NewServerMetrics(),
		logger:  logging.GetComponentLogger("api"),
	}
	rs.setupRoutes()
	return rs
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/snapshot", rs.handleSnapshot)
		api.GET("/stats", rs.handleStats)
		api.GET("/server", rs.handleServerInfo)

		api.POST("/input", rs.handleInput)
		api.POST("/pause", rs.handlePause)
		api.POST("/reset", rs.handleReset)

		api.GET("/scores", rs.handleTopScores)
		api.GET("/scores/:profile", rs.handleBestScore)
		api.GET("/archive/:session", rs.handleArchive)
	}
}

// Handler возвращает http.Handler (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, GenericResponse{Success: false, Message: message})
}

func ok(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: message, Data: data})
}

// wantsFrame - клиент просит бинарный кадр вместо JSON
func wantsFrame(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), ContentTypeFrame)
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleSnapshot отдаёт снимок партии: JSON или msgpack+zstd кадр
func (rs *RestServer) handleSnapshot(c *gin.Context) {
	snap := rs.game.Snapshot()
	if !wantsFrame(c) || rs.frames == nil {
		c.JSON(http.StatusOK, snap)
		return
	}
	frame, err := rs.frames.Marshal(snap, true)
	if err != nil {
		rs.logger.Error("❌ Не удалось закодировать снимок: %v", err)
		fail(c, http.StatusInternalServerError, "Ошибка сериализации снимка")
		return
	}
	c.Data(http.StatusOK, ContentTypeFrame, frame)
}

// handleStats возвращает счётчики подсистем
func (rs *RestServer) handleStats(c *gin.Context) {
	s := rs.game.Stats()
	ok(c, "Статистика получена", gin.H{
		"session":        rs.game.Session(),
		"ticks":          s.Ticks,
		"paused_ticks":   s.PausedTicks,
		"last_tick_ms":   float64(s.LastTickTime.Microseconds()) / 1000,
		"wave":           s.Wave,
		"phase":          s.Phase.String(),
		"score":          s.Score,
		"high_score":     s.HighScore,
		"voxels":         s.Voxels,
		"enemies":        s.Enemies,
		"navigation":     s.Navigation,
		"combat":         s.Combat,
		"world_queries":  s.World.Queries,
		"cells_scanned":  s.World.CellsScanned,
		"voxel_material": s.World.ByMaterial,
	})
}

// handleServerInfo возвращает информацию о процессе
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	ok(c, "Информация о сервере", rs.metrics.Collect())
}

// handleInput заменяет текущий ввод игрока
func (rs *RestServer) handleInput(c *gin.Context) {
	var in entity.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат ввода")
		return
	}
	if in.Weapon < 0 {
		fail(c, http.StatusBadRequest, "Неверный слот оружия")
		return
	}
	rs.game.SetInput(in)
	c.Status(http.StatusNoContent)
}

// PauseRequest - запрос паузы
type PauseRequest struct {
	Paused bool `json:"paused"`
}

func (rs *RestServer) handlePause(c *gin.Context) {
	var req PauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	rs.game.SetPaused(req.Paused)
	ok(c, "Пауза обновлена", gin.H{"paused": req.Paused})
}

// ResetRequest - запрос новой партии; seed 0 - случайный мир
type ResetRequest struct {
	Seed int64 `json:"seed"`
}

func (rs *RestServer) handleReset(c *gin.Context) {
	var req ResetRequest
	// Пустое тело допустимо
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Неверный формат запроса")
			return
		}
	}
	session := rs.game.Reset(req.Seed)
	ok(c, "Новая партия", gin.H{"session": session})
}

// handleTopScores возвращает таблицу рекордов
func (rs *RestServer) handleTopScores(c *gin.Context) {
	if rs.scores == nil {
		fail(c, http.StatusServiceUnavailable, "Хранилище рекордов не настроено")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		fail(c, http.StatusBadRequest, "limit должен быть от 1 до 100")
		return
	}
	top, err := rs.scores.Top(c.Request.Context(), limit)
	if err != nil {
		rs.logger.Error("❌ Ошибка чтения таблицы рекордов: %v", err)
		fail(c, http.StatusInternalServerError, "Ошибка хранилища")
		return
	}
	if top == nil {
		top = []storage.ScoreRecord{}
	}
	ok(c, "Таблица рекордов", top)
}

// handleBestScore возвращает рекорд профиля
func (rs *RestServer) handleBestScore(c *gin.Context) {
	if rs.scores == nil {
		fail(c, http.StatusServiceUnavailable, "Хранилище рекордов не настроено")
		return
	}
	rec, err := rs.scores.Best(c.Request.Context(), c.Param("profile"))
	if errors.Is(err, storage.ErrNotFound) {
		fail(c, http.StatusNotFound, "Рекорд не найден")
		return
	}
	if err != nil {
		rs.logger.Error("❌ Ошибка чтения рекорда: %v", err)
		fail(c, http.StatusInternalServerError, "Ошибка хранилища")
		return
	}
	ok(c, "Рекорд профиля", rec)
}

// handleArchive отдаёт финальный снимок партии
func (rs *RestServer) handleArchive(c *gin.Context) {
	if rs.archive == nil {
		fail(c, http.StatusServiceUnavailable, "Архив не настроен")
		return
	}
	frame, err := rs.archive.LoadArchive(c.Request.Context(), c.Param("session"))
	if errors.Is(err, storage.ErrNotFound) {
		fail(c, http.StatusNotFound, "Партия не найдена")
		return
	}
	if err != nil {
		rs.logger.Error("❌ Ошибка чтения архива: %v", err)
		fail(c, http.StatusInternalServerError, "Ошибка хранилища")
		return
	}
	if wantsFrame(c) || rs.frames == nil {
		c.Data(http.StatusOK, ContentTypeFrame, frame)
		return
	}
	var snap game.Snapshot
	if err := rs.frames.Unmarshal(frame, &snap); err != nil {
		rs.logger.Error("❌ Битый архив партии %s: %v", c.Param("session"), err)
		fail(c, http.StatusInternalServerError, "Битый архив")
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Start запускает HTTP сервер в отдельной горутине
func (rs *RestServer) Start() {
	rs.httpServer = &http.Server{
		Addr:              rs.addr,
		Handler:           rs.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := rs.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			rs.logger.Error("❌ Ошибка REST API сервера: %v", err)
		}
	}()

	rs.logger.Info("✅ REST API сервер запущен на %s", rs.addr)
	rs.logger.Info("📋 Доступные эндпоинты:")
	rs.logger.Info("   GET  /health, /metrics")
	rs.logger.Info("   GET  /api/snapshot, /api/stats, /api/server")
	rs.logger.Info("   POST /api/input, /api/pause, /api/reset")
	rs.logger.Info("   GET  /api/scores, /api/scores/:profile, /api/archive/:session")
}

// Stop выполняет graceful shutdown
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rs.httpServer.Shutdown(ctx); err != nil {
		rs.logger.Error("❌ Ошибка при остановке HTTP сервера: %v", err)
		return err
	}
	rs.logger.Info("🛑 REST API сервер остановлен")
	return nil
}
