package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/twinsecure-console/internal/console/handler"
	"github.com/xela07ax/twinsecure-console/internal/infra"
	"github.com/xela07ax/twinsecure-console/internal/infra/auth"
)

// HealthFunc отдаёт сведения для /health (состояние предохранителя, свежесть данных).
type HealthFunc func() map[string]any

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    infra.ServerConfig

	// Проверка, что пользователь вошёл (токен вышестоящего API жив)
	session auth.SessionChecker

	// Обработчики
	dashHandler    *handler.DashboardHandler // /api/v1/dashboard
	historyHandler *handler.HistoryHandler   // /api/v1/dashboard/history
	streamHandler  *handler.StreamHandler    // /ws
	authHandler    *handler.AuthHandler      // /auth
	prefsHandler   *handler.PrefsHandler     // /prefs

	metrics http.Handler
	health  HealthFunc
}

type Deps struct {
	Session   auth.SessionChecker
	Dashboard *handler.DashboardHandler
	History   *handler.HistoryHandler
	Stream    *handler.StreamHandler
	Auth      *handler.AuthHandler
	Prefs     *handler.PrefsHandler
	Metrics   http.Handler
	Health    HealthFunc
}

// NewConsoleServer собирает роутер консоли со всеми зависимостями
func NewConsoleServer(cfg infra.ServerConfig, logger *zap.Logger, deps Deps) *ConsoleServer {
	s := &ConsoleServer{
		router:         chi.NewRouter(),
		logger:         logger.Named("console-api"),
		cfg:            cfg,
		session:        deps.Session,
		dashHandler:    deps.Dashboard,
		historyHandler: deps.History,
		streamHandler:  deps.Stream,
		authHandler:    deps.Auth,
		prefsHandler:   deps.Prefs,
		metrics:        deps.Metrics,
		health:         deps.Health,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Group(func(r chi.Router) {
		r.Post("/auth/login", s.authHandler.Login)
		r.Post("/auth/logout", s.authHandler.Logout)

		r.Get("/health", s.handleHealth)
		if s.metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.metrics)
		}

		// Тема нужна и на странице входа
		r.Get("/prefs/theme", s.prefsHandler.GetTheme)
		r.Put("/prefs/theme", s.prefsHandler.PutTheme)
		r.Post("/prefs/theme/toggle", s.prefsHandler.ToggleTheme)
	})

	// --- 3. ПАНЕЛЬ (требует входа, если включено) ---
	r.Group(func(r chi.Router) {
		if s.cfg.RequireSession && s.session != nil {
			r.Use(auth.NewMiddleware(s.session, s.logger))
		}

		r.Get("/ws", s.streamHandler.Serve)

		r.Route("/api/v1/dashboard", func(r chi.Router) {
			r.Get("/state", s.dashHandler.GetState)
			r.Get("/summary", s.dashHandler.GetSummary)
			r.Post("/refresh", s.dashHandler.Refresh)
			r.Patch("/filters", s.dashHandler.PatchFilters)

			r.Post("/auto-refresh/start", s.dashHandler.StartAutoRefresh) // монтирование представления
			r.Post("/auto-refresh/stop", s.dashHandler.StopAutoRefresh)   // размонтирование

			r.Put("/selection/{kind}", s.dashHandler.Select)
			r.Delete("/selection/{kind}", s.dashHandler.ClearSelection)
			r.Get("/alerts/{id}", s.dashHandler.GetAlert)

			r.Get("/history", s.historyHandler.List)
		})
	})
}

func (s *ConsoleServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.health != nil {
		for k, v := range s.health() {
			body[k] = v
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger — аналог middleware.Logger, но через zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Info("http request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("took", time.Since(start)),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
