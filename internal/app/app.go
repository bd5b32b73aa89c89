package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"taskPlanner/internal/auth"
	"taskPlanner/internal/config"
	"taskPlanner/internal/handlers"
	"taskPlanner/internal/logger"
	"taskPlanner/internal/middleware"
	repo "taskPlanner/internal/repository"
	"taskPlanner/internal/repository/inmemory"
	"taskPlanner/internal/repository/postgres"
	"taskPlanner/internal/repository/sqlite"
	"taskPlanner/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config      *config.Config
	server      *http.Server
	router      *chi.Mux
	storage     repo.Storage
	tokens      *auth.TokenManager
	taskService *service.TaskService
	userService *service.UserService
	shutdowns   []func() // функции для graceful shutdown
}

type Option func(*App)

// WithStorage подставляет готовое хранилище вместо открытия по конфигу
func WithStorage(store repo.Storage) Option {
	return func(a *App) {
		a.storage = store
	}
}

func New(cfg *config.Config, options ...Option) *App {
	a := &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Migratable - хранилище со схемой, которую нужно накатить перед стартом
type Migratable interface {
	Migrate(ctx context.Context) error
	Down(ctx context.Context) error
}

// OpenStorage открывает хранилище, выбранное в repository.type, без миграций
func OpenStorage(ctx context.Context, cfg *config.Config) (repo.Storage, error) {
	switch cfg.Repository.Type {
	case config.RepositoryPostgres:
		store, err := postgres.New(ctx, cfg.Database.URL, cfg.Database)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.RepositorySQLite:
		store, err := sqlite.New(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.RepositoryInMemory:
		return inmemory.NewStorage(), nil
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища: %q", cfg.Repository.Type)
	}
}

func (a *App) Init(ctx context.Context) error {
	if a.storage == nil {
		store, err := OpenStorage(ctx, a.config)
		if err != nil {
			return fmt.Errorf("открытие хранилища: %w", err)
		}
		a.storage = store
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Закрытие хранилища...")
		a.storage.Close()
	})

	if m, ok := a.storage.(Migratable); ok {
		if err := m.Migrate(ctx); err != nil {
			a.Shutdown()
			return fmt.Errorf("миграции: %w", err)
		}
	}

	a.tokens = auth.NewTokenManager(a.config.Auth.Secret, a.config.Auth.SessionTTL)
	a.taskService = service.NewTaskService(a.storage)
	a.userService = service.NewUserService(
		a.storage,
		auth.NewPasswordHasher(a.config.Auth.BcryptCost),
		a.config.Auth.AdminPassword,
	)

	a.initRouter()
	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      otelhttp.NewHandler(a.router, "task-planner"),
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	logger.Info("Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.Bool("app_lock", a.config.Auth.AppPassword != ""))
	return nil
}

func (a *App) initRouter() {
	taskHandler := handlers.NewTaskHandler(a.taskService)
	userHandler := handlers.NewUserHandler(a.userService)
	authHandler := handlers.NewAuthHandler(
		a.userService,
		a.tokens,
		a.config.Auth.AppPassword,
		a.config.Server.SecureCookies,
	)

	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.UnlockHeader, "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if a.config.Server.RateLimit > 0 {
		r.Use(middleware.RateLimit(a.config.Server.RateLimit))
	}
	r.Use(middleware.NoCache)
	r.Use(middleware.Session(a.tokens))
	r.Use(middleware.AppLock(a.tokens, a.config.Auth.AppPassword != ""))

	r.Get("/health", taskHandler.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/unlock", authHandler.Unlock)
		r.Post("/signup", authHandler.Signup)
		r.Post("/signin", authHandler.Signin)
		r.Post("/signout", authHandler.Signout)
		r.Get("/session", authHandler.Session)

		r.Get("/users", userHandler.ListUsers)
		r.Delete("/users/{id}", userHandler.DeleteUser)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.ListTasks)
			r.Post("/", taskHandler.PostTask)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", taskHandler.UpdateTask)
				r.Delete("/", taskHandler.DeleteTask)
				r.Get("/comments", taskHandler.ListComments)
				r.Post("/comments", taskHandler.PostComment)
			})
		})
	})

	a.router = r
}

// Handler - корневой обработчик со всеми middleware
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run обслуживает запросы до отмены ctx, затем плавно останавливает сервер
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Остановка сервера...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("остановка сервера: %w", err)
		}
		return nil
	})

	err := g.Wait()
	a.Shutdown()
	return err
}

// Shutdown освобождает ресурсы в обратном порядке
func (a *App) Shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = a.shutdowns[:0]
}
