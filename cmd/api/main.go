package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"

	_ "github.com/jhoicas/crm-api/docs"
	"github.com/jhoicas/crm-api/internal/application/analytics"
	"github.com/jhoicas/crm-api/internal/application/auth"
	"github.com/jhoicas/crm-api/internal/application/notification"
	"github.com/jhoicas/crm-api/internal/application/usecase"
	"github.com/jhoicas/crm-api/internal/domain/repository"
	"github.com/jhoicas/crm-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/crm-api/internal/infrastructure/pdf"
	"github.com/jhoicas/crm-api/internal/infrastructure/postgres"
	"github.com/jhoicas/crm-api/internal/infrastructure/sqlite"
	httpRouter "github.com/jhoicas/crm-api/internal/interfaces/http"
	"github.com/jhoicas/crm-api/internal/interfaces/ws"
	"github.com/jhoicas/crm-api/pkg/config"
	"github.com/jhoicas/crm-api/pkg/logger"
)

// @title                       CRM API
// @version                     1.0
// @description                 Usuarios, leads, deals, forecast y notificaciones en vivo.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization

// repositories agrupa los adaptadores de almacenamiento elegidos por DB_DRIVER.
type repositories struct {
	users repository.UserRepository
	leads repository.LeadRepository
	deals repository.DealRepository
	tx    repository.TxRunner
	close func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("db_driver", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	repos, err := openRepositories(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("conexión a la base de datos")
	}
	defer repos.close()

	m := metrics.New("crm")
	registry := notification.NewRegistry(m)
	dispatcher := notification.NewDispatcher(registry, m, log)

	authUC := auth.NewAuthUseCase(repos.users, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	userUC := usecase.NewUserUseCase(repos.users, cfg.Auth.DefaultUserPassword)
	leadUC := usecase.NewLeadUseCase(repos.leads, repos.users)
	dealUC := usecase.NewDealUseCase(repos.deals, repos.users, repos.tx, dispatcher, log)
	forecastUC := analytics.NewForecastUseCase(repos.deals, repos.leads, infrapdf.NewForecastReportGenerator(cfg.App.Name))

	seeded, err := authUC.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("crear administrador inicial")
	}
	if seeded {
		log.Info().Str("email", cfg.Auth.AdminEmail).Msg("administrador inicial creado")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.HTTP.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
	}))
	app.Use(m.Middleware())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "CRM API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	app.Get("/metrics", m.Handler())

	// El canal WebSocket se registra antes de /api para no pasar por el grupo protegido.
	ws.NewGateway(registry, log).Register(app, "/ws/notifications", httpRouter.AuthMiddleware(cfg.JWT.Secret))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:      authUC,
		UserUC:      userUC,
		LeadUC:      leadUC,
		DealUC:      dealUC,
		AnalyticsUC: forecastUC,
		Dispatcher:  dispatcher,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openRepositories(ctx context.Context, cfg config.DBConfig) (*repositories, error) {
	if cfg.Driver == config.DriverSQLite {
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return sqliteRepositories(db), nil
	}

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return postgresRepositories(pool), nil
}

func postgresRepositories(pool *pgxpool.Pool) *repositories {
	return &repositories{
		users: postgres.NewUserRepository(pool),
		leads: postgres.NewLeadRepository(pool),
		deals: postgres.NewDealRepository(pool),
		tx:    postgres.NewTxRunner(pool),
		close: pool.Close,
	}
}

func sqliteRepositories(db *sql.DB) *repositories {
	return &repositories{
		users: sqlite.NewUserRepository(db),
		leads: sqlite.NewLeadRepository(db),
		deals: sqlite.NewDealRepository(db),
		tx:    sqlite.NewTxRunner(db),
		close: func() { _ = db.Close() },
	}
}
