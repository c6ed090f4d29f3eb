package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/stock-ledger/docs"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/events"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/seed"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ledger repositorios del backend elegido por LEDGER_STORE.
type ledger struct {
	txRunner  inventory.TxRunner
	stock     repository.StockRepository
	movements repository.MovementRepository
	products  repository.ProductRepository
	locations repository.LocationRepository
	lowStock  repository.LowStockRepository
	catalog   seed.CatalogWriter
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Ledger.Store).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store, err := openLedger(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar ledger de stock")
	}
	defer store.close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(registry)

	var publisher inventory.EventPublisher = events.NewLogPublisher(log)
	if cfg.Kafka.Enabled() {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.MovementsTopic, cfg.App.Name)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar publicador Kafka")
			}
		}()
		publisher = kp
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.MovementsTopic).Msg("eventos de movimiento hacia Kafka")
	}

	engine := inventory.NewRecordMovementUseCase(
		store.txRunner, store.stock, store.products, publisher, recorder, log,
		inventory.EngineConfig{MaxRetries: cfg.Ledger.MaxRetries, TxTimeout: cfg.Ledger.TxTimeout},
	)
	// Sin base de datos no hay catálogo: se carga el de demostración.
	if cfg.Ledger.Store == config.StoreMemory {
		cat, err := seed.Demo()
		if err != nil {
			log.Fatal().Err(err).Msg("catálogo de demostración")
		}
		if _, err := seed.NewSeeder(store.catalog, engine, log).Apply(ctx, cat); err != nil {
			log.Fatal().Err(err).Msg("sembrar ledger en memoria")
		}
	}

	queryUC := inventory.NewStockQueryUseCase(store.stock, store.movements, store.products)
	lowStockUC := inventory.NewLowStockUseCase(store.lowStock)
	valuationUC := inventory.NewValuationReportUseCase(store.stock, store.products, store.locations, infrapdf.NewMarotoPDFGenerator())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		Immutable:    true,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock Ledger API",
	}))
	app.Get("/swagger.json", func(c *fiber.Ctx) error {
		c.Type("json")
		return c.SendString(docs.SwaggerInfo.ReadDoc())
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Engine:    engine,
		Query:     queryUC,
		LowStock:  lowStockUC,
		Valuation: valuationUC,
		JWTSecret: cfg.JWT.Secret,
		Log:       log,
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

func openLedger(ctx context.Context, cfg *config.Config, log *logger.Logger) (*ledger, error) {
	if cfg.Ledger.Store == config.StoreMemory {
		log.Warn().Msg("ledger en memoria: los datos se pierden al reiniciar")
		s := memory.NewStore()
		return &ledger{
			txRunner:  s,
			stock:     s.Stock(),
			movements: s.Movements(),
			products:  s.Products(),
			locations: s.Locations(),
			lowStock:  s.LowStock(),
			catalog:   s,
			close:     func() {},
		}, nil
	}

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(cfg.DB.ConnectionString()); err != nil {
			return nil, err
		}
		log.Info().Msg("migraciones aplicadas")
	}
	pool, err := postgres.NewPool(ctx, cfg.DB, postgres.LedgerPoolOptions(cfg.App.Name, cfg.Ledger))
	if err != nil {
		return nil, err
	}
	return &ledger{
		txRunner:  postgres.NewTxRunner(pool),
		stock:     postgres.NewStockRepository(pool),
		movements: postgres.NewMovementRepository(pool),
		products:  postgres.NewProductRepository(pool),
		locations: postgres.NewLocationRepository(pool),
		lowStock:  postgres.NewLowStockRepository(pool),
		catalog:   postgres.NewCatalogWriter(pool),
		close:     pool.Close,
	}, nil
}
