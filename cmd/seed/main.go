// seed carga ubicaciones, productos y stock inicial en PostgreSQL.
//
// Uso: go run ./cmd/seed [-file catalogo.csv] [-charset latin1] [-comma ';']
// Sin -file se usa el catálogo de demostración. El stock inicial pasa por el motor
// de movimientos (una transacción por fila), así que re-ejecutar es seguro.
package main

import (
	"context"
	"flag"
	"os"
	"time"
	"unicode/utf8"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/seed"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	file := flag.String("file", "", "catálogo CSV (vacío = demostración)")
	charset := flag.String("charset", "utf-8", "utf-8 | latin1 | windows-1252")
	comma := flag.String("comma", ",", "separador de campos")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name})

	cat, err := loadCatalog(*file, *charset, *comma)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("leer catálogo")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(cfg.DB.ConnectionString()); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.DB, postgres.LedgerPoolOptions(cfg.App.Name+"-seed", cfg.Ledger))
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	engine := inventory.NewRecordMovementUseCase(
		postgres.NewTxRunner(pool),
		postgres.NewStockRepository(pool),
		postgres.NewProductRepository(pool),
		nil, nil, log,
		inventory.EngineConfig{MaxRetries: cfg.Ledger.MaxRetries, TxTimeout: cfg.Ledger.TxTimeout},
	)
	res, err := seed.NewSeeder(postgres.NewCatalogWriter(pool), engine, log).Apply(ctx, cat)
	if err != nil {
		log.Error().Err(err).Int("movements", res.Movements).Msg("seed incompleto")
		os.Exit(1)
	}
}

func loadCatalog(path, charset, comma string) (*seed.Catalog, error) {
	if path == "" {
		return seed.Demo()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var sep rune
	if comma != "" {
		sep, _ = utf8.DecodeRuneInString(comma)
	}
	return seed.Load(f, seed.Options{Charset: charset, Comma: sep})
}
