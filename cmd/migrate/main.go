// migrate aplica o revierte el esquema del ledger.
//
// Uso: go run ./cmd/migrate -action up|down|version [-steps n]
package main

import (
	"flag"
	"os"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	action := flag.String("action", "up", "up | down | version")
	steps := flag.Int("steps", 0, "migraciones a revertir con down (0 = todas)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name}).Named("migrate")

	m, err := postgres.NewMigrator(cfg.DB.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("abrir migrador")
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn().Err(err).Msg("cerrar migrador")
		}
	}()

	switch *action {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down(*steps)
	case "version":
	default:
		log.Error().Str("action", *action).Msg("acción desconocida")
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("action", *action).Msg("migración fallida")
	}

	version, dirty, err := m.Version()
	if err != nil {
		log.Fatal().Err(err).Msg("leer versión")
	}
	log.Info().Str("action", *action).Uint("version", version).Bool("dirty", dirty).Msg("esquema actualizado")
}
