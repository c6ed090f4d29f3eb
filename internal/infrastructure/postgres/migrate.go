package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/jhoicas/stock-ledger/migrations"
)

// Migrator aplica el esquema embebido con golang-migrate (driver pgx/v5).
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator abre el migrador sobre el DSN postgres:// dado.
func NewMigrator(dsn string) (*Migrator, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("abrir migraciones embebidas: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(dsn))
	if err != nil {
		return nil, fmt.Errorf("crear migrador: %w", err)
	}
	return &Migrator{m: m}, nil
}

// Up aplica todas las migraciones pendientes. Sin cambios no es error.
func (g *Migrator) Up() error {
	if err := g.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migración up: %w", err)
	}
	return nil
}

// Down revierte steps migraciones (0 = todas).
func (g *Migrator) Down(steps int) error {
	var err error
	if steps > 0 {
		err = g.m.Steps(-steps)
	} else {
		err = g.m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migración down: %w", err)
	}
	return nil
}

// Version versión aplicada y si quedó en estado dirty. Sin migraciones devuelve 0.
func (g *Migrator) Version() (uint, bool, error) {
	v, dirty, err := g.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Close libera la fuente y la conexión.
func (g *Migrator) Close() error {
	srcErr, dbErr := g.m.Close()
	return errors.Join(srcErr, dbErr)
}

// Migrate atajo para aplicar todo al arrancar (DB_AUTO_MIGRATE).
func Migrate(dsn string) error {
	g, err := NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer g.Close()
	return g.Up()
}

// migrateURL el driver pgx/v5 de golang-migrate se registra con el esquema pgx5://.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
