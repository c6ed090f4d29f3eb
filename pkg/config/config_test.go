package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "stock-ledger", cfg.App.Name)
	assert.Equal(t, config.StorePostgres, cfg.Ledger.Store)
	assert.Equal(t, 3, cfg.Ledger.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Ledger.TxTimeout)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LEDGER_STORE", "MEMORY")
	t.Setenv("LEDGER_MAX_RETRIES", "5")
	t.Setenv("LEDGER_TX_TIMEOUT_MS", "250")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.StoreMemory, cfg.Ledger.Store)
	assert.Equal(t, 5, cfg.Ledger.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Ledger.TxTimeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.True(t, cfg.DB.AutoMigrate)
	assert.Equal(t, 9090, cfg.HTTP.Port)
}

func TestLoad_UnknownStore(t *testing.T) {
	t.Setenv("LEDGER_STORE", "redis")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "ledger", Password: "p@ss/word", DBName: "stock", SSLMode: "disable"}
	assert.Equal(t, "postgres://ledger:p%40ss%2Fword@db:5432/stock?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://other"
	assert.Equal(t, "postgres://other", c.ConnectionString())
}
