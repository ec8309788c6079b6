package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClient_Defaults(t *testing.T) {
	cfg, err := LoadClient("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.ShopBaseURL)
	assert.Equal(t, TransportHTTP, cfg.TransactionTransport)
	assert.Equal(t, 30*time.Second, cfg.CheckoutTimeout)
}

func TestLoadClient_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
shop_base_url: http://till.local:9000
transaction_transport: grpc
checkout_timeout: 45s
`), 0o600))
	t.Setenv("SHOP_BASE_URL", "http://override:8080")
	t.Setenv("REQUEST_TIMEOUT", "2")

	cfg, err := LoadClient(path)
	require.NoError(t, err)

	assert.Equal(t, "http://override:8080", cfg.ShopBaseURL)
	assert.Equal(t, TransportGRPC, cfg.TransactionTransport)
	assert.Equal(t, 45*time.Second, cfg.CheckoutTimeout)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
}

func TestLoadClient_InvalidTransport(t *testing.T) {
	t.Setenv("TRANSACTION_TRANSPORT", "carrier-pigeon")
	_, err := LoadClient("")
	assert.ErrorContains(t, err, "invalid TRANSACTION_TRANSPORT")
}

func TestLoadClient_InvalidDuration(t *testing.T) {
	t.Setenv("CHECKOUT_TIMEOUT", "soon")
	_, err := LoadClient("")
	assert.ErrorContains(t, err, "invalid CHECKOUT_TIMEOUT")
}

func TestLoadServer(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := LoadServer("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "sales-completed", cfg.KafkaTopic)
}

func TestLoadServer_InvalidDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	_, err := LoadServer("")
	assert.Error(t, err)
}

func TestLoadServer_MissingFile(t *testing.T) {
	_, err := LoadServer(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config file")
}
