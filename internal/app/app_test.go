package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costlens/pkg/config"
	"costlens/pkg/storage"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Storage = &config.StorageConfig{
		Driver:      storage.DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "costlens.db"),
		AutoMigrate: true,
	}
	cfg.ClickHouse.Enabled = false
	cfg.ObjectStore.Enabled = false
	cfg.LLM.Enabled = false
	return cfg
}

func TestBuildWithOptionalComponentsDisabled(t *testing.T) {
	a, err := Build(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Service)
	assert.Nil(t, a.Mirror)
	assert.Nil(t, a.Bucket)
	assert.False(t, a.LLM.Enabled())
	assert.Nil(t, a.Notifier)
	assert.Nil(t, a.Alerter())

	imports, err := a.Service.ListImports(context.Background())
	require.NoError(t, err)
	assert.Empty(t, imports)
}

func TestBuildWithAlertWebhook(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notifier.Webhook = &config.WebhookConfig{Enabled: true, URL: "http://127.0.0.1:9/hook"}

	a, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Notifier)
	assert.Equal(t, []string{"webhook"}, a.Notifier.Channels())
	assert.NotNil(t, a.Alerter())
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "postgres"
	_, err := Build(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrStorageConfig)
}
