package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("MONGODB_DB_NAME", "")
	t.Setenv("SNAPSHOT_CRON_SCHEDULE", "")
	t.Setenv("TIMEZONE", "")
	t.Setenv("TOP_EXPENSE_CATEGORIES", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Empty(t, cfg.MongoDB.URI)
	assert.Equal(t, "boutik", cfg.MongoDB.DBName)
	assert.Equal(t, "0 21 * * *", cfg.Reporting.CronSchedule)
	assert.Equal(t, "Africa/Dakar", cfg.Reporting.Timezone)
	assert.Equal(t, 5, cfg.Reporting.TopExpenseLimit)
	assert.Empty(t, cfg.Notify.WebhookURL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DB_NAME", "boutik_test")
	t.Setenv("SNAPSHOT_CRON_SCHEDULE", "30 20 * * *")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("TOP_EXPENSE_CATEGORIES", "3")
	t.Setenv("SUMMARY_WEBHOOK_URL", "https://example.com/hook")
	t.Setenv("SUMMARY_WEBHOOK_TOKEN", "secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, "boutik_test", cfg.MongoDB.DBName)
	assert.Equal(t, "30 20 * * *", cfg.Reporting.CronSchedule)
	assert.Equal(t, 3, cfg.Reporting.TopExpenseLimit)
	assert.Equal(t, "https://example.com/hook", cfg.Notify.WebhookURL)
	assert.Equal(t, "secret", cfg.Notify.AuthToken)
}

func TestLoadRejectsBadTopExpenseLimit(t *testing.T) {
	t.Setenv("TOP_EXPENSE_CATEGORIES", "many")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("TOP_EXPENSE_CATEGORIES", "0")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{
		Server:    ServerConfig{Port: "8080"},
		Reporting: ReportingConfig{CronSchedule: "0 21 * * *", Timezone: "UTC", TopExpenseLimit: 5},
	}

	valid := base
	assert.NoError(t, valid.Validate())

	noPort := base
	noPort.Server.Port = ""
	assert.Error(t, noPort.Validate())

	uriWithoutDB := base
	uriWithoutDB.MongoDB.URI = "mongodb://localhost:27017"
	assert.Error(t, uriWithoutDB.Validate())

	noSchedule := base
	noSchedule.Reporting.CronSchedule = ""
	assert.Error(t, noSchedule.Validate())
}
