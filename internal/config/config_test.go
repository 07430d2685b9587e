package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: "8080"},
		Storage: StorageConfig{DataDir: "./data"},
		Reporting: ReportingConfig{
			CronSchedule:     "0 6 * * *",
			StageRefreshCron: "30 0 * * *",
			Timezone:         "UTC",
		},
		MongoDB: MongoDBConfig{DBName: "sheepfold"},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"missing port", func(c *Config) { c.Server.Port = "" }, "APP_PORT"},
		{"missing data dir", func(c *Config) { c.Storage.DataDir = "" }, "DATA_DIR"},
		{"partial whatsapp", func(c *Config) { c.WhatsApp.AccessToken = "token" }, "WHATSAPP_PHONE_NUMBER_ID"},
		{"whatsapp without owner", func(c *Config) {
			c.WhatsApp = WhatsAppConfig{AccessToken: "t", PhoneNumberID: "1", VerifyToken: "v", BaseURL: "https://graph.facebook.com", APIVersion: "v20.0"}
		}, "FARM_OWNER_ID"},
		{"partial sheets", func(c *Config) { c.Sheets.SpreadsheetID = "sheet" }, "GOOGLE_SHEETS_CREDENTIALS_PATH"},
		{"mongo without db", func(c *Config) { c.MongoDB = MongoDBConfig{URI: "mongodb://localhost"} }, "MONGODB_DB_NAME"},
		{"missing report cron", func(c *Config) { c.Reporting.CronSchedule = "" }, "REPORT_CRON_SCHEDULE"},
		{"bad timezone", func(c *Config) { c.Reporting.Timezone = "Mars/Olympus" }, "TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("nil config", func(t *testing.T) {
		var cfg *Config
		assert.Error(t, cfg.Validate())
	})
}

func TestIntegrationsEnabled(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.False(t, cfg.Sheets.Enabled())
	assert.False(t, cfg.MongoDB.Enabled())

	cfg.WhatsApp = WhatsAppConfig{AccessToken: "t", PhoneNumberID: "1", VerifyToken: "v", BaseURL: "https://graph.facebook.com", APIVersion: "v20.0"}
	cfg.Reporting.FarmOwnerID = "owner"
	assert.True(t, cfg.WhatsApp.Enabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DATA_DIR=/var/lib/sheepfold\nLOG_LEVEL=debug\n"), 0o600))

	t.Setenv("APP_PORT", "9090")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("WHATSAPP_TOKEN", "")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "")
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "")
	t.Setenv("GOOGLE_SHEET_DATABASE_ID", "")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("DATA_DIR"))
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "/var/lib/sheepfold", cfg.Storage.DataDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "0 6 * * *", cfg.Reporting.CronSchedule)
	assert.Equal(t, "sheepfold", cfg.MongoDB.DBName)

	t.Run("missing file is tolerated", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
		assert.NoError(t, err)
	})
}
