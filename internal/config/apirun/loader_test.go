package apirun_config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100500")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, "-100500", cfg.Telegram.ChatID)
	assert.Equal(t, "https://api.telegram.org", cfg.Telegram.APIBase)
	assert.Equal(t, "https://quickchart.io/chart", cfg.Chart.BaseURL)
	assert.Equal(t, "./allure-results", cfg.Allure.ResultsDir)
	assert.Equal(t, "./allure-report", cfg.Allure.ReportDir)
	assert.Equal(t, 150*time.Millisecond, cfg.Newman.DelayRequest)
	assert.Equal(t, 30*time.Second, cfg.Stages.ChartTimeout)
	assert.True(t, cfg.Notify.FailureAlert)
	assert.False(t, cfg.Notify.ProgressMessage)
	assert.Empty(t, cfg.DB.DSN)
}

func TestLoad_DotEnvAndYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(".env", []byte("TELEGRAM_TOKEN=from-dotenv\nTELEGRAM_CHAT_ID=42\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("TELEGRAM_TOKEN")
		_ = os.Unsetenv("TELEGRAM_CHAT_ID")
	})

	path := filepath.Join(dir, "apirun.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
notify:
  progress_message: true
stages:
  engine_timeout: 10m
allure:
  report_dir: ./out/report
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.Telegram.Token)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.True(t, cfg.Notify.ProgressMessage)
	assert.Equal(t, 10*time.Minute, cfg.Stages.EngineTimeout)
	assert.Equal(t, "./out/report", cfg.Allure.ReportDir)
}

func TestLoad_MissingToken(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "1")

	_, err := Load("")
	var cerr ErrConfig
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Error(), "TELEGRAM_TOKEN")
}

func TestRead_SkipsValidation(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("DB_DSN", "postgres://u:p@localhost:5432/apirun")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Read("")
	require.NoError(t, err)
	assert.True(t, cfg.DB.Enabled())
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Minute, cfg.Kafka.OutboxTTL)
	assert.Error(t, cfg.Validate())
}
