package apirun_config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads the configuration and validates it for a pipeline run.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads .env (if present), then the optional yaml file at path, then the
// environment. TELEGRAM_TOKEN and TELEGRAM_CHAT_ID map onto telegram.token and
// telegram.chat_id through the "." -> "_" replacer.
func Read(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetDefault("app.name", "apirun")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "dev")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.service_name", "apirun")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.otlp_endpoint", "localhost:4317")

	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "apirun")
	v.SetDefault("metrics.timeout", "5s")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("telegram.retry_attempts", 3)
	v.SetDefault("telegram.http.timeout", "60s")
	v.SetDefault("telegram.http.user_agent", "apirun/1.0")
	v.SetDefault("telegram.http.verify_tls", true)

	v.SetDefault("chart.base_url", "https://quickchart.io/chart")
	v.SetDefault("chart.format", "png")
	v.SetDefault("chart.width", 0)
	v.SetDefault("chart.height", 0)
	v.SetDefault("chart.background_color", "")
	v.SetDefault("chart.http.timeout", "20s")
	v.SetDefault("chart.http.user_agent", "apirun/1.0")
	v.SetDefault("chart.http.verify_tls", true)

	v.SetDefault("newman.bin", "newman")
	v.SetDefault("newman.collections_dir", "./collections")
	v.SetDefault("newman.delay_request", "150ms")
	v.SetDefault("newman.reporters", []string{"cli"})
	v.SetDefault("newman.environment", "")

	v.SetDefault("allure.bin", "allure")
	v.SetDefault("allure.results_dir", "./allure-results")
	v.SetDefault("allure.report_dir", "./allure-report")

	v.SetDefault("stages.engine_timeout", "30m")
	v.SetDefault("stages.report_timeout", "5m")
	v.SetDefault("stages.chart_timeout", "30s")
	v.SetDefault("stages.notify_timeout", "2m")

	v.SetDefault("notify.progress_message", false)
	v.SetDefault("notify.failure_alert", true)
	v.SetDefault("notify.summary_table", true)

	v.SetDefault("work.dir", "./.apirun")
	v.SetDefault("work.keep_artifacts", false)

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime", "30m")
	v.SetDefault("db.max_conn_idle_time", "10m")
	v.SetDefault("db.health_check_period", "30s")
	v.SetDefault("db.query_timeout", "2s")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "apirun.runs.finished")
	v.SetDefault("kafka.retry_attempts", 4)
	v.SetDefault("kafka.outbox_ttl", "1m")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Telegram.Token == "":
		return ErrConfig("telegram.token (TELEGRAM_TOKEN) is empty")
	case c.Telegram.ChatID == "":
		return ErrConfig("telegram.chat_id (TELEGRAM_CHAT_ID) is empty")
	case c.Newman.Bin == "":
		return ErrConfig("newman.bin is empty")
	case c.Allure.Bin == "":
		return ErrConfig("allure.bin is empty")
	case c.Allure.ResultsDir == "" || c.Allure.ReportDir == "":
		return ErrConfig("allure.results_dir and allure.report_dir must be set")
	case c.Work.Dir == "":
		return ErrConfig("work.dir is empty")
	}
	return nil
}
