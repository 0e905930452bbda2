package apirun_config

import (
	"time"

	"github.com/NordCoder/apirun/internal/obs"
	pg "github.com/NordCoder/apirun/internal/repository/postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (lc *Log) AsLoggerConfig(app App, runID string) *obs.LogConfig {
	return &obs.LogConfig{
		Level:  lc.Level,
		Pretty: lc.Pretty,
		App:    app.Name,
		Env:    app.Env,
		Ver:    app.Version,
		RunID:  runID,
	}
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Metrics struct {
	PushgatewayURL string        `mapstructure:"pushgateway_url"`
	Job            string        `mapstructure:"job"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

func (mc *Metrics) AsPushConfig() *obs.PushConfig {
	return &obs.PushConfig{URL: mc.PushgatewayURL, Job: mc.Job, Timeout: mc.Timeout}
}

// HTTP tunes an outbound client (chart service, Bot API).
type HTTP struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	VerifyTLS bool          `mapstructure:"verify_tls"`
}

type Telegram struct {
	Token         string `mapstructure:"token"`
	ChatID        string `mapstructure:"chat_id"`
	APIBase       string `mapstructure:"api_base"`
	RetryAttempts int    `mapstructure:"retry_attempts"`
	HTTP          HTTP   `mapstructure:"http"`
}

type Chart struct {
	BaseURL         string `mapstructure:"base_url"`
	Format          string `mapstructure:"format"`
	Width           int    `mapstructure:"width"`
	Height          int    `mapstructure:"height"`
	BackgroundColor string `mapstructure:"background_color"`
	HTTP            HTTP   `mapstructure:"http"`
}

type Newman struct {
	Bin            string        `mapstructure:"bin"`
	CollectionsDir string        `mapstructure:"collections_dir"`
	DelayRequest   time.Duration `mapstructure:"delay_request"`
	Reporters      []string      `mapstructure:"reporters"`
	EnvFile        string        `mapstructure:"environment"`
}

type Allure struct {
	Bin        string `mapstructure:"bin"`
	ResultsDir string `mapstructure:"results_dir"`
	ReportDir  string `mapstructure:"report_dir"`
}

// Stages holds the per-stage deadlines.
type Stages struct {
	EngineTimeout time.Duration `mapstructure:"engine_timeout"`
	ReportTimeout time.Duration `mapstructure:"report_timeout"`
	ChartTimeout  time.Duration `mapstructure:"chart_timeout"`
	NotifyTimeout time.Duration `mapstructure:"notify_timeout"`
}

type Notify struct {
	ProgressMessage bool `mapstructure:"progress_message"`
	FailureAlert    bool `mapstructure:"failure_alert"`
	SummaryTable    bool `mapstructure:"summary_table"`
}

type Work struct {
	Dir           string `mapstructure:"dir"`
	KeepArtifacts bool   `mapstructure:"keep_artifacts"`
}

// Kafka enables run.finished events. With a db configured too, events go
// through the outbox table.
type Kafka struct {
	Brokers       []string      `mapstructure:"brokers"`
	Topic         string        `mapstructure:"topic"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	OutboxTTL     time.Duration `mapstructure:"outbox_ttl"`
}

func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

type Config struct {
	App      App       `mapstructure:"app"`
	Log      Log       `mapstructure:"log"`
	OTEL     OTEL      `mapstructure:"otel"`
	Metrics  Metrics   `mapstructure:"metrics"`
	Telegram Telegram  `mapstructure:"telegram"`
	Chart    Chart     `mapstructure:"chart"`
	Newman   Newman    `mapstructure:"newman"`
	Allure   Allure    `mapstructure:"allure"`
	Stages   Stages    `mapstructure:"stages"`
	Notify   Notify    `mapstructure:"notify"`
	Work     Work      `mapstructure:"work"`
	DB       pg.Config `mapstructure:"db"`
	Kafka    Kafka     `mapstructure:"kafka"`
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
