package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Vision     VisionConfig     `yaml:"vision" mapstructure:"vision"`
	Quality    QualityConfig    `yaml:"quality" mapstructure:"quality"`
	Gate       GateConfig       `yaml:"gate" mapstructure:"gate"`
	Confidence ConfidenceConfig `yaml:"confidence" mapstructure:"confidence"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// VisionConfig holds vision AI API settings.
type VisionConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	Model      string  `yaml:"model" mapstructure:"model"`
	MaxTokens  int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// QualityConfig holds the image quality metric weights. The weights form the
// fixed convex combination behind the overall score and must sum to 1.0.
type QualityConfig struct {
	SharpnessWeight      float64 `yaml:"sharpness_weight" mapstructure:"sharpness_weight"`
	BrightnessWeight     float64 `yaml:"brightness_weight" mapstructure:"brightness_weight"`
	ContrastWeight       float64 `yaml:"contrast_weight" mapstructure:"contrast_weight"`
	NoiseWeight          float64 `yaml:"noise_weight" mapstructure:"noise_weight"`
	ResolutionWeight     float64 `yaml:"resolution_weight" mapstructure:"resolution_weight"`
	CompressionWeight    float64 `yaml:"compression_weight" mapstructure:"compression_weight"`
	ObjectCoverageWeight float64 `yaml:"object_coverage_weight" mapstructure:"object_coverage_weight"`
}

// WeightSum returns the sum of all quality weights.
func (q QualityConfig) WeightSum() float64 {
	return q.SharpnessWeight + q.BrightnessWeight + q.ContrastWeight +
		q.NoiseWeight + q.ResolutionWeight + q.CompressionWeight + q.ObjectCoverageWeight
}

// GateConfig holds the pre-analysis decision thresholds and token-savings
// policy constants. These are tuning knobs, not modeled guarantees.
type GateConfig struct {
	RejectThreshold   float64 `yaml:"reject_threshold" mapstructure:"reject_threshold"`
	OptimizeThreshold float64 `yaml:"optimize_threshold" mapstructure:"optimize_threshold"`
	WarningThreshold  float64 `yaml:"warning_threshold" mapstructure:"warning_threshold"`
	FullCallTokens    int     `yaml:"full_call_tokens" mapstructure:"full_call_tokens"`
	PartialSaveTokens int     `yaml:"partial_save_tokens" mapstructure:"partial_save_tokens"`
}

// ConfidenceConfig holds the confidence blend weights (sum 1.0) and the
// per-complexity lookup tables.
type ConfidenceConfig struct {
	QualityWeight     float64 `yaml:"quality_weight" mapstructure:"quality_weight"`
	ReliabilityWeight float64 `yaml:"reliability_weight" mapstructure:"reliability_weight"`
	ContextualWeight  float64 `yaml:"contextual_weight" mapstructure:"contextual_weight"`
	HistoricalWeight  float64 `yaml:"historical_weight" mapstructure:"historical_weight"`
	ComplexityWeight  float64 `yaml:"complexity_weight" mapstructure:"complexity_weight"`

	Reliability map[string]float64 `yaml:"reliability" mapstructure:"reliability"`
	Penalty     map[string]float64 `yaml:"penalty" mapstructure:"penalty"`
}

// WeightSum returns the sum of the five blend weights.
func (c ConfidenceConfig) WeightSum() float64 {
	return c.QualityWeight + c.ReliabilityWeight + c.ContextualWeight +
		c.HistoricalWeight + c.ComplexityWeight
}

// BatchConfig configures batch orchestration.
type BatchConfig struct {
	ChunkSize           int `yaml:"chunk_size" mapstructure:"chunk_size"`
	MaxRetries          int `yaml:"max_retries" mapstructure:"max_retries"`
	ItemTimeoutSecs     int `yaml:"item_timeout_secs" mapstructure:"item_timeout_secs"`
	InterChunkDelaySecs int `yaml:"inter_chunk_delay_secs" mapstructure:"inter_chunk_delay_secs"`
}

// ExportConfig configures fire-and-forget report sinks.
type ExportConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
	XLSXDir    string `yaml:"xlsx_dir" mapstructure:"xlsx_dir"`
}

// SalesforceConfig holds QMS export credentials.
type SalesforceConfig struct {
	Domain         string `yaml:"domain" mapstructure:"domain"`
	Username       string `yaml:"username" mapstructure:"username"`
	Password       string `yaml:"password" mapstructure:"password"`
	SecurityToken  string `yaml:"security_token" mapstructure:"security_token"`
	ConsumerKey    string `yaml:"consumer_key" mapstructure:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret" mapstructure:"consumer_secret"`
	InspectionObj  string `yaml:"inspection_object" mapstructure:"inspection_object"`
}

// Enabled reports whether Salesforce export is configured.
func (s SalesforceConfig) Enabled() bool {
	return s.Domain != "" && s.Username != ""
}

// MonitoringConfig configures alert thresholds and the background checker.
type MonitoringConfig struct {
	AlertWebhookURL     string  `yaml:"alert_webhook_url" mapstructure:"alert_webhook_url"`
	MaxFailRate         float64 `yaml:"max_fail_rate" mapstructure:"max_fail_rate"`
	MinAvgConfidence    float64 `yaml:"min_avg_confidence" mapstructure:"min_avg_confidence"`
	MaxCalibrationDrift float64 `yaml:"max_calibration_drift" mapstructure:"max_calibration_drift"`
	CheckIntervalSecs   int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackHours       int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "inspect.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)

	v.SetDefault("vision.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("vision.max_tokens", 2048)
	v.SetDefault("vision.rate_per_sec", 1.0)

	v.SetDefault("quality.sharpness_weight", 0.25)
	v.SetDefault("quality.brightness_weight", 0.15)
	v.SetDefault("quality.contrast_weight", 0.20)
	v.SetDefault("quality.noise_weight", 0.10)
	v.SetDefault("quality.resolution_weight", 0.15)
	v.SetDefault("quality.compression_weight", 0.05)
	v.SetDefault("quality.object_coverage_weight", 0.10)

	v.SetDefault("gate.reject_threshold", 0.3)
	v.SetDefault("gate.optimize_threshold", 0.4)
	v.SetDefault("gate.warning_threshold", 0.7)
	v.SetDefault("gate.full_call_tokens", 200)
	v.SetDefault("gate.partial_save_tokens", 50)

	v.SetDefault("confidence.quality_weight", 0.30)
	v.SetDefault("confidence.reliability_weight", 0.25)
	v.SetDefault("confidence.contextual_weight", 0.20)
	v.SetDefault("confidence.historical_weight", 0.15)
	v.SetDefault("confidence.complexity_weight", 0.10)
	v.SetDefault("confidence.reliability", map[string]float64{
		"simple": 0.95, "moderate": 0.85, "complex": 0.75, "extreme": 0.60,
	})
	v.SetDefault("confidence.penalty", map[string]float64{
		"simple": 0.05, "moderate": 0.15, "complex": 0.25, "extreme": 0.40,
	})

	v.SetDefault("batch.chunk_size", 3)
	v.SetDefault("batch.max_retries", 2)
	v.SetDefault("batch.item_timeout_secs", 180)
	v.SetDefault("batch.inter_chunk_delay_secs", 1)

	v.SetDefault("monitoring.max_fail_rate", 0.3)
	v.SetDefault("monitoring.min_avg_confidence", 0.6)
	v.SetDefault("monitoring.max_calibration_drift", 0.2)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_hours", 24)

	v.SetDefault("salesforce.inspection_object", "Inspection__c")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks weight tables and thresholds are internally consistent.
func (c *Config) Validate() error {
	if s := c.Quality.WeightSum(); s < 0.999 || s > 1.001 {
		return eris.Errorf("config: quality weights sum to %.4f, want 1.0", s)
	}
	if s := c.Confidence.WeightSum(); s < 0.999 || s > 1.001 {
		return eris.Errorf("config: confidence weights sum to %.4f, want 1.0", s)
	}
	if !(c.Gate.RejectThreshold < c.Gate.OptimizeThreshold && c.Gate.OptimizeThreshold < c.Gate.WarningThreshold) {
		return eris.Errorf("config: gate thresholds must be ordered reject < optimize < warning")
	}
	if c.Batch.ChunkSize <= 0 {
		return eris.New("config: batch chunk_size must be positive")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
