package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	S3        S3Config
	Log       LogConfig
	Extractor ExtractorConfig
	OCR       OCRConfig
	Pipeline  PipelineConfig
	Queue     QueueConfig
	Upload    UploadConfig
	CORS      CORSConfig
}

// QueueConfig holds extraction queue worker settings.
type QueueConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	PollIntervalSecs int  `mapstructure:"poll_interval_secs"`
	MaxRetries       int  `mapstructure:"max_retries"`
	Concurrency      int  `mapstructure:"concurrency"`
	JobTimeoutSecs   int  `mapstructure:"job_timeout_secs"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ProviderConfig holds settings for a single LLM extraction provider.
type ProviderConfig struct {
	Provider     string  `mapstructure:"provider"`
	APIKey       string  `mapstructure:"api_key"`
	DefaultModel string  `mapstructure:"default_model"`
	TimeoutSecs  int     `mapstructure:"timeout_secs"`
	Temperature  float64 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`
}

// ExtractorConfig holds LLM extractor settings with multi-provider support.
type ExtractorConfig struct {
	// Flat single-provider fields, used when Primary is not set.
	Provider     string  `mapstructure:"provider"`
	APIKey       string  `mapstructure:"api_key"`
	DefaultModel string  `mapstructure:"default_model"`
	TimeoutSecs  int     `mapstructure:"timeout_secs"`
	Temperature  float64 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`

	Primary   ProviderConfig `mapstructure:"primary"`
	Secondary ProviderConfig `mapstructure:"secondary"`
	Tertiary  ProviderConfig `mapstructure:"tertiary"`
}

// PrimaryConfig returns the primary provider config, falling back to the flat fields.
func (e *ExtractorConfig) PrimaryConfig() *ProviderConfig {
	if e.Primary.Provider != "" {
		return &e.Primary
	}
	return &ProviderConfig{
		Provider:     e.Provider,
		APIKey:       e.APIKey,
		DefaultModel: e.DefaultModel,
		TimeoutSecs:  e.TimeoutSecs,
		Temperature:  e.Temperature,
		MaxTokens:    e.MaxTokens,
	}
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (e *ExtractorConfig) SecondaryConfig() *ProviderConfig {
	if e.Secondary.Provider != "" {
		return &e.Secondary
	}
	return nil
}

// TertiaryConfig returns the tertiary provider config, or nil if not configured.
func (e *ExtractorConfig) TertiaryConfig() *ProviderConfig {
	if e.Tertiary.Provider != "" {
		return &e.Tertiary
	}
	return nil
}

// OCRConfig holds layout analysis settings.
type OCRConfig struct {
	AzureEndpoint   string `mapstructure:"azure_endpoint"`
	AzureKey        string `mapstructure:"azure_key"`
	EnhanceImages   bool   `mapstructure:"enhance_images"`
	MaxImageWidth   int    `mapstructure:"max_image_width"`
	DetectPDFTables bool   `mapstructure:"detect_pdf_tables"`
}

// PipelineConfig holds chunking and pacing settings for the extraction pipeline.
type PipelineConfig struct {
	MaxChunkChars int           `mapstructure:"max_chunk_chars"`
	PacingDelay   time.Duration `mapstructure:"pacing_delay"`
}

// UploadConfig holds document upload limits.
type UploadConfig struct {
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	TempDir       string `mapstructure:"temp_dir"`
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (u UploadConfig) MaxFileSizeBytes() int64 {
	return u.MaxFileSizeMB * 1024 * 1024
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`

	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	MigrationsPath string        `mapstructure:"migrations_path"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings. An empty Bucket disables document archiving.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Enabled reports whether object storage is configured.
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Verbose reports whether per-chunk pipeline logging is enabled.
func (l LogConfig) Verbose() bool {
	return strings.EqualFold(l.Level, "debug")
}

// Load reads configuration from environment variables with the INVOX_ prefix.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config.Load: reading .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("INVOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "invox")
	v.SetDefault("db.password", "invox_secret")
	v.SetDefault("db.name", "invox_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)
	v.SetDefault("db.max_lifetime", "30m")
	v.SetDefault("db.migrations_path", "file://db/migrations")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")

	// Log defaults
	v.SetDefault("log.level", "info")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Queue defaults
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.poll_interval_secs", 10)
	v.SetDefault("queue.max_retries", 5)
	v.SetDefault("queue.concurrency", 3)
	v.SetDefault("queue.job_timeout_secs", 1800)

	// Upload defaults
	v.SetDefault("upload.max_file_size_mb", 50)
	v.SetDefault("upload.temp_dir", os.TempDir())

	// Extractor defaults (flat)
	v.SetDefault("extractor.provider", "openai")
	v.SetDefault("extractor.api_key", "")
	v.SetDefault("extractor.default_model", "gpt-4o")
	v.SetDefault("extractor.timeout_secs", 180)
	v.SetDefault("extractor.temperature", 0.1)
	v.SetDefault("extractor.max_tokens", 16000)

	// Extractor primary/secondary/tertiary defaults
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		v.SetDefault("extractor."+tier+".provider", "")
		v.SetDefault("extractor."+tier+".api_key", "")
		v.SetDefault("extractor."+tier+".default_model", "")
		v.SetDefault("extractor."+tier+".timeout_secs", 180)
	}

	// OCR defaults
	v.SetDefault("ocr.azure_endpoint", "")
	v.SetDefault("ocr.azure_key", "")
	v.SetDefault("ocr.enhance_images", true)
	v.SetDefault("ocr.max_image_width", 2500)
	v.SetDefault("ocr.detect_pdf_tables", true)

	// Pipeline defaults
	v.SetDefault("pipeline.max_chunk_chars", 16000)
	v.SetDefault("pipeline.pacing_delay", "1s")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                       "INVOX_SERVER_PORT",
		"server.read_timeout":               "INVOX_SERVER_READ_TIMEOUT",
		"server.write_timeout":              "INVOX_SERVER_WRITE_TIMEOUT",
		"server.environment":                "INVOX_SERVER_ENVIRONMENT",
		"db.host":                           "INVOX_DB_HOST",
		"db.port":                           "INVOX_DB_PORT",
		"db.user":                           "INVOX_DB_USER",
		"db.password":                       "INVOX_DB_PASSWORD",
		"db.name":                           "INVOX_DB_NAME",
		"db.sslmode":                        "INVOX_DB_SSLMODE",
		"db.max_open":                       "INVOX_DB_MAX_OPEN",
		"db.max_idle":                       "INVOX_DB_MAX_IDLE",
		"db.max_lifetime":                   "INVOX_DB_MAX_LIFETIME",
		"db.migrations_path":                "INVOX_DB_MIGRATIONS_PATH",
		"s3.region":                         "INVOX_S3_REGION",
		"s3.bucket":                         "INVOX_S3_BUCKET",
		"s3.endpoint":                       "INVOX_S3_ENDPOINT",
		"s3.access_key":                     "INVOX_S3_ACCESS_KEY",
		"s3.secret_key":                     "INVOX_S3_SECRET_KEY",
		"log.level":                         "INVOX_LOG_LEVEL",
		"cors.allowed_origins":              "INVOX_CORS_ALLOWED_ORIGINS",
		"queue.enabled":                     "INVOX_QUEUE_ENABLED",
		"queue.poll_interval_secs":          "INVOX_QUEUE_POLL_INTERVAL_SECS",
		"queue.max_retries":                 "INVOX_QUEUE_MAX_RETRIES",
		"queue.concurrency":                 "INVOX_QUEUE_CONCURRENCY",
		"queue.job_timeout_secs":            "INVOX_QUEUE_JOB_TIMEOUT_SECS",
		"upload.max_file_size_mb":           "INVOX_UPLOAD_MAX_FILE_SIZE_MB",
		"upload.temp_dir":                   "INVOX_UPLOAD_TEMP_DIR",
		"extractor.provider":                "INVOX_EXTRACTOR_PROVIDER",
		"extractor.api_key":                 "INVOX_EXTRACTOR_API_KEY",
		"extractor.default_model":           "INVOX_EXTRACTOR_DEFAULT_MODEL",
		"extractor.timeout_secs":            "INVOX_EXTRACTOR_TIMEOUT_SECS",
		"extractor.temperature":             "INVOX_EXTRACTOR_TEMPERATURE",
		"extractor.max_tokens":              "INVOX_EXTRACTOR_MAX_TOKENS",
		"extractor.primary.provider":        "INVOX_EXTRACTOR_PRIMARY_PROVIDER",
		"extractor.primary.api_key":         "INVOX_EXTRACTOR_PRIMARY_API_KEY",
		"extractor.primary.default_model":   "INVOX_EXTRACTOR_PRIMARY_DEFAULT_MODEL",
		"extractor.primary.timeout_secs":    "INVOX_EXTRACTOR_PRIMARY_TIMEOUT_SECS",
		"extractor.secondary.provider":      "INVOX_EXTRACTOR_SECONDARY_PROVIDER",
		"extractor.secondary.api_key":       "INVOX_EXTRACTOR_SECONDARY_API_KEY",
		"extractor.secondary.default_model": "INVOX_EXTRACTOR_SECONDARY_DEFAULT_MODEL",
		"extractor.secondary.timeout_secs":  "INVOX_EXTRACTOR_SECONDARY_TIMEOUT_SECS",
		"extractor.tertiary.provider":       "INVOX_EXTRACTOR_TERTIARY_PROVIDER",
		"extractor.tertiary.api_key":        "INVOX_EXTRACTOR_TERTIARY_API_KEY",
		"extractor.tertiary.default_model":  "INVOX_EXTRACTOR_TERTIARY_DEFAULT_MODEL",
		"extractor.tertiary.timeout_secs":   "INVOX_EXTRACTOR_TERTIARY_TIMEOUT_SECS",
		"ocr.azure_endpoint":                "INVOX_OCR_AZURE_ENDPOINT",
		"ocr.azure_key":                     "INVOX_OCR_AZURE_KEY",
		"ocr.enhance_images":                "INVOX_OCR_ENHANCE_IMAGES",
		"ocr.max_image_width":               "INVOX_OCR_MAX_IMAGE_WIDTH",
		"ocr.detect_pdf_tables":             "INVOX_OCR_DETECT_PDF_TABLES",
		"pipeline.max_chunk_chars":          "INVOX_PIPELINE_MAX_CHUNK_CHARS",
		"pipeline.pacing_delay":             "INVOX_PIPELINE_PACING_DELAY",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if INVOX_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("INVOX_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),

		MaxLifetime:    v.GetDuration("db.max_lifetime"),
		MigrationsPath: v.GetString("db.migrations_path"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.Log = LogConfig{
		Level: v.GetString("log.level"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	temperature := v.GetFloat64("extractor.temperature")
	maxTokens := v.GetInt("extractor.max_tokens")
	tier := func(name string) ProviderConfig {
		return ProviderConfig{
			Provider:     v.GetString("extractor." + name + ".provider"),
			APIKey:       v.GetString("extractor." + name + ".api_key"),
			DefaultModel: v.GetString("extractor." + name + ".default_model"),
			TimeoutSecs:  v.GetInt("extractor." + name + ".timeout_secs"),
			Temperature:  temperature,
			MaxTokens:    maxTokens,
		}
	}
	cfg.Extractor = ExtractorConfig{
		Provider:     v.GetString("extractor.provider"),
		APIKey:       v.GetString("extractor.api_key"),
		DefaultModel: v.GetString("extractor.default_model"),
		TimeoutSecs:  v.GetInt("extractor.timeout_secs"),
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		Primary:      tier("primary"),
		Secondary:    tier("secondary"),
		Tertiary:     tier("tertiary"),
	}

	cfg.OCR = OCRConfig{
		AzureEndpoint:   v.GetString("ocr.azure_endpoint"),
		AzureKey:        v.GetString("ocr.azure_key"),
		EnhanceImages:   v.GetBool("ocr.enhance_images"),
		MaxImageWidth:   v.GetInt("ocr.max_image_width"),
		DetectPDFTables: v.GetBool("ocr.detect_pdf_tables"),
	}

	cfg.Pipeline = PipelineConfig{
		MaxChunkChars: v.GetInt("pipeline.max_chunk_chars"),
		PacingDelay:   v.GetDuration("pipeline.pacing_delay"),
	}

	cfg.Queue = QueueConfig{
		Enabled:          v.GetBool("queue.enabled"),
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		MaxRetries:       v.GetInt("queue.max_retries"),
		Concurrency:      v.GetInt("queue.concurrency"),
		JobTimeoutSecs:   v.GetInt("queue.job_timeout_secs"),
	}

	cfg.Upload = UploadConfig{
		MaxFileSizeMB: v.GetInt64("upload.max_file_size_mb"),
		TempDir:       v.GetString("upload.temp_dir"),
	}

	return cfg, nil
}
