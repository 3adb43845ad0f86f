package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const envPrefix = "PUBLISHER"

// Auth flows
const (
	FlowInteractive       = "interactive"
	FlowDeviceCode        = "device_code"
	FlowClientCredentials = "client_credentials"
	FlowStatic            = "static"
)

// Row sources
const (
	SourceInline = "inline"
	SourceFile   = "file"
	SourceMySQL  = "mysql"
	SourceS3     = "s3"
)

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Dataset DatasetConfig `mapstructure:"dataset"`
	Rows    RowsConfig    `mapstructure:"rows"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Console ConsoleConfig `mapstructure:"console"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type APIConfig struct {
	BaseURL       string        `mapstructure:"base_url" validate:"required,url"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gte=0"`
	RatePerMinute int           `mapstructure:"rate_per_minute" validate:"gte=0"`
	Burst         int           `mapstructure:"burst" validate:"gte=0"`
}

type AuthConfig struct {
	Flow          string        `mapstructure:"flow" validate:"oneof=interactive device_code client_credentials static"`
	Authority     string        `mapstructure:"authority" validate:"required_unless=Flow static,omitempty,url"`
	Tenant        string        `mapstructure:"tenant"`
	ClientID      string        `mapstructure:"client_id" validate:"required_unless=Flow static"`
	ClientSecret  string        `mapstructure:"client_secret" validate:"required_if=Flow client_credentials"`
	RedirectURL   string        `mapstructure:"redirect_url" validate:"required_if=Flow interactive,omitempty,url"`
	Scopes        []string      `mapstructure:"scopes"`
	AccessToken   string        `mapstructure:"access_token" validate:"required_if=Flow static"`
	LoginTimeout  time.Duration `mapstructure:"login_timeout" validate:"gte=0"`
	RefreshBuffer time.Duration `mapstructure:"refresh_buffer" validate:"gte=0"`
}

type DatasetConfig struct {
	Create          bool   `mapstructure:"create"`
	Name            string `mapstructure:"name"`
	RetentionPolicy string `mapstructure:"retention_policy" validate:"omitempty,oneof=None basicFIFO"`
}

type RowsConfig struct {
	Append    bool        `mapstructure:"append"`
	DatasetID string      `mapstructure:"dataset_id"`
	Table     string      `mapstructure:"table" validate:"required_if=Append true"`
	Source    string      `mapstructure:"source" validate:"oneof=inline file mysql s3"`
	Envelope  bool        `mapstructure:"envelope"`
	BatchSize int         `mapstructure:"batch_size" validate:"gt=0"`
	Path      string      `mapstructure:"path" validate:"required_if=Source file"`
	Query     string      `mapstructure:"query" validate:"required_if=Source mysql"`
	MySQL     MySQLConfig `mapstructure:"mysql"`
	S3        S3Config    `mapstructure:"s3"`

	// JSON array of row objects, kept as text so column names keep their case
	Inline string `mapstructure:"inline" validate:"required_if=Source inline,omitempty,json"`
}

type MySQLConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type S3Config struct {
	Region      string `mapstructure:"region"`
	Bucket      string `mapstructure:"bucket"`
	Key         string `mapstructure:"key"`
	EndpointURL string `mapstructure:"endpoint_url"`
	PathStyle   bool   `mapstructure:"path_style"`

	// Static credentials; empty means the default AWS credential chain
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"`
}

type ConsoleConfig struct {
	WaitForKey bool   `mapstructure:"wait_for_key"`
	Format     string `mapstructure:"format" validate:"oneof=text json"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Prefix string `mapstructure:"prefix"`
}

// Load reads config.yaml from ./configs or the working directory, then PUBLISHER_* env vars
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	return load(v)
}

// LoadFile reads configuration from an explicit file path
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	// Set default values
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use defaults and environment
			fmt.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks field constraints declared in the validate tags
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterStructValidation(validateAppendTarget, Config{})

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// validateAppendTarget requires a dataset ID for appends unless the dataset is created in the same run
func validateAppendTarget(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	if cfg.Rows.Append && !cfg.Dataset.Create && cfg.Rows.DatasetID == "" {
		sl.ReportError(cfg.Rows.DatasetID, "DatasetID", "dataset_id", "required_without_create", "")
	}
}

// Endpoint URLs for the configured authority and tenant
func (a AuthConfig) AuthURL() string {
	return a.tenantURL() + "/oauth2/v2.0/authorize"
}

func (a AuthConfig) TokenURL() string {
	return a.tenantURL() + "/oauth2/v2.0/token"
}

func (a AuthConfig) DeviceAuthURL() string {
	return a.tenantURL() + "/oauth2/v2.0/devicecode"
}

func (a AuthConfig) tenantURL() string {
	base := strings.TrimRight(a.Authority, "/")
	if a.Tenant == "" {
		return base
	}
	return base + "/" + a.Tenant
}

func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.base_url", "https://api.powerbi.com/v1.0/myorg")
	v.SetDefault("api.timeout", "120s")
	v.SetDefault("api.rate_per_minute", 120)
	v.SetDefault("api.burst", 1)

	// Auth defaults
	v.SetDefault("auth.flow", FlowInteractive)
	v.SetDefault("auth.authority", "https://login.microsoftonline.com")
	v.SetDefault("auth.tenant", "common")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.client_secret", "")
	v.SetDefault("auth.redirect_url", "http://localhost:8400/callback")
	v.SetDefault("auth.scopes", []string{"https://analysis.windows.net/powerbi/api/.default", "offline_access"})
	v.SetDefault("auth.access_token", "")
	v.SetDefault("auth.login_timeout", "5m")
	v.SetDefault("auth.refresh_buffer", "5m")

	// Dataset defaults
	v.SetDefault("dataset.create", true)
	v.SetDefault("dataset.name", "")
	v.SetDefault("dataset.retention_policy", "")

	// Rows defaults
	v.SetDefault("rows.append", false)
	v.SetDefault("rows.dataset_id", "")
	v.SetDefault("rows.table", "Ages")
	v.SetDefault("rows.source", SourceInline)
	v.SetDefault("rows.envelope", false)
	v.SetDefault("rows.batch_size", 10000)
	v.SetDefault("rows.inline", `[{"Id": 42, "Age": 33}]`)
	v.SetDefault("rows.path", "")
	v.SetDefault("rows.query", "")
	v.SetDefault("rows.mysql.host", "localhost")
	v.SetDefault("rows.mysql.port", "3306")
	v.SetDefault("rows.mysql.database", "")
	v.SetDefault("rows.mysql.username", "")
	v.SetDefault("rows.mysql.password", "")
	v.SetDefault("rows.s3.region", "us-east-1")
	v.SetDefault("rows.s3.bucket", "")
	v.SetDefault("rows.s3.key", "")
	v.SetDefault("rows.s3.endpoint_url", "")
	v.SetDefault("rows.s3.path_style", false)
	v.SetDefault("rows.s3.access_key_id", "")
	v.SetDefault("rows.s3.secret_access_key", "")

	// Metrics defaults
	v.SetDefault("metrics.textfile_path", "")

	// Console defaults
	v.SetDefault("console.wait_for_key", false)
	v.SetDefault("console.format", "text")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.prefix", "[publisher] ")
}
