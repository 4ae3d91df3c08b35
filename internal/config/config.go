package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ModeSandbox  = "sandbox"
	ModeRazorpay = "razorpay"

	sandboxKeySecret     = "sandbox_key_secret"
	sandboxWebhookSecret = "sandbox_webhook_secret"
)

// Secret hides its value from fmt and encoders.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[redacted]"
}

func (s Secret) GoString() string { return s.String() }

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s Secret) Reveal() string { return string(s) }

type Config struct {
	Server     ServerConfig   `mapstructure:"server"`
	Gateway    GatewayConfig  `mapstructure:"gateway"`
	Razorpay   RazorpayConfig `mapstructure:"razorpay"`
	Currencies []string       `mapstructure:"currencies"`
	Storage    StorageConfig  `mapstructure:"storage"`
	Redis      RedisConfig    `mapstructure:"redis"`
	SendGrid   SendGridConfig `mapstructure:"sendgrid"`
	Notify     NotifyConfig   `mapstructure:"notify"`
	Outbox     OutboxConfig   `mapstructure:"outbox"`
	Retry      RetryConfig    `mapstructure:"retry"`
	Log        LogConfig      `mapstructure:"log"`

	// SandboxSecrets is set when the built-in development secrets are in use.
	SandboxSecrets bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GatewayConfig struct {
	Mode string `mapstructure:"mode"`
}

type RazorpayConfig struct {
	KeyID         string        `mapstructure:"key_id"`
	KeySecret     Secret        `mapstructure:"key_secret"`
	WebhookSecret Secret        `mapstructure:"webhook_secret"`
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    Secret `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password Secret `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SendGridConfig struct {
	APIKey Secret `mapstructure:"api_key"`
}

type NotifyConfig struct {
	From       string `mapstructure:"from"`
	AdminEmail string `mapstructure:"admin_email"`
}

type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("gateway.mode", ModeSandbox)
	v.SetDefault("razorpay.key_id", "")
	v.SetDefault("razorpay.key_secret", "")
	v.SetDefault("razorpay.webhook_secret", "")
	v.SetDefault("razorpay.base_url", "https://api.razorpay.com/v1")
	v.SetDefault("razorpay.timeout", "10s")
	v.SetDefault("currencies", []string{"INR"})
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("sendgrid.api_key", "")
	v.SetDefault("notify.from", "")
	v.SetDefault("notify.admin_email", "")
	v.SetDefault("outbox.poll_interval", "500ms")
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "1s")
	v.SetDefault("retry.max_delay", "30s")
	v.SetDefault("log.level", "info")
}

// Load reads .env (when present), then the optional config file, then the
// environment. Environment variables win: RAZORPAY_KEY_SECRET sets
// razorpay.key_secret and PORT sets server.port.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "PORT", "SERVER_PORT"); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	for i, c := range cfg.Currencies {
		cfg.Currencies[i] = strings.ToUpper(strings.TrimSpace(c))
	}
	cfg.Gateway.Mode = strings.ToLower(cfg.Gateway.Mode)
	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)

	if cfg.Gateway.Mode == ModeSandbox {
		if cfg.Razorpay.KeySecret == "" {
			cfg.Razorpay.KeySecret = sandboxKeySecret
			cfg.SandboxSecrets = true
		}
		if cfg.Razorpay.WebhookSecret == "" {
			cfg.Razorpay.WebhookSecret = sandboxWebhookSecret
			cfg.SandboxSecrets = true
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	switch c.Gateway.Mode {
	case ModeSandbox:
	case ModeRazorpay:
		if c.Razorpay.KeyID == "" {
			errs = append(errs, errors.New("razorpay.key_id is required"))
		}
		if c.Razorpay.KeySecret == "" {
			errs = append(errs, errors.New("razorpay.key_secret is required"))
		}
		if c.Razorpay.WebhookSecret == "" {
			errs = append(errs, errors.New("razorpay.webhook_secret is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("gateway.mode %q is not sandbox or razorpay", c.Gateway.Mode))
	}

	if len(c.Currencies) == 0 {
		errs = append(errs, errors.New("currencies must not be empty"))
	}

	if !slices.Contains([]string{"memory", "sqlite", "postgres"}, c.Storage.Driver) {
		errs = append(errs, fmt.Errorf("storage.driver %q is not memory, sqlite or postgres", c.Storage.Driver))
	} else if c.Storage.Driver != "memory" && c.Storage.DSN == "" {
		errs = append(errs, fmt.Errorf("storage.dsn is required for %s", c.Storage.Driver))
	}

	if c.Outbox.PollInterval <= 0 {
		errs = append(errs, errors.New("outbox.poll_interval must be positive"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}

	return errors.Join(errs...)
}
