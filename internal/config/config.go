package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config holds all configuration required by the console gateway process.
// Values come from a config file and/or UCONSOLE_* env vars.
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	DB       DBConfig
	Redis    RedisConfig
	Cookie   CookieConfig
	Platform PlatformConfig
	Notify   NotifyConfig
	Throttle ThrottleConfig
}

type AppConfig struct {
	Env string
}

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit. Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

// CookieConfig controls the signed gateway session cookie.
type CookieConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Name     string
	TTL      time.Duration
	Secure   bool
}

// PlatformConfig points the gateway at the uContents platform API.
type PlatformConfig struct {
	BaseURL     string
	Timeout     time.Duration
	SettingsTTL time.Duration
}

type NotifyConfig struct {
	// PollInterval drives the notification refresh job. The console UI
	// assumes roughly a minute of staleness.
	PollInterval time.Duration
}

type ThrottleConfig struct {
	LoginLimit  int
	LoginWindow time.Duration
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("UCONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "local")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "15s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("db.port", 5432)
	v.SetDefault("redis.port", 6379)

	v.SetDefault("cookie.name", "uconsole_session")
	v.SetDefault("cookie.ttl", "720h") // matches the platform token lifetime

	v.SetDefault("platform.timeout", "10s")
	v.SetDefault("platform.settingsttl", "5m")

	v.SetDefault("notify.pollinterval", "60s")

	v.SetDefault("throttle.loginlimit", 10)
	v.SetDefault("throttle.loginwindow", "1m")
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("app.env is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("app.env must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be a valid port, got %d", c.HTTP.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("db.host is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("db.port must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("db.user is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("db.name is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("db.sslmode is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("db.sslmode must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("redis.host is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("redis.port must be a valid port, got %d", c.Redis.Port))
	}

	if c.Cookie.Secret == "" {
		errs = append(errs, errors.New("cookie.secret is required"))
	}
	if c.Cookie.TTL <= 0 {
		c.Cookie.TTL = 30 * 24 * time.Hour
	}
	if c.IsProduction() {
		if c.Cookie.Issuer == "" {
			errs = append(errs, errors.New("cookie.issuer is required in production"))
		}
		if !c.Cookie.Secure {
			errs = append(errs, errors.New("cookie.secure must be true in production"))
		}
	}

	if c.Platform.BaseURL == "" {
		errs = append(errs, errors.New("platform.baseurl is required"))
	} else if !strings.HasPrefix(c.Platform.BaseURL, "http://") && !strings.HasPrefix(c.Platform.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("platform.baseurl must be an http(s) URL, got %q", c.Platform.BaseURL))
	}
	if c.Platform.Timeout <= 0 {
		c.Platform.Timeout = 10 * time.Second
	}
	if c.Platform.SettingsTTL <= 0 {
		c.Platform.SettingsTTL = 5 * time.Minute
	}

	if c.Notify.PollInterval <= 0 {
		c.Notify.PollInterval = time.Minute
	}
	if c.Throttle.LoginLimit <= 0 {
		c.Throttle.LoginLimit = 10
	}
	if c.Throttle.LoginWindow <= 0 {
		c.Throttle.LoginWindow = time.Minute
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
