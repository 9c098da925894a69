// Package config loads service configuration from defaults, an optional
// config file, an optional .env file and ENTERPRISE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "ENTERPRISE"

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Audit     AuditConfig     `mapstructure:"audit"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	// TrustedProxies are peers whose X-Forwarded-For is believed (CIDR or address).
	TrustedProxies []string `mapstructure:"trusted_proxies" validate:"dive,cidr|ip"`
}

type GRPCConfig struct {
	// Addr empty disables the gRPC listener.
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type AuthConfig struct {
	Secret            string        `mapstructure:"secret" validate:"required,min=32"`
	Issuer            string        `mapstructure:"issuer" validate:"required"`
	AccessTTL         time.Duration `mapstructure:"access_ttl" validate:"gt=0"`
	RefreshTTL        time.Duration `mapstructure:"refresh_ttl" validate:"gt=0,gtfield=AccessTTL"`
	MinPasswordLength int           `mapstructure:"min_password_length" validate:"gte=1"`
}

type AuditConfig struct {
	Buffer       int `mapstructure:"buffer" validate:"gt=0"`
	HistoryLimit int `mapstructure:"history_limit" validate:"gt=0,lte=200"`
}

type RateLimitConfig struct {
	LoginBurst     int     `mapstructure:"login_burst" validate:"gt=0"`
	LoginPerSecond float64 `mapstructure:"login_per_second" validate:"gt=0"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// Option adjusts how Load resolves sources.
type Option func(*loader)

type loader struct {
	configFile   string
	envFile      string
	skipValidate bool
}

// WithConfigFile reads the given YAML/JSON/TOML file before applying the environment.
func WithConfigFile(path string) Option {
	return func(l *loader) { l.configFile = strings.TrimSpace(path) }
}

// WithEnvFile loads variables from a dotenv file. Existing variables win.
func WithEnvFile(path string) Option {
	return func(l *loader) { l.envFile = strings.TrimSpace(path) }
}

// WithoutValidation returns whatever resolved. Tools that need only part of
// the configuration check the fields they use themselves.
func WithoutValidation() Option {
	return func(l *loader) { l.skipValidate = true }
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":5000")
	v.SetDefault("http.max_body_bytes", 1<<20)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.trusted_proxies", []string{})
	v.SetDefault("grpc.addr", "")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "enterprise-pro")
	v.SetDefault("auth.access_ttl", 8*time.Hour)
	v.SetDefault("auth.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("auth.min_password_length", 6)
	v.SetDefault("audit.buffer", 256)
	v.SetDefault("audit.history_limit", 50)
	v.SetDefault("ratelimit.login_burst", 10)
	v.SetDefault("ratelimit.login_per_second", 1.0)
	v.SetDefault("cors.allowed_origins", []string{
		"http://localhost:3000",
		"http://127.0.0.1:5000",
		"http://localhost:5000",
	})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load resolves configuration and validates it.
func Load(opts ...Option) (Config, error) {
	var l loader
	for _, opt := range opts {
		opt(&l)
	}
	if l.configFile == "" {
		l.configFile = os.Getenv(EnvPrefix + "_CONFIG")
	}

	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil {
			return Config{}, fmt.Errorf("config: load env file %s: %w", l.envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", l.configFile, err)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)
	cfg.HTTP.TrustedProxies = splitList(cfg.HTTP.TrustedProxies)
	if l.skipValidate {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports the first invalid field in a readable form.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
}

// env values arrive as one comma separated element
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
