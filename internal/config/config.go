package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string    `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string    `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Storage    string    `yaml:"storage" env:"STORAGE" env-default:"redis"`
	Redis      Redis     `yaml:"redis"`
	Postgres   Postgres  `yaml:"postgres"`
	Telemetry  Telemetry `yaml:"telemetry"`

	// browser origins allowed on the websocket; empty accepts any origin
	AllowedOrigins []string `yaml:"allowed-origins" env:"ALLOWED_ORIGINS" env-separator:","`
}

const (
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

type Redis struct {
	Host    string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port    string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	GameTTL time.Duration `yaml:"game-ttl" env:"REDIS_GAME_TTL" env-default:"24h"`
}

type Postgres struct {
	DSN string `yaml:"dsn" env:"POSTGRES_DSN" env-default:""`
}

type Telemetry struct {
	Enabled        bool   `yaml:"enabled" env:"TELEMETRY_ENABLED" env-default:"false"`
	ServiceName    string `yaml:"service-name" env:"TELEMETRY_SERVICE_NAME" env-default:"pebbles-backend"`
	ServiceVersion string `yaml:"service-version" env:"TELEMETRY_SERVICE_VERSION" env-default:"0.1.0"`
	// OTLP HTTP endpoint URL; empty leaves it to OTEL_EXPORTER_OTLP_* variables
	Endpoint string `yaml:"endpoint" env:"TELEMETRY_ENDPOINT"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

// HasLedger reports whether finished games should be recorded in Postgres.
func (that *Postgres) HasLedger() bool {
	return that.DSN != ""
}
