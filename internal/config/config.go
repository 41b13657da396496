package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Database  DatabaseConfig  `envPrefix:"DB_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	OpenFGA   OpenFGAConfig   `envPrefix:"OPENFGA_"`
	Storage   StorageConfig   `envPrefix:"STORAGE_"`
	Telemetry TelemetryConfig `envPrefix:"OTEL_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

type ServerConfig struct {
	Host           string        `env:"HOST" envDefault:"localhost"`
	Port           string        `env:"PORT" envDefault:"3001"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`
	Environment    string        `env:"ENVIRONMENT" envDefault:"development"`
	SessionSecure  bool          `env:"SESSION_SECURE" envDefault:"false"`
}

type DatabaseConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"password"`
	Name     string `env:"NAME" envDefault:"jogosescolares"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"`
}

// DSN renders the connection string shared by pgx, lib/pq and the session storage.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Enabled  bool   `env:"ENABLED" envDefault:"false"`
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type OpenFGAConfig struct {
	Enabled              bool   `env:"ENABLED" envDefault:"false"`
	APIURL               string `env:"API_URL" envDefault:"http://localhost:8080"`
	APIToken             string `env:"API_TOKEN"`
	StoreID              string `env:"STORE_ID"`
	AuthorizationModelID string `env:"AUTHORIZATION_MODEL_ID"`
}

type StorageConfig struct {
	Type      string `env:"TYPE" envDefault:"local"`
	LocalPath string `env:"LOCAL_PATH" envDefault:"./data/documents"`
	Bucket    string `env:"S3_BUCKET"`
	Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"S3_ENDPOINT"`
}

type TelemetryConfig struct {
	Enabled        bool   `env:"ENABLED" envDefault:"false"`
	Endpoint       string `env:"EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	ServiceName    string `env:"SERVICE_NAME" envDefault:"jogosescolares"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"0.1.0"`
}

type RateLimitConfig struct {
	Window   time.Duration `env:"WINDOW" envDefault:"1m"`
	Register int           `env:"REGISTER" envDefault:"10"`
	Login    int           `env:"LOGIN" envDefault:"20"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment take precedence over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
