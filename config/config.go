package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	NATS     NATSConfig     `yaml:"nats"`
	JWT      JWTConfig      `yaml:"jwt"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// PublicBaseURL is used to build links sent in emails.
	PublicBaseURL string `yaml:"publicBaseURL"`
	// CertFile/KeyFile enable TLS when both are set.
	CertFile string `yaml:"certFile"`
	KeyFile  string `yaml:"keyFile"`
	// CACertFile, when set, requires client certificates signed by it.
	CACertFile string `yaml:"caCertFile"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type JWTConfig struct {
	// Secret signs HS256 tokens. If empty, read from env SECRET_KEY.
	Secret string `yaml:"secret"`
	// TokenTTLHours defaults to 24.
	TokenTTLHours int `yaml:"tokenTTLHours"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type TracingConfig struct {
	JaegerEndpoint string `yaml:"jaegerEndpoint"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		HTTP:    HTTPConfig{Addr: "0.0.0.0:8000", PublicBaseURL: "http://localhost:8000"},
		Storage: StorageConfig{DBPath: "./chirp.db"},
		Redis:   RedisConfig{Addr: "localhost:6379"},
		NATS:    NATSConfig{URL: "nats://localhost:4222"},
		JWT:     JWTConfig{TokenTTLHours: 24},
		Tracing: TracingConfig{JaegerEndpoint: "http://localhost:14268/api/traces"},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.JWT.Secret == "" {
		c.JWT.Secret = os.Getenv("SECRET_KEY")
	}
	if v := os.Getenv("DB_PATH"); v != "" && c.Storage.DBPath == "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		c.Tracing.JaegerEndpoint = v
	}
	if c.SMTP.Password == "" {
		c.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	}
	if c.HTTP.CertFile == "" {
		c.HTTP.CertFile = os.Getenv("CERT")
	}
	if c.HTTP.KeyFile == "" {
		c.HTTP.KeyFile = os.Getenv("KEY")
	}
	if c.HTTP.CACertFile == "" {
		c.HTTP.CACertFile = os.Getenv("CA_CERT")
	}
}

// Load reads YAML config from path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ResolveEnv()
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}
