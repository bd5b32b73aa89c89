// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	RepositoryPostgres = "postgres"
	RepositorySQLite   = "sqlite"
	RepositoryInMemory = "inmemory"
)

const DefaultPath = "config.yml"

// MinSecretLength - минимальная длина auth.secret для хранилищ на диске (256 бит для HS256)
const MinSecretLength = 32

// DevSecret годится только для inmemory: с ним подписи токенов предсказуемы
const DevSecret = "dev-secret"

// значения-заглушки из примеров конфигурации
var placeholderSecrets = map[string]bool{
	DevSecret:   true,
	"change-me": true,
	"changeme":  true,
	"secret":    true,
}

// EnvPrefix - префикс переменных окружения, например PLANNER_DATABASE_URL
const EnvPrefix = "PLANNER"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Repository RepositoryConfig `yaml:"repository"`
	Auth       AuthConfig       `yaml:"auth"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	RateLimit       int           `yaml:"rate_limit"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	SecureCookies   bool          `yaml:"secure_cookies"`
}

type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	SQLitePath     string        `yaml:"sqlite_path"`
	MaxConnections int           `yaml:"max_connections"`
	MinConnections int           `yaml:"min_connections"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
}

type LoggingConfig struct {
	Development bool `yaml:"development"`
}

type RepositoryConfig struct {
	Type string `yaml:"type"` // "postgres", "sqlite" или "inmemory"
}

type AuthConfig struct {
	Secret        string        `yaml:"secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	AppPassword   string        `yaml:"app_password"`
	AdminPassword string        `yaml:"admin_password"`
	BcryptCost    int           `yaml:"bcrypt_cost"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "5011",
			Host:            "127.0.0.1",
			AllowedOrigins:  []string{"http://localhost:5011"},
			RateLimit:       100,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			SQLitePath:     "planner.db",
			MaxConnections: 10,
			MinConnections: 2,
			IdleTimeout:    5 * time.Minute,
		},
		Logging:    LoggingConfig{Development: true},
		Repository: RepositoryConfig{Type: RepositoryInMemory},
		Auth: AuthConfig{
			Secret:     DevSecret,
			SessionTTL: 7 * 24 * time.Hour,
			BcryptCost: 12,
		},
	}
}

// Load читает YAML-файл (если он есть) поверх значений по умолчанию и
// применяет переменные окружения с префиксом PLANNER_.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("не могу открыть %s: %w", path, err)
	default:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("ошибка парсинга %s: %w", path, err)
		}
	}

	applyEnv(cfg, newEnv())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func applyEnv(cfg *Config, v *viper.Viper) {
	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	setInt := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}

	setString("server.port", &cfg.Server.Port)
	setString("server.host", &cfg.Server.Host)
	setInt("server.rate_limit", &cfg.Server.RateLimit)
	setDuration("server.read_timeout", &cfg.Server.ReadTimeout)
	setDuration("server.write_timeout", &cfg.Server.WriteTimeout)
	setDuration("server.shutdown_timeout", &cfg.Server.ShutdownTimeout)
	if v.IsSet("server.secure_cookies") {
		cfg.Server.SecureCookies = v.GetBool("server.secure_cookies")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = splitList(v.GetString("server.allowed_origins"))
	}

	setString("database.url", &cfg.Database.URL)
	setString("database.sqlite_path", &cfg.Database.SQLitePath)
	setInt("database.max_connections", &cfg.Database.MaxConnections)
	setInt("database.min_connections", &cfg.Database.MinConnections)
	setDuration("database.idle_timeout", &cfg.Database.IdleTimeout)

	if v.IsSet("logging.development") {
		cfg.Logging.Development = v.GetBool("logging.development")
	}
	setString("repository.type", &cfg.Repository.Type)

	setString("auth.secret", &cfg.Auth.Secret)
	setDuration("auth.session_ttl", &cfg.Auth.SessionTTL)
	setString("auth.app_password", &cfg.Auth.AppPassword)
	setString("auth.admin_password", &cfg.Auth.AdminPassword)
	setInt("auth.bcrypt_cost", &cfg.Auth.BcryptCost)
}

func splitList(raw string) []string {
	res := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}

func (c *Config) Validate() error {
	switch c.Repository.Type {
	case RepositoryPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url обязателен для repository.type=postgres")
		}
	case RepositorySQLite:
		if c.Database.SQLitePath == "" {
			return errors.New("database.sqlite_path обязателен для repository.type=sqlite")
		}
	case RepositoryInMemory:
	default:
		return fmt.Errorf("неизвестный repository.type: %q", c.Repository.Type)
	}
	if c.Auth.Secret == "" {
		return errors.New("auth.secret не может быть пустым")
	}
	if c.Repository.Type != RepositoryInMemory {
		if placeholderSecrets[strings.ToLower(c.Auth.Secret)] {
			return fmt.Errorf("auth.secret %q - значение из примера, задайте свой (PLANNER_AUTH_SECRET)", c.Auth.Secret)
		}
		if len(c.Auth.Secret) < MinSecretLength {
			return fmt.Errorf("auth.secret должен быть не короче %d байт для repository.type=%s", MinSecretLength, c.Repository.Type)
		}
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth.session_ttl должен быть положительным")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
