package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel          string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort        string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	Redis             Redis  `yaml:"redis"`
	SQLiteStoragePath string `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"./history.db"`
	Oracle            Oracle `yaml:"oracle"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Oracle configures the remote move suggestion model. Disabled means fallback-only play.
type Oracle struct {
	Enabled bool          `yaml:"enabled" env:"ORACLE_ENABLED" env-default:"false"`
	APIKey  string        `yaml:"api-key" env:"ORACLE_API_KEY" env-default:""`
	Model   string        `yaml:"model" env:"ORACLE_MODEL" env-default:"gemini-2.5-flash"`
	BaseURL string        `yaml:"base-url" env:"ORACLE_BASE_URL" env-default:"https://generativelanguage.googleapis.com/v1beta"`
	Timeout time.Duration `yaml:"timeout" env:"ORACLE_TIMEOUT" env-default:"10s"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
