package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Server     ServerConfig
	Simulation SimulationConfig
	CORS       CORSConfig `mapstructure:"cors"`
	Upload     UploadConfig
	Database   DatabaseConfig
	Feeds      []FeedConfig
	Log        LogConfig
}

// ServerConfig defines the HTTP listener settings.
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SimulationConfig defines the Monte Carlo engine settings.
// When Seeded is true every run starts from Seed, so identical requests
// produce identical results.
type SimulationConfig struct {
	Trials         int
	PreviewSize    int `mapstructure:"preview_size"`
	Seeded         bool
	Seed           uint64
	MaxTimeHorizon int `mapstructure:"max_time_horizon"`
}

// CORSConfig defines the cross-origin policy. An origin of "*" allows all.
type CORSConfig struct {
	AllowOrigins     []string      `mapstructure:"allow_origins"`
	AllowMethods     []string      `mapstructure:"allow_methods"`
	AllowHeaders     []string      `mapstructure:"allow_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

// AllowsAll reports whether the origin list contains the wildcard.
func (c CORSConfig) AllowsAll() bool {
	for _, o := range c.AllowOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// UploadConfig defines limits for CSV uploads.
type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
	Column   string
}

// DatabaseConfig defines the database connection settings.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string `mapstructure:"sslmode"`
}

// FeedConfig defines a websocket ticker feed whose mid-prices are recorded
// as a level series under Symbol.
type FeedConfig struct {
	Exchange string
	Pair     string
	Symbol   string
	URL      string `mapstructure:"url"`
}

// LogConfig defines the slog handler settings.
type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("simulation.trials", 10000)
	v.SetDefault("simulation.preview_size", 10)
	v.SetDefault("simulation.seeded", true)
	v.SetDefault("simulation.seed", 42)
	v.SetDefault("simulation.max_time_horizon", 1000)

	v.SetDefault("cors.allow_origins", []string{"*"})
	v.SetDefault("cors.allow_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allow_headers", []string{"Origin", "Content-Type", "Accept", "Authorization"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 12*time.Hour)

	v.SetDefault("upload.max_bytes", 10<<20)
	v.SetDefault("upload.column", "return")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "praxis")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "praxis")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults and the environment apply.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
	}

	err = v.Unmarshal(&config)
	return
}
