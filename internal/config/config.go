package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	configName = "nodedeck"
	envPrefix  = "NODEDECK"
)

type Config struct {
	Server       ServerConfig
	DataDir      string
	TemplatesDir string
	ProjectsFile string
	PM2          PM2Config
	Install      InstallConfig
	Log          LogConfig
}

type ServerConfig struct {
	Address string
}

type PM2Config struct {
	Binary  string
	Timeout time.Duration
}

type InstallConfig struct {
	Timeout time.Duration
}

type LogConfig struct {
	Level  string
	Pretty bool
	Buffer int
}

func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	v.SetDefault("server.address", "127.0.0.1:8080")
	v.SetDefault("data_dir", filepath.Join(home, ".nodedeck"))
	v.SetDefault("pm2.binary", "pm2")
	v.SetDefault("pm2.timeout", 30*time.Second)
	v.SetDefault("install.timeout", 5*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
	v.SetDefault("logs.buffer", 1000)
}

// LoadConfig layers defaults, an optional nodedeck.yaml and NODEDECK_*
// environment variables. An explicit path must exist; otherwise the file
// is looked up in the data directory and may be absent.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.address", envPrefix+"_SERVER_ADDRESS", "SERVER_ADDRESS"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.AddConfigPath(v.GetString("data_dir"))
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	dataDir := v.GetString("data_dir")
	cfg := &Config{
		Server:       ServerConfig{Address: v.GetString("server.address")},
		DataDir:      dataDir,
		TemplatesDir: v.GetString("templates_dir"),
		ProjectsFile: v.GetString("projects_file"),
		PM2: PM2Config{
			Binary:  v.GetString("pm2.binary"),
			Timeout: v.GetDuration("pm2.timeout"),
		},
		Install: InstallConfig{Timeout: v.GetDuration("install.timeout")},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Pretty: v.GetBool("log.pretty"),
			Buffer: v.GetInt("logs.buffer"),
		},
	}
	if cfg.TemplatesDir == "" {
		cfg.TemplatesDir = filepath.Join(dataDir, "templates")
	}
	if cfg.ProjectsFile == "" {
		cfg.ProjectsFile = filepath.Join(dataDir, "projects.yaml")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Address == "" {
		return errors.New("server.address must not be empty")
	}
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.PM2.Binary == "" {
		return errors.New("pm2.binary must not be empty")
	}
	if c.PM2.Timeout <= 0 {
		return fmt.Errorf("pm2.timeout must be positive, got %s", c.PM2.Timeout)
	}
	if c.Install.Timeout <= 0 {
		return fmt.Errorf("install.timeout must be positive, got %s", c.Install.Timeout)
	}
	if c.Log.Buffer <= 0 {
		return fmt.Errorf("logs.buffer must be positive, got %d", c.Log.Buffer)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
