package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/olliecrow/rec_availability_monitor/internal/recgov"
)

const (
	EnvPrefix = "REC_AVAILABILITY"
	appDir    = "rec-availability"
	fileName  = "config.yaml"

	DefaultParallelism = 4
	DefaultInterval    = 5 * time.Minute
	MinInterval        = 30 * time.Second
)

// Config holds settings shared by every command. Flags override these after
// Load.
type Config struct {
	BaseURL     string        `mapstructure:"base_url"`
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Parallelism int           `mapstructure:"parallelism"`
	Retries     int           `mapstructure:"retries"`
	NotifyCmd   string        `mapstructure:"notify_cmd"`
	Interval    time.Duration `mapstructure:"interval"`

	// Path is the file the settings were read from, empty when none was found.
	Path string `mapstructure:"-"`
}

func Defaults() Config {
	return Config{
		BaseURL:     recgov.DefaultBaseURL,
		UserAgent:   recgov.DefaultUserAgent,
		Timeout:     recgov.DefaultTimeout,
		Parallelism: DefaultParallelism,
		Retries:     recgov.DefaultRetries,
		Interval:    DefaultInterval,
	}
}

// DefaultPath returns the config file location under XDG_CONFIG_HOME, falling
// back to ~/.config.
func DefaultPath() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); dir != "" {
		return filepath.Join(dir, appDir, fileName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".config", appDir, fileName)
}

// Load reads path (or DefaultPath when empty) and applies REC_AVAILABILITY_*
// environment overrides. A missing file is not an error; a malformed one is.
// An explicitly named file must exist.
func Load(path string) (Config, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Defaults()
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("user_agent", def.UserAgent)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("parallelism", def.Parallelism)
	v.SetDefault("retries", def.Retries)
	v.SetDefault("notify_cmd", "")
	v.SetDefault("interval", def.Interval)

	var used string
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
			used = path
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("stat config %s: %w", path, err)
		} else if explicit {
			return Config{}, fmt.Errorf("config file %s not found", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Path = used
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.BaseURL) == "" {
		problems = append(problems, "base_url must not be empty")
	}
	if c.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if c.Parallelism < 1 {
		problems = append(problems, "parallelism must be at least 1")
	}
	if c.Retries < 0 {
		problems = append(problems, "retries must not be negative")
	}
	if c.Interval < MinInterval {
		problems = append(problems, fmt.Sprintf("interval must be at least %s", MinInterval))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ClientOptions maps the config onto recgov client options.
func (c Config) ClientOptions() recgov.Options {
	return recgov.Options{
		BaseURL:   c.BaseURL,
		UserAgent: c.UserAgent,
		Timeout:   c.Timeout,
		Retries:   c.Retries,
	}
}
