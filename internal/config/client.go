package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Client holds CLI settings.
type Client struct {
	// APIURL is the API root including the /api prefix.
	APIURL string `mapstructure:"api_url"`
	// Timeout bounds each HTTP request.
	Timeout time.Duration `mapstructure:"timeout"`
	// SessionFile stores the token and cached profile.
	SessionFile string `mapstructure:"session_file"`
}

// Dir returns $XDG_CONFIG_HOME/activity-portal, falling back to ~/.config.
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "activity-portal")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "activity-portal")
}

// LoadClient reads dir/config.yaml when present; PORTAL_* variables override it.
func LoadClient(dir string) (*Client, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_url", "http://localhost:8080/api")
	v.SetDefault("timeout", "20s")
	v.SetDefault("session_file", filepath.Join(dir, "session.json"))

	var cfg Client
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.APIURL == "" {
		return nil, errors.New("config: api_url must be set")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &cfg, nil
}
