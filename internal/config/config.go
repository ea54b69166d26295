/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SELFDESTRUCT"

// Config is the root configuration.
type Config struct {
	SubscriptionID     string       `mapstructure:"subscription_id"`
	ManagementEndpoint string       `mapstructure:"management_endpoint"`
	ConfigDir          string       `mapstructure:"config_dir"`
	AzBinary           string       `mapstructure:"az_binary"`
	Deploy             DeployConfig `mapstructure:"deploy"`
	Log                LogConfig    `mapstructure:"log"`
}

// DeployConfig tunes workflow deployments.
type DeployConfig struct {
	PollFrequency time.Duration `mapstructure:"poll_frequency"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level   string `mapstructure:"level"`  // debug, info, warn, error
	Format  string `mapstructure:"format"` // console, json
	Verbose bool   `mapstructure:"verbose"`
}

// Loader reads a Config. The zero value is not usable; call NewLoader.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader with defaults and environment overrides set up.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return &Loader{v: v}
}

// BindFlags binds command line flags to configuration keys. Flag names use
// dashes where keys use underscores or dots, e.g. --subscription-id and
// --log-level.
func (l *Loader) BindFlags(flags *pflag.FlagSet) error {
	var errs []error
	flags.VisitAll(func(f *pflag.Flag) {
		key := flagKey(f.Name)
		if key == "" {
			return
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			errs = append(errs, fmt.Errorf("failed to bind flag --%s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

// Load reads config.yaml from the configuration directory, if present, and
// returns the merged configuration.
func (l *Loader) Load() (*Config, error) {
	l.v.AddConfigPath(l.v.GetString("config_dir"))
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.ConfigDir == "" {
		return fmt.Errorf("config_dir must not be empty")
	}
	if c.Deploy.PollFrequency <= 0 {
		return fmt.Errorf("deploy.poll_frequency must be positive, got %s", c.Deploy.PollFrequency)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("subscription_id", "")
	v.SetDefault("management_endpoint", "https://management.azure.com")
	v.SetDefault("config_dir", DefaultConfigDir())
	v.SetDefault("az_binary", "az")
	v.SetDefault("deploy.poll_frequency", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.verbose", false)
}

// DefaultConfigDir is $AZURE_CONFIG_DIR, or ~/.azure when unset.
func DefaultConfigDir() string {
	if dir := os.Getenv("AZURE_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".azure"
	}
	return filepath.Join(home, ".azure")
}

var flagKeys = map[string]string{
	"subscription-id":     "subscription_id",
	"management-endpoint": "management_endpoint",
	"config-dir":          "config_dir",
	"az-binary":           "az_binary",
	"poll-frequency":      "deploy.poll_frequency",
	"log-level":           "log.level",
	"log-format":          "log.format",
	"verbose":             "log.verbose",
}

func flagKey(name string) string {
	return flagKeys[name]
}
