/*

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package commons holds the shared wiring of the CLI subcommands: config
// loading, logger construction, and store connection.
package commons

import (
	"context"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rallyrank/rallyrank/pkg/cache"
	"github.com/rallyrank/rallyrank/pkg/storage/postgres"
)

// Config is the CLI configuration file.
type Config struct {
	DatabaseURL     string `yaml:"databaseUrl"`
	LogLevel        string `yaml:"logLevel"`
	CacheTTLSeconds int    `yaml:"cacheTtlSeconds"`
}

// LoadConfig reads the YAML config at path. A missing path yields the
// defaults; the DATABASE_URL environment variable overrides the file.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		LogLevel:        "INFO",
		CacheTTLSeconds: int(cache.DefaultTTL / time.Second),
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parsing config file")
		}
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}
	return cfg, nil
}

// NewLogger builds a zap-backed logr.Logger at the configured level.
func NewLogger(level string) (logr.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	switch level {
	case "DEBUG":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "WARNING":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "ERROR":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapLog, err := zapCfg.Build()
	if err != nil {
		return logr.Logger{}, errors.Wrap(err, "building logger")
	}
	return zapr.NewLogger(zapLog), nil
}

// ConnectStore opens the Postgres store and ensures the schema exists.
func ConnectStore(ctx context.Context, cfg *Config) (*postgres.Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("no database URL configured (set databaseUrl or DATABASE_URL)")
	}
	store, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
