// Package config loads odatasql settings from a YAML file or an object
// store, then applies .env and ODATASQL_* environment overrides.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/odatasql/internal/database"
	"github.com/koustreak/odatasql/internal/errs"
	"github.com/koustreak/odatasql/internal/filestore"
	"github.com/koustreak/odatasql/internal/logger"
	"github.com/koustreak/odatasql/internal/server"
)

// DefaultPath is where config init writes and serve reads by default.
const DefaultPath = "config/odatasql.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ODATASQL_"

// Config is the complete process configuration.
type Config struct {
	Server   *server.Config    `yaml:"server"`
	Database *database.Config  `yaml:"database"`
	Log      *logger.Config    `yaml:"log"`
	Store    *filestore.Config `yaml:"store,omitempty"`
}

// Default returns a config with every section at its defaults. Store is
// nil until an endpoint is configured.
func Default() *Config {
	return &Config{
		Server:   server.DefaultConfig(),
		Database: database.DefaultConfig(),
		Log:      logger.DefaultConfig(),
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error: defaults and the environment are used.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read config file", err)
		default:
			if err := cfg.decode(data); err != nil {
				return nil, err
			}
		}
	}

	return cfg.finish(os.LookupEnv)
}

// LoadFromStore reads the YAML document at loc from an object store.
func LoadFromStore(ctx context.Context, store filestore.Store, loc filestore.Location) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	data, err := filestore.ReadAll(ctx, store, loc.Bucket, loc.Key)
	if err != nil {
		return nil, fmt.Errorf("load config from %s: %w", loc, err)
	}

	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, err
	}
	return cfg.finish(os.LookupEnv)
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errs.Wrap(errs.ErrKindInvalidInput, "failed to load "+f, err)
		}
	}
	return nil
}

// Save writes the config as YAML, readable by the owner only since it
// holds the database password.
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to create config directory", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to write config file", err)
	}
	return nil
}

// SaveToStore uploads the config as YAML to loc.
func (c *Config) SaveToStore(ctx context.Context, store filestore.Store, loc filestore.Location) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	return store.PutObject(ctx, loc.Bucket, loc.Key, data, "application/yaml")
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to encode config", err)
	}
	return data, nil
}

// Validate checks values that would otherwise fail later at connect time.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is required")
	}
	if c.Database.Server == "" {
		problems = append(problems, "database.server is required")
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		problems = append(problems, fmt.Sprintf("database.port %d is out of range", c.Database.Port))
	}
	switch strings.ToLower(c.Database.Encrypt) {
	case "", "disable", "false", "true", "strict", "optional", "mandatory":
	default:
		problems = append(problems, fmt.Sprintf("database.encrypt %q is not a known mode", c.Database.Encrypt))
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not a known level", c.Log.Level))
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be json or console", c.Log.Format))
	}
	if c.Store != nil && c.Store.Endpoint == "" {
		problems = append(problems, "store.endpoint is required when store is set")
	}

	if len(problems) > 0 {
		return errs.New(errs.ErrKindInvalidInput, "invalid configuration: "+strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) decode(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to parse config", err)
	}
	// An explicit empty section decodes to nil.
	def := Default()
	if c.Server == nil {
		c.Server = def.Server
	}
	if c.Database == nil {
		c.Database = def.Database
	}
	if c.Log == nil {
		c.Log = def.Log
	}
	return nil
}

func (c *Config) finish(lookup func(string) (string, bool)) (*Config, error) {
	if err := c.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyEnv overrides fields from ODATASQL_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var bad []string
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				bad = append(bad, EnvPrefix+name)
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				bad = append(bad, EnvPrefix+name)
				return
			}
			*dst = b
		}
	}

	str("LISTEN", &c.Server.Addr)

	str("DB_SERVER", &c.Database.Server)
	integer("DB_PORT", &c.Database.Port)
	str("DB_USERNAME", &c.Database.Username)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_DRIVER", &c.Database.Driver)
	str("DB_ENCRYPT", &c.Database.Encrypt)
	boolean("DB_TRUST_SERVER_CERTIFICATE", &c.Database.TrustServerCertificate)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if _, ok := lookup(EnvPrefix + "STORE_ENDPOINT"); ok && c.Store == nil {
		c.Store = filestore.DefaultConfig("", "", "")
	}
	if c.Store != nil {
		str("STORE_ENDPOINT", &c.Store.Endpoint)
		str("STORE_ACCESS_KEY", &c.Store.AccessKey)
		str("STORE_SECRET_KEY", &c.Store.SecretKey)
		str("STORE_REGION", &c.Store.Region)
		boolean("STORE_USE_SSL", &c.Store.UseSSL)
	}

	if len(bad) > 0 {
		return errs.New(errs.ErrKindInvalidInput, "invalid environment override: "+strings.Join(bad, ", "))
	}
	return nil
}
