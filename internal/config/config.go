// Package config loads devnote settings.
//
// Values come from three layers, later ones winning:
//
//  1. `default:"..."` struct tags (github.com/creasty/defaults)
//  2. an optional YAML file
//  3. environment variables (PORT, DB_PATH, JWT_SECRET, DEVNOTE_*)
//
// The result is checked with validator/v10 tags before it is returned.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	// File is the absolute path of the loaded YAML file, empty when none was used.
	File     string         `yaml:"-"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Notebook NotebookConfig `yaml:"notebook"`
	Sync     SyncConfig     `yaml:"sync"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read-timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write-timeout" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle-timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout" default:"30s"`
	// MaxUploadMB caps the size of an imported file.
	MaxUploadMB int64 `yaml:"max-upload-mb" default:"10" validate:"min=1"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" default:"data/devnote.db" validate:"required"`
}

type AuthConfig struct {
	// JWTSecret enables token authentication. Without it every request acts
	// as DefaultOwner.
	JWTSecret    string        `yaml:"jwt-secret" validate:"omitempty,min=16"`
	DefaultOwner string        `yaml:"default-owner" default:"local" validate:"required"`
	TokenTTL     time.Duration `yaml:"token-ttl" default:"24h"`
}

type LogConfig struct {
	Level string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
}

type NotebookConfig struct {
	OrphanPolicy      string `yaml:"orphan-policy" default:"keep" validate:"oneof=keep uncategorized"`
	UncategorizedName string `yaml:"uncategorized-name" default:"Uncategorized" validate:"required"`
	InlineCodeMax     int    `yaml:"inline-code-max" default:"160" validate:"min=150,max=200"`
	TableClass        string `yaml:"table-class" default:"devnote-table" validate:"required"`
}

type SyncConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Endpoint        string        `yaml:"endpoint" validate:"omitempty,url"`
	Region          string        `yaml:"region" default:"us-east-1"`
	Bucket          string        `yaml:"bucket" validate:"required_if=Enabled true"`
	Prefix          string        `yaml:"prefix" default:"devnote"`
	AccessKeyID     string        `yaml:"access-key-id"`
	SecretAccessKey string        `yaml:"secret-access-key"`
	Debounce        time.Duration `yaml:"debounce" default:"2s"`
}

// Default returns the configuration with only struct-tag defaults applied.
func Default() *Config {
	c := new(Config)
	if err := defaults.Set(c); err != nil {
		// Only malformed default tags fail, which is a programming error.
		panic(fmt.Sprintf("config: applying defaults: %v", err))
	}
	return c
}

// Load builds the configuration. path may be empty; a missing file named by
// path is an error.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("config: resolving %s: %w", path, err)
		}
		raw, err := os.ReadFile(abs)
		if err != nil {
			return nil, fmt.Errorf("config: reading file: %w", err)
		}
		if err := decodeYAML(raw, c); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", abs, err)
		}
		// Fill fields the file set to their zero value.
		if err := defaults.Set(c); err != nil {
			return nil, fmt.Errorf("config: re-applying defaults: %w", err)
		}
		c.File = abs
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// decodeYAML rejects unknown keys so typos surface at startup.
func decodeYAML(raw []byte, c *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overrides fields from the environment. Setting DEVNOTE_S3_BUCKET
// turns sync on.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT value %q", v)
		}
		c.Server.Port = port
	}
	str("DB_PATH", &c.Database.Path)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("DEVNOTE_DEFAULT_OWNER", &c.Auth.DefaultOwner)
	str("DEVNOTE_LOG_LEVEL", &c.Log.Level)
	str("DEVNOTE_ORPHAN_POLICY", &c.Notebook.OrphanPolicy)

	str("DEVNOTE_S3_ENDPOINT", &c.Sync.Endpoint)
	str("DEVNOTE_S3_REGION", &c.Sync.Region)
	str("DEVNOTE_S3_PREFIX", &c.Sync.Prefix)
	str("DEVNOTE_S3_ACCESS_KEY_ID", &c.Sync.AccessKeyID)
	str("DEVNOTE_S3_SECRET_ACCESS_KEY", &c.Sync.SecretAccessKey)
	if v, ok := lookup("DEVNOTE_S3_BUCKET"); ok && v != "" {
		c.Sync.Bucket = v
		c.Sync.Enabled = true
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field's constraints and reports them together.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// Values are left out: the secret fields would end up in logs.
		msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
}

// SlogLevel maps Log.Level to a slog level.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
