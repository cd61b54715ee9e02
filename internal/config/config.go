// Package config loads the runtime configuration from the environment, an
// optional .env file and an optional config file.
//
// Every key can be set through an environment variable named after it with
// the REVSCRIPT_ prefix, dots replaced by underscores:
//
//	REVSCRIPT_LOG_LEVEL=debug
//	REVSCRIPT_SCRIPTS_PATHS=./scripts,./npc
//	REVSCRIPT_LUA_TIMEOUT=2s
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "REVSCRIPT"

// Config holds all configuration for the application.
type Config struct {
	AppEnv string

	Log     LogConfig
	Scripts ScriptsConfig
	Lua     LuaConfig
	Otel    OtelConfig
}

// LogConfig configures logging.
type LogConfig struct {
	Level string
}

// ScriptsConfig configures script discovery.
type ScriptsConfig struct {
	Paths []string
}

// LuaConfig configures the script runtime.
type LuaConfig struct {
	Timeout   time.Duration
	QueueSize int
}

// OtelConfig configures tracing export.
type OtelConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

// IsDev reports whether the application runs in development mode.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}

var keys = []string{
	"app.env",
	"log.level",
	"scripts.paths",
	"lua.timeout",
	"lua.queue_size",
	"otel.enabled",
	"otel.endpoint",
	"otel.service_name",
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		AppEnv:  "dev",
		Log:     LogConfig{Level: "info"},
		Scripts: ScriptsConfig{Paths: []string{"./scripts"}},
		Lua:     LuaConfig{Timeout: 5 * time.Second, QueueSize: 100},
		Otel:    OtelConfig{ServiceName: "revscript"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("app.env", d.AppEnv)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("scripts.paths", d.Scripts.Paths)
	v.SetDefault("lua.timeout", d.Lua.Timeout)
	v.SetDefault("lua.queue_size", d.Lua.QueueSize)
	v.SetDefault("otel.enabled", d.Otel.Enabled)
	v.SetDefault("otel.endpoint", d.Otel.Endpoint)
	v.SetDefault("otel.service_name", d.Otel.ServiceName)
}

// Load loads configuration. A .env file in the working directory is read
// into the process environment if it exists. path names an optional config
// file (YAML, TOML or JSON); environment variables override it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	for _, key := range keys {
		env := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		AppEnv:  v.GetString("app.env"),
		Log:     LogConfig{Level: v.GetString("log.level")},
		Scripts: ScriptsConfig{Paths: splitList(v.GetStringSlice("scripts.paths"))},
		Lua: LuaConfig{
			Timeout:   v.GetDuration("lua.timeout"),
			QueueSize: v.GetInt("lua.queue_size"),
		},
		Otel: OtelConfig{
			Enabled:     v.GetBool("otel.enabled"),
			Endpoint:    v.GetString("otel.endpoint"),
			ServiceName: v.GetString("otel.service_name"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList flattens comma separated entries, as produced by list values
// set through the environment.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return &ValidationError{Key: "log.level", Value: c.Log.Level, Message: "unknown level"}
	}
	if len(c.Scripts.Paths) == 0 {
		return &ValidationError{Key: "scripts.paths", Value: c.Scripts.Paths, Message: "at least one path required"}
	}
	if c.Lua.Timeout < 0 {
		return &ValidationError{Key: "lua.timeout", Value: c.Lua.Timeout, Message: "must not be negative"}
	}
	if c.Lua.QueueSize <= 0 {
		return &ValidationError{Key: "lua.queue_size", Value: c.Lua.QueueSize, Message: "must be positive"}
	}
	if c.Otel.Enabled && c.Otel.Endpoint == "" {
		return &ValidationError{Key: "otel.endpoint", Value: c.Otel.Endpoint, Message: "required when tracing is enabled"}
	}
	return nil
}
