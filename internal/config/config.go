// Package config loads the bot's settings from the environment, an
// optional .env file, and an optional .ovpnbot YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deixis/ovpnbot/internal/provision"
	"github.com/deixis/ovpnbot/internal/runner"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values for optional settings.
const (
	DefaultTimeout         = 2 * time.Minute
	DefaultMaxOutput       = 1 << 20 // 1 MB
	DefaultExtension       = "ovpn"
	DefaultSessionTTL      = 10 * time.Minute
	DefaultSessionCapacity = 1024
	DefaultSerialize       = provision.SerializeGlobal
)

// Environment variable names.
const (
	EnvBotToken   = "BOT_TOKEN"
	EnvWorkingDir = "WORKING_DIR"
	EnvScriptPath = "SCRIPT_PATH"
	EnvSecretCode = "SECRET_CODE"
	EnvConfigFile = "OVPNBOT_CONFIG"
)

// FileName is the YAML file looked up in the working directory when
// OVPNBOT_CONFIG is not set.
const FileName = ".ovpnbot"

// DefaultFallbacks are probed, in order, when the script succeeds but the
// expected <workdir>/<name>.<ext> file is missing. {workdir} and {name}
// are substituted at probe time.
var DefaultFallbacks = []string{
	"{workdir}/{name}.conf",
	"/root/{name}.ovpn",
	"/root/{name}.conf",
}

// Config holds the bot configuration. It is read once at startup and
// treated as immutable afterwards.
type Config struct {
	// From the environment (or .env).
	BotToken   string `yaml:"-"`
	WorkingDir string `yaml:"-"`
	ScriptPath string `yaml:"-"`
	SecretCode string `yaml:"-"`

	// From the optional YAML file.
	RawTimeout   string        `yaml:"timeout"`    // e.g. "2m", "30s"
	RawMaxOutput int           `yaml:"max_output"` // bytes
	RawExtension string        `yaml:"extension"`  // expected artifact extension, without dot
	RawFallbacks []string      `yaml:"fallbacks"`  // candidate path templates
	RawSerialize string        `yaml:"serialize"`  // global, client, none
	Session      SessionConfig `yaml:"session"`
	Debug        bool          `yaml:"debug"` // log Telegram API traffic
}

// SessionConfig bounds the per-chat conversation store.
type SessionConfig struct {
	RawTTL      string `yaml:"ttl"`
	RawCapacity int    `yaml:"capacity"`
}

// Timeout returns the configured script timeout or the default.
func (c *Config) Timeout() time.Duration {
	return parseDuration(c.RawTimeout, DefaultTimeout)
}

// MaxOutputBytes returns the configured per-stream output cap or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// Extension returns the expected artifact extension without a leading dot.
func (c *Config) Extension() string {
	if ext := strings.TrimPrefix(c.RawExtension, "."); ext != "" {
		return ext
	}
	return DefaultExtension
}

// Fallbacks returns the configured fallback templates or the defaults.
// An explicitly empty list in the YAML file disables probing.
func (c *Config) Fallbacks() []string {
	if c.RawFallbacks != nil {
		return c.RawFallbacks
	}
	return DefaultFallbacks
}

// Serialize returns the configured serialization mode or the default.
func (c *Config) Serialize() provision.Serialization {
	if c.RawSerialize != "" {
		return provision.Serialization(c.RawSerialize)
	}
	return DefaultSerialize
}

// SessionTTL returns how long a pending conversation step stays valid.
func (c *Config) SessionTTL() time.Duration {
	return parseDuration(c.Session.RawTTL, DefaultSessionTTL)
}

// SessionCapacity returns the maximum number of tracked conversations.
func (c *Config) SessionCapacity() int {
	if c.Session.RawCapacity > 0 {
		return c.Session.RawCapacity
	}
	return DefaultSessionCapacity
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw != "" {
		d, err := time.ParseDuration(raw)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}

// Validate checks the settings required before serving. The token is only
// required by the Telegram front end, so callers that do not talk to
// Telegram pass requireToken=false.
func (c *Config) Validate(requireToken bool) error {
	if requireToken && c.BotToken == "" {
		return fmt.Errorf("%s is not set", EnvBotToken)
	}
	if c.WorkingDir == "" {
		return fmt.Errorf("%s is not set", EnvWorkingDir)
	}
	info, err := os.Stat(c.WorkingDir)
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("working directory %s is not a directory", c.WorkingDir)
	}
	if err := runner.CheckExecutable(c.ScriptPath); err != nil {
		return fmt.Errorf("%s: %w", EnvScriptPath, err)
	}
	switch c.Serialize() {
	case provision.SerializeGlobal, provision.SerializeClient, provision.SerializeNone:
	default:
		return fmt.Errorf("serialize: unknown mode %q", c.RawSerialize)
	}
	for _, f := range c.Fallbacks() {
		if !strings.Contains(f, "{name}") {
			return fmt.Errorf("fallback %q does not contain {name}", f)
		}
	}
	return nil
}

// Options controls where Load looks for settings.
type Options struct {
	EnvFile    string // .env path; empty means ".env" in the current directory
	ConfigFile string // YAML path; overrides OVPNBOT_CONFIG
}

// Load reads the configuration. Real environment variables take precedence
// over values from the .env file, and the process environment is never
// modified. A missing .env or YAML file is not an error, unless the YAML
// path was given explicitly.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if !os.IsNotExist(err) || opts.EnvFile != "" {
			return nil, fmt.Errorf("reading %s: %w", envFile, err)
		}
		dotenv = map[string]string{}
	}

	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}

	cfg := &Config{}

	explicit := opts.ConfigFile
	if explicit == "" {
		explicit = lookup(EnvConfigFile)
	}
	workingDir := lookup(EnvWorkingDir)

	path := explicit
	if path == "" && workingDir != "" {
		path = filepath.Join(workingDir, FileName)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case os.IsNotExist(err) && explicit == "":
		default:
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	cfg.BotToken = strings.TrimSpace(lookup(EnvBotToken))
	cfg.SecretCode = lookup(EnvSecretCode)
	cfg.WorkingDir = workingDir
	if cfg.WorkingDir != "" {
		if abs, err := filepath.Abs(cfg.WorkingDir); err == nil {
			cfg.WorkingDir = abs
		}
	}
	cfg.ScriptPath = lookup(EnvScriptPath)

	return cfg, nil
}
