// Package config loads the TokenFSM configuration: a built-in default TOML
// document, an optional file decoded on top of it and environment
// overrides applied last.
package config

import (
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"TokenFSM/internal/automaton"
	"TokenFSM/internal/tokenclass"
)

// DefaultConfig is decoded before any file.
const DefaultConfig = `
# TokenFSM configuration.

[server]
port = "8080"
read-timeout = "30s"
write-timeout = "60s"
idle-timeout = "120s"
shutdown-timeout = "10s"

[log]
# debug, info, warn, error
level = "info"

[store]
# file, bolt
kind = "file"
dir = "data"

[lexicon]
cache-size = 8192
stem-language = "english"

[pipeline]
# standard, whitespace, keyword
analyzer = "standard"
`

// Environment overrides.
const (
	EnvPort       = "TOKENFSM_PORT"
	EnvDataDir    = "TOKENFSM_DATA_DIR"
	EnvLogLevel   = "TOKENFSM_LOG_LEVEL"
	EnvModelStore = "TOKENFSM_MODEL_STORE"
)

// Store kinds.
const (
	StoreFile = "file"
	StoreBolt = "bolt"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Server   ServerConfig   `toml:"server" json:"server"`
	Log      LogConfig      `toml:"log" json:"log"`
	Store    StoreConfig    `toml:"store" json:"store"`
	Lexicon  LexiconConfig  `toml:"lexicon" json:"lexicon"`
	Pipeline PipelineConfig `toml:"pipeline" json:"pipeline"`
	Stages   []StageConfig  `toml:"stage" json:"stages"`
}

type ServerConfig struct {
	Port            string   `toml:"port" json:"port"`
	ReadTimeout     Duration `toml:"read-timeout" json:"read-timeout"`
	WriteTimeout    Duration `toml:"write-timeout" json:"write-timeout"`
	IdleTimeout     Duration `toml:"idle-timeout" json:"idle-timeout"`
	ShutdownTimeout Duration `toml:"shutdown-timeout" json:"shutdown-timeout"`
}

type LogConfig struct {
	Level string `toml:"level" json:"level"`
}

// SlogLevel maps Level to a slog level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type StoreConfig struct {
	Kind string `toml:"kind" json:"kind"`
	Dir  string `toml:"dir" json:"dir"`
}

type PipelineConfig struct {
	Analyzer string `toml:"analyzer" json:"analyzer"`
}

type LexiconConfig struct {
	CacheSize    int    `toml:"cache-size" json:"cache-size"`
	StemLanguage string `toml:"stem-language" json:"stem-language"`
}

// StageConfig describes one pipeline stage and the patterns it is trained
// with.
type StageConfig struct {
	Name      string `toml:"name" json:"name"`
	Kind      string `toml:"kind" json:"kind"`
	Transform string `toml:"transform" json:"transform,omitempty"`

	// Compose names an earlier stage whose matches are swapped in before
	// this stage runs.
	Compose string `toml:"compose" json:"compose,omitempty"`

	// Model names a stored model loaded instead of training from Patterns.
	Model    string            `toml:"model" json:"model,omitempty"`
	Hints    []tokenclass.Rule `toml:"hint" json:"hints,omitempty"`
	Patterns []PatternConfig   `toml:"pattern" json:"patterns,omitempty"`
}

// PatternConfig is a pattern as written in TOML. Pattern is either a string
// in the alternation syntax or an array of words.
type PatternConfig struct {
	Name    string `toml:"name" json:"name"`
	Pattern any    `toml:"pattern" json:"pattern"`
	Mark    []int  `toml:"mark" json:"mark,omitempty"`
	Custom  any    `toml:"custom" json:"custom,omitempty"`
	Discard bool   `toml:"discard" json:"discard,omitempty"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return errors.Wrapf(err, "parse duration %q", text)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Load reads the default configuration, the file at path when path is
// non-empty and the environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	c, err := decode(func(c *Config) (toml.MetaData, error) {
		if path == "" {
			return toml.MetaData{}, nil
		}
		md, err := toml.DecodeFile(path, c)
		return md, errors.Wrapf(err, "decode config file %s", path)
	})
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse decodes data on top of the defaults without consulting the
// environment.
func Parse(data string) (*Config, error) {
	c, err := decode(func(c *Config) (toml.MetaData, error) {
		md, err := toml.Decode(data, c)
		return md, errors.Wrap(err, "decode config")
	})
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func decode(overlay func(*Config) (toml.MetaData, error)) (*Config, error) {
	c := new(Config)
	if _, err := toml.Decode(DefaultConfig, c); err != nil {
		// The default document is a constant.
		panic(errors.Wrap(err, "decode default config"))
	}
	md, err := overlay(c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Wrapf(ErrInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvPort); v != "" {
		c.Server.Port = v
	}
	if v := getenv(EnvDataDir); v != "" {
		c.Store.Dir = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvModelStore); v != "" {
		c.Store.Kind = v
	}
}

// Validate checks the structural rules that do not depend on other
// packages: stage kinds and transforms are checked when the pipeline is
// built.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.Wrapf(ErrInvalidConfig, format, args...)
	}

	if c.Server.Port == "" {
		return invalid("server.port is empty")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q", c.Log.Level)
	}
	switch c.Store.Kind {
	case StoreFile, StoreBolt:
	default:
		return invalid("store.kind %q", c.Store.Kind)
	}
	if c.Store.Dir == "" {
		return invalid("store.dir is empty")
	}

	seen := make(map[string]bool, len(c.Stages))
	for i, s := range c.Stages {
		if s.Name == "" {
			return invalid("stage %d has no name", i)
		}
		if seen[s.Name] {
			return invalid("duplicate stage %q", s.Name)
		}
		if s.Compose != "" && !seen[s.Compose] {
			return invalid("stage %q composes %q, which is not an earlier stage", s.Name, s.Compose)
		}
		seen[s.Name] = true
		for k, p := range s.Patterns {
			if _, err := p.Convert(); err != nil {
				return invalid("stage %q pattern %d: %v", s.Name, k, err)
			}
		}
	}
	return nil
}

// Stage returns the stage named name.
func (c *Config) Stage(name string) (StageConfig, bool) {
	for _, s := range c.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageConfig{}, false
}

// StageNames returns the configured stage names, sorted.
func (c *Config) StageNames() []string {
	names := make([]string, len(c.Stages))
	for i, s := range c.Stages {
		names[i] = s.Name
	}
	sort.Strings(names)
	return names
}

// Definition is a decoded pattern: Text when the pattern was a string,
// Words when it was an array.
type Definition struct {
	Name    string
	Text    string
	Words   []string
	Mark    *automaton.Mark
	Custom  any
	Discard bool
}

// Convert normalizes the loosely typed TOML fields.
func (p PatternConfig) Convert() (Definition, error) {
	d := Definition{Name: p.Name, Custom: p.Custom, Discard: p.Discard}
	if p.Name == "" {
		return d, errors.New("pattern has no name")
	}

	switch v := p.Pattern.(type) {
	case string:
		d.Text = v
	case []any:
		for _, w := range v {
			s, ok := w.(string)
			if !ok {
				return d, errors.Errorf("pattern %q: array element %v is not a string", p.Name, w)
			}
			d.Words = append(d.Words, s)
		}
	case []string:
		d.Words = v
	case nil:
		return d, errors.Errorf("pattern %q has no pattern", p.Name)
	default:
		return d, errors.Errorf("pattern %q: unsupported pattern type %T", p.Name, v)
	}

	switch len(p.Mark) {
	case 0:
	case 2:
		d.Mark = &automaton.Mark{First: p.Mark[0], Last: p.Mark[1]}
	default:
		return d, errors.Errorf("pattern %q: mark needs 2 elements, got %d", p.Name, len(p.Mark))
	}
	return d, nil
}
