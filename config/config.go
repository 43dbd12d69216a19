// Package config loads the YAML configuration shared by fam and famhostd.
//
// Configuration is read from a single file named by the FAM_CONFIG
// environment variable or by a --config flag. Unset fields keep the values of
// Default. The only expansion performed is ${VAR} and ${VAR:-default} in
// paths.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"fam.dev/fam/internal/logging"
	"fam.dev/fam/store"
	"fam.dev/fam/store/localfs"
)

// EnvVar names the environment variable read by Load.
const EnvVar = "FAM_CONFIG"

// Write policies for multi-backend stores.
const (
	WriteFirst = "first"
	WriteAll   = "all"
)

// Store backend names.
const (
	BackendMemory  = "memory"
	BackendLocalFS = "localfs"
)

// Config is the top-level configuration.
type Config struct {
	Host     HostConfig     `yaml:"host"`
	Store    StoreConfig    `yaml:"store"`
	Identity IdentityConfig `yaml:"identity"`
	Log      LogConfig      `yaml:"log"`
}

// HostConfig configures the host channel on both ends.
type HostConfig struct {
	// Target is the gRPC address fam dials.
	Target string `yaml:"target"`
	// Listen is the address famhostd serves on.
	Listen string `yaml:"listen"`

	DialTimeout time.Duration `yaml:"dial_timeout"`
	// CallTimeout applies per call when non-zero.
	CallTimeout time.Duration `yaml:"call_timeout"`
	// MaxMsgBytes sets the gRPC send/recv limit when non-zero.
	MaxMsgBytes int `yaml:"max_msg_bytes"`

	// ShareTTL is the lifetime of delegations issued by ShareBucket.
	ShareTTL time.Duration `yaml:"share_ttl"`
}

// StoreConfig describes the block store behind bucket snapshots.
//
// WritePolicy values:
//   - "first" (default): write only to the first backend; reads fall back in order
//   - "all": write to all backends and require link equality
//
// Example:
//
//	store:
//	  write_policy: all
//	  backends:
//	    - name: localfs
//	      dir: ${HOME}/.local/share/fam/blocks
//	    - name: memory
//	      id: scratch
type StoreConfig struct {
	WritePolicy string          `yaml:"write_policy"`
	Backends    []BackendConfig `yaml:"backends"`
}

type BackendConfig struct {
	// Name is the backend kind: "memory" or "localfs".
	Name string `yaml:"name"`
	// ID is an optional stable alias. If empty, Name is used.
	ID string `yaml:"id,omitempty"`
	// Dir is the root directory of a localfs backend.
	Dir string `yaml:"dir,omitempty"`
}

// IdentityConfig locates the host agent's signer on disk.
type IdentityConfig struct {
	KeyDir  string `yaml:"key_dir"`
	KeyName string `yaml:"key_name"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used as a base before loading a file.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Host: HostConfig{
			Target:      "127.0.0.1:7777",
			Listen:      "127.0.0.1:7777",
			DialTimeout: 5 * time.Second,
			ShareTTL:    30 * 24 * time.Hour,
		},
		Store: StoreConfig{
			WritePolicy: WriteFirst,
			Backends: []BackendConfig{
				{Name: BackendLocalFS, Dir: filepath.Join(homeDir, ".local", "share", "fam", "blocks")},
			},
		},
		Identity: IdentityConfig{
			KeyDir:  filepath.Join(homeDir, ".config", "fam", "keys"),
			KeyName: "agent",
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
	}
}

// Load loads configuration from the file named by FAM_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your fam.yaml config file, or use --config flag", EnvVar)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path on top of Default and validates it.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: empty config path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	c.Identity.KeyDir = expandVars(c.Identity.KeyDir, vars)
	for i := range c.Store.Backends {
		c.Store.Backends[i].Dir = expandVars(c.Store.Backends[i].Dir, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. vars are checked
// before the environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var err error
	if c.Host.DialTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("host.dial_timeout must not be negative"))
	}
	if c.Host.CallTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("host.call_timeout must not be negative"))
	}
	if c.Host.MaxMsgBytes < 0 {
		err = multierr.Append(err, fmt.Errorf("host.max_msg_bytes must not be negative"))
	}
	if c.Host.ShareTTL <= 0 {
		err = multierr.Append(err, fmt.Errorf("host.share_ttl must be positive"))
	}
	err = multierr.Append(err, c.Store.Validate())
	if c.Identity.KeyName == "" {
		err = multierr.Append(err, fmt.Errorf("identity.key_name is required"))
	}
	if _, lerr := logging.ParseLevel(c.Log.Level); lerr != nil {
		err = multierr.Append(err, lerr)
	}
	switch c.Log.Format {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		err = multierr.Append(err, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	return err
}

// Validate checks the store section.
func (s StoreConfig) Validate() error {
	var err error
	if len(s.Backends) == 0 {
		err = multierr.Append(err, errors.New("store: at least one backend is required"))
	}
	seen := make(map[string]bool, len(s.Backends))
	for _, b := range s.Backends {
		switch b.Name {
		case BackendMemory:
		case BackendLocalFS:
			if b.Dir == "" {
				err = multierr.Append(err, fmt.Errorf("store: localfs backend %q needs a dir", b.id()))
			}
		case "":
			err = multierr.Append(err, errors.New("store: backend name is required"))
			continue
		default:
			err = multierr.Append(err, fmt.Errorf("store: unknown backend %q", b.Name))
		}
		if seen[b.id()] {
			err = multierr.Append(err, fmt.Errorf("store: duplicate backend id %q", b.id()))
		}
		seen[b.id()] = true
	}
	switch s.WritePolicy {
	case "", WriteFirst, WriteAll:
	default:
		err = multierr.Append(err, fmt.Errorf("store: invalid write_policy %q", s.WritePolicy))
	}
	return err
}

func (b BackendConfig) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

// Open builds the configured block store. A single backend is returned as
// is; several are combined per WritePolicy.
func (s StoreConfig) Open() (store.Store, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	named := make([]store.Named, 0, len(s.Backends))
	for _, b := range s.Backends {
		var st store.Store
		switch b.Name {
		case BackendMemory:
			st = store.NewMemory()
		case BackendLocalFS:
			fs, err := localfs.New(b.Dir)
			if err != nil {
				return nil, fmt.Errorf("store: backend %q: %w", b.id(), err)
			}
			st = fs
		}
		named = append(named, store.Named{Name: b.id(), Store: st})
	}

	if len(named) == 1 {
		return named[0].Store, nil
	}
	if s.WritePolicy == WriteAll {
		return store.Replicating{Backends: named}, nil
	}
	stores := make([]store.Store, 0, len(named))
	for _, n := range named {
		stores = append(stores, n.Store)
	}
	return store.Multi{Stores: stores}, nil
}
