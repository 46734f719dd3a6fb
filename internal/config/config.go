// Package config provides configuration management for flashconn: yaml
// files, FLASHCONN_* environment overrides, defaults, and validation.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v2"

	"github.com/flashconn/flashconn/pkg/errors"
)

// Configuration is the complete flashconn configuration.
type Configuration struct {
	Array  ArrayConfig  `yaml:"array"`
	Fabric FabricConfig `yaml:"fabric"`
	Naming NamingConfig `yaml:"naming"`
}

// ArrayConfig describes how to reach the storage array's management API.
type ArrayConfig struct {
	Address        string        `yaml:"address"`
	APIToken       string        `yaml:"api_token"`
	VerifyTLS      bool          `yaml:"verify_tls"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	DefaultPool    string        `yaml:"default_pool"`
	// MaxVolumeSize caps provisioning requests; human-readable ("10TiB").
	// Empty means no cap.
	MaxVolumeSize string `yaml:"max_volume_size"`
}

// FabricConfig controls Fibre Channel fabric zoning lookup.
type FabricConfig struct {
	// UseLookupService enables the fabric zoning lookup collaborator when
	// one is wired in. Without it every initiator is assumed reachable to
	// every target.
	UseLookupService bool `yaml:"use_lookup_service"`
}

// NamingConfig controls generated object names on the array.
type NamingConfig struct {
	// HostSuffix marks hosts and groups this library created and may
	// garbage-collect. Admin-named objects never match it.
	HostSuffix string `yaml:"host_suffix"`
	DefaultOS  string `yaml:"default_os"`
}

// NewDefault returns a configuration with sensible defaults.
func NewDefault() *Configuration {
	return &Configuration{
		Array: ArrayConfig{
			VerifyTLS:      true,
			RequestTimeout: 30 * time.Second,
		},
		Naming: NamingConfig{
			HostSuffix: "flashconn",
			DefaultOS:  "linux",
		},
	}
}

// LoadFromFile merges a yaml file into the configuration.
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to read config file")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to parse config file")
	}
	return nil
}

// LoadFromEnv merges FLASHCONN_* environment variables. Credentials are the
// usual reason to prefer the environment over a file on disk.
func (c *Configuration) LoadFromEnv() {
	if val := os.Getenv("FLASHCONN_ARRAY_ADDRESS"); val != "" {
		c.Array.Address = val
	}
	if val := os.Getenv("FLASHCONN_API_TOKEN"); val != "" {
		c.Array.APIToken = val
	}
	if val := os.Getenv("FLASHCONN_VERIFY_TLS"); val != "" {
		c.Array.VerifyTLS = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("FLASHCONN_REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Array.RequestTimeout = d
		}
	}
	if val := os.Getenv("FLASHCONN_DEFAULT_POOL"); val != "" {
		c.Array.DefaultPool = val
	}
}

// Validate checks the configuration before any remote call is attempted.
func (c *Configuration) Validate() error {
	if c.Array.Address == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "array address is required")
	}
	if c.Array.APIToken == "" {
		return errors.New(errors.ErrCodeCredentialsMissing, "array API token is required")
	}
	if c.Array.RequestTimeout < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "request_timeout cannot be negative")
	}
	if _, err := c.MaxVolumeSizeBytes(); err != nil {
		return err
	}
	if c.Naming.HostSuffix == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "naming host_suffix cannot be empty")
	}
	return nil
}

// MaxVolumeSizeBytes parses the provisioning cap. Zero means uncapped.
func (c *Configuration) MaxVolumeSizeBytes() (int64, error) {
	if c.Array.MaxVolumeSize == "" {
		return 0, nil
	}
	n, err := units.RAMInBytes(c.Array.MaxVolumeSize)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid max_volume_size")
	}
	return n, nil
}
