// Package config loads analyzer and query server settings from an optional TOML file
// and the environment. Environment variables win over the file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/canopy-network/nodedist/pkg/analysis"
	"github.com/canopy-network/nodedist/pkg/lookup"
	"github.com/canopy-network/nodedist/pkg/registry"
	"github.com/canopy-network/nodedist/pkg/utils"
	"github.com/pelletier/go-toml/v2"
)

// Backends.
const (
	StateFile  = "file"
	StateRedis = "redis"

	GeoIP2Location = "ip2location"
	GeoIPInfo      = "ipinfo"
)

// KeysFile holds API keys next to the registries: {"ipinfo": "<token>"}.
const KeysFile = "keys.json"

// defaultRolePartitioned lists chains analysed per role unless configured otherwise.
var defaultRolePartitioned = map[string]bool{"flow": true}

type Config struct {
	BaseDir      string `toml:"base_dir"`
	JSONDir      string `toml:"json_dir"`
	ConfigDir    string `toml:"config_dir"`
	OutputDir    string `toml:"output_dir"`
	StateBackend string `toml:"state_backend"`

	Lookup     Lookup                 `toml:"lookup"`
	Schedule   Schedule               `toml:"schedule"`
	ClickHouse ClickHouse             `toml:"clickhouse"`
	Redis      Redis                  `toml:"redis"`
	Query      Query                  `toml:"query"`
	Chains     map[string]ChainConfig `toml:"chains"`
}

type Lookup struct {
	GeoBackend      string   `toml:"geo_backend"`
	IP2LocationDB   string   `toml:"ip2location_db"`
	IPInfoToken     string   `toml:"ipinfo_token"`
	IPInfoEndpoints []string `toml:"ipinfo_endpoints"`
	IPInfoRPS       int      `toml:"ipinfo_rps"`
	Resolver        string   `toml:"resolver"`
	Timeout         string   `toml:"timeout"`
	Workers         int      `toml:"workers"`
	CacheSize       int      `toml:"cache_size"`
	RedisCache      bool     `toml:"redis_cache"`
}

type Schedule struct {
	Cron       string   `toml:"cron"`
	RunTimeout string   `toml:"run_timeout"`
	Chains     []string `toml:"chains"`
	// Addr serves health and metrics while the scheduler runs.
	Addr string `toml:"addr"`
}

type ClickHouse struct {
	Enabled  bool   `toml:"enabled"`
	Database string `toml:"database"`
}

// Redis enables run notifications. The connection itself is also opened whenever the
// state backend or the lookup cache needs it.
type Redis struct {
	Enabled bool `toml:"enabled"`
}

type Query struct {
	Addr string `toml:"addr"`
}

// ChainConfig overrides the analysis of one chain. Providers and Countries are the
// tracked defaults used by scheduled runs.
type ChainConfig struct {
	Kind      string   `toml:"kind"`
	Roles     []string `toml:"roles"`
	Providers []string `toml:"providers"`
	Countries []string `toml:"countries"`
}

// Default returns the settings used when neither file nor environment says otherwise.
func Default() *Config {
	return &Config{
		BaseDir:      ".",
		StateBackend: StateFile,
		Lookup: Lookup{
			GeoBackend: GeoIP2Location,
			Resolver:   lookup.DefaultResolver,
			Timeout:    "5s",
			Workers:    lookup.DefaultWorkers(),
			CacheSize:  lookup.DefaultCacheSize,
			IPInfoRPS:  10,
		},
		Schedule: Schedule{
			Cron:       "0 0 3 * * *",
			RunTimeout: "30m",
			Addr:       ":3003",
		},
		ClickHouse: ClickHouse{Database: "nodedist"},
		Query:      Query{Addr: ":3002"},
		Chains:     map[string]ChainConfig{},
	}
}

// Load builds the configuration: defaults, then the TOML file named by NODEDIST_CONFIG
// (when set), then environment overrides, then keys.json for a missing ipinfo token.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("NODEDIST_CONFIG"); path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.fillDirs()
	if err := cfg.readKeys(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	bz, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(bz, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if c.Chains == nil {
		c.Chains = map[string]ChainConfig{}
	}
	return nil
}

func (c *Config) applyEnv() {
	c.BaseDir = utils.Env("NODEDIST_BASE_DIR", c.BaseDir)
	c.JSONDir = utils.Env("NODEDIST_JSON_DIR", c.JSONDir)
	c.ConfigDir = utils.Env("NODEDIST_CONFIG_DIR", c.ConfigDir)
	c.OutputDir = utils.Env("NODEDIST_OUTPUT_DIR", c.OutputDir)
	c.StateBackend = strings.ToLower(utils.Env("STATE_BACKEND", c.StateBackend))

	c.Lookup.GeoBackend = strings.ToLower(utils.Env("GEO_BACKEND", c.Lookup.GeoBackend))
	c.Lookup.IP2LocationDB = utils.Env("IP2LOCATION_DB", c.Lookup.IP2LocationDB)
	c.Lookup.IPInfoToken = utils.Env("IPINFO_TOKEN", c.Lookup.IPInfoToken)
	if eps := os.Getenv("IPINFO_ENDPOINTS"); eps != "" {
		c.Lookup.IPInfoEndpoints = strings.Split(eps, ",")
	}
	c.Lookup.IPInfoRPS = utils.EnvInt("IPINFO_RPS", c.Lookup.IPInfoRPS)
	c.Lookup.Resolver = utils.Env("DNS_RESOLVER", c.Lookup.Resolver)
	c.Lookup.Timeout = utils.Env("LOOKUP_TIMEOUT", c.Lookup.Timeout)
	c.Lookup.Workers = utils.EnvInt("LOOKUP_WORKERS", c.Lookup.Workers)
	c.Lookup.CacheSize = utils.EnvInt("LOOKUP_CACHE_SIZE", c.Lookup.CacheSize)
	c.Lookup.RedisCache = utils.EnvBool("LOOKUP_REDIS_CACHE", c.Lookup.RedisCache)

	c.Schedule.Cron = utils.Env("CRON_SPEC", c.Schedule.Cron)
	c.Schedule.RunTimeout = utils.Env("RUN_TIMEOUT", c.Schedule.RunTimeout)
	if chains := os.Getenv("SCHEDULE_CHAINS"); chains != "" {
		c.Schedule.Chains = strings.Split(chains, ",")
	}

	c.Schedule.Addr = utils.Env("SCHEDULE_ADDR", c.Schedule.Addr)

	c.ClickHouse.Enabled = utils.EnvBool("CLICKHOUSE_ENABLED", c.ClickHouse.Enabled)
	c.Redis.Enabled = utils.EnvBool("REDIS_ENABLED", c.Redis.Enabled)
	c.ClickHouse.Database = utils.Env("CLICKHOUSE_DB", c.ClickHouse.Database)
	c.Query.Addr = utils.Env("QUERY_ADDR", c.Query.Addr)
}

func (c *Config) fillDirs() {
	if c.JSONDir == "" {
		c.JSONDir = filepath.Join(c.BaseDir, "json")
	}
	if c.ConfigDir == "" {
		c.ConfigDir = filepath.Join(c.BaseDir, "config")
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.BaseDir, "results")
	}
	if c.Lookup.IP2LocationDB == "" {
		c.Lookup.IP2LocationDB = filepath.Join(c.ConfigDir, "IP2LOCATION-LITE-DB11.BIN")
	}
}

func (c *Config) readKeys() error {
	if c.Lookup.IPInfoToken != "" {
		return nil
	}
	bz, err := os.ReadFile(filepath.Join(c.ConfigDir, KeysFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var keys map[string]string
	if err := json.Unmarshal(bz, &keys); err != nil {
		return fmt.Errorf("parse %s: %w", KeysFile, err)
	}
	c.Lookup.IPInfoToken = keys["ipinfo"]
	return nil
}

// Validate rejects unknown backends, kinds and durations.
func (c *Config) Validate() error {
	switch c.StateBackend {
	case StateFile, StateRedis:
	default:
		return fmt.Errorf("unknown state backend %q", c.StateBackend)
	}
	switch c.Lookup.GeoBackend {
	case GeoIP2Location, GeoIPInfo:
	default:
		return fmt.Errorf("unknown geo backend %q", c.Lookup.GeoBackend)
	}
	if _, err := c.RunTimeout(); err != nil {
		return err
	}
	if _, err := c.LookupTimeout(); err != nil {
		return err
	}
	for name := range c.Chains {
		if _, err := c.Kind(name); err != nil {
			return fmt.Errorf("chain %s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) RunTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Schedule.RunTimeout)
	if err != nil {
		return 0, fmt.Errorf("run timeout %q: %w", c.Schedule.RunTimeout, err)
	}
	return d, nil
}

func (c *Config) LookupTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Lookup.Timeout)
	if err != nil {
		return 0, fmt.Errorf("lookup timeout %q: %w", c.Lookup.Timeout, err)
	}
	return d, nil
}

// Kind returns the chain kind strategy for chain.
func (c *Config) Kind(chain string) (analysis.ChainKind, error) {
	cc, ok := c.Chains[chain]
	if !ok || cc.Kind == "" {
		kind := analysis.KindGeneric
		if defaultRolePartitioned[chain] {
			kind = analysis.KindRolePartitioned
		}
		return analysis.KindFor(kind, cc.Roles)
	}
	return analysis.KindFor(cc.Kind, cc.Roles)
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Redis.Enabled || c.StateBackend == StateRedis || c.Lookup.RedisCache
}

// Chain returns the per-chain settings, zero when none are configured.
func (c *Config) Chain(chain string) ChainConfig {
	return c.Chains[chain]
}

func (c *Config) ProviderConfigPath() string {
	return filepath.Join(c.ConfigDir, registry.ProviderConfigFile)
}

func (c *Config) CountryConfigPath() string {
	return filepath.Join(c.ConfigDir, registry.CountryConfigFile)
}
