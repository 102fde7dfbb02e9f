package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the autofilter service configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Cache        CacheConfig        `yaml:"cache"`
	Database     DatabaseConfig     `yaml:"database"`
	Auth         AuthConfig         `yaml:"auth"`
	Admin        AdminConfig        `yaml:"admin"`
	Autocomplete AutocompleteConfig `yaml:"autocomplete"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig holds the candidate cache connection settings.
type CacheConfig struct {
	Driver           string           `yaml:"driver" validate:"oneof=valkey redis"`
	Addrs            []string         `yaml:"addrs" validate:"required,min=1,dive,hostname_port"`
	Username         string           `yaml:"username"`
	Password         string           `yaml:"password"`
	DB               int              `yaml:"db" validate:"gte=0"`
	ReadinessTimeout int              `yaml:"readiness_timeout_sec"`
	ClientCacheSec   int              `yaml:"client_cache_sec" validate:"gte=0"`
	Candidates       CandidatesConfig `yaml:"candidates"`
}

// CandidatesConfig describes the cached candidate list.
type CandidatesConfig struct {
	Key    string `yaml:"key"`
	Field  string `yaml:"field"`
	TTLSec int    `yaml:"ttl_sec"`
}

// DatabaseConfig holds record store connection settings.
type DatabaseConfig struct {
	DSN                string `yaml:"dsn" validate:"required"`
	MaxConns           int32  `yaml:"max_conns" validate:"gte=0"`
	MinConns           int32  `yaml:"min_conns" validate:"gte=0"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
	ReadinessTimeout   int    `yaml:"readiness_timeout_sec"`
}

// AuthConfig maps API keys to admin principals.
type AuthConfig struct {
	Principals []PrincipalConfig `yaml:"principals" validate:"dive"`
	// PolicyFile optionally replaces the built-in Cedar policies.
	PolicyFile string `yaml:"policy_file"`
}

// PrincipalConfig is one API key and the principal it authenticates as.
type PrincipalConfig struct {
	Key         string   `yaml:"key" validate:"required"`
	Subject     string   `yaml:"subject" validate:"required"`
	Superuser   bool     `yaml:"superuser"`
	Permissions []string `yaml:"permissions"`
}

// AdminConfig describes the admin sites and the collections they expose.
type AdminConfig struct {
	PageSize    int                `yaml:"page_size"`
	Sites       []SiteConfig       `yaml:"sites" validate:"required,min=1,dive"`
	Collections []CollectionConfig `yaml:"collections" validate:"dive"`
}

// SiteConfig mounts every collection under a URL prefix and route namespace.
type SiteConfig struct {
	Namespace string `yaml:"namespace" validate:"required,identifier"`
	Prefix    string `yaml:"prefix" validate:"required,startswith=/"`
}

// CollectionConfig describes one record collection.
type CollectionConfig struct {
	Name            string         `yaml:"name" validate:"required,identifier"`
	Table           string         `yaml:"table" validate:"omitempty,identifier"`
	PK              string         `yaml:"pk" validate:"omitempty,identifier"`
	PKKind          string         `yaml:"pk_kind" validate:"omitempty,oneof=string int uuid"`
	Label           string         `yaml:"label" validate:"required,identifier"`
	Search          string         `yaml:"search" validate:"omitempty,identifier"`
	CreateField     string         `yaml:"create_field" validate:"omitempty,identifier"`
	Columns         []string       `yaml:"columns" validate:"dive,identifier"`
	PageSize        int            `yaml:"page_size" validate:"gte=0"`
	CaseInsensitive *bool          `yaml:"case_insensitive"`
	Filters         []FilterConfig `yaml:"filters" validate:"dive"`
}

// FilterConfig describes one autocomplete list filter.
type FilterConfig struct {
	Field       string `yaml:"field" validate:"required"`
	Title       string `yaml:"title"`
	Column      string `yaml:"column" validate:"omitempty,identifier"`
	Variant     string `yaml:"variant" validate:"omitempty,oneof=plain related"`
	Target      string `yaml:"target" validate:"required_if=Variant related"`
	TargetField string `yaml:"target_field" validate:"omitempty,identifier"`
	Kind        string `yaml:"kind" validate:"omitempty,oneof=string int uuid"`
}

// AutocompleteConfig configures the cache-backed field autocomplete endpoint.
type AutocompleteConfig struct {
	Field FieldEndpointConfig `yaml:"field"`
}

// FieldEndpointConfig configures the cache-backed field endpoint. The cache is
// filled from the distinct values of SourceColumn in SourceCollection. Values
// are created in SourceCollection when its create_field is SourceColumn.
type FieldEndpointConfig struct {
	SourceCollection string `yaml:"source_collection" validate:"required"`
	SourceColumn     string `yaml:"source_column" validate:"required,identifier"`
	PageSize         int    `yaml:"page_size" validate:"gte=0"`
	CaseInsensitive  bool   `yaml:"case_insensitive"`
}

var (
	validate        = newValidator()
	identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierRegex.MatchString(fl.Field().String())
	})
	return v
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates raw YAML.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "valkey"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Cache.Candidates.Key == "" {
		c.Cache.Candidates.Key = "autofilter:candidates:cities"
	}
	if c.Cache.Candidates.Field == "" {
		c.Cache.Candidates.Field = "city"
	}
	if c.Cache.Candidates.TTLSec <= 0 {
		c.Cache.Candidates.TTLSec = 300
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Admin.PageSize <= 0 {
		c.Admin.PageSize = 100
	}
	for i := range c.Admin.Collections {
		if c.Admin.Collections[i].PageSize <= 0 {
			c.Admin.Collections[i].PageSize = 10
		}
	}
	if c.Autocomplete.Field.PageSize <= 0 {
		c.Autocomplete.Field.PageSize = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q validation (value %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("validate: %w", err)
	}

	names := make(map[string]bool, len(c.Admin.Collections))
	createFields := make(map[string]string, len(c.Admin.Collections))
	for _, col := range c.Admin.Collections {
		if names[col.Name] {
			return fmt.Errorf("admin.collections: duplicate collection %q", col.Name)
		}
		names[col.Name] = true
		createFields[col.Name] = col.CreateField
	}
	for _, col := range c.Admin.Collections {
		for _, f := range col.Filters {
			if f.Target != "" && !names[f.Target] {
				return fmt.Errorf("admin.collections.%s.filters.%s: unknown target %q", col.Name, f.Field, f.Target)
			}
		}
	}
	if !names[c.Autocomplete.Field.SourceCollection] {
		return fmt.Errorf("autocomplete.field.source_collection: unknown collection %q", c.Autocomplete.Field.SourceCollection)
	}
	fe := c.Autocomplete.Field
	if cf := createFields[fe.SourceCollection]; cf != "" && cf != fe.SourceColumn {
		return fmt.Errorf("autocomplete.field: create_field %q of %s must be the source_column %q",
			cf, fe.SourceCollection, fe.SourceColumn)
	}

	prefixes := make(map[string]bool, len(c.Admin.Sites))
	namespaces := make(map[string]bool, len(c.Admin.Sites))
	for _, s := range c.Admin.Sites {
		if prefixes[s.Prefix] || namespaces[s.Namespace] {
			return fmt.Errorf("admin.sites: duplicate site %s (%s)", s.Namespace, s.Prefix)
		}
		prefixes[s.Prefix] = true
		namespaces[s.Namespace] = true
	}

	keys := make(map[string]bool, len(c.Auth.Principals))
	for _, p := range c.Auth.Principals {
		if keys[p.Key] {
			return fmt.Errorf("auth.principals: duplicate key for %q", p.Subject)
		}
		keys[p.Key] = true
	}
	return nil
}

// CandidateTTL returns the candidate cache TTL.
func (c CacheConfig) CandidateTTL() time.Duration {
	return time.Duration(c.Candidates.TTLSec) * time.Second
}

// fieldPath turns "Config.Cache.Addrs[0]" into "cache.addrs[0]".
func fieldPath(ns string) string {
	ns = strings.TrimPrefix(ns, "Config.")
	return strings.ToLower(ns)
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
