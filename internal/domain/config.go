package domain

import (
	"time"
)

// Named database sections. Each accessor resolves its connection from one of
// these, falling back to the default section.
const (
	SectionDefault = "default"
	SectionGene    = "gene"
	SectionClinVar = "clinvar"
	SectionPubMed  = "pubmed"
	SectionMedGen  = "medgen"
	SectionHugo    = "hugo"
)

// DatabaseSections lists every section the config manager resolves.
var DatabaseSections = []string{SectionDefault, SectionGene, SectionClinVar, SectionPubMed, SectionMedGen, SectionHugo}

// Config represents the main application configuration
type Config struct {
	Server      ServerConfig              `mapstructure:"server"`
	Databases   map[string]DatabaseConfig `mapstructure:"-"`
	ExternalAPI ExternalAPIConfig         `mapstructure:"external_api"`
	Cache       CacheConfig               `mapstructure:"cache"`
	Logging     LoggingConfig             `mapstructure:"logging"`
	Metrics     MetricsConfig             `mapstructure:"metrics"`
	MCP         MCPConfig                 `mapstructure:"mcp"`
}

// Database returns the resolved configuration of a named section, or the
// default section when the name is unknown.
func (c *Config) Database(section string) DatabaseConfig {
	if db, ok := c.Databases[section]; ok {
		return db
	}
	return c.Databases[SectionDefault]
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig is one named connection section. Key names follow the
// warehouse's historical config file (db_host, db_user, db_pass, dataset).
type DatabaseConfig struct {
	Driver          string        `mapstructure:"db_driver"`
	Host            string        `mapstructure:"db_host"`
	Port            int           `mapstructure:"db_port"`
	User            string        `mapstructure:"db_user"`
	Password        string        `mapstructure:"db_pass"`
	Dataset         string        `mapstructure:"dataset"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	CommitOnEnd     bool          `mapstructure:"commit_on_end"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ExternalAPIConfig represents external API configuration
type ExternalAPIConfig struct {
	VariantReporter VariantReporterConfig `mapstructure:"variant_reporter"`
	PubMed          PubMedConfig          `mapstructure:"pubmed"`
}

// VariantReporterConfig configures the NCBI Variant Reporter client.
type VariantReporterConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"` // requests per second
	// AccumulatePMIDs unions PMIDs across all report rows instead of keeping
	// only the last row's list.
	AccumulatePMIDs bool `mapstructure:"accumulate_pmids"`
}

// PubMedConfig represents PubMed API configuration
type PubMedConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	IDConvertURL string        `mapstructure:"idconv_url"`
	APIKey       string        `mapstructure:"api_key"`
	Email        string        `mapstructure:"email"` // Required by NCBI
	Tool         string        `mapstructure:"tool"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RateLimit    int           `mapstructure:"rate_limit"`
}

// CacheConfig represents cache configuration
type CacheConfig struct {
	GeneCacheSize int           `mapstructure:"gene_cache_size"`
	RedisURL      string        `mapstructure:"redis_url"`
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`
	MaxRetries    int           `mapstructure:"max_retries"`
	PoolSize      int           `mapstructure:"pool_size"`
	PoolTimeout   time.Duration `mapstructure:"pool_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName     string        `mapstructure:"server_name"`
	ServerVersion  string        `mapstructure:"server_version"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// Transport is "stdio" or "http" (streamable HTTP on HTTPAddr).
	Transport string `mapstructure:"transport"`
	HTTPAddr  string `mapstructure:"http_addr"`
}
