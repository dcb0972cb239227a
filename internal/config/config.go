package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/medgen-mcp-server/internal/domain"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// MEDGEN_GENE_DB_HOST overrides gene.db_host.
const EnvPrefix = "MEDGEN"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager creates a new configuration manager. An empty configFile
// searches the default locations for medgen.{yaml,yml,ini,toml,json}.
func NewManager(configFile string) (*Manager, error) {
	m := &Manager{configFile: configFile}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("medgen")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.medgen")
		v.AddConfigPath("/etc/medgen/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || m.configFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	config.Databases = make(map[string]domain.DatabaseConfig, len(domain.DatabaseSections))
	for _, section := range domain.DatabaseSections {
		config.Databases[section] = databaseSection(v, section)
	}

	m.v = v
	m.config = config
	return nil
}

// databaseSection resolves one named section. Keys fall back from the section
// to top-level keys (an INI file's DEFAULT section) and then to default.*.
func databaseSection(v *viper.Viper, section string) domain.DatabaseConfig {
	key := func(name string) string {
		if k := section + "." + name; v.IsSet(k) {
			return k
		}
		if v.IsSet(name) {
			return name
		}
		return domain.SectionDefault + "." + name
	}

	db := domain.DatabaseConfig{
		Driver:          v.GetString(key("db_driver")),
		Host:            v.GetString(key("db_host")),
		Port:            v.GetInt(key("db_port")),
		User:            v.GetString(key("db_user")),
		Password:        v.GetString(key("db_pass")),
		Dataset:         v.GetString(key("dataset")),
		SSLMode:         v.GetString(key("ssl_mode")),
		CommitOnEnd:     v.GetBool(key("commit_on_end")),
		MaxOpenConns:    v.GetInt(key("max_open_conns")),
		MaxIdleConns:    v.GetInt(key("max_idle_conns")),
		ConnMaxLifetime: v.GetDuration(key("conn_max_lifetime")),
	}
	if db.Port <= 0 {
		db.Port = defaultPorts[db.Driver]
	}
	return db
}

// defaultPorts applies when no level of the fallback chain sets db_port.
var defaultPorts = map[string]int{
	"mysql":    3306,
	"postgres": 5432,
	"pgx":      5432,
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "45s")

	// Database defaults, inherited by every named section
	v.SetDefault("default.db_driver", "mysql")
	v.SetDefault("default.db_host", "localhost")
	v.SetDefault("default.db_user", "medgen")
	v.SetDefault("default.db_pass", "medgen")
	v.SetDefault("default.dataset", "medgen")
	v.SetDefault("default.ssl_mode", "disable")
	v.SetDefault("default.commit_on_end", true)
	v.SetDefault("default.max_open_conns", 10)
	v.SetDefault("default.max_idle_conns", 5)
	v.SetDefault("default.conn_max_lifetime", "5m")

	// External API defaults
	v.SetDefault("external_api.variant_reporter.base_url", "https://www.ncbi.nlm.nih.gov/projects/SNP/VariantAnalyzer/var_rep.cgi")
	v.SetDefault("external_api.variant_reporter.timeout", "60s")
	v.SetDefault("external_api.variant_reporter.rate_limit", 3)
	v.SetDefault("external_api.variant_reporter.accumulate_pmids", false)

	v.SetDefault("external_api.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/")
	v.SetDefault("external_api.pubmed.idconv_url", "https://www.ncbi.nlm.nih.gov/pmc/utils/idconv/v1.0/")
	v.SetDefault("external_api.pubmed.tool", "medgen")
	v.SetDefault("external_api.pubmed.timeout", "30s")
	v.SetDefault("external_api.pubmed.rate_limit", 3)

	// Cache defaults
	v.SetDefault("cache.gene_cache_size", 4096)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.default_ttl", "24h")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("mcp.server_name", "medgen-mcp-server")
	v.SetDefault("mcp.server_version", "1.0.0")
	v.SetDefault("mcp.request_timeout", "60s")
	v.SetDefault("mcp.transport", "stdio")
	v.SetDefault("mcp.http_addr", "127.0.0.1:8090")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns the resolved configuration of a named section
func (m *Manager) GetDatabaseConfig(section string) domain.DatabaseConfig {
	return m.config.Database(section)
}

// GetExternalAPIConfig returns external API configuration
func (m *Manager) GetExternalAPIConfig() *domain.ExternalAPIConfig {
	return &m.config.ExternalAPI
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// ConfigFileUsed returns the path of the file that was read, if any.
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

var validDrivers = map[string]bool{"mysql": true, "sqlite": true, "postgres": true, "pgx": true}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	for _, section := range domain.DatabaseSections {
		db := config.Databases[section]
		if !validDrivers[db.Driver] {
			return fmt.Errorf("section %s: unsupported db_driver %q", section, db.Driver)
		}
		if db.Dataset == "" {
			return fmt.Errorf("section %s: dataset is required", section)
		}
		if db.Driver != "sqlite" && db.Host == "" {
			return fmt.Errorf("section %s: db_host is required", section)
		}
		if db.Driver != "sqlite" && (db.Port <= 0 || db.Port > 65535) {
			return fmt.Errorf("section %s: invalid db_port: %d", section, db.Port)
		}
	}

	for name, raw := range map[string]string{
		"variant reporter base URL": config.ExternalAPI.VariantReporter.BaseURL,
		"PubMed base URL":           config.ExternalAPI.PubMed.BaseURL,
		"PMC ID converter URL":      config.ExternalAPI.PubMed.IDConvertURL,
	} {
		if raw == "" {
			return fmt.Errorf("%s is required", name)
		}
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
	}

	if config.Cache.GeneCacheSize < 0 {
		return fmt.Errorf("invalid gene cache size: %d", config.Cache.GeneCacheSize)
	}

	switch config.MCP.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid MCP transport %q: want stdio or http", config.MCP.Transport)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}
