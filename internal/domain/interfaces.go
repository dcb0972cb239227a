package domain

import (
	"context"
)

// ArticleResolver resolves literature identifiers to PubMed records.
// Implementations return an error wrapping ErrNotFound for unknown IDs.
type ArticleResolver interface {
	ArticleByPMID(ctx context.Context, pmid string) (*Article, error)
	ArticleByPMCID(ctx context.Context, pmcid string) (*Article, error)
}

// VariantReporter fetches normalized variant reports from an external service.
type VariantReporter interface {
	FetchVariantReport(ctx context.Context, hgvsText string) ([]VariantReportRow, error)
	PubmedsForVariant(ctx context.Context, hgvsText string) ([]int64, error)
	AccessionForVariant(ctx context.Context, hgvsText string) (string, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig(section string) DatabaseConfig
	GetExternalAPIConfig() *ExternalAPIConfig
	GetServerConfig() *ServerConfig
}
