package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/medgen-mcp-server/internal/api"
	"github.com/medgen-mcp-server/internal/database"
	"github.com/medgen-mcp-server/internal/domain"
	"github.com/medgen-mcp-server/internal/monitoring"
	"github.com/medgen-mcp-server/internal/repository"
	"github.com/medgen-mcp-server/internal/service"
	"github.com/medgen-mcp-server/pkg/external"
)

// MetricsNamespace prefixes every prometheus collector.
const MetricsNamespace = "medgen"

// App owns the warehouse connections and the services built on them. Every
// entrypoint builds one App and closes it on exit.
type App struct {
	Config   domain.ConfigManager
	Logger   *logrus.Logger
	Registry *prometheus.Registry
	Metrics  *monitoring.Metrics

	GeneDB    *database.SQLData
	ClinVarDB *database.SQLData

	Genes     *repository.GeneRepository
	ClinVar   *repository.ClinVarRepository
	PubMed    *external.PubMedClient
	Reporter  *external.VariantReporterClient
	Annotator *service.Annotator

	closers []func() error
}

// New connects the gene and clinvar sections and wires the services. A
// configured redis_url that cannot be reached is logged and skipped.
func New(ctx context.Context, cfg domain.ConfigManager, logger *logrus.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  monitoring.NewMetrics(MetricsNamespace, registry),
	}

	var err error
	a.GeneDB, err = database.OpenSection(ctx, cfg, domain.SectionGene, logger, a.Metrics)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.GeneDB.Close)

	a.ClinVarDB, err = database.OpenSection(ctx, cfg, domain.SectionClinVar, logger, a.Metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.ClinVarDB.Close)

	conf := cfg.GetConfig()
	a.Genes, err = repository.NewGeneRepository(a.GeneDB, conf.Cache.GeneCacheSize, logger, a.Metrics)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.PubMed = external.NewPubMedClient(conf.ExternalAPI.PubMed, logger, a.Metrics)
	a.ClinVar = repository.NewClinVarRepository(a.ClinVarDB, a.PubMed, logger)

	var reportCache external.ReportCache
	if conf.Cache.RedisURL != "" {
		cache, err := external.NewRedisReportCache(ctx, conf.Cache)
		if err != nil {
			logger.WithError(err).Warn("Variant report cache unavailable, continuing without it")
		} else {
			reportCache = cache
			a.closers = append(a.closers, cache.Close)
		}
	}

	a.Reporter = external.NewVariantReporterClient(conf.ExternalAPI.VariantReporter, reportCache, logger, a.Metrics)
	a.Annotator = service.NewAnnotator(a.ClinVar, a.Reporter, logger)

	return a, nil
}

// HealthChecks lists the dependency checks reported by /health.
func (a *App) HealthChecks() map[string]api.HealthCheck {
	return map[string]api.HealthCheck{
		domain.SectionGene:    a.Genes.Ping,
		domain.SectionClinVar: a.ClinVar.Ping,
	}
}

// LastMirrorTime looks the entity up in the gene warehouse log and then in
// the ClinVar one.
func (a *App) LastMirrorTime(ctx context.Context, entity string) (domain.MirrorStatus, error) {
	status, err := a.Genes.LastMirrorTime(ctx, entity)
	if err == nil || !errors.Is(err, domain.ErrNotFound) {
		return status, err
	}
	return a.ClinVar.LastMirrorTime(ctx, entity)
}

// LastLoaded reports when the full warehouse load of a section last finished.
// The gene and clinvar sections reuse the open pools; pubmed, medgen, hugo and
// default are opened for the one query.
func (a *App) LastLoaded(ctx context.Context, section string) (time.Time, error) {
	switch section {
	case domain.SectionGene:
		return a.GeneDB.LastLoaded(ctx)
	case domain.SectionClinVar:
		return a.ClinVarDB.LastLoaded(ctx)
	}
	if !slices.Contains(domain.DatabaseSections, section) {
		return time.Time{}, domain.InvalidArgument("unknown warehouse section %q", section)
	}

	sd, err := database.OpenSection(ctx, a.Config, section, a.Logger, a.Metrics)
	if err != nil {
		return time.Time{}, err
	}
	defer func() {
		if err := sd.Close(); err != nil {
			a.Logger.WithError(err).WithField("section", section).Warn("Closing section failed")
		}
	}()
	return sd.LastLoaded(ctx)
}

// APIDependencies wires the HTTP server to this App.
func (a *App) APIDependencies() api.Dependencies {
	return api.Dependencies{
		Genes:    a.Genes,
		Variants: a.Annotator,
		Mirror:   a,
		Articles: a.PubMed,
		Checks:   a.HealthChecks(),
		Metrics:  a.Metrics,
		Gatherer: a.Registry,
		Logger:   a.Logger,
	}
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("closing app: %w", errors.Join(errs...))
	}
	return nil
}
