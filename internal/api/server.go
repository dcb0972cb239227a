package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/medgen-mcp-server/internal/domain"
	"github.com/medgen-mcp-server/internal/middleware"
	"github.com/medgen-mcp-server/internal/monitoring"
)

// GeneService is the gene side of the API.
type GeneService interface {
	ResolveGeneID(ctx context.Context, gene interface{}) (int64, error)
	PubmedsForGene(ctx context.Context, gene interface{}) ([]string, error)
	OMIMForGene(ctx context.Context, gene interface{}) ([]domain.MIMEntry, error)
	FunctionRIFsForGene(ctx context.Context, gene interface{}) ([]domain.GeneRIF, error)
	InfoForGene(ctx context.Context, gene interface{}) (*domain.GeneInfo, error)
	SynonymsForSymbol(ctx context.Context, symbol string) ([]domain.GeneSynonym, error)
	ConceptsForGene(ctx context.Context, gene interface{}) ([]string, error)
	GeneIDForKnownAccession(ctx context.Context, accession string) (int64, error)
	ListGenes(ctx context.Context, taxID int64) ([]string, error)
}

// VariantService is the variant side of the API.
type VariantService interface {
	VariantReport(ctx context.Context, hgvsText string) ([]domain.VariantReportRow, error)
	VariantPMIDs(ctx context.Context, hgvsText, source string) ([]int64, error)
	VariantIdentifiers(ctx context.Context, hgvsText string) (*domain.VariantIdentifiers, error)
	Citations(ctx context.Context, hgvsList []string) ([]domain.Citation, error)
	CitationsWithAccessions(ctx context.Context, hgvsList []string) ([]domain.CitationRecord, error)
}

// MirrorStatusSource reports warehouse load times from the log table.
type MirrorStatusSource interface {
	LastMirrorTime(ctx context.Context, table string) (domain.MirrorStatus, error)
	LastLoaded(ctx context.Context, section string) (time.Time, error)
}

// ArticleSource looks up PubMed article summaries.
type ArticleSource interface {
	ArticleByPMID(ctx context.Context, pmid string) (*domain.Article, error)
}

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

// Dependencies wires the server to its services.
type Dependencies struct {
	Genes    GeneService
	Variants VariantService
	Mirror   MirrorStatusSource
	Articles ArticleSource
	Checks   map[string]HealthCheck
	Metrics  *monitoring.Metrics
	Gatherer prometheus.Gatherer
	Logger   *logrus.Logger
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	deps          Dependencies
	router        *gin.Engine
	server        *http.Server
	logger        *logrus.Logger
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger(deps.Logger))
	router.Use(middleware.Metrics(deps.Metrics))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	server := &Server{
		configManager: configManager,
		deps:          deps,
		router:        router,
		logger:        deps.Logger,
	}

	server.setupRoutes()

	return server
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	metricsCfg := s.configManager.GetConfig().Metrics
	if metricsCfg.Enabled && s.deps.Gatherer != nil {
		path := metricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		s.router.GET(path, gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/genes", s.handleListGenes)
		genes := v1.Group("/genes/:gene")
		genes.GET("/pubmeds", s.handleGenePubmeds)
		genes.GET("/info", s.handleGeneInfo)
		genes.GET("/omim", s.handleGeneOMIM)
		genes.GET("/rifs", s.handleGeneRIFs)
		genes.GET("/synonyms", s.handleGeneSynonyms)
		genes.GET("/concepts", s.handleGeneConcepts)
		v1.GET("/accessions/:accession/gene", s.handleAccessionGene)

		variants := v1.Group("/variants")
		variants.GET("/report", s.handleVariantReport)
		variants.GET("/pmids", s.handleVariantPMIDs)
		variants.GET("/ids", s.handleVariantIdentifiers)
		variants.GET("/citations", s.handleVariantCitations)
		variants.POST("/citations", s.handleCitationBatch)

		v1.GET("/mirror/:entity", s.handleMirrorStatus)
		v1.GET("/warehouse/:section/loaded", s.handleWarehouseLoaded)

		if s.deps.Articles != nil {
			v1.GET("/articles/:pmid", s.handleArticle)
		}
	}
}
