package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/medgen-mcp-server/internal/domain"
)

// GeneService answers the gene tools.
type GeneService interface {
	ResolveGeneID(ctx context.Context, gene interface{}) (int64, error)
	PubmedsForGene(ctx context.Context, gene interface{}) ([]string, error)
	InfoForGene(ctx context.Context, gene interface{}) (*domain.GeneInfo, error)
	OMIMForGene(ctx context.Context, gene interface{}) ([]domain.MIMEntry, error)
}

// VariantService answers the variant tools.
type VariantService interface {
	VariantReport(ctx context.Context, hgvsText string) ([]domain.VariantReportRow, error)
	VariantPMIDs(ctx context.Context, hgvsText, source string) ([]int64, error)
	VariantIdentifiers(ctx context.Context, hgvsText string) (*domain.VariantIdentifiers, error)
	Citations(ctx context.Context, hgvsList []string) ([]domain.Citation, error)
	CitationsWithAccessions(ctx context.Context, hgvsList []string) ([]domain.CitationRecord, error)
}

// Server represents the medgen MCP server implementation
type Server struct {
	config    domain.ConfigManager
	mcpServer *mcp.Server
	genes     GeneService
	variants  VariantService
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance
func NewServer(configManager domain.ConfigManager, genes GeneService, variants VariantService, logger *logrus.Logger) (*Server, error) {
	cfg := configManager.GetConfig()

	serverInfo := &mcp.Implementation{
		Name:    cfg.MCP.ServerName,
		Version: cfg.MCP.ServerVersion,
	}
	if serverInfo.Name == "" {
		serverInfo.Name = "medgen-mcp-server"
	}

	server := &Server{
		config:    configManager,
		mcpServer: mcp.NewServer(serverInfo, nil),
		genes:     genes,
		variants:  variants,
		logger:    logger,
	}

	if err := server.registerCapabilities(); err != nil {
		return nil, fmt.Errorf("failed to register capabilities: %w", err)
	}

	return server, nil
}

// MCPServer exposes the underlying SDK server, mainly for tests.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Start serves MCP on the given transport until ctx is cancelled or, on
// stdio, the client leaves.
func (s *Server) Start(ctx context.Context, transport string) error {
	if transport == TransportHTTP {
		addr := s.config.GetConfig().MCP.HTTPAddr
		return s.serveHTTP(ctx, addr)
	}

	s.logger.Info("Starting medgen MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// registerCapabilities registers all MCP tools
func (s *Server) registerCapabilities() error {
	if s.genes == nil || s.variants == nil {
		return fmt.Errorf("gene and variant services are required")
	}

	s.registerGeneTools()
	s.registerVariantTools()

	s.logger.WithField("tools", len(toolNames)).Info("Registered MCP tools")
	return nil
}
