package mcp

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/medgen-mcp-server/internal/domain"
)

var toolNames = []string{
	"gene_pubmeds",
	"gene_info",
	"variant_pmids",
	"variant_identifiers",
	"variant_report",
	"variant_citations",
}

// GeneParams identifies a gene by GeneID or symbol.
type GeneParams struct {
	Gene string `json:"gene" jsonschema:"NCBI GeneID or HGNC gene symbol, e.g. 672 or BRCA1"`
}

// VariantParams identifies a variant by HGVS expression.
type VariantParams struct {
	HGVS string `json:"hgvs" jsonschema:"HGVS expression, e.g. NM_007294.3:c.5266dupC"`
}

// VariantPMIDParams selects where variant PMIDs come from.
type VariantPMIDParams struct {
	HGVS   string `json:"hgvs" jsonschema:"HGVS expression, e.g. NM_007294.3:c.5266dupC"`
	Source string `json:"source,omitempty" jsonschema:"clinvar, report or all (default all)"`
}

// CitationParams lists variants whose ClinVar citations are wanted.
type CitationParams struct {
	HGVS    []string `json:"hgvs" jsonschema:"HGVS expressions"`
	Resolve bool     `json:"resolve,omitempty" jsonschema:"resolve PubMed Central citations to PubMed IDs"`
}

// GenePubmedsResult is returned by gene_pubmeds.
type GenePubmedsResult struct {
	GeneID int64    `json:"gene_id"`
	PMIDs  []string `json:"pmids"`
}

// GeneInfoResult is returned by gene_info.
type GeneInfoResult struct {
	Info *domain.GeneInfo  `json:"info"`
	OMIM []domain.MIMEntry `json:"omim"`
}

// VariantPMIDResult is returned by variant_pmids.
type VariantPMIDResult struct {
	HGVSText string  `json:"hgvs_text"`
	Source   string  `json:"source"`
	PMIDs    []int64 `json:"pmids"`
}

// VariantReportResult is returned by variant_report.
type VariantReportResult struct {
	HGVSText string                    `json:"hgvs_text"`
	Rows     []domain.VariantReportRow `json:"rows"`
}

// CitationResult is returned by variant_citations. Records is set when
// citations were resolved, Citations otherwise.
type CitationResult struct {
	Citations []domain.Citation       `json:"citations,omitempty"`
	Records   []domain.CitationRecord `json:"records,omitempty"`
}

func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := s.config.GetConfig().MCP.RequestTimeout; timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// toolError turns a service error into the text of an error result.
func (s *Server) toolError(tool string, err error) error {
	mcpErr := domain.ToMCPError(err, uuid.New().String())
	s.logger.WithError(err).WithFields(logrus.Fields{
		"tool":       tool,
		"code":       mcpErr.Code,
		"request_id": mcpErr.RequestID,
	}).Warn("Tool call failed")
	return fmt.Errorf("%s: %s", mcpErr.Code, mcpErr.Details)
}

func (s *Server) registerGeneTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "gene_pubmeds",
		Description: "List the PubMed IDs NCBI Gene links to a gene",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in GeneParams) (*mcp.CallToolResult, any, error) {
		ctx, cancel := s.withTimeout(ctx)
		defer cancel()

		id, err := s.genes.ResolveGeneID(ctx, in.Gene)
		if err != nil {
			return nil, nil, s.toolError("gene_pubmeds", err)
		}
		pmids, err := s.genes.PubmedsForGene(ctx, id)
		if err != nil {
			return nil, nil, s.toolError("gene_pubmeds", err)
		}
		return nil, GenePubmedsResult{GeneID: id, PMIDs: pmids}, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "gene_info",
		Description: "Describe a gene from NCBI gene_info together with its OMIM entries",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in GeneParams) (*mcp.CallToolResult, any, error) {
		ctx, cancel := s.withTimeout(ctx)
		defer cancel()

		id, err := s.genes.ResolveGeneID(ctx, in.Gene)
		if err != nil {
			return nil, nil, s.toolError("gene_info", err)
		}
		info, err := s.genes.InfoForGene(ctx, id)
		if err != nil {
			return nil, nil, s.toolError("gene_info", err)
		}
		omim, err := s.genes.OMIMForGene(ctx, id)
		if err != nil {
			return nil, nil, s.toolError("gene_info", err)
		}
		return nil, GeneInfoResult{Info: info, OMIM: omim}, nil
	})
}

func (s *Server) registerVariantTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "variant_pmids",
		Description: "List PubMed IDs citing a variant, from ClinVar, the NCBI Variant Reporter or both",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in VariantPMIDParams) (*mcp.CallToolResult, any, error) {
		ctx, cancel := s.withTimeout(ctx)
		defer cancel()

		source := in.Source
		if source == "" {
			source = "all"
		}
		pmids, err := s.variants.VariantPMIDs(ctx, in.HGVS, source)
		if err != nil {
			return nil, nil, s.toolError("variant_pmids", err)
		}
		return nil, VariantPMIDResult{HGVSText: in.HGVS, Source: source, PMIDs: pmids}, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "variant_identifiers",
		Description: "Look up the ClinVar RCV accession, AlleleID and VariationID of a variant",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in VariantParams) (*mcp.CallToolResult, any, error) {
		ctx, cancel := s.withTimeout(ctx)
		defer cancel()

		ids, err := s.variants.VariantIdentifiers(ctx, in.HGVS)
		if err != nil {
			return nil, nil, s.toolError("variant_identifiers", err)
		}
		return nil, ids, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "variant_report",
		Description: "Fetch the NCBI Variant Reporter rows of a variant",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in VariantParams) (*mcp.CallToolResult, any, error) {
		ctx, cancel := s.withTimeout(ctx)
		defer cancel()

		rows, err := s.variants.VariantReport(ctx, in.HGVS)
		if err != nil {
			return nil, nil, s.toolError("variant_report", err)
		}
		return nil, VariantReportResult{HGVSText: in.HGVS, Rows: rows}, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "variant_citations",
		Description: "List the ClinVar literature citations of one or more variants",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in CitationParams) (*mcp.CallToolResult, any, error) {
		ctx, cancel := s.withTimeout(ctx)
		defer cancel()

		if in.Resolve {
			records, err := s.variants.CitationsWithAccessions(ctx, in.HGVS)
			if err != nil {
				return nil, nil, s.toolError("variant_citations", err)
			}
			return nil, CitationResult{Records: records}, nil
		}

		citations, err := s.variants.Citations(ctx, in.HGVS)
		if err != nil {
			return nil, nil, s.toolError("variant_citations", err)
		}
		return nil, CitationResult{Citations: citations}, nil
	})
}
