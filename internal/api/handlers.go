package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/medgen-mcp-server/internal/domain"
	"github.com/medgen-mcp-server/internal/middleware"
)

const healthCheckTimeout = 5 * time.Second

// defaultTaxID is Homo sapiens.
const defaultTaxID = 9606

// citationRequest is the body of POST /api/v1/variants/citations.
type citationRequest struct {
	HGVS    []string `json:"hgvs" binding:"required,min=1"`
	Resolve bool     `json:"resolve"`
}

func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch domain.ErrorCode(err) {
	case domain.ErrInvalidInput:
		return http.StatusBadRequest
	case domain.ErrNotFoundCode:
		return http.StatusNotFound
	case domain.ErrExternalAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	correlationID := c.GetString(middleware.CorrelationKey)
	_ = c.Error(err)

	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"correlation_id": correlationID,
			"path":           c.Request.URL.Path,
		}).Error("Request failed")
	}
	c.AbortWithStatusJSON(status, domain.ToMCPError(err, correlationID))
}

// handleHealth reports the state of every registered dependency.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(s.deps.Checks))
	for name := range s.deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "healthy"
	checks := gin.H{}
	for _, name := range names {
		if err := s.deps.Checks[name](ctx); err != nil {
			status = "degraded"
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
		"version":   s.configManager.GetConfig().MCP.ServerVersion,
	})
}

func (s *Server) geneID(c *gin.Context) (int64, bool) {
	id, err := s.deps.Genes.ResolveGeneID(c.Request.Context(), c.Param("gene"))
	if err != nil {
		s.respondError(c, err)
		return 0, false
	}
	return id, true
}

func (s *Server) handleGenePubmeds(c *gin.Context) {
	id, ok := s.geneID(c)
	if !ok {
		return
	}
	pmids, err := s.deps.Genes.PubmedsForGene(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gene_id": id, "pmids": pmids})
}

func (s *Server) handleGeneInfo(c *gin.Context) {
	id, ok := s.geneID(c)
	if !ok {
		return
	}
	info, err := s.deps.Genes.InfoForGene(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleGeneOMIM(c *gin.Context) {
	id, ok := s.geneID(c)
	if !ok {
		return
	}
	entries, err := s.deps.Genes.OMIMForGene(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gene_id": id, "omim": entries})
}

func (s *Server) handleGeneRIFs(c *gin.Context) {
	id, ok := s.geneID(c)
	if !ok {
		return
	}
	rifs, err := s.deps.Genes.FunctionRIFsForGene(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gene_id": id, "rifs": rifs})
}

func (s *Server) handleGeneSynonyms(c *gin.Context) {
	symbol := c.Param("gene")
	synonyms, err := s.deps.Genes.SynonymsForSymbol(c.Request.Context(), symbol)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "synonyms": synonyms})
}

func (s *Server) handleGeneConcepts(c *gin.Context) {
	id, ok := s.geneID(c)
	if !ok {
		return
	}
	concepts, err := s.deps.Genes.ConceptsForGene(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gene_id": id, "concepts": concepts})
}

func (s *Server) handleListGenes(c *gin.Context) {
	taxID, err := strconv.ParseInt(c.DefaultQuery("tax", strconv.Itoa(defaultTaxID)), 10, 64)
	if err != nil || taxID <= 0 {
		s.respondError(c, domain.InvalidArgument("invalid tax id %q", c.Query("tax")))
		return
	}
	genes, err := s.deps.Genes.ListGenes(c.Request.Context(), taxID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tax_id": taxID, "genes": genes})
}

func (s *Server) handleAccessionGene(c *gin.Context) {
	accession := c.Param("accession")
	id, err := s.deps.Genes.GeneIDForKnownAccession(c.Request.Context(), accession)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accession": accession, "gene_id": id})
}

func (s *Server) handleArticle(c *gin.Context) {
	article, err := s.deps.Articles.ArticleByPMID(c.Request.Context(), c.Param("pmid"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

func (s *Server) handleVariantReport(c *gin.Context) {
	hgvsText := c.Query("hgvs")
	rows, err := s.deps.Variants.VariantReport(c.Request.Context(), hgvsText)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hgvs_text": hgvsText, "rows": rows})
}

func (s *Server) handleVariantPMIDs(c *gin.Context) {
	hgvsText := c.Query("hgvs")
	source := c.DefaultQuery("source", "all")
	pmids, err := s.deps.Variants.VariantPMIDs(c.Request.Context(), hgvsText, source)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hgvs_text": hgvsText, "source": source, "pmids": pmids})
}

func (s *Server) handleVariantIdentifiers(c *gin.Context) {
	ids, err := s.deps.Variants.VariantIdentifiers(c.Request.Context(), c.Query("hgvs"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ids)
}

func (s *Server) handleVariantCitations(c *gin.Context) {
	resolve, _ := strconv.ParseBool(c.DefaultQuery("resolve", "false"))
	s.citations(c, c.QueryArray("hgvs"), resolve)
}

func (s *Server) handleCitationBatch(c *gin.Context) {
	var req citationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.InvalidArgument("invalid request body: %v", err))
		return
	}
	s.citations(c, req.HGVS, req.Resolve)
}

func (s *Server) citations(c *gin.Context, hgvsList []string, resolve bool) {
	if len(hgvsList) == 0 {
		s.respondError(c, domain.InvalidArgument("at least one hgvs expression is required"))
		return
	}

	if resolve {
		records, err := s.deps.Variants.CitationsWithAccessions(c.Request.Context(), hgvsList)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"citations": records})
		return
	}

	citations, err := s.deps.Variants.Citations(c.Request.Context(), hgvsList)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"citations": citations})
}

func (s *Server) handleMirrorStatus(c *gin.Context) {
	status, err := s.deps.Mirror.LastMirrorTime(c.Request.Context(), c.Param("entity"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entity":      status.Entity,
		"last_mirror": status.LastMirror,
		"age_seconds": int64(time.Since(status.LastMirror).Seconds()),
	})
}

func (s *Server) handleWarehouseLoaded(c *gin.Context) {
	section := c.Param("section")
	loaded, err := s.deps.Mirror.LastLoaded(c.Request.Context(), section)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"section":     section,
		"last_loaded": loaded,
		"age_seconds": int64(time.Since(loaded).Seconds()),
	})
}
