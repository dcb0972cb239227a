package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medgen-mcp-server/internal/domain"
	"github.com/medgen-mcp-server/pkg/hgvs"
)

// PMID sources accepted by VariantPMIDs.
const (
	SourceClinVar = "clinvar"
	SourceReport  = "report"
	SourceAll     = "all"
)

// CitationStore is the warehouse side of variant annotation.
type CitationStore interface {
	AccessionForVariant(ctx context.Context, hgvsText string) (string, error)
	AlleleIDForVariant(ctx context.Context, hgvsText string) (int64, error)
	VariationIDForVariant(ctx context.Context, hgvsText string) (int64, error)
	CitationsForHGVSList(ctx context.Context, hgvsList []string) ([]domain.Citation, error)
	PMIDsForVariant(ctx context.Context, hgvsText string) ([]int64, error)
	CitationsWithAccessionsForHGVSList(ctx context.Context, hgvsList []string) ([]domain.CitationRecord, error)
}

// Annotator answers variant-level questions from the ClinVar warehouse and
// the NCBI Variant Reporter.
type Annotator struct {
	store    CitationStore
	reporter domain.VariantReporter
	parser   *hgvs.Parser
	logger   *logrus.Logger
}

// NewAnnotator creates a new annotator
func NewAnnotator(store CitationStore, reporter domain.VariantReporter, logger *logrus.Logger) *Annotator {
	return &Annotator{
		store:    store,
		reporter: reporter,
		parser:   hgvs.NewParser(),
		logger:   logger,
	}
}

func (a *Annotator) normalize(hgvsText string) (string, error) {
	normalized, err := a.parser.Normalize(hgvsText)
	if err != nil {
		return "", fmt.Errorf("invalid variant: %w", err)
	}
	return normalized, nil
}

func (a *Annotator) normalizeAll(hgvsList []string) ([]string, error) {
	out := make([]string, 0, len(hgvsList))
	for _, text := range hgvsList {
		if strings.TrimSpace(text) == "" {
			continue
		}
		normalized, err := a.normalize(text)
		if err != nil {
			return nil, err
		}
		out = append(out, normalized)
	}
	return out, nil
}

// ClinVarAccession looks up the RCV accession of a variant.
func (a *Annotator) ClinVarAccession(ctx context.Context, hgvsText string) domain.Lookup[string] {
	text, err := a.normalize(hgvsText)
	if err != nil {
		return domain.LookupOf("", err)
	}
	return domain.LookupOf(a.store.AccessionForVariant(ctx, text))
}

// ClinVarAlleleID looks up the ClinVar AlleleID of a variant.
func (a *Annotator) ClinVarAlleleID(ctx context.Context, hgvsText string) domain.Lookup[int64] {
	text, err := a.normalize(hgvsText)
	if err != nil {
		return domain.LookupOf(int64(0), err)
	}
	return domain.LookupOf(a.store.AlleleIDForVariant(ctx, text))
}

// ClinVarVariationID looks up the ClinVar VariationID of a variant.
func (a *Annotator) ClinVarVariationID(ctx context.Context, hgvsText string) domain.Lookup[int64] {
	text, err := a.normalize(hgvsText)
	if err != nil {
		return domain.LookupOf(int64(0), err)
	}
	return domain.LookupOf(a.store.VariationIDForVariant(ctx, text))
}

// VariantIdentifiers gathers all three ClinVar identifiers. Individual lookup
// failures are reported inside the result; only invalid input fails the call.
func (a *Annotator) VariantIdentifiers(ctx context.Context, hgvsText string) (*domain.VariantIdentifiers, error) {
	text, err := a.normalize(hgvsText)
	if err != nil {
		return nil, err
	}

	ids := &domain.VariantIdentifiers{
		HGVSText:    text,
		Accession:   domain.LookupOf(a.store.AccessionForVariant(ctx, text)),
		AlleleID:    domain.LookupOf(a.store.AlleleIDForVariant(ctx, text)),
		VariationID: domain.LookupOf(a.store.VariationIDForVariant(ctx, text)),
	}

	for name, failed := range map[string]error{
		"accession":    ids.Accession.Err,
		"allele_id":    ids.AlleleID.Err,
		"variation_id": ids.VariationID.Err,
	} {
		if failed != nil {
			a.logger.WithError(failed).WithFields(logrus.Fields{
				"hgvs_text":  text,
				"identifier": name,
			}).Warn("ClinVar identifier lookup failed")
		}
	}
	return ids, nil
}

// ClinVarPMIDs returns the PubMed IDs ClinVar cites for a variant.
func (a *Annotator) ClinVarPMIDs(ctx context.Context, hgvsText string) ([]int64, error) {
	text, err := a.normalize(hgvsText)
	if err != nil {
		return nil, err
	}
	return a.store.PMIDsForVariant(ctx, text)
}

// ReportPMIDs returns the PubMed IDs the Variant Reporter lists for a variant.
func (a *Annotator) ReportPMIDs(ctx context.Context, hgvsText string) ([]int64, error) {
	text, err := a.normalize(hgvsText)
	if err != nil {
		return nil, err
	}
	return a.reporter.PubmedsForVariant(ctx, text)
}

// ReportAccession returns the ClinVar accession listed by the Variant Reporter.
func (a *Annotator) ReportAccession(ctx context.Context, hgvsText string) domain.Lookup[string] {
	text, err := a.normalize(hgvsText)
	if err != nil {
		return domain.LookupOf("", err)
	}
	return domain.LookupOf(a.reporter.AccessionForVariant(ctx, text))
}

// VariantReport returns the parsed Variant Reporter rows.
func (a *Annotator) VariantReport(ctx context.Context, hgvsText string) ([]domain.VariantReportRow, error) {
	text, err := a.normalize(hgvsText)
	if err != nil {
		return nil, err
	}
	return a.reporter.FetchVariantReport(ctx, text)
}

// VariantPMIDs returns the PubMed IDs of a variant from one source or from
// both, sorted and without duplicates.
func (a *Annotator) VariantPMIDs(ctx context.Context, hgvsText, source string) ([]int64, error) {
	switch source {
	case SourceClinVar:
		return a.ClinVarPMIDs(ctx, hgvsText)
	case SourceReport:
		return a.ReportPMIDs(ctx, hgvsText)
	case SourceAll, "":
	default:
		return nil, domain.InvalidArgument("unknown PMID source %q", source)
	}

	clinvar, err := a.ClinVarPMIDs(ctx, hgvsText)
	if err != nil {
		return nil, err
	}
	report, err := a.ReportPMIDs(ctx, hgvsText)
	if err != nil {
		return nil, err
	}
	return mergePMIDs(clinvar, report), nil
}

// Citations returns the raw ClinVar citations of several variants.
func (a *Annotator) Citations(ctx context.Context, hgvsList []string) ([]domain.Citation, error) {
	texts, err := a.normalizeAll(hgvsList)
	if err != nil {
		return nil, err
	}
	return a.store.CitationsForHGVSList(ctx, texts)
}

// CitationsWithAccessions returns the ClinVar citations of several variants
// resolved to PubMed IDs.
func (a *Annotator) CitationsWithAccessions(ctx context.Context, hgvsList []string) ([]domain.CitationRecord, error) {
	texts, err := a.normalizeAll(hgvsList)
	if err != nil {
		return nil, err
	}

	records, err := a.store.CitationsWithAccessionsForHGVSList(ctx, texts)
	if err != nil {
		return nil, err
	}
	a.logger.WithFields(logrus.Fields{
		"variants":  len(texts),
		"citations": len(records),
	}).Debug("Resolved ClinVar citations")
	return records, nil
}

func mergePMIDs(lists ...[]int64) []int64 {
	seen := make(map[int64]struct{})
	merged := []int64{}
	for _, list := range lists {
		for _, pmid := range list {
			if _, dup := seen[pmid]; dup {
				continue
			}
			seen[pmid] = struct{}{}
			merged = append(merged, pmid)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })
	return merged
}
