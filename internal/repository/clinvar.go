package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medgen-mcp-server/internal/database"
	"github.com/medgen-mcp-server/internal/domain"
)

const (
	accessionForVariantSQL   = "SELECT RCVaccession AS ID FROM variant_summary WHERE HGVS_c = ? LIMIT 1"
	alleleIDForVariantSQL    = "SELECT AlleleID AS ID FROM variant_summary WHERE HGVS_c = ? LIMIT 1"
	variationIDForVariantSQL = "SELECT VariationID AS ID FROM variant_summary WHERE HGVS_c = ? LIMIT 1"

	citationsForHGVSSQL = `SELECT DISTINCT c.citation_id, c.citation_source, v.HGVS_c AS hgvs_text, v.RCVaccession
		FROM var_citations c JOIN variant_summary v ON c.AlleleID = v.AlleleID
		WHERE v.HGVS_c IN (%s)
		ORDER BY v.HGVS_c, c.citation_source, c.citation_id`
)

// ClinVarRepository reads the ClinVar mirror: variant identifiers and the
// literature cited for each variant.
type ClinVarRepository struct {
	sd       *database.SQLData
	resolver domain.ArticleResolver
	log      *logrus.Logger
}

// NewClinVarRepository creates a ClinVar accessor. The resolver converts
// PubMed Central citations to PMIDs.
func NewClinVarRepository(sd *database.SQLData, resolver domain.ArticleResolver, logger *logrus.Logger) *ClinVarRepository {
	return &ClinVarRepository{
		sd:       sd,
		resolver: resolver,
		log:      logger,
	}
}

// AccessionForVariant returns the RCV accession of a c.DNA HGVS expression.
func (r *ClinVarRepository) AccessionForVariant(ctx context.Context, hgvsText string) (string, error) {
	value, err := r.lookup(ctx, accessionForVariantSQL, "RCVaccession", hgvsText)
	if err != nil {
		return "", err
	}
	return domain.ValueString(value), nil
}

// AlleleIDForVariant returns the ClinVar AlleleID of an HGVS expression.
func (r *ClinVarRepository) AlleleIDForVariant(ctx context.Context, hgvsText string) (int64, error) {
	value, err := r.lookup(ctx, alleleIDForVariantSQL, "AlleleID", hgvsText)
	if err != nil {
		return 0, err
	}
	return domain.ValueInt64(value)
}

// VariationIDForVariant returns the ClinVar VariationID of an HGVS expression.
func (r *ClinVarRepository) VariationIDForVariant(ctx context.Context, hgvsText string) (int64, error) {
	value, err := r.lookup(ctx, variationIDForVariantSQL, "VariationID", hgvsText)
	if err != nil {
		return 0, err
	}
	return domain.ValueInt64(value)
}

func (r *ClinVarRepository) lookup(ctx context.Context, query, what, hgvsText string) (interface{}, error) {
	hgvsText = strings.TrimSpace(hgvsText)
	if hgvsText == "" {
		return nil, domain.InvalidArgument("empty HGVS expression")
	}
	value, found, err := r.sd.FetchID(ctx, query, hgvsText)
	if err != nil {
		return nil, err
	}
	if !found || value == nil {
		r.log.WithFields(logrus.Fields{
			"hgvs_text": hgvsText,
			"column":    what,
		}).Debug("No ClinVar identifier for variant")
		return nil, domain.NotFound("no ClinVar %s for variant %s", what, hgvsText)
	}
	return value, nil
}

// CitationsForVariant returns the raw var_citations entries of a variant.
func (r *ClinVarRepository) CitationsForVariant(ctx context.Context, hgvsText string) ([]domain.Citation, error) {
	return r.CitationsForHGVSList(ctx, []string{hgvsText})
}

// CitationsForHGVSList returns the citations of every listed variant in one
// query.
func (r *ClinVarRepository) CitationsForHGVSList(ctx context.Context, hgvsList []string) ([]domain.Citation, error) {
	args := make([]interface{}, 0, len(hgvsList))
	seen := make(map[string]struct{}, len(hgvsList))
	for _, h := range hgvsList {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		args = append(args, h)
	}
	if len(args) == 0 {
		return []domain.Citation{}, nil
	}

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	rows, err := r.sd.FetchAll(ctx, fmt.Sprintf(citationsForHGVSSQL, marks), args...)
	if err != nil {
		return nil, err
	}

	citations := make([]domain.Citation, 0, len(rows))
	for _, row := range rows {
		citations = append(citations, domain.Citation{
			CitationID:     row.String("citation_id"),
			CitationSource: row.String("citation_source"),
			HGVSText:       row.String("hgvs_text"),
			Accession:      row.String("RCVaccession"),
		})
	}
	return citations, nil
}

// PMIDsForVariant returns the sorted, distinct PubMed IDs ClinVar cites for
// a variant. PubMed Central citations are converted through the resolver; a
// PMC article the resolver does not know is skipped.
func (r *ClinVarRepository) PMIDsForVariant(ctx context.Context, hgvsText string) ([]int64, error) {
	citations, err := r.CitationsForVariant(ctx, hgvsText)
	if err != nil {
		return nil, err
	}

	res := newPMCResolution(r)
	set := make(map[int64]struct{}, len(citations))
	for _, cite := range citations {
		pmid, ok, err := res.pmid(ctx, cite)
		if err != nil {
			return nil, err
		}
		if ok {
			set[pmid] = struct{}{}
		}
	}

	pmids := make([]int64, 0, len(set))
	for pmid := range set {
		pmids = append(pmids, pmid)
	}
	sort.Slice(pmids, func(i, j int) bool { return pmids[i] < pmids[j] })
	return pmids, nil
}

// CitationsWithAccessionsForHGVSList returns one record per citation of the
// listed variants, each carrying a PubMed ID and the variant's accession.
func (r *ClinVarRepository) CitationsWithAccessionsForHGVSList(ctx context.Context, hgvsList []string) ([]domain.CitationRecord, error) {
	citations, err := r.CitationsForHGVSList(ctx, hgvsList)
	if err != nil {
		return nil, err
	}

	res := newPMCResolution(r)
	records := make([]domain.CitationRecord, 0, len(citations))
	for _, cite := range citations {
		pmid, ok, err := res.pmid(ctx, cite)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		records = append(records, domain.CitationRecord{
			HGVSText:  cite.HGVSText,
			PMID:      pmid,
			Accession: cite.Accession,
		})
	}
	return records, nil
}

// LastMirrorTime reports when a ClinVar table was last loaded.
func (r *ClinVarRepository) LastMirrorTime(ctx context.Context, table string) (domain.MirrorStatus, error) {
	t, err := r.sd.LastMirrorTime(ctx, table)
	if err != nil {
		return domain.MirrorStatus{}, err
	}
	return domain.MirrorStatus{Entity: table, LastMirror: t}, nil
}

// Ping checks the ClinVar warehouse connection.
func (r *ClinVarRepository) Ping(ctx context.Context) error {
	return r.sd.Ping(ctx)
}

// pmcResolution converts citations to PMIDs, asking the resolver at most
// once per PMC ID within a call.
type pmcResolution struct {
	repo *ClinVarRepository
	seen map[string]pmcResult
}

type pmcResult struct {
	pmid  int64
	found bool
}

func newPMCResolution(repo *ClinVarRepository) *pmcResolution {
	return &pmcResolution{repo: repo, seen: make(map[string]pmcResult)}
}

func (p *pmcResolution) pmid(ctx context.Context, cite domain.Citation) (int64, bool, error) {
	id := strings.TrimSpace(cite.CitationID)

	if cite.CitationSource == domain.CitationSourcePubMed {
		pmid, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("invalid PubMed citation %q for %s: %w", id, cite.HGVSText, err)
		}
		return pmid, true, nil
	}

	if cite.CitationSource != domain.CitationSourcePubMedCentral {
		p.repo.log.WithFields(logrus.Fields{
			"citation_source": cite.CitationSource,
			"citation_id":     id,
			"hgvs_text":       cite.HGVSText,
		}).Debug("Skipping citation without a PubMed mapping")
		return 0, false, nil
	}

	if r, ok := p.seen[id]; ok {
		return r.pmid, r.found, nil
	}

	if p.repo.resolver == nil {
		return 0, false, fmt.Errorf("%s citation %s for %s: no article resolver configured", cite.CitationSource, id, cite.HGVSText)
	}

	p.repo.log.WithFields(logrus.Fields{
		"pmcid":     id,
		"hgvs_text": cite.HGVSText,
	}).Debug("Converting PubMed Central citation to PMID")

	article, err := p.repo.resolver.ArticleByPMCID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && (article == nil || article.PMID == "")) {
		p.repo.log.WithField("pmcid", id).Debug("No PubMed article for PMC citation, skipping")
		p.seen[id] = pmcResult{}
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolving PMC citation %s for %s: %w", id, cite.HGVSText, err)
	}

	pmid, err := strconv.ParseInt(strings.TrimSpace(article.PMID), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("resolver returned invalid PMID %q for %s: %w", article.PMID, id, err)
	}
	p.seen[id] = pmcResult{pmid: pmid, found: true}
	return pmid, true, nil
}
