package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/medgen-mcp-server/internal/database"
	"github.com/medgen-mcp-server/internal/domain"
	"github.com/medgen-mcp-server/internal/monitoring"
)

// DefaultGeneCacheSize bounds each gene cache when no size is configured.
const DefaultGeneCacheSize = 4096

// HumanTaxID is the NCBI taxonomy ID gene2accession lookups are limited to.
const HumanTaxID = 9606

const (
	geneIDForSymbolSQL = "SELECT GeneID AS ID FROM gene_info WHERE Symbol = ? LIMIT 1"
	geneNameForIDSQL   = "SELECT Symbol AS ID FROM gene_info WHERE GeneID = ? LIMIT 1"
	pubmedsForGeneSQL  = "SELECT PMID FROM gene2pubmed WHERE GeneID = ?"
	omimForGeneSQL     = "SELECT * FROM mim2gene_medgen WHERE GeneID = ?"
	rifsForGeneSQL     = "SELECT DISTINCT pubmeds, GeneRIF FROM generifs_basic WHERE GeneID = ?"
	infoForGeneSQL     = "SELECT * FROM gene_info WHERE GeneID = ? LIMIT 1"
	listGenesSQL       = "SELECT DISTINCT Symbol AS gene_name FROM gene_info WHERE tax_id = ? ORDER BY Symbol"
	conceptsForGeneSQL = "SELECT DISTINCT MedGenCUI AS CUI FROM mim2gene_medgen WHERE GeneID = ? AND MedGenCUI <> '-' ORDER BY MedGenCUI"

	synonymsForSymbolSQL = `SELECT Synonyms, Symbol, GeneID FROM gene_info
		WHERE Symbol = ?
		OR (Synonyms = ? OR Synonyms LIKE ? OR Synonyms LIKE ? OR Synonyms LIKE ?)
		OR Nomen_symbol = ?`

	geneIDForAccessionSQL = `SELECT DISTINCT GeneID AS ID FROM gene2accession
		WHERE STATUS = 'REVIEWED' AND tax_id = ?
		AND (RNA_acc_ver = ? OR Protein_acc_ver = ? OR Genomic_acc_ver = ?)
		LIMIT 1`
)

// symbolLookup is a cached symbol resolution. Misses are cached too.
type symbolLookup struct {
	geneID int64
	found  bool
}

// GeneRepository reads the NCBI Gene mirror. Symbol resolutions and
// gene2pubmed lists are kept in bounded LRU caches owned by the instance.
type GeneRepository struct {
	sd      *database.SQLData
	log     *logrus.Logger
	metrics *monitoring.Metrics

	symbols *lru.Cache[string, symbolLookup]
	pubmeds *lru.Cache[int64, []string]
}

// NewGeneRepository creates a gene accessor. A cacheSize of zero or less
// uses DefaultGeneCacheSize.
func NewGeneRepository(sd *database.SQLData, cacheSize int, logger *logrus.Logger, metrics *monitoring.Metrics) (*GeneRepository, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultGeneCacheSize
	}

	symbols, err := lru.New[string, symbolLookup](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating symbol cache: %w", err)
	}
	pubmeds, err := lru.New[int64, []string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating gene2pubmed cache: %w", err)
	}

	return &GeneRepository{
		sd:      sd,
		log:     logger,
		metrics: metrics,
		symbols: symbols,
		pubmeds: pubmeds,
	}, nil
}

// ResolveGeneID normalizes a gene reference to an NCBI GeneID. Integers and
// decimal strings are returned unchanged, GeneIdentifier values report their
// own ID, anything else textual is looked up as an HGNC symbol. GeneIDs are
// positive, so zero, negative and out of range numbers are rejected.
func (r *GeneRepository) ResolveGeneID(ctx context.Context, gene interface{}) (int64, error) {
	switch v := gene.(type) {
	case int:
		return positiveGeneID(int64(v), gene)
	case int32:
		return positiveGeneID(int64(v), gene)
	case int64:
		return positiveGeneID(v, gene)
	case uint:
		return unsignedGeneID(uint64(v), gene)
	case uint32:
		return positiveGeneID(int64(v), gene)
	case uint64:
		return unsignedGeneID(v, gene)
	case domain.GeneIdentifier:
		return positiveGeneID(v.GetGeneID(), gene)
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return 0, domain.InvalidArgument("empty gene reference")
		}
		id, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			return positiveGeneID(id, gene)
		}
		if errors.Is(err, strconv.ErrRange) {
			return 0, domain.InvalidArgument("gene id %q out of range", text)
		}
		return r.GeneIDForSymbol(ctx, text)
	default:
		return 0, domain.InvalidArgument("unsupported gene reference %v (%T)", gene, gene)
	}
}

func positiveGeneID(id int64, gene interface{}) (int64, error) {
	if id <= 0 {
		return 0, domain.InvalidArgument("invalid gene id %v: must be positive", gene)
	}
	return id, nil
}

func unsignedGeneID(id uint64, gene interface{}) (int64, error) {
	if id > math.MaxInt64 {
		return 0, domain.InvalidArgument("gene id %v out of range", gene)
	}
	return positiveGeneID(int64(id), gene)
}

// GeneIDForSymbol looks up the GeneID of an HGNC symbol.
func (r *GeneRepository) GeneIDForSymbol(ctx context.Context, symbol string) (int64, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))

	cached, hit := r.symbols.Get(key)
	r.metrics.ObserveCache("gene_symbol", hit)
	if !hit {
		value, found, err := r.sd.FetchID(ctx, geneIDForSymbolSQL, key)
		if err != nil {
			return 0, fmt.Errorf("resolving gene symbol %s: %w", key, err)
		}
		cached = symbolLookup{found: found}
		if found {
			if cached.geneID, err = domain.ValueInt64(value); err != nil {
				return 0, fmt.Errorf("decoding GeneID for %s: %w", key, err)
			}
		}
		r.symbols.Add(key, cached)
	}

	if !cached.found {
		return 0, domain.NotFound("no GeneID for gene symbol %s", key)
	}
	return cached.geneID, nil
}

// GeneNameForID returns the HGNC symbol of a gene.
func (r *GeneRepository) GeneNameForID(ctx context.Context, gene interface{}) (string, error) {
	geneID, err := r.ResolveGeneID(ctx, gene)
	if err != nil {
		return "", err
	}
	value, found, err := r.sd.FetchID(ctx, geneNameForIDSQL, geneID)
	if err != nil {
		return "", err
	}
	if !found || value == nil {
		return "", domain.NotFound("no gene symbol for GeneID %d", geneID)
	}
	return domain.ValueString(value), nil
}

// PubmedsForGene returns the PMIDs gene2pubmed links to a gene.
func (r *GeneRepository) PubmedsForGene(ctx context.Context, gene interface{}) ([]string, error) {
	geneID, err := r.ResolveGeneID(ctx, gene)
	if err != nil {
		return nil, err
	}

	if pmids, hit := r.pubmeds.Get(geneID); hit {
		r.metrics.ObserveCache("gene2pubmed", true)
		return append([]string(nil), pmids...), nil
	}
	r.metrics.ObserveCache("gene2pubmed", false)

	pmids, err := r.sd.PMIDs(ctx, pubmedsForGeneSQL, geneID)
	if err != nil {
		return nil, err
	}
	r.pubmeds.Add(geneID, pmids)

	r.log.WithFields(logrus.Fields{
		"gene_id": geneID,
		"pmids":   len(pmids),
	}).Debug("Loaded gene2pubmed")

	return append([]string(nil), pmids...), nil
}

// OMIMForGene returns the mim2gene_medgen links of a gene.
func (r *GeneRepository) OMIMForGene(ctx context.Context, gene interface{}) ([]domain.MIMEntry, error) {
	geneID, err := r.ResolveGeneID(ctx, gene)
	if err != nil {
		return nil, err
	}
	rows, err := r.sd.FetchAll(ctx, omimForGeneSQL, geneID)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.MIMEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.MIMEntry{
			MIM:       row.String("MIM"),
			GeneID:    geneID,
			Type:      firstOf(row, "MIM_type", "type"),
			Source:    firstOf(row, "MIM_vocab", "Source"),
			MedGenCUI: row.String("MedGenCUI"),
			Comment:   row.String("Comment"),
		})
	}
	return entries, nil
}

// FunctionRIFsForGene returns the Gene References Into Function of a gene:
// what the gene does, with the PMIDs backing each statement.
func (r *GeneRepository) FunctionRIFsForGene(ctx context.Context, gene interface{}) ([]domain.GeneRIF, error) {
	geneID, err := r.ResolveGeneID(ctx, gene)
	if err != nil {
		return nil, err
	}
	rows, err := r.sd.FetchAll(ctx, rifsForGeneSQL, geneID)
	if err != nil {
		return nil, err
	}

	rifs := make([]domain.GeneRIF, 0, len(rows))
	for _, row := range rows {
		rifs = append(rifs, domain.GeneRIF{
			PubMeds: row.String("pubmeds"),
			Text:    row.String("GeneRIF"),
		})
	}
	return rifs, nil
}

// InfoForGene returns the gene_info row of a gene.
func (r *GeneRepository) InfoForGene(ctx context.Context, gene interface{}) (*domain.GeneInfo, error) {
	geneID, err := r.ResolveGeneID(ctx, gene)
	if err != nil {
		return nil, err
	}
	row, err := r.sd.FetchRow(ctx, infoForGeneSQL, geneID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.NotFound("no gene_info row for GeneID %d", geneID)
	}
	return geneInfoFromRow(row)
}

// SynonymsForSymbol finds genes whose symbol, pipe-separated synonyms or
// nomenclature symbol match, including unofficial names.
func (r *GeneRepository) SynonymsForSymbol(ctx context.Context, symbol string) ([]domain.GeneSynonym, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, domain.InvalidArgument("empty gene symbol")
	}

	rows, err := r.sd.FetchAll(ctx, synonymsForSymbolSQL,
		symbol, symbol, "%|"+symbol, symbol+"|%", "%|"+symbol+"|%", symbol)
	if err != nil {
		return nil, err
	}

	synonyms := make([]domain.GeneSynonym, 0, len(rows))
	for _, row := range rows {
		geneID, err := row.Int64("GeneID")
		if err != nil {
			return nil, fmt.Errorf("decoding GeneID of %s: %w", row.String("Symbol"), err)
		}
		synonyms = append(synonyms, domain.GeneSynonym{
			Synonyms: row.String("Synonyms"),
			Symbol:   row.String("Symbol"),
			GeneID:   geneID,
		})
	}
	return synonyms, nil
}

// GeneIDForKnownAccession maps a reviewed human RefSeq RNA, protein or
// genomic accession (e.g. NM_000059.3) to its GeneID.
func (r *GeneRepository) GeneIDForKnownAccession(ctx context.Context, accession string) (int64, error) {
	accession = strings.TrimSpace(accession)
	if accession == "" {
		return 0, domain.InvalidArgument("empty accession")
	}
	value, found, err := r.sd.FetchID(ctx, geneIDForAccessionSQL, HumanTaxID, accession, accession, accession)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, domain.NotFound("no reviewed gene2accession entry for %s", accession)
	}
	return domain.ValueInt64(value)
}

// ListGenes lists the distinct gene symbols of a taxon.
func (r *GeneRepository) ListGenes(ctx context.Context, taxID int64) ([]string, error) {
	return r.sd.ListGenes(ctx, listGenesSQL, taxID)
}

// ConceptsForGene lists the MedGen concept IDs (CUIs) mim2gene_medgen links
// to a gene.
func (r *GeneRepository) ConceptsForGene(ctx context.Context, gene interface{}) ([]string, error) {
	geneID, err := r.ResolveGeneID(ctx, gene)
	if err != nil {
		return nil, err
	}
	return r.sd.ListConcepts(ctx, conceptsForGeneSQL, geneID)
}

// LastMirrorTime reports when a gene table was last loaded.
func (r *GeneRepository) LastMirrorTime(ctx context.Context, table string) (domain.MirrorStatus, error) {
	t, err := r.sd.LastMirrorTime(ctx, table)
	if err != nil {
		return domain.MirrorStatus{}, err
	}
	return domain.MirrorStatus{Entity: table, LastMirror: t}, nil
}

// Ping checks the gene warehouse connection.
func (r *GeneRepository) Ping(ctx context.Context) error {
	return r.sd.Ping(ctx)
}

func geneInfoFromRow(row domain.Row) (*domain.GeneInfo, error) {
	geneID, err := row.Int64("GeneID")
	if err != nil {
		return nil, fmt.Errorf("decoding gene_info GeneID: %w", err)
	}
	info := &domain.GeneInfo{
		GeneID:       geneID,
		Symbol:       row.String("Symbol"),
		LocusTag:     row.String("LocusTag"),
		Synonyms:     row.String("Synonyms"),
		DBXrefs:      row.String("dbXrefs"),
		Chromosome:   row.String("chromosome"),
		MapLocation:  row.String("map_loc"),
		Description:  row.String("GeneDesc"),
		GeneType:     row.String("GeneType"),
		NomenSymbol:  row.String("Nomen_symbol"),
		NomenSource:  row.String("Nomen_source"),
		NomenStatus:  row.String("Nomen_status"),
		Other:        row.String("GeneOther"),
		LastModified: row.String("LastModified"),
		Raw:          row,
	}
	if row.Has("tax_id") && row["tax_id"] != nil {
		if info.TaxID, err = row.Int64("tax_id"); err != nil {
			return nil, fmt.Errorf("decoding gene_info tax_id: %w", err)
		}
	}
	return info, nil
}

// firstOf returns the first non-empty column; mirrors differ in naming.
func firstOf(row domain.Row, columns ...string) string {
	for _, col := range columns {
		if v := row.String(col); v != "" {
			return v
		}
	}
	return ""
}
