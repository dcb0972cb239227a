package domain

import (
	"errors"
	"time"
)

// Citation sources used by ClinVar's var_citations table.
const (
	CitationSourcePubMed        = "PubMed"
	CitationSourcePubMedCentral = "PubMedCentral"
)

// Citation is one literature reference attached to a ClinVar variant.
type Citation struct {
	CitationID     string `json:"citation_id"`
	CitationSource string `json:"citation_source"`
	HGVSText       string `json:"hgvs_text"`
	Accession      string `json:"accession"`
}

// CitationRecord is a citation resolved to a PubMed ID.
type CitationRecord struct {
	HGVSText  string `json:"hgvs_text"`
	PMID      int64  `json:"pmid"`
	Accession string `json:"accession"`
}

// VariantIdentifiers groups the ClinVar identifiers of one HGVS expression.
type VariantIdentifiers struct {
	HGVSText    string         `json:"hgvs_text"`
	Accession   Lookup[string] `json:"accession"`
	AlleleID    Lookup[int64]  `json:"allele_id"`
	VariationID Lookup[int64]  `json:"variation_id"`
}

// Article is the part of a PubMed record the resolver exposes.
type Article struct {
	PMID    string `json:"pmid"`
	PMCID   string `json:"pmcid,omitempty"`
	DOI     string `json:"doi,omitempty"`
	Title   string `json:"title,omitempty"`
	Journal string `json:"journal,omitempty"`
	PubDate string `json:"pub_date,omitempty"`
}

// VariantReportRow is one data line of an NCBI Variant Reporter response.
type VariantReportRow struct {
	Fields   map[string]string `json:"fields"`
	PMIDs    []string          `json:"pmids,omitempty"`
	HasPMIDs bool              `json:"-"`
}

// Get returns a field by its normalized header name.
func (r VariantReportRow) Get(name string) string {
	return r.Fields[name]
}

// GeneIdentifier is implemented by records that already carry a GeneID.
type GeneIdentifier interface {
	GetGeneID() int64
}

// GeneInfo is a gene_info row.
type GeneInfo struct {
	TaxID        int64     `json:"tax_id"`
	GeneID       int64     `json:"gene_id"`
	Symbol       string    `json:"symbol"`
	LocusTag     string    `json:"locus_tag,omitempty"`
	Synonyms     string    `json:"synonyms,omitempty"`
	DBXrefs      string    `json:"db_xrefs,omitempty"`
	Chromosome   string    `json:"chromosome,omitempty"`
	MapLocation  string    `json:"map_location,omitempty"`
	Description  string    `json:"description,omitempty"`
	GeneType     string    `json:"gene_type,omitempty"`
	NomenSymbol  string    `json:"nomen_symbol,omitempty"`
	NomenSource  string    `json:"nomen_source,omitempty"`
	NomenStatus  string    `json:"nomen_status,omitempty"`
	Other        string    `json:"other,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Raw          Row       `json:"-"`
	FetchedAt    time.Time `json:"-"`
}

// GetGeneID implements GeneIdentifier.
func (g *GeneInfo) GetGeneID() int64 {
	return g.GeneID
}

// MIMEntry is a mim2gene_medgen row.
type MIMEntry struct {
	MIM       string `json:"mim"`
	GeneID    int64  `json:"gene_id"`
	Type      string `json:"type"`
	Source    string `json:"source,omitempty"`
	MedGenCUI string `json:"medgen_cui,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

// GeneRIF is a Gene Reference Into Function from generifs_basic.
type GeneRIF struct {
	PubMeds string `json:"pubmeds"`
	Text    string `json:"text"`
}

// GeneSynonym is a gene_info row matched by symbol or synonym.
type GeneSynonym struct {
	Synonyms string `json:"synonyms"`
	Symbol   string `json:"symbol"`
	GeneID   int64  `json:"gene_id"`
}

// MirrorStatus reports when an entity was last mirrored into the warehouse.
type MirrorStatus struct {
	Entity     string    `json:"entity"`
	LastMirror time.Time `json:"last_mirror"`
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
