package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medgen-mcp-server/internal/database"
	"github.com/medgen-mcp-server/internal/domain"
	"github.com/medgen-mcp-server/internal/logging"
)

var warehouseSchema = []string{
	`CREATE TABLE gene_info (
		tax_id INTEGER, GeneID INTEGER, Symbol TEXT, LocusTag TEXT, Synonyms TEXT,
		dbXrefs TEXT, chromosome TEXT, map_loc TEXT, GeneDesc TEXT, GeneType TEXT,
		Nomen_symbol TEXT, Nomen_source TEXT, Nomen_status TEXT, GeneOther TEXT, LastModified TEXT)`,
	`CREATE TABLE gene2pubmed (tax_id INTEGER, GeneID INTEGER, PMID TEXT)`,
	`CREATE TABLE gene2accession (
		tax_id INTEGER, GeneID INTEGER, STATUS TEXT,
		RNA_acc_ver TEXT, Protein_acc_ver TEXT, Genomic_acc_ver TEXT)`,
	`CREATE TABLE mim2gene_medgen (MIM INTEGER, GeneID INTEGER, MIM_type TEXT, MIM_vocab TEXT, MedGenCUI TEXT)`,
	`CREATE TABLE generifs_basic (tax_id INTEGER, GeneID INTEGER, pubmeds TEXT, GeneRIF TEXT)`,
	`CREATE TABLE variant_summary (AlleleID INTEGER, VariationID INTEGER, RCVaccession TEXT, HGVS_c TEXT)`,
	`CREATE TABLE var_citations (AlleleID INTEGER, VariationID INTEGER, citation_source TEXT, citation_id TEXT)`,
	`CREATE TABLE log (
		idx INTEGER PRIMARY KEY AUTOINCREMENT,
		event_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		entity_name TEXT NOT NULL,
		message TEXT)`,
}

var warehouseRows = map[string][]map[string]interface{}{
	"gene_info": {
		{"tax_id": 9606, "GeneID": 672, "Symbol": "BRCA1", "LocusTag": "-", "Synonyms": "BRCAI|BRCC1|BROVCA1|FANCS|IRIS|PNCA4|PPP1R53|PSCP|RNF53",
			"dbXrefs": "MIM:113705|HGNC:HGNC:1100", "chromosome": "17", "map_loc": "17q21.31", "GeneDesc": "BRCA1 DNA repair associated",
			"GeneType": "protein-coding", "Nomen_symbol": "BRCA1", "Nomen_source": "HGNC", "Nomen_status": "O", "GeneOther": nil, "LastModified": "20240101"},
		{"tax_id": 9606, "GeneID": 675, "Symbol": "BRCA2", "Synonyms": "BRCC2|BROVCA2|FACD|FAD|FAD1|FANCD|FANCD1|GLM3|PNCA2|XRCC11",
			"chromosome": "13", "GeneType": "protein-coding", "Nomen_symbol": "BRCA2"},
		{"tax_id": 9606, "GeneID": 7157, "Symbol": "TP53", "Synonyms": "BCC7|LFS1|P53|TRP53",
			"chromosome": "17", "GeneType": "protein-coding", "Nomen_symbol": "TP53"},
		{"tax_id": 10090, "GeneID": 22059, "Symbol": "Trp53", "Synonyms": "Tp53|p44", "chromosome": "11"},
	},
	"gene2pubmed": {
		{"tax_id": 9606, "GeneID": 672, "PMID": "20"},
		{"tax_id": 9606, "GeneID": 672, "PMID": "10"},
		{"tax_id": 9606, "GeneID": 672, "PMID": "10"},
		{"tax_id": 9606, "GeneID": 675, "PMID": "30"},
	},
	"gene2accession": {
		{"tax_id": 9606, "GeneID": 675, "STATUS": "REVIEWED", "RNA_acc_ver": "NM_000059.3", "Protein_acc_ver": "NP_000050.2", "Genomic_acc_ver": "NC_000013.11"},
		{"tax_id": 9606, "GeneID": 675, "STATUS": "REVIEWED", "RNA_acc_ver": "NM_000059.3", "Protein_acc_ver": "NP_000050.2", "Genomic_acc_ver": "NG_012772.3"},
		{"tax_id": 9606, "GeneID": 672, "STATUS": "VALIDATED", "RNA_acc_ver": "NM_007300.4", "Protein_acc_ver": "NP_009231.2", "Genomic_acc_ver": "NC_000017.11"},
	},
	"mim2gene_medgen": {
		{"MIM": 113705, "GeneID": 672, "MIM_type": "gene", "MIM_vocab": "GeneMap", "MedGenCUI": "C1412207"},
		{"MIM": 604370, "GeneID": 672, "MIM_type": "phenotype", "MIM_vocab": "GeneMap", "MedGenCUI": "C2676676"},
		{"MIM": 600185, "GeneID": 675, "MIM_type": "gene", "MIM_vocab": "-", "MedGenCUI": "-"},
	},
	"generifs_basic": {
		{"tax_id": 9606, "GeneID": 672, "pubmeds": "12345,23456", "GeneRIF": "BRCA1 mediates homologous recombination repair."},
		{"tax_id": 9606, "GeneID": 672, "pubmeds": "12345,23456", "GeneRIF": "BRCA1 mediates homologous recombination repair."},
		{"tax_id": 9606, "GeneID": 672, "pubmeds": "34567", "GeneRIF": "BRCA1 loss sensitizes cells to PARP inhibition."},
	},
	"variant_summary": {
		{"AlleleID": 15000, "VariationID": 55000, "RCVaccession": "RCV000031246", "HGVS_c": "NM_007294.3:c.5266dupC"},
		{"AlleleID": 15001, "VariationID": 55001, "RCVaccession": "RCV000077600", "HGVS_c": "NM_000059.3:c.8755-1G>A"},
		{"AlleleID": 15002, "VariationID": 55002, "RCVaccession": "RCV000013144", "HGVS_c": "NM_000546.5:c.215C>G"},
	},
	"var_citations": {
		{"AlleleID": 15000, "VariationID": 55000, "citation_source": "PubMed", "citation_id": "20104584"},
		{"AlleleID": 15000, "VariationID": 55000, "citation_source": "PubMed", "citation_id": "20104584"},
		{"AlleleID": 15000, "VariationID": 55000, "citation_source": "PubMed", "citation_id": "25741868"},
		{"AlleleID": 15000, "VariationID": 55000, "citation_source": "PubMedCentral", "citation_id": "PMC3000001"},
		{"AlleleID": 15000, "VariationID": 55000, "citation_source": "PubMedCentral", "citation_id": "PMC9999999"},
		{"AlleleID": 15001, "VariationID": 55001, "citation_source": "PubMed", "citation_id": "24728327"},
		{"AlleleID": 15001, "VariationID": 55001, "citation_source": "PubMedCentral", "citation_id": "PMC3000001"},
		{"AlleleID": 15002, "VariationID": 55002, "citation_source": "PubMedCentral", "citation_id": "PMC5000000"},
		{"AlleleID": 15002, "VariationID": 55002, "citation_source": "NCBIBookShelf", "citation_id": "NBK1247"},
		{"AlleleID": 15002, "VariationID": 55002, "citation_source": "PubMed", "citation_id": "11111"},
	},
}

// newWarehouse builds a temp-file SQLite mirror loaded with the fixture rows.
func newWarehouse(t *testing.T) *database.SQLData {
	t.Helper()
	ctx := context.Background()

	sd, err := database.Open(ctx, domain.DatabaseConfig{
		Driver:      "sqlite",
		Dataset:     filepath.Join(t.TempDir(), "warehouse.db"),
		CommitOnEnd: true,
	}, logging.Discard(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { sd.Close() })

	for _, stmt := range warehouseSchema {
		_, err := sd.Execute(ctx, stmt)
		require.NoError(t, err)
	}
	for table, rows := range warehouseRows {
		for _, row := range rows {
			_, err := sd.Insert(ctx, table, row)
			require.NoError(t, err)
		}
	}
	return sd
}

// fakeResolver resolves PMC IDs from a fixed table and counts lookups.
type fakeResolver struct {
	mu       sync.Mutex
	articles map[string]*domain.Article
	failures map[string]error
	calls    map[string]int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		articles: map[string]*domain.Article{
			"PMC3000001": {PMID: "25741868", PMCID: "PMC3000001"},
		},
		failures: map[string]error{},
		calls:    map[string]int{},
	}
}

func (f *fakeResolver) ArticleByPMID(ctx context.Context, pmid string) (*domain.Article, error) {
	return &domain.Article{PMID: pmid}, nil
}

func (f *fakeResolver) ArticleByPMCID(ctx context.Context, pmcid string) (*domain.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[pmcid]++
	if err, ok := f.failures[pmcid]; ok {
		return nil, err
	}
	if a, ok := f.articles[pmcid]; ok {
		return a, nil
	}
	return nil, domain.NotFound("no article for %s", pmcid)
}
