package external

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medgen-mcp-server/internal/domain"
	"github.com/medgen-mcp-server/internal/monitoring"
)

// DefaultVariantReporterURL is the NCBI Variant Reporter endpoint.
const DefaultVariantReporterURL = "https://www.ncbi.nlm.nih.gov/projects/SNP/VariantAnalyzer/var_rep.cgi"

const (
	variantReporterService = "NCBI Variant Report Service"

	pmidsField     = "PMIDs"
	accessionField = "ClinVar Accession"
)

// VariantReporterClient queries the NCBI Variant Reporter and normalizes
// its tab-delimited reports.
type VariantReporterClient struct {
	baseURL    string
	accumulate bool
	getter     *resilientGetter
	cache      ReportCache
	log        *logrus.Logger
}

// NewVariantReporterClient creates a Variant Reporter client. cache may be
// nil.
func NewVariantReporterClient(config domain.VariantReporterConfig, cache ReportCache, logger *logrus.Logger, metrics *monitoring.Metrics) *VariantReporterClient {
	if config.BaseURL == "" {
		config.BaseURL = DefaultVariantReporterURL
	}
	return &VariantReporterClient{
		baseURL:    config.BaseURL,
		accumulate: config.AccumulatePMIDs,
		getter:     newResilientGetter("variant_reporter", config.Timeout, config.RateLimit, logger, metrics),
		cache:      cache,
		log:        logger,
	}
}

// ReportURL is the request URL for an HGVS expression.
func (c *VariantReporterClient) ReportURL(hgvsText string) string {
	return c.baseURL + "?" + url.Values{"annot1": {hgvsText}}.Encode()
}

// FetchVariantReport returns the parsed report rows of an HGVS expression
// (c.DNA, r.RNA, p.Protein or g.Genomic). A response mentioning "Error"
// anywhere is a ServiceError.
func (c *VariantReporterClient) FetchVariantReport(ctx context.Context, hgvsText string) ([]domain.VariantReportRow, error) {
	hgvsText = strings.TrimSpace(hgvsText)
	if hgvsText == "" {
		return nil, domain.InvalidArgument("empty HGVS expression")
	}

	body, err := c.fetch(ctx, hgvsText)
	if err != nil {
		return nil, err
	}
	return ParseVariantReport(body), nil
}

func (c *VariantReporterClient) fetch(ctx context.Context, hgvsText string) (string, error) {
	key := "var_rep:" + hgvsText
	if c.cache != nil {
		body, hit, err := c.cache.Get(ctx, key)
		if err != nil {
			c.log.WithError(err).Warn("Variant report cache read failed")
		} else if hit {
			c.getter.metrics.ObserveCache("variant_report", true)
			return body, nil
		}
		c.getter.metrics.ObserveCache("variant_report", false)
	}

	reportURL := c.ReportURL(hgvsText)
	resp, err := c.getter.get(ctx, reportURL)
	if err != nil {
		return "", err
	}

	body := string(resp.body)
	if !resp.ok() {
		return "", &domain.ServiceError{
			Service:      variantReporterService,
			Message:      fmt.Sprintf("HTTP %d", resp.status),
			Body:         body,
			ReproduceURL: reportURL,
		}
	}
	if strings.Contains(body, "Error") {
		return "", &domain.ServiceError{
			Service:      variantReporterService,
			Message:      "report contains an error",
			Body:         body,
			ReproduceURL: reportURL,
		}
	}

	c.log.WithFields(logrus.Fields{
		"hgvs_text": hgvsText,
		"body":      body,
	}).Debug("Variant report received")

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, body); err != nil {
			c.log.WithError(err).Warn("Variant report cache write failed")
		}
	}
	return body, nil
}

// ParseVariantReport parses a Variant Reporter response. Blank lines and
// lines starting with ".", "##" or "Submitted" are dropped, the first
// remaining line is the header (leading/trailing "#" and spaces stripped
// from each name) and every later line is zipped against it. A PMIDs field
// is split on ";" or ", ".
func ParseVariantReport(body string) []domain.VariantReportRow {
	var lines [][]string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" ||
			strings.HasPrefix(line, ".") ||
			strings.HasPrefix(line, "##") ||
			strings.HasPrefix(line, "Submitted") {
			continue
		}
		lines = append(lines, strings.Split(line, "\t"))
	}

	rows := []domain.VariantReportRow{}
	if len(lines) == 0 {
		return rows
	}

	header := make([]string, len(lines[0]))
	for i, name := range lines[0] {
		header[i] = strings.Trim(name, "# ")
	}

	for _, values := range lines[1:] {
		n := len(header)
		if len(values) < n {
			n = len(values)
		}
		row := domain.VariantReportRow{Fields: make(map[string]string, n)}
		for i := 0; i < n; i++ {
			row.Fields[header[i]] = values[i]
		}
		if pmids, ok := row.Fields[pmidsField]; ok {
			row.HasPMIDs = true
			row.PMIDs = splitPMIDs(pmids)
		}
		rows = append(rows, row)
	}
	return rows
}

func splitPMIDs(field string) []string {
	if field == "" {
		return []string{}
	}
	return strings.Split(strings.ReplaceAll(field, ", ", ";"), ";")
}

// PubmedsForVariant returns the PMIDs the report cites for a variant.
//
// Unless AccumulatePMIDs is configured, only the last report row's PMIDs are
// returned, matching the historical behavior of this lookup; with it the
// rows' PMIDs are merged without duplicates. Empty entries are skipped and a
// non-numeric entry fails the call.
func (c *VariantReporterClient) PubmedsForVariant(ctx context.Context, hgvsText string) ([]int64, error) {
	rows, err := c.FetchVariantReport(ctx, hgvsText)
	if err != nil {
		return nil, err
	}

	var entries []string
	for _, row := range rows {
		if c.accumulate {
			entries = append(entries, row.PMIDs...)
			continue
		}
		entries = row.PMIDs
	}

	pmids := make([]int64, 0, len(entries))
	seen := make(map[int64]struct{}, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pmid, err := strconv.ParseInt(entry, 10, 64)
		if err != nil {
			return nil, &domain.ServiceError{
				Service:      variantReporterService,
				Message:      fmt.Sprintf("invalid PMID %q", entry),
				ReproduceURL: c.ReportURL(hgvsText),
			}
		}
		if c.accumulate {
			if _, dup := seen[pmid]; dup {
				continue
			}
			seen[pmid] = struct{}{}
		}
		pmids = append(pmids, pmid)
	}
	return pmids, nil
}

// AccessionForVariant returns the first ClinVar accession the report lists.
// Single-character placeholders such as "-" do not count.
func (c *VariantReporterClient) AccessionForVariant(ctx context.Context, hgvsText string) (string, error) {
	rows, err := c.FetchVariantReport(ctx, hgvsText)
	if err != nil {
		return "", err
	}

	for _, row := range rows {
		if accession := strings.TrimSpace(row.Get(accessionField)); len(accession) > 1 {
			return accession, nil
		}
	}

	c.log.WithField("hgvs_text", hgvsText).Debug("Variant accession not found in ClinVar")
	return "", domain.NotFound("no ClinVar accession in variant report for %s", hgvsText)
}
