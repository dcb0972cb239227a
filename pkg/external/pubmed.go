package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medgen-mcp-server/internal/domain"
	"github.com/medgen-mcp-server/internal/monitoring"
)

const (
	DefaultEUtilsURL    = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"
	DefaultIDConvertURL = "https://www.ncbi.nlm.nih.gov/pmc/utils/idconv/v1.0/"

	pubMedService    = "PubMed E-utilities"
	idConvertService = "PMC ID Converter"
)

// PubMedClient resolves PubMed and PubMed Central identifiers to article
// records through NCBI E-utilities and the PMC ID converter.
type PubMedClient struct {
	baseURL      string
	idConvertURL string
	apiKey       string
	email        string
	tool         string
	getter       *resilientGetter
	log          *logrus.Logger
}

// NewPubMedClient creates a new PubMed API client
func NewPubMedClient(config domain.PubMedConfig, logger *logrus.Logger, metrics *monitoring.Metrics) *PubMedClient {
	if config.BaseURL == "" {
		config.BaseURL = DefaultEUtilsURL
	}
	if config.IDConvertURL == "" {
		config.IDConvertURL = DefaultIDConvertURL
	}
	if config.RateLimit == 0 {
		config.RateLimit = 3
		if config.APIKey != "" {
			config.RateLimit = 10
		}
	}

	return &PubMedClient{
		baseURL:      strings.TrimSuffix(config.BaseURL, "/") + "/",
		idConvertURL: config.IDConvertURL,
		apiKey:       config.APIKey,
		email:        config.Email,
		tool:         config.Tool,
		getter:       newResilientGetter("pubmed", config.Timeout, config.RateLimit, logger, metrics),
		log:          logger,
	}
}

// esummaryResponse is the JSON form of esummary.fcgi?db=pubmed. Result is
// keyed by UID next to a "uids" list.
type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type esummaryDoc struct {
	UID        string `json:"uid"`
	PubDate    string `json:"pubdate"`
	Source     string `json:"source"`
	Title      string `json:"title"`
	Error      string `json:"error"`
	ArticleIDs []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
}

type idConvertResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Records []struct {
		PMCID  string `json:"pmcid"`
		PMID   string `json:"pmid"`
		DOI    string `json:"doi"`
		Status string `json:"status"`
		ErrMsg string `json:"errmsg"`
	} `json:"records"`
}

func (p *PubMedClient) identify(params url.Values) url.Values {
	if p.tool != "" {
		params.Set("tool", p.tool)
	}
	if p.email != "" {
		params.Set("email", p.email)
	}
	if p.apiKey != "" {
		params.Set("api_key", p.apiKey)
	}
	return params
}

// ArticleByPMID fetches the summary of a PubMed article.
func (p *PubMedClient) ArticleByPMID(ctx context.Context, pmid string) (*domain.Article, error) {
	pmid = strings.TrimSpace(pmid)
	if _, err := strconv.ParseInt(pmid, 10, 64); err != nil {
		return nil, domain.InvalidArgument("invalid PMID %q", pmid)
	}

	params := p.identify(url.Values{
		"db":      {"pubmed"},
		"id":      {pmid},
		"retmode": {"json"},
	})
	summaryURL := p.baseURL + "esummary.fcgi?" + params.Encode()

	body, err := p.getJSON(ctx, pubMedService, summaryURL)
	if err != nil {
		return nil, err
	}

	var summary esummaryResponse
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, &domain.ServiceError{Service: pubMedService, Message: fmt.Sprintf("failed to parse response: %v", err), Body: string(body), ReproduceURL: summaryURL}
	}

	raw, ok := summary.Result[pmid]
	if !ok {
		return nil, domain.NotFound("no PubMed article %s", pmid)
	}
	var doc esummaryDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &domain.ServiceError{Service: pubMedService, Message: fmt.Sprintf("failed to parse summary: %v", err), Body: string(raw), ReproduceURL: summaryURL}
	}
	if doc.Error != "" {
		return nil, domain.NotFound("no PubMed article %s: %s", pmid, doc.Error)
	}

	article := &domain.Article{
		PMID:    pmid,
		Title:   doc.Title,
		Journal: doc.Source,
		PubDate: doc.PubDate,
	}
	for _, id := range doc.ArticleIDs {
		switch id.IDType {
		case "doi":
			article.DOI = id.Value
		case "pmc":
			article.PMCID = id.Value
		}
	}
	return article, nil
}

// ArticleByPMCID converts a PubMed Central ID ("PMC3531190" or "3531190")
// to its PubMed record. PMC articles without a PubMed entry are NotFound.
func (p *PubMedClient) ArticleByPMCID(ctx context.Context, pmcid string) (*domain.Article, error) {
	pmcid, err := NormalizePMCID(pmcid)
	if err != nil {
		return nil, err
	}

	params := p.identify(url.Values{
		"ids":    {pmcid},
		"format": {"json"},
	})
	convertURL := p.idConvertURL + "?" + params.Encode()

	body, err := p.getJSON(ctx, idConvertService, convertURL)
	if err != nil {
		return nil, err
	}

	var converted idConvertResponse
	if err := json.Unmarshal(body, &converted); err != nil {
		return nil, &domain.ServiceError{Service: idConvertService, Message: fmt.Sprintf("failed to parse response: %v", err), Body: string(body), ReproduceURL: convertURL}
	}
	if converted.Status != "" && converted.Status != "ok" {
		return nil, &domain.ServiceError{Service: idConvertService, Message: converted.Message, Body: string(body), ReproduceURL: convertURL}
	}

	for _, rec := range converted.Records {
		if !strings.EqualFold(rec.PMCID, pmcid) && rec.PMCID != "" {
			continue
		}
		if rec.PMID == "" {
			p.log.WithFields(logrus.Fields{
				"pmcid":  pmcid,
				"errmsg": rec.ErrMsg,
			}).Debug("PMC ID has no PubMed ID")
			break
		}
		return &domain.Article{PMID: rec.PMID, PMCID: pmcid, DOI: rec.DOI}, nil
	}
	return nil, domain.NotFound("no PubMed article for %s", pmcid)
}

func (p *PubMedClient) getJSON(ctx context.Context, service, rawURL string) ([]byte, error) {
	resp, err := p.getter.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, &domain.ServiceError{
			Service:      service,
			Message:      fmt.Sprintf("HTTP %d", resp.status),
			Body:         string(resp.body),
			ReproduceURL: rawURL,
		}
	}
	return resp.body, nil
}

// NormalizePMCID upper-cases a PMC ID and adds the "PMC" prefix to bare
// numbers.
func NormalizePMCID(pmcid string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(pmcid))
	id = strings.TrimPrefix(id, "PMC")
	if id == "" {
		return "", domain.InvalidArgument("empty PMC ID")
	}
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return "", domain.InvalidArgument("invalid PMC ID %q", pmcid)
	}
	return "PMC" + id, nil
}
