package hgvs

import (
	"regexp"
	"strings"

	"github.com/medgen-mcp-server/internal/domain"
)

// Sequence types a variant description can refer to.
const (
	Coding        = "c"
	Genomic       = "g"
	Mitochondrial = "m"
	NonCoding     = "n"
	RNA           = "r"
	Protein       = "p"
)

var (
	// NM_007294.3:c.5266dupC, NM_000059.3(BRCA2):c.8755-1G>A, chr17:g.43104261G>T
	expressionPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*(?:\.\d+)?)(?:\(([A-Za-z0-9._-]+)\))?:([cgmnrp])\.(.+)$`)

	// Nucleotide positions start with a digit, an offset sign, a range or an
	// uncertain position.
	nucleotideDescPattern = regexp.MustCompile(`^[\d*+\-_?(\[]`)

	// Protein descriptions start with a residue, "=" or an uncertainty.
	proteinDescPattern = regexp.MustCompile(`^(?:[A-Z(*=?]|0\??$)`)
)

// Expression is a split HGVS variant expression.
type Expression struct {
	Original    string `json:"original"`
	Reference   string `json:"reference"`
	Gene        string `json:"gene,omitempty"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// String rebuilds the expression without the gene annotation, the form the
// warehouse's HGVS columns use.
func (e *Expression) String() string {
	return e.Reference + ":" + e.Type + "." + e.Description
}

// Parser splits HGVS expressions into their parts.
type Parser struct {
	validator *Validator
}

// NewParser creates a new HGVS parser
func NewParser() *Parser {
	return &Parser{
		validator: NewValidator(),
	}
}

// Parse validates and splits an HGVS expression.
func (p *Parser) Parse(input string) (*Expression, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil, domain.NewValidationError("hgvs", "HGVS notation cannot be empty", input)
	}

	m := expressionPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, domain.NewValidationError("hgvs", "Unrecognized HGVS notation format", input)
	}

	expr := &Expression{
		Original:    text,
		Reference:   m[1],
		Gene:        m[2],
		Type:        m[3],
		Description: m[4],
	}
	if err := p.validator.validateDescription(expr); err != nil {
		return nil, err
	}
	return expr, nil
}

// Normalize trims an expression and drops the gene annotation.
func (p *Parser) Normalize(input string) (string, error) {
	expr, err := p.Parse(input)
	if err != nil {
		return "", err
	}
	return expr.String(), nil
}
