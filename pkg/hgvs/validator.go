package hgvs

import (
	"regexp"
	"strings"

	"github.com/medgen-mcp-server/internal/domain"
)

const maxExpressionLength = 1000

// HGNC approved symbols plus mouse-style mixed case (Trp53).
var geneSymbolPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*(?:@|\.\d+)?$`)

// Validator provides HGVS validation functionality
type Validator struct{}

// NewValidator creates a new HGVS validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateHGVS validates HGVS notation format
func (v *Validator) ValidateHGVS(hgvs string) error {
	text := strings.TrimSpace(hgvs)
	if text == "" {
		return domain.NewValidationError("hgvs", "HGVS notation cannot be empty", hgvs)
	}
	if len(text) > maxExpressionLength {
		return domain.NewValidationError("hgvs", "HGVS notation is too long", hgvs)
	}

	m := expressionPattern.FindStringSubmatch(text)
	if m == nil {
		return domain.NewValidationError("hgvs", "Unrecognized HGVS notation format", hgvs)
	}
	return v.validateDescription(&Expression{Original: text, Reference: m[1], Gene: m[2], Type: m[3], Description: m[4]})
}

func (v *Validator) validateDescription(expr *Expression) error {
	if strings.ContainsAny(expr.Description, " \t;'\"") {
		return domain.NewValidationError("hgvs", "Invalid characters in HGVS description", expr.Original)
	}

	switch expr.Type {
	case Protein:
		if !proteinDescPattern.MatchString(expr.Description) {
			return domain.NewValidationError("hgvs", "Invalid protein HGVS notation format", expr.Original)
		}
	default:
		if !nucleotideDescPattern.MatchString(expr.Description) {
			return domain.NewValidationError("hgvs", "Invalid nucleotide HGVS notation format", expr.Original)
		}
	}
	return nil
}

// ValidateGeneSymbol validates gene symbol format
func (v *Validator) ValidateGeneSymbol(symbol string) error {
	if !geneSymbolPattern.MatchString(strings.TrimSpace(symbol)) {
		return domain.NewValidationError("gene_symbol", "Invalid gene symbol format", symbol)
	}
	return nil
}
