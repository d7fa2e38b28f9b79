package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erpgate/erpgate/internal/masterdata"
)

// TemplateSource is the reference-data surface the resolver searches.
type TemplateSource interface {
	ItemTaxTemplates(ctx context.Context, company string) ([]masterdata.ItemTaxTemplate, error)
	ItemTaxTemplateExists(ctx context.Context, name string) (bool, error)
}

// taxCodeCategory is one semantic tax category a jurisdiction code maps to.
// Patterns are matched case-insensitively against template names in order;
// conventions are name patterns completed with the company abbreviation.
type taxCodeCategory struct {
	rate        decimal.Decimal
	patterns    []string
	conventions []string
}

var (
	standardRated = taxCodeCategory{
		rate:     decimal.NewFromInt(15),
		patterns: []string{"15%", "15", "standard"},
		conventions: []string{
			"VAT 15%% - %s",
			"VAT 15 - %s",
			"KSA VAT 15%% - %s",
			"Saudi VAT 15%% - %s",
		},
	}
	zeroRated = taxCodeCategory{
		rate:     decimal.Zero,
		patterns: []string{"zero", "0%"},
		conventions: []string{
			"VAT Zero - %s",
			"VAT 0%% - %s",
			"KSA VAT Zero - %s",
		},
	}
	exemptRated = taxCodeCategory{
		rate:     decimal.Zero,
		patterns: []string{"exempt"},
		conventions: []string{
			"VAT Exempt - %s",
			"KSA VAT Exempt - %s",
		},
	}
	outOfScope = taxCodeCategory{
		rate:     decimal.Zero,
		patterns: []string{"out of scope", "out-of-scope"},
		conventions: []string{
			"VAT Out of Scope - %s",
			"KSA VAT Out of Scope - %s",
		},
	}

	// Jurisdiction code table. Unknown codes resolve to no match.
	taxCodeTable = map[string]taxCodeCategory{
		"S":  standardRated,
		"01": standardRated,
		"05": standardRated,
		"Z":  zeroRated,
		"02": zeroRated,
		"E":  exemptRated,
		"03": exemptRated,
		"O":  outOfScope,
		"04": outOfScope,
	}
)

// TaxCodeResolver maps a line item's tax specification, either a direct
// template name or a jurisdiction tax code, to a concrete template
// reference. Resolution is best-effort: when several templates match a
// category equally, the first in the source's name order wins, so callers
// needing determinism should supply a direct template name.
type TaxCodeResolver struct {
	logger *slog.Logger
	source TemplateSource
}

// NewTaxCodeResolver constructs a resolver over the given template source.
func NewTaxCodeResolver(logger *slog.Logger, source TemplateSource) *TaxCodeResolver {
	return &TaxCodeResolver{logger: logger, source: source}
}

// Resolve returns the template reference for the line, or "" when nothing
// matches. A direct template name always wins over the tax code. No match
// is not an error; the line persists without a template.
func (r *TaxCodeResolver) Resolve(ctx context.Context, company *masterdata.Company, templateName, taxCode string) (string, error) {
	if templateName != "" {
		name, err := r.resolveDirect(ctx, company, templateName)
		if err != nil || name != "" {
			return name, err
		}
	}

	code := strings.ToUpper(strings.TrimSpace(taxCode))
	if code == "" {
		return "", nil
	}
	category, ok := taxCodeTable[code]
	if !ok {
		r.logger.Debug("unknown tax code", slog.String("tax_code", code))
		return "", nil
	}

	templates, err := r.source.ItemTaxTemplates(ctx, company.Name)
	if err != nil {
		return "", fmt.Errorf("taxcode: load templates: %w", err)
	}

	for _, pattern := range category.patterns {
		for _, tpl := range templates {
			if strings.Contains(strings.ToLower(tpl.Name), pattern) {
				return tpl.Name, nil
			}
		}
	}

	for _, tpl := range templates {
		for _, row := range tpl.Rates {
			if row.Rate.Equal(category.rate) {
				return tpl.Name, nil
			}
		}
	}

	for _, convention := range category.conventions {
		candidate := fmt.Sprintf(convention, company.Abbr)
		exists, err := r.source.ItemTaxTemplateExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("taxcode: check convention name: %w", err)
		}
		if exists {
			return candidate, nil
		}
	}

	r.logger.Debug("tax code unresolved",
		slog.String("tax_code", code), slog.String("company", company.Name))
	return "", nil
}

// resolveDirect tries the supplied name verbatim, then suffixed with the
// company abbreviation.
func (r *TaxCodeResolver) resolveDirect(ctx context.Context, company *masterdata.Company, name string) (string, error) {
	exists, err := r.source.ItemTaxTemplateExists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("taxcode: check template: %w", err)
	}
	if exists {
		return name, nil
	}

	suffixed := name + " - " + company.Abbr
	exists, err = r.source.ItemTaxTemplateExists(ctx, suffixed)
	if err != nil {
		return "", fmt.Errorf("taxcode: check template: %w", err)
	}
	if exists {
		return suffixed, nil
	}
	return "", nil
}
