package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/erpgate/erpgate/internal/masterdata"
	"github.com/erpgate/erpgate/internal/platform/httpx"
)

// buildTaxLines populates the invoice-level tax lines in strict priority
// order: named taxes-and-charges template, caller-supplied taxes array,
// company default template, none. An invoice without tax lines is valid.
func (s *Service) buildTaxLines(ctx context.Context, company *masterdata.Company, req *CreateInvoiceRequest) ([]TaxLine, []string, error) {
	var warnings []string

	if req.TaxesAndCharges != "" {
		tpl, err := s.refs.SalesTaxesTemplate(ctx, req.TaxesAndCharges)
		switch {
		case err == nil:
			return templateTaxLines(tpl), warnings, nil
		case errors.Is(err, httpx.ErrNotFound):
			warnings = append(warnings, fmt.Sprintf(
				"taxes and charges template '%s' does not exist, skipping", req.TaxesAndCharges))
		default:
			return nil, nil, err
		}
	}

	if len(req.Taxes) > 0 {
		lines := make([]TaxLine, 0, len(req.Taxes))
		for idx, spec := range req.Taxes {
			if spec.AccountHead == "" {
				return nil, nil, fmt.Errorf("%w: account_head (taxes entry %d)", httpx.ErrMissingField, idx+1)
			}
			chargeType := spec.ChargeType
			if chargeType == "" {
				chargeType = "On Net Total"
			}
			description := spec.Description
			if description == "" {
				description = spec.AccountHead
			}
			lines = append(lines, TaxLine{
				ChargeType:  chargeType,
				AccountHead: spec.AccountHead,
				Rate:        spec.Rate,
				TaxAmount:   spec.TaxAmount,
				Description: description,
			})
		}
		return lines, warnings, nil
	}

	tpl, err := s.defaultTemplate(ctx, company)
	if errors.Is(err, httpx.ErrNotFound) {
		return nil, warnings, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return templateTaxLines(tpl), warnings, nil
}

// defaultTemplate prefers the template pinned on the company record, then
// the company's is_default template.
func (s *Service) defaultTemplate(ctx context.Context, company *masterdata.Company) (*masterdata.SalesTaxesTemplate, error) {
	if company.SalesTaxesTemplate != nil && *company.SalesTaxesTemplate != "" {
		tpl, err := s.refs.SalesTaxesTemplate(ctx, *company.SalesTaxesTemplate)
		if err == nil || !errors.Is(err, httpx.ErrNotFound) {
			return tpl, err
		}
	}
	return s.refs.DefaultSalesTaxesTemplate(ctx, company.Name)
}

func templateTaxLines(tpl *masterdata.SalesTaxesTemplate) []TaxLine {
	lines := make([]TaxLine, 0, len(tpl.Rows))
	for _, row := range tpl.Rows {
		lines = append(lines, TaxLine{
			ChargeType:  row.ChargeType,
			AccountHead: row.AccountHead,
			Rate:        row.Rate,
			Description: row.Description,
		})
	}
	return lines
}

// computeTotals derives per-line tax amounts and the invoice grand total.
// "Actual" charge rows keep their supplied amount; rate-based rows apply
// the rate to the net total.
func computeTotals(invoice *SalesInvoice) {
	net := decimal.Zero
	for _, line := range invoice.Items {
		net = net.Add(line.Amount)
	}

	total := net
	hundred := decimal.NewFromInt(100)
	for i := range invoice.Taxes {
		tax := &invoice.Taxes[i]
		if tax.ChargeType != "Actual" && tax.TaxAmount.IsZero() {
			tax.TaxAmount = net.Mul(tax.Rate).Div(hundred).Round(2)
		}
		total = total.Add(tax.TaxAmount)
	}
	invoice.GrandTotal = total.Round(2)
}
