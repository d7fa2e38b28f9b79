// Package invoices implements the sales invoice creation pipeline: payload
// normalization, customer and line-item resolution, tax-code resolution,
// tax assembly and transactional insert into the ERP document tables.
package invoices

import "github.com/shopspring/decimal"

// SalesInvoice is the document assembled by the gateway.
type SalesInvoice struct {
	Name        string
	Company     string
	Customer    string
	PostingDate string
	DueDate     string
	Currency    string
	GrandTotal  decimal.Decimal
	Submitted   bool
	Items       []ItemLine
	Taxes       []TaxLine
	ExtraFields map[string]any
}

// ItemLine is one invoice item row.
type ItemLine struct {
	ItemCode           string
	ItemName           string
	Description        string
	Qty                decimal.Decimal
	UOM                string
	Rate               decimal.Decimal
	Amount             decimal.Decimal
	Warehouse          string
	IncomeAccount      string
	CostCenter         string
	DiscountPercentage decimal.Decimal
	ItemTaxTemplate    string
}

// TaxLine is one invoice-level tax row.
type TaxLine struct {
	ChargeType  string
	AccountHead string
	Rate        decimal.Decimal
	TaxAmount   decimal.Decimal
	Description string
}
