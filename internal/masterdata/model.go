// Package masterdata reads the ERP reference tables the gateway resolves
// against: companies, warehouses, item groups, tax categories and tax
// templates. All of it is owned by the ERP; the gateway never writes here.
package masterdata

import "github.com/shopspring/decimal"

// Company is an ERP company record.
type Company struct {
	Name               string  `json:"name"`
	Abbr               string  `json:"abbr"`
	DefaultCurrency    string  `json:"default_currency"`
	SalesTaxesTemplate *string `json:"sales_taxes_template,omitempty"`
}

// ItemGroup is an ERP item group.
type ItemGroup struct {
	Name            string  `json:"name"`
	ParentItemGroup *string `json:"parent_item_group,omitempty"`
	IsGroup         bool    `json:"is_group"`
}

// TaxCategory is an ERP tax category.
type TaxCategory struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Disabled bool   `json:"disabled"`
}

// ItemTaxTemplate is a named set of per-account tax rates attachable to an
// item.
type ItemTaxTemplate struct {
	Name    string    `json:"name"`
	Title   string    `json:"title"`
	Company string    `json:"company"`
	Rates   []TaxRate `json:"rates,omitempty"`
}

// TaxRate is one nested rate row of an item tax template.
type TaxRate struct {
	TaxType string          `json:"tax_type"`
	Rate    decimal.Decimal `json:"rate"`
}

// SalesTaxesTemplate is an invoice-level taxes-and-charges template.
type SalesTaxesTemplate struct {
	Name      string        `json:"name"`
	Company   string        `json:"company"`
	IsDefault bool          `json:"is_default"`
	Rows      []SalesTaxRow `json:"rows,omitempty"`
}

// SalesTaxRow is one charge row of a sales taxes template.
type SalesTaxRow struct {
	ChargeType  string          `json:"charge_type"`
	AccountHead string          `json:"account_head"`
	Rate        decimal.Decimal `json:"rate"`
	Description string          `json:"description"`
}
