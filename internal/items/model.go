// Package items creates ERP Item documents, with nested tax template rows
// and per-company default rows.
package items

import "github.com/shopspring/decimal"

// Item is the document assembled by the gateway and inserted into the ERP
// items table together with its child rows.
type Item struct {
	ItemCode                   string
	ItemName                   string
	ItemGroup                  string
	Description                string
	StockUOM                   string
	IsStockItem                bool
	MaintainStock              bool
	IncludeItemInManufacturing bool
	Disabled                   bool
	OpeningStock               decimal.Decimal
	ValuationRate              decimal.Decimal
	StandardRate               decimal.Decimal
	Taxes                      []TaxRow
	Defaults                   []CompanyDefault
}

// TaxRow links an item to a tax template, optionally scoped by category,
// validity window and net-rate bounds.
type TaxRow struct {
	ItemTaxTemplate string
	TaxCategory     string
	ValidFrom       string
	MinimumNetRate  decimal.Decimal
	MaximumNetRate  decimal.Decimal
}

// CompanyDefault is a per-company override of warehouse, price list and
// account references.
type CompanyDefault struct {
	Company           string
	DefaultWarehouse  string
	DefaultPriceList  string
	BuyingCostCenter  string
	SellingCostCenter string
	ExpenseAccount    string
	IncomeAccount     string
}

// Summary is the slice of an item record needed to fill invoice line
// defaults. It is what the Redis cache stores.
type Summary struct {
	ItemCode    string `json:"item_code"`
	ItemName    string `json:"item_name"`
	Description string `json:"description"`
	StockUOM    string `json:"stock_uom"`
}
