package items

import (
	"github.com/shopspring/decimal"

	"github.com/erpgate/erpgate/internal/payload"
)

// TaxTemplateSpec is one entry of the tax_templates payload array.
type TaxTemplateSpec struct {
	ItemTaxTemplate string          `json:"item_tax_template"`
	TaxCategory     string          `json:"tax_category"`
	ValidFrom       string          `json:"valid_from"`
	MinimumNetRate  decimal.Decimal `json:"minimum_net_rate"`
	MaximumNetRate  decimal.Decimal `json:"maximum_net_rate"`
}

// CompanyDefaultSpec is one entry of the item_defaults payload array.
type CompanyDefaultSpec struct {
	Company           string `json:"company"`
	DefaultWarehouse  string `json:"default_warehouse"`
	DefaultPriceList  string `json:"default_price_list"`
	BuyingCostCenter  string `json:"buying_cost_center"`
	SellingCostCenter string `json:"selling_cost_center"`
	ExpenseAccount    string `json:"expense_account"`
	IncomeAccount     string `json:"income_account"`
}

// CreateItemRequest is the canonical item-creation payload after
// normalization: structured fields are parsed, never strings.
type CreateItemRequest struct {
	ItemCode    string `validate:"max=140"`
	ItemName    string `validate:"max=140"`
	ItemGroup   string `validate:"max=140"`
	Description string
	StockUOM    string

	IsStockItem                bool
	MaintainStock              bool
	IncludeItemInManufacturing bool

	OpeningStock  decimal.Decimal
	ValuationRate decimal.Decimal
	StandardRate  decimal.Decimal

	// Singular spelling: one template / one company default.
	Company          string
	ItemTaxTemplate  string
	TaxCategory      string
	DefaultWarehouse string
	DefaultPriceList string

	// Plural spelling: explicit arrays.
	TaxTemplates []TaxTemplateSpec
	ItemDefaults []CompanyDefaultSpec
}

// ParseCreateItemRequest normalizes the item-creation payload. The
// tax_templates and item_defaults fields may arrive JSON-encoded as strings
// or only in the raw body; both are recovered here.
func ParseCreateItemRequest(args payload.Args) (*CreateItemRequest, error) {
	req := &CreateItemRequest{
		ItemCode:                   args.Str("item_code"),
		ItemName:                   args.Str("item_name"),
		ItemGroup:                  args.Str("item_group"),
		Description:                args.Str("description"),
		StockUOM:                   args.Str("stock_uom"),
		IsStockItem:                args.Bool("is_stock_item", true),
		MaintainStock:              args.Bool("maintain_stock", true),
		IncludeItemInManufacturing: args.Bool("include_item_in_manufacturing", false),
		OpeningStock:               args.Decimal("opening_stock"),
		ValuationRate:              args.Decimal("valuation_rate"),
		StandardRate:               args.Decimal("standard_rate"),
		Company:                    args.Str("company"),
		ItemTaxTemplate:            args.Str("item_tax_template"),
		TaxCategory:                args.Str("tax_category"),
		DefaultWarehouse:           args.Str("default_warehouse"),
		DefaultPriceList:           args.Str("default_price_list"),
	}

	if value, ok := args.Structured("tax_templates", true); ok {
		if err := payload.Decode("tax_templates", value, &req.TaxTemplates); err != nil {
			return nil, err
		}
	}
	if value, ok := args.Structured("item_defaults", true); ok {
		if err := payload.Decode("item_defaults", value, &req.ItemDefaults); err != nil {
			return nil, err
		}
	}
	return req, nil
}
