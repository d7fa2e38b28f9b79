package invoices

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/erpgate/erpgate/internal/payload"
	"github.com/erpgate/erpgate/internal/platform/httpx"
)

// LineItemSpec is one entry of the items payload array. Rate fields are
// decimals so numeric strings from form transports decode cleanly.
type LineItemSpec struct {
	ItemCode           string          `json:"item_code"`
	ItemName           string          `json:"item_name"`
	Description        string          `json:"description"`
	Qty                decimal.Decimal `json:"qty"`
	UOM                string          `json:"uom"`
	StockUOM           string          `json:"stock_uom"`
	Rate               decimal.Decimal `json:"rate"`
	PriceListRate      decimal.Decimal `json:"price_list_rate"`
	ValuationRate      decimal.Decimal `json:"valuation_rate"`
	Warehouse          string          `json:"warehouse"`
	IncomeAccount      string          `json:"income_account"`
	CostCenter         string          `json:"cost_center"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	ItemGroup          string          `json:"item_group"`
	ItemTaxTemplate    string          `json:"item_tax_template"`
	TaxCode            string          `json:"tax_code"`
}

// TaxSpec is one entry of the caller-supplied taxes array.
type TaxSpec struct {
	ChargeType  string          `json:"charge_type"`
	AccountHead string          `json:"account_head"`
	Rate        decimal.Decimal `json:"rate"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	Description string          `json:"description"`
}

// CreateInvoiceRequest is the canonical invoice-creation payload after
// normalization.
type CreateInvoiceRequest struct {
	Company      string `validate:"max=140"`
	CustomerName string `validate:"max=140"`

	CustomerEmail string
	CustomerPhone string
	CustomerType  string
	CustomerGroup string
	Territory     string

	VATRegistrationNumber        string
	CommercialRegistrationNumber string

	AddressLine1   string
	AddressLine2   string
	BuildingNumber string
	Area           string
	City           string
	County         string
	State          string
	Pincode        string
	Country        string

	PostingDate     string
	DueDate         string
	Currency        string
	TaxesAndCharges string

	Items []LineItemSpec
	Taxes []TaxSpec

	AdditionalFields map[string]any

	SubmitInvoice bool
	QRCode        string
}

// ParseCreateInvoiceRequest normalizes the invoice-creation payload. The
// items, taxes and additional_fields arrays may arrive JSON-encoded as
// strings or only in the raw body; a bare object for items is accepted as a
// one-element list.
func ParseCreateInvoiceRequest(args payload.Args) (*CreateInvoiceRequest, error) {
	req := &CreateInvoiceRequest{
		Company:      args.Str("company"),
		CustomerName: args.Str("customer_name"),

		CustomerEmail: args.Str("customer_email"),
		CustomerPhone: args.Str("customer_phone"),
		CustomerType:  args.Str("customer_type"),
		CustomerGroup: args.Str("customer_group"),
		Territory:     args.Str("territory"),

		VATRegistrationNumber:        args.Str("custom_vat_registration_number"),
		CommercialRegistrationNumber: args.Str("commercial_registration_number"),

		AddressLine1:   args.Str("address_line1"),
		AddressLine2:   args.Str("address_line2"),
		BuildingNumber: args.Str("building_number"),
		Area:           args.Str("area"),
		City:           args.Str("city"),
		County:         args.Str("county"),
		State:          args.Str("state"),
		Pincode:        args.Str("pincode"),
		Country:        args.Str("country"),

		PostingDate:     args.Str("posting_date"),
		DueDate:         args.Str("due_date"),
		Currency:        args.Str("currency"),
		TaxesAndCharges: args.Str("taxes_and_charges"),

		SubmitInvoice: args.Bool("submit_invoice", false),
		QRCode:        args.Str("qr_code"),
	}

	if value, ok := args.Structured("items", true); ok {
		items, err := parseLineItems(value)
		if err != nil {
			return nil, err
		}
		req.Items = items
	}
	if value, ok := args.Structured("taxes", true); ok {
		if err := payload.Decode("taxes", value, &req.Taxes); err != nil {
			return nil, err
		}
	}
	if value, ok := args.Structured("additional_fields", true); ok {
		if err := payload.Decode("additional_fields", value, &req.AdditionalFields); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// parseLineItems decodes the items field into typed line specs. Each entry
// must be an object; anything else is an InvalidLineItem naming the 1-based
// index.
func parseLineItems(value any) ([]LineItemSpec, error) {
	var entries []any
	if err := payload.Decode("items", payload.CoerceList(value), &entries); err != nil {
		return nil, err
	}

	specs := make([]LineItemSpec, 0, len(entries))
	for idx, entry := range entries {
		if _, ok := entry.(map[string]any); !ok {
			return nil, fmt.Errorf("%w: entry %d is not an object", httpx.ErrInvalidLineItem, idx+1)
		}
		var spec LineItemSpec
		if err := payload.Decode(fmt.Sprintf("items[%d]", idx+1), entry, &spec); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
