package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/erpgate/erpgate/internal/customers"
	"github.com/erpgate/erpgate/internal/docstore"
	"github.com/erpgate/erpgate/internal/items"
	"github.com/erpgate/erpgate/internal/masterdata"
	"github.com/erpgate/erpgate/internal/platform/httpx"
)

// Refs is the reference-data surface the invoice pipeline resolves against.
// masterdata.Service satisfies it.
type Refs interface {
	TemplateSource
	Company(ctx context.Context, name string) (*masterdata.Company, error)
	ItemGroupExists(ctx context.Context, name string) (bool, error)
	SalesTaxesTemplate(ctx context.Context, name string) (*masterdata.SalesTaxesTemplate, error)
	DefaultSalesTaxesTemplate(ctx context.Context, company string) (*masterdata.SalesTaxesTemplate, error)
	DefaultWarehouse(ctx context.Context, company string) (string, error)
}

// Options holds invoice-pipeline defaults.
type Options struct {
	DefaultItemGroup  string
	FallbackItemGroup string
	DefaultStockUOM   string
}

// Service implements the invoice creation pipeline: normalize and validate,
// resolve the customer, resolve or auto-create each line item with its tax
// template, assemble invoice-level taxes, insert (and optionally submit)
// inside one transaction.
type Service struct {
	logger    *slog.Logger
	store     Store
	refs      Refs
	customers *customers.Resolver
	taxcodes  *TaxCodeResolver
	itemCache *items.SummaryCache
	fields    *docstore.FieldRegistry
	opts      Options
	validate  *validator.Validate
}

// NewService constructs the invoice service.
func NewService(
	logger *slog.Logger,
	store Store,
	refs Refs,
	customerResolver *customers.Resolver,
	taxcodes *TaxCodeResolver,
	itemCache *items.SummaryCache,
	fields *docstore.FieldRegistry,
	opts Options,
) *Service {
	if opts.DefaultItemGroup == "" {
		opts.DefaultItemGroup = "Products"
	}
	if opts.FallbackItemGroup == "" {
		opts.FallbackItemGroup = "All Item Groups"
	}
	if opts.DefaultStockUOM == "" {
		opts.DefaultStockUOM = "Nos"
	}
	return &Service{
		logger:    logger,
		store:     store,
		refs:      refs,
		customers: customerResolver,
		taxcodes:  taxcodes,
		itemCache: itemCache,
		fields:    fields,
		opts:      opts,
		validate:  validator.New(),
	}
}

// Create validates and persists a new sales invoice. Customer, items and
// the invoice itself are written inside one transaction; any failure rolls
// everything back.
func (s *Service) Create(ctx context.Context, req *CreateInvoiceRequest) (*SalesInvoice, []string, error) {
	if err := s.validateRequired(req); err != nil {
		return nil, nil, err
	}

	company, err := s.refs.Company(ctx, req.Company)
	if err != nil {
		return nil, nil, err
	}

	curr, err := s.resolveCurrency(req.Currency, company)
	if err != nil {
		return nil, nil, err
	}

	taxLines, warnings, err := s.buildTaxLines(ctx, company, req)
	if err != nil {
		return nil, nil, err
	}

	postingDate := req.PostingDate
	if postingDate == "" {
		postingDate = time.Now().UTC().Format("2006-01-02")
	}
	invoice := &SalesInvoice{
		Company:     company.Name,
		PostingDate: postingDate,
		DueDate:     req.DueDate,
		Currency:    curr,
		Submitted:   req.SubmitInvoice,
		Taxes:       taxLines,
		ExtraFields: s.filterExtraFields(req.AdditionalFields, &warnings),
	}

	var created []*items.Item
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		customerRef, customerWarnings, err := s.customers.Resolve(ctx, tx.Customers(), customerProfile(req))
		if err != nil {
			return err
		}
		warnings = append(warnings, customerWarnings...)
		invoice.Customer = customerRef

		for i := range req.Items {
			line, lineWarnings, createdItem, err := s.buildLine(ctx, tx, company, &req.Items[i])
			if err != nil {
				return err
			}
			warnings = append(warnings, lineWarnings...)
			invoice.Items = append(invoice.Items, line)
			if createdItem != nil {
				created = append(created, createdItem)
			}
		}

		computeTotals(invoice)
		if err := tx.InsertInvoice(ctx, invoice); err != nil {
			return err
		}

		if req.QRCode != "" {
			if s.fields.Supports("sales_invoice", "qr_code") {
				if err := tx.SetQRCode(ctx, invoice.Name, req.QRCode); err != nil {
					return err
				}
			} else {
				warnings = append(warnings, "sales invoice schema has no QR code field, skipping")
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// Cache only after commit; a rolled-back line item must not leave a
	// summary behind.
	if s.itemCache != nil {
		for _, item := range created {
			s.itemCache.Put(ctx, &items.Summary{
				ItemCode:    item.ItemCode,
				ItemName:    item.ItemName,
				Description: item.Description,
				StockUOM:    item.StockUOM,
			})
		}
	}

	s.logger.Info("sales invoice created",
		slog.String("invoice", invoice.Name),
		slog.String("customer", invoice.Customer),
		slog.Bool("submitted", invoice.Submitted))
	return invoice, warnings, nil
}

// UpdateQRCode sets the compliance QR field of an existing invoice. When
// the schema lacks the field the call no-ops with a warning.
func (s *Service) UpdateQRCode(ctx context.Context, invoiceName, qrCode string) ([]string, error) {
	var missing []string
	if invoiceName == "" {
		missing = append(missing, "invoice_name")
	}
	if qrCode == "" {
		missing = append(missing, "qr_code")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", httpx.ErrMissingField, strings.Join(missing, ", "))
	}

	if !s.fields.Supports("sales_invoice", "qr_code") {
		s.logger.Warn("qr code update skipped, field unsupported",
			slog.String("invoice", invoiceName))
		return []string{"sales invoice schema has no QR code field, skipping"}, nil
	}
	if err := s.store.SetQRCode(ctx, invoiceName, qrCode); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Service) validateRequired(req *CreateInvoiceRequest) error {
	var missing []string
	if req.Company == "" {
		missing = append(missing, "company")
	}
	if req.CustomerName == "" {
		missing = append(missing, "customer_name")
	}
	if len(req.Items) == 0 {
		missing = append(missing, "items")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", httpx.ErrMissingField, strings.Join(missing, ", "))
	}

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s", httpx.ErrMalformedField, strings.ToLower(verrs[0].Field()))
		}
		return fmt.Errorf("%w: request", httpx.ErrMalformedField)
	}

	for idx, line := range req.Items {
		if line.ItemCode == "" {
			return fmt.Errorf("%w: entry %d has no item_code", httpx.ErrInvalidLineItem, idx+1)
		}
		if line.Qty.IsZero() {
			return fmt.Errorf("%w: entry %d has no qty", httpx.ErrInvalidLineItem, idx+1)
		}
	}
	return nil
}

// resolveCurrency validates the payload currency against ISO 4217 and
// falls back to the company default.
func (s *Service) resolveCurrency(code string, company *masterdata.Company) (string, error) {
	if code == "" {
		return company.DefaultCurrency, nil
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("%w: currency '%s'", httpx.ErrMalformedField, code)
	}
	return unit.String(), nil
}

// filterExtraFields keeps only the additional fields the docfield registry
// declares on the invoice schema; the rest are dropped with a warning.
func (s *Service) filterExtraFields(fields map[string]any, warnings *[]string) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	kept := make(map[string]any, len(fields))
	for name, value := range fields {
		if !s.fields.Supports("sales_invoice", name) {
			*warnings = append(*warnings, fmt.Sprintf("field '%s' not supported on sales invoice, skipping", name))
			continue
		}
		kept[name] = value
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// buildLine resolves one invoice line: existing items contribute their
// cached summary, missing items are auto-created inside the transaction,
// and the tax template is resolved from the direct name or tax code. The
// third return value is the auto-created item, nil when the code existed.
func (s *Service) buildLine(ctx context.Context, tx TxStore, company *masterdata.Company, spec *LineItemSpec) (ItemLine, []string, *items.Item, error) {
	var warnings []string
	var created *items.Item

	template, err := s.taxcodes.Resolve(ctx, company, spec.ItemTaxTemplate, spec.TaxCode)
	if err != nil {
		return ItemLine{}, nil, nil, err
	}
	if template == "" && (spec.ItemTaxTemplate != "" || spec.TaxCode != "") {
		warnings = append(warnings, fmt.Sprintf(
			"no tax template resolved for item '%s', line persists without one", spec.ItemCode))
	}

	line := ItemLine{
		ItemCode:           spec.ItemCode,
		ItemName:           spec.ItemName,
		Description:        spec.Description,
		Qty:                spec.Qty,
		UOM:                spec.UOM,
		Rate:               spec.Rate,
		Warehouse:          spec.Warehouse,
		IncomeAccount:      spec.IncomeAccount,
		CostCenter:         spec.CostCenter,
		DiscountPercentage: spec.DiscountPercentage,
		ItemTaxTemplate:    template,
	}
	if line.Rate.IsZero() {
		line.Rate = spec.PriceListRate
	}

	exists, err := tx.Items().Exists(ctx, spec.ItemCode)
	if err != nil {
		return ItemLine{}, nil, nil, err
	}
	if exists {
		summary, err := s.itemSummary(ctx, tx, spec.ItemCode)
		if err != nil {
			return ItemLine{}, nil, nil, err
		}
		if line.ItemName == "" {
			line.ItemName = summary.ItemName
		}
		if line.Description == "" {
			line.Description = summary.Description
		}
		if line.UOM == "" {
			line.UOM = summary.StockUOM
		}
	} else {
		item, err := s.autoCreateItem(ctx, tx, company, spec, template)
		if err != nil {
			return ItemLine{}, nil, nil, fmt.Errorf("%w: '%s': %v", httpx.ErrItemCreation, spec.ItemCode, err)
		}
		created = item
		warnings = append(warnings, fmt.Sprintf("item '%s' did not exist and was created", spec.ItemCode))
		if line.ItemName == "" {
			line.ItemName = item.ItemName
		}
		if line.Description == "" {
			line.Description = item.Description
		}
		if line.UOM == "" {
			line.UOM = item.StockUOM
		}
	}

	if line.Warehouse == "" {
		warehouse, err := s.refs.DefaultWarehouse(ctx, company.Name)
		if err != nil {
			return ItemLine{}, nil, nil, err
		}
		line.Warehouse = warehouse
	}

	line.Amount = lineAmount(line.Qty, line.Rate, line.DiscountPercentage)
	return line, warnings, created, nil
}

// autoCreateItem creates a missing line item inside the request
// transaction. The group falls back to the configured default when the
// supplied one is unknown, and to the fallback group when the default
// itself is unknown.
func (s *Service) autoCreateItem(ctx context.Context, tx TxStore, company *masterdata.Company, spec *LineItemSpec, template string) (*items.Item, error) {
	group := spec.ItemGroup
	if group == "" {
		group = s.opts.DefaultItemGroup
	}
	exists, err := s.refs.ItemGroupExists(ctx, group)
	if err != nil {
		return nil, err
	}
	if !exists {
		group = s.opts.FallbackItemGroup
	}

	name := spec.ItemName
	if name == "" {
		name = spec.ItemCode
	}
	uom := spec.StockUOM
	if uom == "" {
		uom = spec.UOM
	}
	if uom == "" {
		uom = s.opts.DefaultStockUOM
	}
	rate := spec.Rate
	if rate.IsZero() {
		rate = spec.PriceListRate
	}

	item := &items.Item{
		ItemCode:      spec.ItemCode,
		ItemName:      name,
		ItemGroup:     group,
		Description:   spec.Description,
		StockUOM:      uom,
		IsStockItem:   true,
		MaintainStock: true,
		ValuationRate: spec.ValuationRate,
		StandardRate:  rate,
	}
	if item.Description == "" {
		item.Description = name
	}
	if template != "" {
		item.Taxes = append(item.Taxes, items.TaxRow{ItemTaxTemplate: template})
	}

	warehouse := spec.Warehouse
	if warehouse == "" {
		warehouse, err = s.refs.DefaultWarehouse(ctx, company.Name)
		if err != nil {
			return nil, err
		}
	}
	item.Defaults = append(item.Defaults, items.CompanyDefault{
		Company:          company.Name,
		DefaultWarehouse: warehouse,
		IncomeAccount:    spec.IncomeAccount,
	})

	if err := tx.Items().Insert(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("line item auto-created",
		slog.String("item_code", item.ItemCode), slog.String("item_group", group))
	return item, nil
}

func (s *Service) itemSummary(ctx context.Context, tx TxStore, code string) (*items.Summary, error) {
	if s.itemCache != nil {
		return s.itemCache.Get(ctx, code)
	}
	return tx.Items().Summary(ctx, code)
}

func customerProfile(req *CreateInvoiceRequest) customers.Profile {
	return customers.Profile{
		CustomerName:                 req.CustomerName,
		Company:                      req.Company,
		CustomerType:                 req.CustomerType,
		CustomerGroup:                req.CustomerGroup,
		Territory:                    req.Territory,
		Email:                        req.CustomerEmail,
		Phone:                        req.CustomerPhone,
		VATRegistrationNumber:        req.VATRegistrationNumber,
		CommercialRegistrationNumber: req.CommercialRegistrationNumber,
		AddressLine1:                 req.AddressLine1,
		AddressLine2:                 req.AddressLine2,
		BuildingNumber:               req.BuildingNumber,
		Area:                         req.Area,
		City:                         req.City,
		County:                       req.County,
		State:                        req.State,
		Pincode:                      req.Pincode,
		Country:                      req.Country,
	}
}

func lineAmount(qty, rate, discountPct decimal.Decimal) decimal.Decimal {
	amount := qty.Mul(rate)
	if !discountPct.IsZero() {
		hundred := decimal.NewFromInt(100)
		amount = amount.Mul(hundred.Sub(discountPct)).Div(hundred)
	}
	return amount.Round(2)
}
