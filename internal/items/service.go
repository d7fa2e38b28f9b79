package items

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/erpgate/erpgate/internal/platform/httpx"
)

// Refs is the reference-data surface the item pipeline resolves against.
type Refs interface {
	CompanyExists(ctx context.Context, name string) (bool, error)
	ItemGroupExists(ctx context.Context, name string) (bool, error)
	TaxCategoryExists(ctx context.Context, name string) (bool, error)
	ItemTaxTemplateExists(ctx context.Context, name string) (bool, error)
}

// Options holds item-pipeline defaults.
type Options struct {
	DefaultStockUOM string
}

// Service implements the item creation pipeline: validate required fields
// and references, assemble the document with its child rows, insert inside
// one transaction.
type Service struct {
	logger   *slog.Logger
	store    Store
	refs     Refs
	cache    *SummaryCache
	opts     Options
	validate *validator.Validate
}

// NewService constructs the item service.
func NewService(logger *slog.Logger, store Store, refs Refs, cache *SummaryCache, opts Options) *Service {
	if opts.DefaultStockUOM == "" {
		opts.DefaultStockUOM = "Nos"
	}
	return &Service{
		logger:   logger,
		store:    store,
		refs:     refs,
		cache:    cache,
		opts:     opts,
		validate: validator.New(),
	}
}

// Create validates and persists a new item. Optional tax and default rows
// referencing unknown templates, categories or companies are skipped with a
// warning; required-field and reference failures abort before any mutation.
func (s *Service) Create(ctx context.Context, req *CreateItemRequest) (*Item, []string, error) {
	if err := s.validateRequired(ctx, req); err != nil {
		return nil, nil, err
	}

	item, warnings, err := s.buildItem(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		return repo.Insert(ctx, item)
	})
	if err != nil {
		return nil, nil, err
	}

	if s.cache != nil {
		s.cache.Put(ctx, &Summary{
			ItemCode:    item.ItemCode,
			ItemName:    item.ItemName,
			Description: item.Description,
			StockUOM:    item.StockUOM,
		})
	}
	return item, warnings, nil
}

func (s *Service) validateRequired(ctx context.Context, req *CreateItemRequest) error {
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"item_code", req.ItemCode},
		{"item_name", req.ItemName},
		{"item_group", req.ItemGroup},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
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

	exists, err := s.refs.ItemGroupExists(ctx, req.ItemGroup)
	if err != nil {
		return fmt.Errorf("items: check item group: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: item group '%s' does not exist", httpx.ErrNotFound, req.ItemGroup)
	}

	exists, err = s.store.Exists(ctx, req.ItemCode)
	if err != nil {
		return fmt.Errorf("items: check item code: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: item code '%s' already exists", httpx.ErrDuplicateEntry, req.ItemCode)
	}
	return nil
}

func (s *Service) buildItem(ctx context.Context, req *CreateItemRequest) (*Item, []string, error) {
	item := &Item{
		ItemCode:                   req.ItemCode,
		ItemName:                   req.ItemName,
		ItemGroup:                  req.ItemGroup,
		Description:                req.Description,
		StockUOM:                   req.StockUOM,
		IsStockItem:                req.IsStockItem,
		MaintainStock:              req.MaintainStock,
		IncludeItemInManufacturing: req.IncludeItemInManufacturing,
		OpeningStock:               req.OpeningStock,
		ValuationRate:              req.ValuationRate,
		StandardRate:               req.StandardRate,
	}
	if item.Description == "" {
		item.Description = req.ItemName
	}
	if item.StockUOM == "" {
		item.StockUOM = s.opts.DefaultStockUOM
	}

	var warnings []string
	warn := func(format string, args ...any) {
		message := fmt.Sprintf(format, args...)
		warnings = append(warnings, message)
		s.logger.Warn(message, slog.String("item_code", req.ItemCode))
	}

	taxSpecs := req.TaxTemplates
	singleTax := false
	if len(taxSpecs) == 0 && req.ItemTaxTemplate != "" && req.Company != "" {
		taxSpecs = []TaxTemplateSpec{{ItemTaxTemplate: req.ItemTaxTemplate, TaxCategory: req.TaxCategory}}
		singleTax = true
	}
	for _, spec := range taxSpecs {
		if spec.ItemTaxTemplate != "" {
			exists, err := s.refs.ItemTaxTemplateExists(ctx, spec.ItemTaxTemplate)
			if err != nil {
				return nil, nil, fmt.Errorf("items: check tax template: %w", err)
			}
			if !exists {
				warn("item tax template '%s' does not exist, skipping", spec.ItemTaxTemplate)
				continue
			}
		}
		category := spec.TaxCategory
		if category != "" {
			exists, err := s.refs.TaxCategoryExists(ctx, category)
			if err != nil {
				return nil, nil, fmt.Errorf("items: check tax category: %w", err)
			}
			if !exists {
				// The singular spelling keeps the row with a cleared
				// category; array rows drop entirely.
				if !singleTax {
					warn("tax category '%s' does not exist, skipping", category)
					continue
				}
				warn("tax category '%s' does not exist", category)
				category = ""
			}
		}
		item.Taxes = append(item.Taxes, TaxRow{
			ItemTaxTemplate: spec.ItemTaxTemplate,
			TaxCategory:     category,
			ValidFrom:       spec.ValidFrom,
			MinimumNetRate:  spec.MinimumNetRate,
			MaximumNetRate:  spec.MaximumNetRate,
		})
	}

	defaultSpecs := req.ItemDefaults
	if len(defaultSpecs) == 0 && req.Company != "" {
		defaultSpecs = []CompanyDefaultSpec{{
			Company:          req.Company,
			DefaultWarehouse: req.DefaultWarehouse,
			DefaultPriceList: req.DefaultPriceList,
		}}
	}
	for _, spec := range defaultSpecs {
		if spec.Company == "" {
			warn("item default row without company, skipping")
			continue
		}
		exists, err := s.refs.CompanyExists(ctx, spec.Company)
		if err != nil {
			return nil, nil, fmt.Errorf("items: check company: %w", err)
		}
		if !exists {
			warn("company '%s' does not exist, skipping default row", spec.Company)
			continue
		}
		item.Defaults = append(item.Defaults, CompanyDefault{
			Company:           spec.Company,
			DefaultWarehouse:  spec.DefaultWarehouse,
			DefaultPriceList:  spec.DefaultPriceList,
			BuyingCostCenter:  spec.BuyingCostCenter,
			SellingCostCenter: spec.SellingCostCenter,
			ExpenseAccount:    spec.ExpenseAccount,
			IncomeAccount:     spec.IncomeAccount,
		})
	}

	return item, warnings, nil
}
