package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erpgate/erpgate/internal/platform/httpx"
)

// Repository reads ERP reference tables.
type Repository interface {
	Company(ctx context.Context, name string) (*Company, error)
	CompanyExists(ctx context.Context, name string) (bool, error)
	ItemGroupExists(ctx context.Context, name string) (bool, error)
	TaxCategoryExists(ctx context.Context, name string) (bool, error)
	ItemTaxTemplateExists(ctx context.Context, name string) (bool, error)
	ItemTaxTemplates(ctx context.Context, company string) ([]ItemTaxTemplate, error)
	SalesTaxesTemplate(ctx context.Context, name string) (*SalesTaxesTemplate, error)
	DefaultSalesTaxesTemplate(ctx context.Context, company string) (*SalesTaxesTemplate, error)
	DefaultWarehouse(ctx context.Context, company string) (string, error)
	ListItemTaxTemplates(ctx context.Context, company string) ([]ItemTaxTemplate, error)
	ListTaxCategories(ctx context.Context) ([]TaxCategory, error)
	ListItemGroups(ctx context.Context) ([]ItemGroup, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a read-only repository over the ERP database.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Company(ctx context.Context, name string) (*Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx,
		`SELECT name, abbr, default_currency, sales_taxes_template FROM companies WHERE name = $1`,
		name,
	).Scan(&c.Name, &c.Abbr, &c.DefaultCurrency, &c.SalesTaxesTemplate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: company '%s' does not exist", httpx.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("masterdata: get company: %w", err)
	}
	return &c, nil
}

func (r *repository) exists(ctx context.Context, query, name string) (bool, error) {
	var found bool
	if err := r.pool.QueryRow(ctx, query, name).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func (r *repository) CompanyExists(ctx context.Context, name string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE name = $1)`, name)
}

func (r *repository) ItemGroupExists(ctx context.Context, name string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM item_groups WHERE name = $1)`, name)
}

func (r *repository) TaxCategoryExists(ctx context.Context, name string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM tax_categories WHERE name = $1 AND NOT disabled)`, name)
}

func (r *repository) ItemTaxTemplateExists(ctx context.Context, name string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM item_tax_templates WHERE name = $1)`, name)
}

// ItemTaxTemplates loads a company's templates with nested rate rows,
// ordered by name. The tax code resolver iterates them in this order.
func (r *repository) ItemTaxTemplates(ctx context.Context, company string) ([]ItemTaxTemplate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.name, t.title, t.company, COALESCE(d.tax_type, ''), COALESCE(d.rate, 0)
		   FROM item_tax_templates t
		   LEFT JOIN item_tax_template_rates d ON d.template = t.name
		  WHERE t.company = $1
		  ORDER BY t.name, d.tax_type`,
		company,
	)
	if err != nil {
		return nil, fmt.Errorf("masterdata: list templates: %w", err)
	}
	defer rows.Close()

	var templates []ItemTaxTemplate
	for rows.Next() {
		var (
			name, title, comp string
			rate              TaxRate
		)
		if err := rows.Scan(&name, &title, &comp, &rate.TaxType, &rate.Rate); err != nil {
			return nil, fmt.Errorf("masterdata: scan template: %w", err)
		}
		if len(templates) == 0 || templates[len(templates)-1].Name != name {
			templates = append(templates, ItemTaxTemplate{Name: name, Title: title, Company: comp})
		}
		if rate.TaxType != "" {
			last := &templates[len(templates)-1]
			last.Rates = append(last.Rates, rate)
		}
	}
	return templates, rows.Err()
}

func (r *repository) SalesTaxesTemplate(ctx context.Context, name string) (*SalesTaxesTemplate, error) {
	return r.salesTemplate(ctx,
		`SELECT t.name, t.company, t.is_default FROM sales_taxes_templates t WHERE t.name = $1`, name)
}

func (r *repository) DefaultSalesTaxesTemplate(ctx context.Context, company string) (*SalesTaxesTemplate, error) {
	return r.salesTemplate(ctx,
		`SELECT t.name, t.company, t.is_default FROM sales_taxes_templates t
		  WHERE t.company = $1 AND t.is_default ORDER BY t.name LIMIT 1`, company)
}

func (r *repository) salesTemplate(ctx context.Context, query, arg string) (*SalesTaxesTemplate, error) {
	var tpl SalesTaxesTemplate
	err := r.pool.QueryRow(ctx, query, arg).Scan(&tpl.Name, &tpl.Company, &tpl.IsDefault)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: sales taxes template", httpx.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("masterdata: get sales taxes template: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT charge_type, account_head, rate, COALESCE(description, '')
		   FROM sales_taxes_template_rows WHERE template = $1 ORDER BY idx`,
		tpl.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("masterdata: template rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var row SalesTaxRow
		if err := rows.Scan(&row.ChargeType, &row.AccountHead, &row.Rate, &row.Description); err != nil {
			return nil, fmt.Errorf("masterdata: scan template row: %w", err)
		}
		tpl.Rows = append(tpl.Rows, row)
	}
	return &tpl, rows.Err()
}

// DefaultWarehouse resolves the first non-group warehouse of a company, the
// same lookup the ERP UI performs for item defaults.
func (r *repository) DefaultWarehouse(ctx context.Context, company string) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx,
		`SELECT name FROM warehouses WHERE company = $1 AND NOT is_group ORDER BY name LIMIT 1`,
		company,
	).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("masterdata: default warehouse: %w", err)
	}
	return name, nil
}

func (r *repository) ListItemTaxTemplates(ctx context.Context, company string) ([]ItemTaxTemplate, error) {
	query := `SELECT name, title, company FROM item_tax_templates ORDER BY name`
	args := []any{}
	if company != "" {
		query = `SELECT name, title, company FROM item_tax_templates WHERE company = $1 ORDER BY name`
		args = append(args, company)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("masterdata: list tax templates: %w", err)
	}
	defer rows.Close()
	var templates []ItemTaxTemplate
	for rows.Next() {
		var t ItemTaxTemplate
		if err := rows.Scan(&t.Name, &t.Title, &t.Company); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *repository) ListTaxCategories(ctx context.Context) ([]TaxCategory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT name, title, disabled FROM tax_categories WHERE NOT disabled ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("masterdata: list tax categories: %w", err)
	}
	defer rows.Close()
	var categories []TaxCategory
	for rows.Next() {
		var c TaxCategory
		if err := rows.Scan(&c.Name, &c.Title, &c.Disabled); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *repository) ListItemGroups(ctx context.Context) ([]ItemGroup, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT name, parent_item_group, is_group FROM item_groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("masterdata: list item groups: %w", err)
	}
	defer rows.Close()
	var groups []ItemGroup
	for rows.Next() {
		var g ItemGroup
		if err := rows.Scan(&g.Name, &g.ParentItemGroup, &g.IsGroup); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
