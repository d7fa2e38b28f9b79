package items

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erpgate/erpgate/internal/platform/db"
	"github.com/erpgate/erpgate/internal/platform/httpx"
)

// Repository reads item records.
type Repository interface {
	Exists(ctx context.Context, code string) (bool, error)
	Summary(ctx context.Context, code string) (*Summary, error)
}

// TxRepository mutates item records inside a request transaction.
type TxRepository interface {
	Repository
	Insert(ctx context.Context, item *Item) error
}

// Store combines pool-backed reads with transactional writes.
type Store interface {
	Repository
	WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error
}

type pgRepository struct {
	db db.DBTX
}

type pgStore struct {
	pgRepository
	pool *pgxpool.Pool
}

// NewStore constructs the PostgreSQL item store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pgRepository: pgRepository{db: pool}, pool: pool}
}

// NewTxRepository binds an item repository to an existing transaction. The
// invoice pipeline uses this for line-item auto-creation.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &pgRepository{db: tx}
}

func (s *pgStore) WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgRepository{db: tx})
	})
}

func (r *pgRepository) Exists(ctx context.Context, code string) (bool, error) {
	var found bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM items WHERE item_code = $1)`, code,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("items: exists: %w", err)
	}
	return found, nil
}

func (r *pgRepository) Summary(ctx context.Context, code string) (*Summary, error) {
	var s Summary
	err := r.db.QueryRow(ctx,
		`SELECT item_code, item_name, COALESCE(description, ''), stock_uom FROM items WHERE item_code = $1`,
		code,
	).Scan(&s.ItemCode, &s.ItemName, &s.Description, &s.StockUOM)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: item '%s'", httpx.ErrNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("items: summary: %w", err)
	}
	return &s, nil
}

// Insert writes the item document and its child rows. A unique violation on
// item_code surfaces as DuplicateEntry so races with a concurrent create are
// reported like a pre-existing code.
func (r *pgRepository) Insert(ctx context.Context, item *Item) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO items (
			item_code, item_name, item_group, description, stock_uom,
			is_stock_item, maintain_stock, include_item_in_manufacturing,
			disabled, opening_stock, valuation_rate, standard_rate
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		item.ItemCode, item.ItemName, item.ItemGroup, item.Description, item.StockUOM,
		item.IsStockItem, item.MaintainStock, item.IncludeItemInManufacturing,
		item.Disabled, item.OpeningStock, item.ValuationRate, item.StandardRate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: item code '%s' already exists", httpx.ErrDuplicateEntry, item.ItemCode)
		}
		return fmt.Errorf("items: insert: %w", err)
	}

	for _, row := range item.Taxes {
		_, err := r.db.Exec(ctx,
			`INSERT INTO item_taxes (
				item_code, item_tax_template, tax_category, valid_from,
				minimum_net_rate, maximum_net_rate
			) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, '')::date, $5, $6)`,
			item.ItemCode, row.ItemTaxTemplate, row.TaxCategory, row.ValidFrom,
			row.MinimumNetRate, row.MaximumNetRate,
		)
		if err != nil {
			return fmt.Errorf("items: insert tax row: %w", err)
		}
	}

	for _, def := range item.Defaults {
		_, err := r.db.Exec(ctx,
			`INSERT INTO item_defaults (
				item_code, company, default_warehouse, default_price_list,
				buying_cost_center, selling_cost_center, expense_account, income_account
			) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''))`,
			item.ItemCode, def.Company, def.DefaultWarehouse, def.DefaultPriceList,
			def.BuyingCostCenter, def.SellingCostCenter, def.ExpenseAccount, def.IncomeAccount,
		)
		if err != nil {
			return fmt.Errorf("items: insert default row: %w", err)
		}
	}
	return nil
}
