package invoices

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erpgate/erpgate/internal/customers"
	"github.com/erpgate/erpgate/internal/items"
	"github.com/erpgate/erpgate/internal/platform/db"
	"github.com/erpgate/erpgate/internal/platform/httpx"
)

// TxStore is the mutation surface of one invoice request transaction. The
// customer and item repositories it exposes are bound to the same
// transaction, so the whole request commits or rolls back as a unit.
type TxStore interface {
	Customers() customers.Repository
	Items() items.TxRepository
	InsertInvoice(ctx context.Context, invoice *SalesInvoice) error
	SetQRCode(ctx context.Context, name, qrCode string) error
}

// Store combines pool-backed reads with transactional invoice writes.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error
	SetQRCode(ctx context.Context, name, qrCode string) error
}

type pgStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs the PostgreSQL invoice store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxStore{
			tx:        tx,
			customers: customers.NewTxRepository(tx),
			items:     items.NewTxRepository(tx),
		})
	})
}

// SetQRCode updates the compliance QR field of a committed invoice.
func (s *pgStore) SetQRCode(ctx context.Context, name, qrCode string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sales_invoices SET qr_code = $2 WHERE name = $1`, name, qrCode)
	if err != nil {
		return fmt.Errorf("invoices: set qr code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sales invoice '%s'", httpx.ErrNotFound, name)
	}
	return nil
}

type pgTxStore struct {
	tx        pgx.Tx
	customers customers.Repository
	items     items.TxRepository
}

func (s *pgTxStore) Customers() customers.Repository { return s.customers }
func (s *pgTxStore) Items() items.TxRepository       { return s.items }

// InsertInvoice assigns the invoice a name from the accounting naming
// series and writes the document with its item and tax rows.
func (s *pgTxStore) InsertInvoice(ctx context.Context, invoice *SalesInvoice) error {
	if invoice.Name == "" {
		name, err := s.nextName(ctx)
		if err != nil {
			return err
		}
		invoice.Name = name
	}

	var extra []byte
	if len(invoice.ExtraFields) > 0 {
		encoded, err := json.Marshal(invoice.ExtraFields)
		if err != nil {
			return fmt.Errorf("invoices: encode extra fields: %w", err)
		}
		extra = encoded
	}

	docstatus := 0
	if invoice.Submitted {
		docstatus = 1
	}
	_, err := s.tx.Exec(ctx,
		`INSERT INTO sales_invoices (
			name, company, customer, posting_date, due_date, currency,
			grand_total, docstatus, extra_fields
		) VALUES ($1, $2, $3, NULLIF($4, '')::date, NULLIF($5, '')::date, $6, $7, $8, $9)`,
		invoice.Name, invoice.Company, invoice.Customer, invoice.PostingDate,
		invoice.DueDate, invoice.Currency, invoice.GrandTotal, docstatus, extra,
	)
	if err != nil {
		return fmt.Errorf("invoices: insert: %w", err)
	}

	for idx, line := range invoice.Items {
		_, err := s.tx.Exec(ctx,
			`INSERT INTO sales_invoice_items (
				parent, idx, item_code, item_name, description, qty, uom, rate,
				amount, warehouse, income_account, cost_center,
				discount_percentage, item_tax_template
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
				NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''), $13, NULLIF($14, ''))`,
			invoice.Name, idx+1, line.ItemCode, line.ItemName, line.Description,
			line.Qty, line.UOM, line.Rate, line.Amount, line.Warehouse,
			line.IncomeAccount, line.CostCenter, line.DiscountPercentage,
			line.ItemTaxTemplate,
		)
		if err != nil {
			return fmt.Errorf("invoices: insert item row: %w", err)
		}
	}

	for idx, tax := range invoice.Taxes {
		_, err := s.tx.Exec(ctx,
			`INSERT INTO sales_invoice_taxes (
				parent, idx, charge_type, account_head, rate, tax_amount, description
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			invoice.Name, idx+1, tax.ChargeType, tax.AccountHead, tax.Rate,
			tax.TaxAmount, tax.Description,
		)
		if err != nil {
			return fmt.Errorf("invoices: insert tax row: %w", err)
		}
	}
	return nil
}

func (s *pgTxStore) SetQRCode(ctx context.Context, name, qrCode string) error {
	tag, err := s.tx.Exec(ctx,
		`UPDATE sales_invoices SET qr_code = $2 WHERE name = $1`, name, qrCode)
	if err != nil {
		return fmt.Errorf("invoices: set qr code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sales invoice '%s'", httpx.ErrNotFound, name)
	}
	return nil
}

// nextName draws the next number of the accounting series for the current
// year. The per-series row is updated atomically inside the transaction.
func (s *pgTxStore) nextName(ctx context.Context) (string, error) {
	series := fmt.Sprintf("ACC-SINV-%d", time.Now().UTC().Year())
	var current int
	err := s.tx.QueryRow(ctx,
		`INSERT INTO naming_series (series, current) VALUES ($1, 1)
		 ON CONFLICT (series) DO UPDATE SET current = naming_series.current + 1
		 RETURNING current`,
		series,
	).Scan(&current)
	if err != nil {
		return "", fmt.Errorf("invoices: next series number: %w", err)
	}
	return fmt.Sprintf("%s-%05d", series, current), nil
}
