package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/erpgate/erpgate/internal/platform/httpx"
)

// Repository persists customers and addresses inside the request
// transaction it was bound to.
type Repository interface {
	GetByName(ctx context.Context, name string) (string, error)
	Insert(ctx context.Context, customer *Customer) error
	AddressExists(ctx context.Context, title string) (bool, error)
	InsertAddress(ctx context.Context, address *Address) error
}

type pgRepository struct {
	tx pgx.Tx
}

// NewTxRepository binds a customer repository to a request transaction.
// Insert and InsertAddress run under savepoints so their failures do not
// poison the enclosing transaction.
func NewTxRepository(tx pgx.Tx) Repository {
	return &pgRepository{tx: tx}
}

func (r *pgRepository) GetByName(ctx context.Context, name string) (string, error) {
	var ref string
	err := r.tx.QueryRow(ctx,
		`SELECT name FROM customers WHERE customer_name = $1`, name,
	).Scan(&ref)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: customer '%s'", httpx.ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("customers: get by name: %w", err)
	}
	return ref, nil
}

func (r *pgRepository) Insert(ctx context.Context, customer *Customer) error {
	inner, err := r.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("customers: begin savepoint: %w", err)
	}

	_, err = inner.Exec(ctx,
		`INSERT INTO customers (
			name, customer_name, customer_type, customer_group, territory,
			email_id, mobile_no, default_company, vat_registration_number
		) VALUES ($1, $1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''))`,
		customer.Name, customer.CustomerType, customer.CustomerGroup, customer.Territory,
		customer.Email, customer.Mobile, customer.DefaultCompany, customer.VATRegistrationNumber,
	)
	if err != nil {
		_ = inner.Rollback(ctx)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: customer '%s'", httpx.ErrDuplicateEntry, customer.Name)
		}
		return fmt.Errorf("customers: insert: %w", err)
	}

	for _, id := range customer.AdditionalIDs {
		_, err = inner.Exec(ctx,
			`INSERT INTO customer_additional_ids (customer, type_name, type_code, value)
			 VALUES ($1, $2, $3, $4)`,
			customer.Name, id.TypeName, id.TypeCode, id.Value,
		)
		if err != nil {
			_ = inner.Rollback(ctx)
			return fmt.Errorf("customers: insert additional id: %w", err)
		}
	}

	if err := inner.Commit(ctx); err != nil {
		return fmt.Errorf("customers: commit savepoint: %w", err)
	}
	return nil
}

func (r *pgRepository) AddressExists(ctx context.Context, title string) (bool, error) {
	var found bool
	err := r.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM addresses WHERE title = $1)`, title,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("customers: address exists: %w", err)
	}
	return found, nil
}

func (r *pgRepository) InsertAddress(ctx context.Context, address *Address) error {
	inner, err := r.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("customers: begin savepoint: %w", err)
	}

	_, err = inner.Exec(ctx,
		`INSERT INTO addresses (
			title, address_type, address_line1, address_line2, city, county,
			state, pincode, country, building_number, area, customer
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12)`,
		address.Title, address.AddressType, address.Line1, address.Line2, address.City,
		address.County, address.State, address.Pincode, address.Country,
		address.BuildingNumber, address.Area, address.Customer,
	)
	if err != nil {
		_ = inner.Rollback(ctx)
		return fmt.Errorf("customers: insert address: %w", err)
	}
	if err := inner.Commit(ctx); err != nil {
		return fmt.Errorf("customers: commit savepoint: %w", err)
	}
	return nil
}
