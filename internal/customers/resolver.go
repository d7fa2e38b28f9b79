package customers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/erpgate/erpgate/internal/docstore"
	"github.com/erpgate/erpgate/internal/platform/httpx"
)

// Defaults are applied when the payload omits customer classification
// fields.
type Defaults struct {
	CustomerType  string
	CustomerGroup string
	Territory     string
	Country       string
}

// Profile carries the customer and address fields of an invoice payload.
type Profile struct {
	CustomerName  string
	Company       string
	CustomerType  string
	CustomerGroup string
	Territory     string
	Email         string
	Phone         string

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
}

// Resolver maps a customer name to a persisted customer reference,
// creating the customer and one billing address on demand.
type Resolver struct {
	logger   *slog.Logger
	fields   *docstore.FieldRegistry
	defaults Defaults
}

// NewResolver constructs a customer resolver.
func NewResolver(logger *slog.Logger, fields *docstore.FieldRegistry, defaults Defaults) *Resolver {
	return &Resolver{logger: logger, fields: fields, defaults: defaults}
}

// Resolve returns the customer reference for profile.CustomerName,
// creating the customer when it does not exist. A concurrent create of the
// same name is recovered by re-reading instead of failing. Address problems
// degrade to warnings; they never fail resolution.
func (r *Resolver) Resolve(ctx context.Context, repo Repository, profile Profile) (string, []string, error) {
	name, err := repo.GetByName(ctx, profile.CustomerName)
	if err == nil {
		return name, nil, nil
	}
	if !errors.Is(err, httpx.ErrNotFound) {
		return "", nil, err
	}

	customer := r.buildCustomer(profile)
	if err := repo.Insert(ctx, customer); err != nil {
		if errors.Is(err, httpx.ErrDuplicateEntry) {
			// Lost the race against a concurrent request; the record
			// exists now, so re-read it.
			name, err := repo.GetByName(ctx, profile.CustomerName)
			return name, nil, err
		}
		return "", nil, fmt.Errorf("create customer '%s': %w", profile.CustomerName, err)
	}
	r.logger.Info("customer created", slog.String("customer", customer.Name))

	warnings := r.createBillingAddress(ctx, repo, customer.Name, profile)
	return customer.Name, warnings, nil
}

func (r *Resolver) buildCustomer(profile Profile) *Customer {
	customer := &Customer{
		Name:           profile.CustomerName,
		CustomerType:   orDefault(profile.CustomerType, r.defaults.CustomerType),
		CustomerGroup:  orDefault(profile.CustomerGroup, r.defaults.CustomerGroup),
		Territory:      orDefault(profile.Territory, r.defaults.Territory),
		Email:          profile.Email,
		Mobile:         profile.Phone,
		DefaultCompany: profile.Company,
	}
	if profile.VATRegistrationNumber != "" &&
		r.fields.Supports("customer", "custom_vat_registration_number") {
		customer.VATRegistrationNumber = profile.VATRegistrationNumber
	}
	if profile.CommercialRegistrationNumber != "" &&
		r.fields.Supports("customer", "custom_additional_ids") {
		customer.AdditionalIDs = append(customer.AdditionalIDs, AdditionalID{
			TypeName: "Commercial Registration Number",
			TypeCode: "CRN",
			Value:    profile.CommercialRegistrationNumber,
		})
	}
	return customer
}

func (r *Resolver) createBillingAddress(ctx context.Context, repo Repository, customer string, profile Profile) []string {
	if profile.AddressLine1 == "" && profile.City == "" {
		return nil
	}

	title := customer + "-Billing"
	exists, err := repo.AddressExists(ctx, title)
	if err != nil {
		message := fmt.Sprintf("address lookup failed for customer %s", customer)
		r.logger.Warn(message, slog.Any("error", err))
		return []string{message}
	}
	if exists {
		message := fmt.Sprintf("address already exists for customer %s", customer)
		r.logger.Warn(message)
		return []string{message}
	}

	address := &Address{
		Title:       title,
		AddressType: "Billing",
		Line1:       profile.AddressLine1,
		Line2:       profile.AddressLine2,
		City:        profile.City,
		County:      profile.County,
		State:       profile.State,
		Pincode:     profile.Pincode,
		Country:     orDefault(profile.Country, r.defaults.Country),
		Customer:    customer,
	}
	if profile.BuildingNumber != "" && r.fields.Supports("address", "custom_building_number") {
		address.BuildingNumber = profile.BuildingNumber
	}
	if profile.Area != "" && r.fields.Supports("address", "custom_area") {
		address.Area = profile.Area
	}

	if err := repo.InsertAddress(ctx, address); err != nil {
		message := fmt.Sprintf("customer created but address creation failed: %v", err)
		r.logger.Warn(message, slog.String("customer", customer))
		return []string{message}
	}
	return nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
