package customers

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpgate/erpgate/internal/docstore"
	"github.com/erpgate/erpgate/internal/platform/httpx"
)

type mockRepository struct {
	customers  map[string]*Customer
	addresses  map[string]*Address
	insertErr  error
	addressErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		customers: map[string]*Customer{},
		addresses: map[string]*Address{},
	}
}

func (m *mockRepository) GetByName(ctx context.Context, name string) (string, error) {
	if _, ok := m.customers[name]; ok {
		return name, nil
	}
	return "", fmt.Errorf("%w: customer '%s'", httpx.ErrNotFound, name)
}

func (m *mockRepository) Insert(ctx context.Context, customer *Customer) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, ok := m.customers[customer.Name]; ok {
		return fmt.Errorf("%w: customer '%s'", httpx.ErrDuplicateEntry, customer.Name)
	}
	m.customers[customer.Name] = customer
	return nil
}

func (m *mockRepository) AddressExists(ctx context.Context, title string) (bool, error) {
	_, ok := m.addresses[title]
	return ok, nil
}

func (m *mockRepository) InsertAddress(ctx context.Context, address *Address) error {
	if m.addressErr != nil {
		return m.addressErr
	}
	m.addresses[address.Title] = address
	return nil
}

var testDefaults = Defaults{
	CustomerType:  "Company",
	CustomerGroup: "Commercial",
	Territory:     "All Territories",
	Country:       "Saudi Arabia",
}

func fullRegistry() *docstore.FieldRegistry {
	return docstore.NewFieldRegistry([]string{
		"customer.custom_vat_registration_number",
		"customer.custom_additional_ids",
		"address.custom_building_number",
		"address.custom_area",
	})
}

func TestResolveExistingCustomer(t *testing.T) {
	repo := newMockRepository()
	repo.customers["Acme LLC"] = &Customer{Name: "Acme LLC"}
	resolver := NewResolver(slog.Default(), fullRegistry(), testDefaults)

	name, warnings, err := resolver.Resolve(context.Background(), repo, Profile{CustomerName: "Acme LLC"})
	require.NoError(t, err)
	assert.Equal(t, "Acme LLC", name)
	assert.Empty(t, warnings)
}

func TestResolveCreatesCustomerWithDefaults(t *testing.T) {
	repo := newMockRepository()
	resolver := NewResolver(slog.Default(), fullRegistry(), testDefaults)

	name, warnings, err := resolver.Resolve(context.Background(), repo, Profile{
		CustomerName:                 "Acme LLC",
		VATRegistrationNumber:        "300000000000003",
		CommercialRegistrationNumber: "1010101010",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme LLC", name)
	assert.Empty(t, warnings)

	created := repo.customers["Acme LLC"]
	require.NotNil(t, created)
	assert.Equal(t, "Company", created.CustomerType)
	assert.Equal(t, "Commercial", created.CustomerGroup)
	assert.Equal(t, "All Territories", created.Territory)
	assert.Equal(t, "300000000000003", created.VATRegistrationNumber)
	require.Len(t, created.AdditionalIDs, 1)
	assert.Equal(t, "CRN", created.AdditionalIDs[0].TypeCode)
}

func TestResolveSkipsUnsupportedExtensionFields(t *testing.T) {
	repo := newMockRepository()
	resolver := NewResolver(slog.Default(), docstore.NewFieldRegistry(nil), testDefaults)

	_, _, err := resolver.Resolve(context.Background(), repo, Profile{
		CustomerName:                 "Acme LLC",
		VATRegistrationNumber:        "300000000000003",
		CommercialRegistrationNumber: "1010101010",
	})
	require.NoError(t, err)

	created := repo.customers["Acme LLC"]
	assert.Empty(t, created.VATRegistrationNumber)
	assert.Empty(t, created.AdditionalIDs)
}

func TestResolveRecoversFromDuplicateRace(t *testing.T) {
	raceRepo := &racingRepository{mockRepository: newMockRepository()}
	resolver := NewResolver(slog.Default(), fullRegistry(), testDefaults)

	name, _, err := resolver.Resolve(context.Background(), raceRepo, Profile{CustomerName: "Acme LLC"})
	require.NoError(t, err)
	assert.Equal(t, "Acme LLC", name)
}

// racingRepository misses the first lookup, fails the insert with a
// duplicate error, then serves the re-lookup.
type racingRepository struct {
	*mockRepository
	lookups int
}

func (r *racingRepository) GetByName(ctx context.Context, name string) (string, error) {
	r.lookups++
	if r.lookups == 1 {
		return "", fmt.Errorf("%w: customer '%s'", httpx.ErrNotFound, name)
	}
	return name, nil
}

func (r *racingRepository) Insert(ctx context.Context, customer *Customer) error {
	return fmt.Errorf("%w: customer '%s'", httpx.ErrDuplicateEntry, customer.Name)
}

// lostRepository reports a duplicate on insert but never serves the
// re-lookup either.
type lostRepository struct {
	*mockRepository
}

func (r *lostRepository) Insert(ctx context.Context, customer *Customer) error {
	return fmt.Errorf("%w: customer '%s'", httpx.ErrDuplicateEntry, customer.Name)
}

func TestResolveDuplicateRaceReReadFailure(t *testing.T) {
	repo := &lostRepository{mockRepository: newMockRepository()}
	resolver := NewResolver(slog.Default(), fullRegistry(), testDefaults)

	name, _, err := resolver.Resolve(context.Background(), repo, Profile{CustomerName: "Acme LLC"})
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
	assert.Empty(t, name)
}

func TestResolveCreatesBillingAddress(t *testing.T) {
	repo := newMockRepository()
	resolver := NewResolver(slog.Default(), fullRegistry(), testDefaults)

	_, warnings, err := resolver.Resolve(context.Background(), repo, Profile{
		CustomerName:   "Acme LLC",
		AddressLine1:   "King Fahd Road",
		City:           "Riyadh",
		BuildingNumber: "7070",
		Area:           "Olaya",
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	address := repo.addresses["Acme LLC-Billing"]
	require.NotNil(t, address)
	assert.Equal(t, "Billing", address.AddressType)
	assert.Equal(t, "Saudi Arabia", address.Country)
	assert.Equal(t, "7070", address.BuildingNumber)
	assert.Equal(t, "Olaya", address.Area)
}

func TestResolveAddressFailureIsWarningOnly(t *testing.T) {
	repo := newMockRepository()
	repo.addressErr = fmt.Errorf("boom")
	resolver := NewResolver(slog.Default(), fullRegistry(), testDefaults)

	name, warnings, err := resolver.Resolve(context.Background(), repo, Profile{
		CustomerName: "Acme LLC",
		AddressLine1: "King Fahd Road",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme LLC", name)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "address creation failed")
}

func TestResolveExistingAddressIsWarning(t *testing.T) {
	repo := newMockRepository()
	repo.addresses["Acme LLC-Billing"] = &Address{Title: "Acme LLC-Billing"}
	resolver := NewResolver(slog.Default(), fullRegistry(), testDefaults)

	_, warnings, err := resolver.Resolve(context.Background(), repo, Profile{
		CustomerName: "Acme LLC",
		City:         "Riyadh",
	})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "already exists")
}
