package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpgate/erpgate/internal/customers"
	"github.com/erpgate/erpgate/internal/docstore"
	"github.com/erpgate/erpgate/internal/items"
	"github.com/erpgate/erpgate/internal/masterdata"
	"github.com/erpgate/erpgate/internal/platform/httpx"
)

type mockCustomerRepo struct {
	existing map[string]bool
	created  []*customers.Customer
}

func (m *mockCustomerRepo) GetByName(ctx context.Context, name string) (string, error) {
	if m.existing[name] {
		return name, nil
	}
	return "", fmt.Errorf("%w: customer '%s'", httpx.ErrNotFound, name)
}

func (m *mockCustomerRepo) Insert(ctx context.Context, customer *customers.Customer) error {
	m.existing[customer.Name] = true
	m.created = append(m.created, customer)
	return nil
}

func (m *mockCustomerRepo) AddressExists(ctx context.Context, title string) (bool, error) {
	return false, nil
}

func (m *mockCustomerRepo) InsertAddress(ctx context.Context, address *customers.Address) error {
	return nil
}

type mockItemRepo struct {
	summaries map[string]*items.Summary
	created   []*items.Item
}

func (m *mockItemRepo) Exists(ctx context.Context, code string) (bool, error) {
	_, ok := m.summaries[code]
	return ok, nil
}

func (m *mockItemRepo) Summary(ctx context.Context, code string) (*items.Summary, error) {
	if s, ok := m.summaries[code]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: item '%s'", httpx.ErrNotFound, code)
}

func (m *mockItemRepo) Insert(ctx context.Context, item *items.Item) error {
	m.summaries[item.ItemCode] = &items.Summary{
		ItemCode:    item.ItemCode,
		ItemName:    item.ItemName,
		Description: item.Description,
		StockUOM:    item.StockUOM,
	}
	m.created = append(m.created, item)
	return nil
}

type mockInvoiceStore struct {
	customers *mockCustomerRepo
	items     *mockItemRepo
	inserted  []*SalesInvoice
	qrCodes   map[string]string
	txCalls   int
	insertErr error
}

func newMockInvoiceStore() *mockInvoiceStore {
	return &mockInvoiceStore{
		customers: &mockCustomerRepo{existing: map[string]bool{}},
		items:     &mockItemRepo{summaries: map[string]*items.Summary{}},
		qrCodes:   map[string]string{},
	}
}

func (m *mockInvoiceStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	m.txCalls++
	return fn(ctx, m)
}

func (m *mockInvoiceStore) Customers() customers.Repository { return m.customers }
func (m *mockInvoiceStore) Items() items.TxRepository       { return m.items }

func (m *mockInvoiceStore) InsertInvoice(ctx context.Context, invoice *SalesInvoice) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if invoice.Name == "" {
		invoice.Name = fmt.Sprintf("ACC-SINV-2026-%05d", len(m.inserted)+1)
	}
	m.inserted = append(m.inserted, invoice)
	return nil
}

func (m *mockInvoiceStore) SetQRCode(ctx context.Context, name, qrCode string) error {
	if _, ok := m.qrCodes[name]; !ok {
		for _, inv := range m.inserted {
			if inv.Name == name {
				m.qrCodes[name] = qrCode
				return nil
			}
		}
		return fmt.Errorf("%w: sales invoice '%s'", httpx.ErrNotFound, name)
	}
	m.qrCodes[name] = qrCode
	return nil
}

type mockInvoiceRefs struct {
	company          *masterdata.Company
	groups           map[string]bool
	templates        []masterdata.ItemTaxTemplate
	templateExisting map[string]bool
	salesTemplates   map[string]*masterdata.SalesTaxesTemplate
	defaultTemplate  *masterdata.SalesTaxesTemplate
	warehouse        string
}

func (m *mockInvoiceRefs) Company(ctx context.Context, name string) (*masterdata.Company, error) {
	if m.company != nil && m.company.Name == name {
		return m.company, nil
	}
	return nil, fmt.Errorf("%w: company '%s' does not exist", httpx.ErrNotFound, name)
}

func (m *mockInvoiceRefs) ItemGroupExists(ctx context.Context, name string) (bool, error) {
	return m.groups[name], nil
}

func (m *mockInvoiceRefs) ItemTaxTemplates(ctx context.Context, company string) ([]masterdata.ItemTaxTemplate, error) {
	return m.templates, nil
}

func (m *mockInvoiceRefs) ItemTaxTemplateExists(ctx context.Context, name string) (bool, error) {
	return m.templateExisting[name], nil
}

func (m *mockInvoiceRefs) SalesTaxesTemplate(ctx context.Context, name string) (*masterdata.SalesTaxesTemplate, error) {
	if tpl, ok := m.salesTemplates[name]; ok {
		return tpl, nil
	}
	return nil, fmt.Errorf("%w: sales taxes template", httpx.ErrNotFound)
}

func (m *mockInvoiceRefs) DefaultSalesTaxesTemplate(ctx context.Context, company string) (*masterdata.SalesTaxesTemplate, error) {
	if m.defaultTemplate != nil {
		return m.defaultTemplate, nil
	}
	return nil, fmt.Errorf("%w: sales taxes template", httpx.ErrNotFound)
}

func (m *mockInvoiceRefs) DefaultWarehouse(ctx context.Context, company string) (string, error) {
	return m.warehouse, nil
}

func defaultRefs() *mockInvoiceRefs {
	return &mockInvoiceRefs{
		company:          &masterdata.Company{Name: "Najd Trading", Abbr: "NT", DefaultCurrency: "SAR"},
		groups:           map[string]bool{"Products": true, "All Item Groups": true},
		templateExisting: map[string]bool{},
		salesTemplates:   map[string]*masterdata.SalesTaxesTemplate{},
		warehouse:        "Stores - NT",
	}
}

func newInvoiceService(store *mockInvoiceStore, refs *mockInvoiceRefs, registry *docstore.FieldRegistry) *Service {
	return newInvoiceServiceWithCache(store, refs, registry, nil)
}

func newInvoiceServiceWithCache(store *mockInvoiceStore, refs *mockInvoiceRefs, registry *docstore.FieldRegistry, cache *items.SummaryCache) *Service {
	logger := slog.Default()
	resolver := customers.NewResolver(logger, registry, customers.Defaults{
		CustomerType:  "Company",
		CustomerGroup: "Commercial",
		Territory:     "All Territories",
		Country:       "Saudi Arabia",
	})
	return NewService(logger, store, refs, resolver, NewTaxCodeResolver(logger, refs), cache, registry, Options{})
}

func qrRegistry() *docstore.FieldRegistry {
	return docstore.NewFieldRegistry([]string{"sales_invoice.qr_code"})
}

func lineItems(specs ...LineItemSpec) []LineItemSpec { return specs }

func TestCreateInvoiceNoTaxInputsNoDefaultTemplate(t *testing.T) {
	store := newMockInvoiceStore()
	store.items.summaries["WIDGET-1"] = &items.Summary{
		ItemCode: "WIDGET-1", ItemName: "Widget", Description: "Widget", StockUOM: "Nos",
	}
	svc := newInvoiceService(store, defaultRefs(), qrRegistry())

	invoice, warnings, err := svc.Create(context.Background(), &CreateInvoiceRequest{
		Company:      "Najd Trading",
		CustomerName: "Acme LLC",
		Items: lineItems(LineItemSpec{
			ItemCode: "WIDGET-1",
			Qty:      decimal.NewFromInt(2),
			Rate:     decimal.NewFromInt(50),
		}),
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, store.inserted, 1)

	assert.Empty(t, invoice.Taxes)
	assert.Equal(t, "SAR", invoice.Currency)
	assert.Equal(t, "Acme LLC", invoice.Customer)
	assert.True(t, invoice.GrandTotal.Equal(decimal.NewFromInt(100)),
		"grand total %s", invoice.GrandTotal)

	require.Len(t, invoice.Items, 1)
	line := invoice.Items[0]
	assert.Equal(t, "Widget", line.ItemName)
	assert.Equal(t, "Nos", line.UOM)
	assert.Equal(t, "Stores - NT", line.Warehouse)
}

func TestCreateInvoiceMissingFieldsAggregated(t *testing.T) {
	store := newMockInvoiceStore()
	svc := newInvoiceService(store, defaultRefs(), qrRegistry())

	_, _, err := svc.Create(context.Background(), &CreateInvoiceRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrMissingField)
	assert.Contains(t, err.Error(), "company")
	assert.Contains(t, err.Error(), "customer_name")
	assert.Contains(t, err.Error(), "items")
	assert.Zero(t, store.txCalls)
}

func TestCreateInvoiceUnknownCompany(t *testing.T) {
	svc := newInvoiceService(newMockInvoiceStore(), defaultRefs(), qrRegistry())

	_, _, err := svc.Create(context.Background(), &CreateInvoiceRequest{
		Company:      "Ghost Co",
		CustomerName: "Acme LLC",
		Items:        lineItems(LineItemSpec{ItemCode: "A", Qty: decimal.NewFromInt(1)}),
	})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCreateInvoiceInvalidLineItems(t *testing.T) {
	svc := newInvoiceService(newMockInvoiceStore(), defaultRefs(), qrRegistry())

	_, _, err := svc.Create(context.Background(), &CreateInvoiceRequest{
		Company:      "Najd Trading",
		CustomerName: "Acme LLC",
		Items: lineItems(
			LineItemSpec{ItemCode: "A", Qty: decimal.NewFromInt(1)},
			LineItemSpec{ItemCode: "", Qty: decimal.NewFromInt(1)},
		),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrInvalidLineItem)
	assert.Contains(t, err.Error(), "2")
}

func TestCreateInvoiceTaxEntryMissingAccountHeadFailsBeforePersistence(t *testing.T) {
	store := newMockInvoiceStore()
	store.items.summaries["WIDGET-1"] = &items.Summary{ItemCode: "WIDGET-1", ItemName: "Widget"}
	svc := newInvoiceService(store, defaultRefs(), qrRegistry())

	_, _, err := svc.Create(context.Background(), &CreateInvoiceRequest{
		Company:      "Najd Trading",
		CustomerName: "Acme LLC",
		Items:        lineItems(LineItemSpec{ItemCode: "WIDGET-1", Qty: decimal.NewFromInt(1)}),
		Taxes:        []TaxSpec{{Rate: decimal.NewFromInt(15)}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrMissingField)
	assert.Contains(t, err.Error(), "account_head")
	assert.Zero(t, store.txCalls)
	assert.Empty(t, store.inserted)
	assert.Empty(t, store.items.created)
}

func TestCreateInvoiceCallerTaxes(t *testing.T) {
	store := newMockInvoiceStore()
	store.items.summaries["WIDGET-1"] = &items.Summary{ItemCode: "WIDGET-1", ItemName: "Widget"}
	svc := newInvoiceService(store, defaultRefs(), qrRegistry())

	invoice, _, err := svc.Create(context.Background(), &CreateInvoiceRequest{
		Company:      "Najd Trading",
		CustomerName: "Acme LLC",
		Items: lineItems(LineItemSpec{
			ItemCode: "WIDGET-1",
			Qty:      decimal.NewFromInt(1),
			Rate:     decimal.NewFromInt(100),
		}),
		Taxes: []TaxSpec{{AccountHead: "VAT - NT", Rate: decimal.NewFromInt(15)}},
	})
	require.NoError(t, err)

	require.Len(t, invoice.Taxes, 1)
	tax := invoice.Taxes[0]
	assert.Equal(t, "On Net Total", tax.ChargeType)
	assert.True(t, tax.TaxAmount.Equal(decimal.NewFromInt(15)), "tax amount %s", tax.TaxAmount)
	assert.True(t, invoice.GrandTotal.Equal(decimal.NewFromInt(115)), "grand total %s", invoice.GrandTotal)
}

func TestCreateInvoiceNamedTemplateWinsOverCallerTaxes(t *testing.T) {
	store := newMockInvoiceStore()
	store.items.summaries["WIDGET-1"] = &items.Summary{ItemCode: "WIDGET-1", ItemName: "Widget"}
	refs := defaultRefs()
	refs.salesTemplates["KSA VAT - NT"] = &masterdata.SalesTaxesTemplate{
		Name:    "KSA VAT - NT",
		Company: "Najd Trading",
		Rows: []masterdata.SalesTaxRow{
			{ChargeType: "On Net Total", AccountHead: "VAT - NT", Rate: decimal.NewFromInt(15), Description: "VAT 15%"},
		},
	}
	svc := newInvoiceService(store, refs, qrRegistry())

	invoice, _, err := svc.Create(context.Background(), &CreateInvoiceRequest{
		Company:         "Najd Trading",
		CustomerName:    "Acme LLC",
		TaxesAndCharges: "KSA VAT - NT",
		Items:           lineItems(LineItemSpec{ItemCode: "WIDGET-1", Qty: decimal.NewFromInt(1), Rate: decimal.NewFromInt(100)}),
		Taxes:           []TaxSpec{{AccountHead: "Ignored", Rate: decimal.NewFromInt(5)}},
	})
	require.NoError(t, err)
	require.Len(t, invoice.Taxes, 1)
	assert.Equal(t, "VAT - NT", invoice.Taxes[0].AccountHead)
}

func TestCreateInvoiceAutoCreatesMissingItem(t *testing.T) {
	store := newMockInvoiceStore()
	svc := newInvoiceService(store, defaultRefs(), qrRegistry())

	invoice, warnings, err := svc.Create(context.Background(), &CreateInvoiceRequest{
		Company:      "Najd Trading",
		CustomerName: "Acme LLC",
		Items: lineItems(LineItemSpec{
			ItemCode: "NEW-ITEM",
			Qty:      decimal.NewFromInt(1),
			Rate:     decimal.NewFromInt(10),
		}),
	})
	require.NoError(t, err)
	require.Len(t, store.items.created, 1)

	created := store.items.created[0]
	assert.Equal(t, "Products", created.ItemGroup)
	assert.Equal(t, "NEW-ITEM", created.ItemName)
	assert.Equal(t, "Nos", created.StockUOM)
	require.Len(t, created.Defaults, 1)
	assert.Equal(t, "Stores - NT", created.Defaults[0].DefaultWarehouse)

	assert.NotEmpty(t, invoice.Items[0].ItemName)
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0], "NEW-ITEM")
}

func TestCreateInvoiceAutoCreateGroupFallback(t *testing.T) {
	store := newMockInvoiceStore()
	refs := defaultRefs()
	refs.groups = map[string]bool{"All Item Groups": true}
	svc := newInvoiceService(store, refs, qrRegistry())

	_, _, err := svc.Create(context.Background(), &CreateInvoiceRequest{
		Company:      "Najd Trading",
		CustomerName: "Acme LLC",
		Items:        lineItems(LineItemSpec{ItemCode: "NEW-ITEM", Qty: decimal.NewFromInt(1)}),
	})
	require.NoError(t, err)
	require.Len(t, store.items.created, 1)
	assert.Equal(t, "All Item Groups", store.items.created[0].ItemGroup)
}

func summaryCache(t *testing.T, repo items.Repository) (*items.SummaryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return items.NewSummaryCache(slog.Default(), client, repo, time.Minute), mr
}

func TestCreateInvoiceCachesAutoCreatedItemAfterCommit(t *testing.T) {
	store := newMockInvoiceStore()
	cache, mr := summaryCache(t, store.items)
	svc := newInvoiceServiceWithCache(store, defaultRefs(), qrRegistry(), cache)

	_, _, err := svc.Create(context.Background(), &CreateInvoiceRequest{
		Company:      "Najd Trading",
		CustomerName: "Acme LLC",
		Items:        lineItems(LineItemSpec{ItemCode: "NEW-ITEM", Qty: decimal.NewFromInt(1)}),
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists("erpgate:item:NEW-ITEM"))
}

func TestCreateInvoiceRollbackLeavesCacheEmpty(t *testing.T) {
	store := newMockInvoiceStore()
	store.insertErr = fmt.Errorf("insert failed")
	cache, mr := summaryCache(t, store.items)
	svc := newInvoiceServiceWithCache(store, defaultRefs(), qrRegistry(), cache)

	_, _, err := svc.Create(context.Background(), &CreateInvoiceRequest{
		Company:      "Najd Trading",
		CustomerName: "Acme LLC",
		Items:        lineItems(LineItemSpec{ItemCode: "NEW-ITEM", Qty: decimal.NewFromInt(1)}),
	})
	require.Error(t, err)
	assert.False(t, mr.Exists("erpgate:item:NEW-ITEM"))
}

func TestCreateInvoiceCustomerCreatedOnce(t *testing.T) {
	store := newMockInvoiceStore()
	store.items.summaries["WIDGET-1"] = &items.Summary{ItemCode: "WIDGET-1", ItemName: "Widget"}
	svc := newInvoiceService(store, defaultRefs(), qrRegistry())

	for i := 0; i < 2; i++ {
		_, _, err := svc.Create(context.Background(), &CreateInvoiceRequest{
			Company:      "Najd Trading",
			CustomerName: "Acme LLC",
			Items:        lineItems(LineItemSpec{ItemCode: "WIDGET-1", Qty: decimal.NewFromInt(1)}),
		})
		require.NoError(t, err)
	}

	assert.Len(t, store.customers.created, 1)
	require.Len(t, store.inserted, 2)
	assert.Equal(t, store.inserted[0].Customer, store.inserted[1].Customer)
}

func TestCreateInvoiceInvalidCurrency(t *testing.T) {
	svc := newInvoiceService(newMockInvoiceStore(), defaultRefs(), qrRegistry())

	_, _, err := svc.Create(context.Background(), &CreateInvoiceRequest{
		Company:      "Najd Trading",
		CustomerName: "Acme LLC",
		Currency:     "NOPE",
		Items:        lineItems(LineItemSpec{ItemCode: "A", Qty: decimal.NewFromInt(1)}),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrMalformedField)
	assert.Contains(t, err.Error(), "currency")
}

func TestCreateInvoiceQRCodeApplied(t *testing.T) {
	store := newMockInvoiceStore()
	store.items.summaries["WIDGET-1"] = &items.Summary{ItemCode: "WIDGET-1", ItemName: "Widget"}
	svc := newInvoiceService(store, defaultRefs(), qrRegistry())

	invoice, _, err := svc.Create(context.Background(), &CreateInvoiceRequest{
		Company:      "Najd Trading",
		CustomerName: "Acme LLC",
		QRCode:       "base64-qr-payload",
		Items:        lineItems(LineItemSpec{ItemCode: "WIDGET-1", Qty: decimal.NewFromInt(1)}),
	})
	require.NoError(t, err)
	assert.Equal(t, "base64-qr-payload", store.qrCodes[invoice.Name])
}

func TestCreateInvoiceQRCodeUnsupportedIsWarning(t *testing.T) {
	store := newMockInvoiceStore()
	store.items.summaries["WIDGET-1"] = &items.Summary{ItemCode: "WIDGET-1", ItemName: "Widget"}
	svc := newInvoiceService(store, defaultRefs(), docstore.NewFieldRegistry(nil))

	_, warnings, err := svc.Create(context.Background(), &CreateInvoiceRequest{
		Company:      "Najd Trading",
		CustomerName: "Acme LLC",
		QRCode:       "base64-qr-payload",
		Items:        lineItems(LineItemSpec{ItemCode: "WIDGET-1", Qty: decimal.NewFromInt(1)}),
	})
	require.NoError(t, err)
	assert.Empty(t, store.qrCodes)
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[len(warnings)-1], "QR code")
}

func TestCreateInvoiceExtraFieldsFiltered(t *testing.T) {
	store := newMockInvoiceStore()
	store.items.summaries["WIDGET-1"] = &items.Summary{ItemCode: "WIDGET-1", ItemName: "Widget"}
	registry := docstore.NewFieldRegistry([]string{"sales_invoice.po_no"})
	svc := newInvoiceService(store, defaultRefs(), registry)

	invoice, warnings, err := svc.Create(context.Background(), &CreateInvoiceRequest{
		Company:      "Najd Trading",
		CustomerName: "Acme LLC",
		Items:        lineItems(LineItemSpec{ItemCode: "WIDGET-1", Qty: decimal.NewFromInt(1)}),
		AdditionalFields: map[string]any{
			"po_no":       "PO-77",
			"unsupported": "dropped",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "PO-77", invoice.ExtraFields["po_no"])
	assert.NotContains(t, invoice.ExtraFields, "unsupported")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "unsupported")
}

func TestUpdateQRCode(t *testing.T) {
	store := newMockInvoiceStore()
	store.inserted = append(store.inserted, &SalesInvoice{Name: "ACC-SINV-2026-00001"})
	svc := newInvoiceService(store, defaultRefs(), qrRegistry())

	warnings, err := svc.UpdateQRCode(context.Background(), "ACC-SINV-2026-00001", "qr-data")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "qr-data", store.qrCodes["ACC-SINV-2026-00001"])
}

func TestUpdateQRCodeMissingFields(t *testing.T) {
	svc := newInvoiceService(newMockInvoiceStore(), defaultRefs(), qrRegistry())

	_, err := svc.UpdateQRCode(context.Background(), "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrMissingField)
	assert.Contains(t, err.Error(), "invoice_name")
	assert.Contains(t, err.Error(), "qr_code")
}

func TestUpdateQRCodeUnsupportedField(t *testing.T) {
	store := newMockInvoiceStore()
	svc := newInvoiceService(store, defaultRefs(), docstore.NewFieldRegistry(nil))

	warnings, err := svc.UpdateQRCode(context.Background(), "ACC-SINV-2026-00001", "qr-data")
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "QR code")
	assert.Empty(t, store.qrCodes)
}
