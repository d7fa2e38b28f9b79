package invoices

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/erpgate/erpgate/internal/docstore"
	"github.com/erpgate/erpgate/internal/payload"
	"github.com/erpgate/erpgate/internal/platform/httpx"
	"github.com/erpgate/erpgate/internal/shared"
)

// Handler serves the sales invoice endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	errlog  *shared.ErrorLog
	baseURL string
}

// NewHandler constructs the invoice handler. baseURL is the ERP desk base
// used to build invoice_url values.
func NewHandler(logger *slog.Logger, service *Service, errlog *shared.ErrorLog, baseURL string) *Handler {
	return &Handler{logger: logger, service: service, errlog: errlog, baseURL: baseURL}
}

// MountRoutes registers the invoice endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sales-invoices", h.Create)
	r.Post("/sales-invoices/{name}/qr-code", h.UpdateQRCode)
}

// Create handles POST /sales-invoices.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	callerID := ""
	if caller := shared.CallerFromContext(r.Context()); caller != nil {
		callerID = caller.KeyID
	}

	args, err := payload.FromRequest(r)
	if err != nil {
		httpx.Error(w, err, map[string]any{"invoice_name": nil})
		return
	}

	req, err := ParseCreateInvoiceRequest(args)
	if err != nil {
		h.logger.Warn("invoice payload rejected", slog.Any("error", err))
		httpx.Error(w, err, map[string]any{"invoice_name": nil})
		return
	}

	h.logger.Debug("create invoice request",
		slog.String("company", req.Company),
		slog.String("customer_name", req.CustomerName),
		slog.Int("lines", len(req.Items)),
		slog.String("caller", callerID))

	invoice, warnings, err := h.service.Create(r.Context(), req)
	if err != nil {
		if httpx.IsInternal(err) {
			h.errlog.Record(r.Context(), "Sales Invoice Creation Failed", err)
		} else {
			h.logger.Warn("create invoice rejected",
				slog.String("customer_name", req.CustomerName), slog.Any("error", err))
		}
		httpx.Error(w, err, map[string]any{"invoice_name": nil})
		return
	}

	verb := "created"
	if invoice.Submitted {
		verb = "created and submitted"
	}
	response := map[string]any{
		"message":      fmt.Sprintf("Sales Invoice %s %s successfully", invoice.Name, verb),
		"invoice_name": invoice.Name,
		"invoice_url":  docstore.FormURL(h.baseURL, "sales-invoice", invoice.Name),
		"customer":     invoice.Customer,
		"grand_total":  invoice.GrandTotal.InexactFloat64(),
	}
	if len(warnings) > 0 {
		response["warnings"] = warnings
	}
	httpx.OK(w, response)
}

// UpdateQRCode handles POST /sales-invoices/{name}/qr-code.
func (h *Handler) UpdateQRCode(w http.ResponseWriter, r *http.Request) {
	invoiceName := chi.URLParam(r, "name")

	args, err := payload.FromRequest(r)
	if err != nil {
		httpx.Error(w, err, nil)
		return
	}
	if invoiceName == "" {
		invoiceName = args.Str("invoice_name")
	}
	qrCode := args.Str("qr_code")

	warnings, err := h.service.UpdateQRCode(r.Context(), invoiceName, qrCode)
	if err != nil {
		if httpx.IsInternal(err) {
			h.errlog.Record(r.Context(), "QR Code Update Failed", err)
		}
		httpx.Error(w, err, nil)
		return
	}

	response := map[string]any{
		"message": fmt.Sprintf("QR code updated for %s", invoiceName),
	}
	if len(warnings) > 0 {
		response["message"] = warnings[0]
		response["warnings"] = warnings
	}
	httpx.OK(w, response)
}
