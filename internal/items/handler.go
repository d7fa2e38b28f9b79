package items

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

// Handler serves the item creation endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
	errlog  *shared.ErrorLog
	baseURL string
}

// NewHandler constructs the item handler. baseURL is the ERP desk base used
// to build item_url values.
func NewHandler(logger *slog.Logger, service *Service, errlog *shared.ErrorLog, baseURL string) *Handler {
	return &Handler{logger: logger, service: service, errlog: errlog, baseURL: baseURL}
}

// MountRoutes registers the item endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/items", h.Create)
}

// Create handles POST /items.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	callerID := ""
	if caller := shared.CallerFromContext(r.Context()); caller != nil {
		callerID = caller.KeyID
	}

	args, err := payload.FromRequest(r)
	if err != nil {
		httpx.Error(w, err, map[string]any{"item_code": nil})
		return
	}

	req, err := ParseCreateItemRequest(args)
	if err != nil {
		h.logger.Warn("item payload rejected", slog.Any("error", err))
		httpx.Error(w, err, map[string]any{"item_code": nil})
		return
	}

	h.logger.Debug("create item request",
		slog.String("item_code", req.ItemCode),
		slog.String("caller", callerID))

	item, warnings, err := h.service.Create(r.Context(), req)
	if err != nil {
		if httpx.IsInternal(err) {
			h.errlog.Record(r.Context(), "Item Creation Failed", err)
		} else {
			h.logger.Warn("create item rejected",
				slog.String("item_code", req.ItemCode), slog.Any("error", err))
		}
		httpx.Error(w, err, map[string]any{"item_code": nil})
		return
	}

	response := map[string]any{
		"message":   fmt.Sprintf("Item %s created successfully", item.ItemCode),
		"item_code": item.ItemCode,
		"item_name": item.ItemName,
		"item_url":  docstore.FormURL(h.baseURL, "item", item.ItemCode),
	}
	if len(warnings) > 0 {
		response["warnings"] = warnings
	}
	httpx.OK(w, response)
}
