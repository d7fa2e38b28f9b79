package masterdata

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/erpgate/erpgate/internal/platform/httpx"
)

// Handler serves the read-only reference-data lookups.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the lookup handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the lookup endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/tax-templates", h.ListTaxTemplates)
	r.Get("/tax-categories", h.ListTaxCategories)
	r.Get("/item-groups", h.ListItemGroups)
}

// ListTaxTemplates returns item tax templates, optionally filtered by the
// company query parameter.
func (h *Handler) ListTaxTemplates(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")
	templates, err := h.service.ListItemTaxTemplates(r.Context(), company)
	if err != nil {
		h.logger.Error("list tax templates failed", slog.Any("error", err))
		httpx.Error(w, err, nil)
		return
	}
	if templates == nil {
		templates = []ItemTaxTemplate{}
	}
	httpx.OK(w, map[string]any{"tax_templates": templates})
}

// ListTaxCategories returns the enabled tax categories.
func (h *Handler) ListTaxCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListTaxCategories(r.Context())
	if err != nil {
		h.logger.Error("list tax categories failed", slog.Any("error", err))
		httpx.Error(w, err, nil)
		return
	}
	if categories == nil {
		categories = []TaxCategory{}
	}
	httpx.OK(w, map[string]any{"tax_categories": categories})
}

// ListItemGroups returns all item groups.
func (h *Handler) ListItemGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListItemGroups(r.Context())
	if err != nil {
		h.logger.Error("list item groups failed", slog.Any("error", err))
		httpx.Error(w, err, nil)
		return
	}
	if groups == nil {
		groups = []ItemGroup{}
	}
	httpx.OK(w, map[string]any{"item_groups": groups})
}
