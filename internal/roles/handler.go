package roles

import (
	"log/slog"
	"net/http"

	"github.com/panelkit/panel/internal/platform/httpx"
	"github.com/panelkit/panel/internal/rbac"
	"github.com/panelkit/panel/internal/shared"
)

// Handler manages role management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

type roleRequest struct {
	Name    string  `json:"name" validate:"required,max=64"`
	Value   string  `json:"value" validate:"required,max=64"`
	Status  *int    `json:"status" validate:"required,oneof=0 1"`
	Remark  string  `json:"remark" validate:"max=255"`
	MenuIDs []int64 `json:"menuIds" validate:"dive,gt=0"`
}

func (req roleRequest) input() Input {
	return Input{Name: req.Name, Value: req.Value, Status: *req.Status, Remark: req.Remark, MenuIDs: req.MenuIDs}
}

// List handles GET /api/system/roles.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status, err := httpx.QueryInt(r, "status")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	filter := ListFilter{Keyword: r.URL.Query().Get("keyword"), Status: status}
	items, pagination, err := h.service.List(r.Context(), filter, shared.PageFromQuery(r.URL.Query()))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if items == nil {
		items = []rbac.Role{}
	}
	httpx.OK(w, httpx.Paged[rbac.Role]{Items: items, Pagination: pagination})
}

// Get handles GET /api/system/roles/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, role)
}

// Create handles POST /api/system/roles.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	role, err := h.service.Create(r.Context(), req.input())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, role)
}

// Update handles PUT /api/system/roles/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.Update(r.Context(), id, req.input()); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, nil)
}

// Delete handles DELETE /api/system/roles/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, nil)
}
