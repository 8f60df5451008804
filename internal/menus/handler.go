package menus

import (
	"log/slog"
	"net/http"

	"github.com/panelkit/panel/internal/gate"
	"github.com/panelkit/panel/internal/platform/httpx"
	"github.com/panelkit/panel/internal/rbac"
	"github.com/panelkit/panel/internal/shared"
)

// Handler manages menu endpoints.
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

type menuRequest struct {
	ParentID   *int64  `json:"parentId" validate:"omitempty,gt=0"`
	Name       string  `json:"name" validate:"required,max=64"`
	Path       string  `json:"path" validate:"max=255"`
	Permission *string `json:"permission" validate:"omitempty,max=255"`
	Type       *int    `json:"type" validate:"required,oneof=0 1 2"`
	Icon       string  `json:"icon" validate:"max=64"`
	OrderNo    int     `json:"orderNo"`
	Component  string  `json:"component" validate:"max=255"`
	Status     *int    `json:"status" validate:"required,oneof=0 1"`
}

func (req menuRequest) menu(id int64) rbac.Menu {
	return rbac.Menu{
		ID:         id,
		ParentID:   req.ParentID,
		Name:       req.Name,
		Path:       req.Path,
		Permission: req.Permission,
		Type:       rbac.MenuType(*req.Type),
		Icon:       req.Icon,
		OrderNo:    req.OrderNo,
		Component:  req.Component,
		Status:     *req.Status,
	}
}

// Tree handles GET /api/system/menus.
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.Tree(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, tree)
}

// Get handles GET /api/system/menus/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	menu, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, menu)
}

// AccountMenus handles GET /api/account/menus.
func (h *Handler) AccountMenus(w http.ResponseWriter, r *http.Request) {
	id := gate.IdentityFromContext(r.Context())
	if id == nil {
		httpx.RespondError(w, h.logger, shared.ErrUnauthorized)
		return
	}
	tree, err := h.service.AccountMenus(r.Context(), id.AccountID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, tree)
}

// Create handles POST /api/system/menus.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	menu, err := h.service.Create(r.Context(), req.menu(0))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, menu)
}

// Update handles PUT /api/system/menus/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req menuRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.Update(r.Context(), req.menu(id)); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, nil)
}

// Delete handles DELETE /api/system/menus/{id}.
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
