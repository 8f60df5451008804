package users

import (
	"log/slog"
	"net/http"

	"github.com/panelkit/panel/internal/platform/httpx"
	"github.com/panelkit/panel/internal/shared"
)

// Handler manages user management endpoints.
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

type createRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=64"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Nickname string  `json:"nickname" validate:"max=64"`
	Email    string  `json:"email" validate:"omitempty,email,max=255"`
	RoleIDs  []int64 `json:"roleIds" validate:"dive,gt=0"`
}

type statusRequest struct {
	Status *int `json:"status" validate:"required,oneof=0 1"`
}

type passwordRequest struct {
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type rolesRequest struct {
	RoleIDs []int64 `json:"roleIds" validate:"dive,gt=0"`
}

type idsRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

// List handles GET /api/system/users.
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
		items = []User{}
	}
	httpx.OK(w, httpx.Paged[User]{Items: items, Pagination: pagination})
}

// Get handles GET /api/system/users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, user)
}

// Create handles POST /api/system/users.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, err := h.service.Create(r.Context(), req.Username, req.Password, req.Nickname, req.Email, req.RoleIDs)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, user)
}

// UpdateStatus handles PUT /api/system/users/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.UpdateStatus(r.Context(), id, *req.Status); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, nil)
}

// ResetPassword handles PUT /api/system/users/{id}/password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req passwordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.ResetPassword(r.Context(), id, req.Password); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, nil)
}

// AssignRoles handles PUT /api/system/users/{id}/roles.
func (h *Handler) AssignRoles(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req rolesRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.AssignRoles(r.Context(), id, req.RoleIDs); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, nil)
}

// Disable handles POST /api/system/users/disable.
func (h *Handler) Disable(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DisableMany(r.Context(), req.IDs); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, nil)
}

// Delete handles POST /api/system/users/delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), req.IDs); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, nil)
}
