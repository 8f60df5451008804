package auth

import (
	"log/slog"
	"net/http"

	"github.com/panelkit/panel/internal/gate"
	"github.com/panelkit/panel/internal/platform/httpx"
	"github.com/panelkit/panel/internal/shared"
)

// Handler exposes the authentication and own-account endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Nickname string `json:"nickname" validate:"max=64"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72,nefield=OldPassword"`
}

type permissionsResponse struct {
	All         bool     `json:"all"`
	Permissions []string `json:"permissions"`
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, result)
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	account, err := h.service.Register(r.Context(), Registration{
		Username: req.Username,
		Password: req.Password,
		Nickname: req.Nickname,
		Email:    req.Email,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, account)
}

// Profile handles GET /api/account/profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	id := gate.IdentityFromContext(r.Context())
	if id == nil {
		httpx.RespondError(w, h.logger, shared.ErrUnauthorized)
		return
	}
	profile, err := h.service.Profile(r.Context(), id.AccountID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, profile)
}

// Permissions handles GET /api/account/permissions.
func (h *Handler) Permissions(w http.ResponseWriter, r *http.Request) {
	id := gate.IdentityFromContext(r.Context())
	if id == nil {
		httpx.RespondError(w, h.logger, shared.ErrUnauthorized)
		return
	}
	set, err := h.service.Permissions(r.Context(), id.AccountID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	perms := set.Values
	if perms == nil {
		perms = []string{}
	}
	httpx.OK(w, permissionsResponse{All: set.All, Permissions: perms})
}

// ChangePassword handles POST /api/account/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id := gate.IdentityFromContext(r.Context())
	if id == nil {
		httpx.RespondError(w, h.logger, shared.ErrUnauthorized)
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), id.AccountID, req.OldPassword, req.NewPassword); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, nil)
}

// Logout handles GET /api/account/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id := gate.IdentityFromContext(r.Context())
	if id == nil {
		httpx.RespondError(w, h.logger, shared.ErrUnauthorized)
		return
	}
	if err := h.service.Logout(r.Context(), id, id.Token); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, nil)
}
