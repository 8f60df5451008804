// Package gate authenticates and authorizes every request before it reaches a handler.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/panelkit/panel/internal/platform/httpx"
	"github.com/panelkit/panel/internal/rbac"
	"github.com/panelkit/panel/internal/session"
	"github.com/panelkit/panel/internal/shared"
	"github.com/panelkit/panel/internal/token"
)

// Decision outcomes reported to the observer.
const (
	OutcomeAllow             = "allow"
	OutcomeAnonymous         = "anonymous"
	OutcomeUnauthorized      = "unauthorized"
	OutcomeInvalidLogin      = "invalid_login"
	OutcomeLoggedInElsewhere = "logged_in_elsewhere"
	OutcomeNoPermission      = "no_permission"
	OutcomeUnavailable       = "unavailable"
)

// SessionReader is the slice of the session store the gate consults.
type SessionReader interface {
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	GetPasswordVersion(ctx context.Context, accountID int64) (int64, bool, error)
	GetToken(ctx context.Context, accountID int64) (string, bool, error)
}

// PermissionSource returns the cached-or-resolved permission set of an account.
type PermissionSource interface {
	Permissions(ctx context.Context, accountID int64) (rbac.PermissionSet, error)
}

// Observer records gate decisions.
type Observer interface {
	ObserveGateDecision(outcome string)
}

// Config holds gate behaviour switches.
type Config struct {
	MultiDeviceLogin bool
}

// Request is the transport-independent input of one evaluation.
type Request struct {
	Token string
	// PathAccountID is the account named in the path of a streaming route.
	PathAccountID string
}

// Gate evaluates route policies.
type Gate struct {
	codec    *token.Codec
	sessions SessionReader
	perms    PermissionSource
	cfg      Config
	logger   *slog.Logger
	observer Observer
}

// New constructs a Gate. observer may be nil.
func New(codec *token.Codec, sessions SessionReader, perms PermissionSource, cfg Config, logger *slog.Logger, observer Observer) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		codec:    codec,
		sessions: sessions,
		perms:    perms,
		cfg:      cfg,
		logger:   logger,
		observer: observer,
	}
}

type verifier func(g *Gate, ctx context.Context, req Request, route Route) (*shared.Identity, error)

var strategies = map[Strategy]verifier{
	Public: func(*Gate, context.Context, Request, Route) (*shared.Identity, error) {
		return nil, nil
	},
	PublicTolerant: func(g *Gate, ctx context.Context, req Request, route Route) (*shared.Identity, error) {
		return g.authenticate(ctx, req, route, true)
	},
	BearerJWT: func(g *Gate, ctx context.Context, req Request, route Route) (*shared.Identity, error) {
		return g.authenticate(ctx, req, route, false)
	},
}

// Evaluate decides whether req may pass route. It returns the identity to bind, which is
// nil when the request is let through anonymously.
func (g *Gate) Evaluate(ctx context.Context, req Request, route Route) (*shared.Identity, error) {
	verify, ok := strategies[route.Strategy]
	if !ok {
		g.observe(OutcomeUnauthorized)
		return nil, shared.ErrUnauthorized
	}
	id, err := verify(g, ctx, req, route)
	switch {
	case err != nil:
		g.observe(outcomeFor(err))
	case id == nil:
		g.observe(OutcomeAnonymous)
	default:
		g.observe(OutcomeAllow)
	}
	return id, err
}

func (g *Gate) authenticate(ctx context.Context, req Request, route Route, tolerant bool) (*shared.Identity, error) {
	if req.Token != "" {
		revoked, err := g.sessions.IsBlacklisted(ctx, req.Token)
		if err != nil {
			return nil, g.storeFailure(err)
		}
		if revoked {
			return nil, shared.ErrInvalidLogin
		}
	}

	claims, err := g.codec.Verify(req.Token)
	if err != nil {
		switch {
		case tolerant:
			return nil, nil
		case req.Token == "":
			return nil, shared.ErrUnauthorized
		default:
			return nil, shared.ErrInvalidLogin
		}
	}

	if route.Streaming && req.PathAccountID != strconv.FormatInt(claims.AccountID, 10) {
		return nil, shared.ErrUnauthorized
	}

	pv, ok, err := g.sessions.GetPasswordVersion(ctx, claims.AccountID)
	if err != nil {
		return nil, g.storeFailure(err)
	}
	if !ok || pv != claims.PasswordVersion {
		return nil, shared.ErrInvalidLogin
	}

	if !g.cfg.MultiDeviceLogin {
		current, ok, err := g.sessions.GetToken(ctx, claims.AccountID)
		if err != nil {
			return nil, g.storeFailure(err)
		}
		if !ok || current != req.Token {
			return nil, shared.ErrAccountLoggedInElsewhere
		}
	}

	if route.needsPermissionCheck() && !rbac.HasAdminRole(claims.Roles) {
		set, err := g.perms.Permissions(ctx, claims.AccountID)
		if err != nil {
			return nil, g.storeFailure(err)
		}
		if !set.HasAll(route.Permissions...) {
			return nil, shared.ErrNoPermission
		}
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &shared.Identity{
		AccountID:       claims.AccountID,
		PasswordVersion: claims.PasswordVersion,
		Roles:           claims.Roles,
		Token:           req.Token,
		ExpiresAt:       expiresAt,
	}, nil
}

// storeFailure fails closed. Only an unreachable backend is reported as a server error.
func (g *Gate) storeFailure(err error) error {
	if session.IsUnavailable(err) {
		g.logger.Error("gate: backend unavailable", slog.Any("error", err))
		return shared.ErrServiceUnavailable
	}
	g.logger.Warn("gate: lookup failed", slog.Any("error", err))
	return shared.ErrUnauthorized
}

func (g *Gate) observe(outcome string) {
	if g.observer != nil {
		g.observer.ObserveGateDecision(outcome)
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, shared.ErrInvalidLogin):
		return OutcomeInvalidLogin
	case errors.Is(err, shared.ErrAccountLoggedInElsewhere):
		return OutcomeLoggedInElsewhere
	case errors.Is(err, shared.ErrNoPermission):
		return OutcomeNoPermission
	case errors.Is(err, shared.ErrServiceUnavailable):
		return OutcomeUnavailable
	default:
		return OutcomeUnauthorized
	}
}

// Require is the chi middleware form of Evaluate.
func (g *Gate) Require(route Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := Request{Token: Extract(r)}
			if route.Streaming {
				req.PathAccountID = chi.URLParam(r, route.accountParam())
			}
			id, err := g.Evaluate(r.Context(), req, route)
			if err != nil {
				httpx.RespondError(w, g.logger, err)
				return
			}
			if id != nil {
				r = r.WithContext(ContextWithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
