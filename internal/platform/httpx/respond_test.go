package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelkit/panel/internal/shared"
)

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func TestRespondErrorCoded(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, nil, fmt.Errorf("gate: %w", shared.ErrNoPermission))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Equal(t, 1102, env.Code)
	assert.Equal(t, shared.ErrNoPermission.Message, env.Message)
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, nil, errors.New("pq: relation accounts does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Equal(t, CodeInternal, env.Code)
	assert.NotContains(t, rr.Body.String(), "relation")
}

func TestRespondErrorNotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, nil, shared.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

type loginBody struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required"`
}

func TestDecodeJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"alice","password":"secret"}`))
	var body loginBody
	require.NoError(t, DecodeJSON(rr, req, &body))
	assert.Equal(t, "alice", body.Username)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"al"}`))
	err := DecodeJSON(rr, req, &body)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "Username: min=3")
	assert.Contains(t, err.Error(), "Password: required")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	require.ErrorIs(t, DecodeJSON(rr, req, &body), ErrBadRequest)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	require.ErrorIs(t, DecodeJSON(rr, req, &body), ErrBadRequest)
}

func TestOK(t *testing.T) {
	rr := httptest.NewRecorder()
	OK(rr, map[string]int{"n": 1})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"code":200,"message":"success","data":{"n":1}}`, rr.Body.String())
}
