package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelkit/panel/internal/gate"
	"github.com/panelkit/panel/internal/shared"
)

func TestStreamRequiresIdentity(t *testing.T) {
	h := NewHandler(nil, time.Millisecond)
	rec := httptest.NewRecorder()
	h.Stream(rec, httptest.NewRequest(http.MethodGet, "/api/sse/1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStreamSendsHeartbeats(t *testing.T) {
	h := NewHandler(nil, 10*time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := gate.ContextWithIdentity(r.Context(), &shared.Identity{AccountID: 42})
		h.Stream(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	var data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
	var hb Heartbeat
	require.NoError(t, json.Unmarshal([]byte(data), &hb))
	assert.Equal(t, int64(42), hb.AccountID)
	assert.False(t, hb.Time.IsZero())
}
