package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nodedeck/internal/ipc"
	"nodedeck/internal/packages"
	"nodedeck/internal/pm2"
	"nodedeck/internal/scaffold"
	"nodedeck/internal/service"
	"nodedeck/internal/store"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ipc.ErrUnknownChannel, http.StatusNotFound},
		{fmt.Errorf("%w: abc", store.ErrProjectNotFound), http.StatusNotFound},
		{scaffold.ErrTemplateNotFound, http.StatusNotFound},
		{ipc.ErrBadParams, http.StatusBadRequest},
		{fmt.Errorf("%w: id is required", service.ErrInvalidRequest), http.StatusBadRequest},
		{packages.ErrInvalidPackage, http.StatusBadRequest},
		{service.ErrAlreadyRunning, http.StatusConflict},
		{store.ErrProjectExists, http.StatusConflict},
		{pm2.ErrNotInstalled, http.StatusServiceUnavailable},
		{packages.ErrInstallTimeout, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	reg := ipc.NewRegistry()
	require.NoError(t, reg.Handle("echo", func(_ context.Context, params json.RawMessage) (any, error) {
		var v map[string]any
		if err := ipc.Decode(params, &v); err != nil {
			return nil, err
		}
		return v, nil
	}))
	require.NoError(t, reg.Handle("busy", func(context.Context, json.RawMessage) (any, error) {
		return nil, fmt.Errorf("%w: api", service.ErrAlreadyRunning)
	}))

	h := NewIPCHandler(reg, zerolog.Nop())
	r := mux.NewRouter()
	r.HandleFunc("/ipc", h.ListChannels).Methods(http.MethodGet)
	r.HandleFunc("/ipc/{channel}", h.Invoke).Methods(http.MethodPost)
	return r
}

func post(t *testing.T, h http.Handler, channel, body string) (*httptest.ResponseRecorder, ipc.Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ipc/"+channel, strings.NewReader(body)))
	var res ipc.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return rec, res
}

func TestInvoke(t *testing.T) {
	h := newHandler(t)

	rec, res := post(t, h, "echo", `{"a":1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.True(t, res.Success)
	assert.Equal(t, map[string]any{"a": float64(1)}, res.Data)

	rec, res = post(t, h, "busy", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, res.Success)
	assert.Equal(t, "project already running: api", res.Error)

	rec, res = post(t, h, "missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, res.Success)

	rec, _ = post(t, h, "echo", "[1,")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvokeRejectsOversizedBody(t *testing.T) {
	h := newHandler(t)
	big := `{"a":"` + strings.Repeat("x", maxBodyBytes) + `"}`

	rec, res := post(t, h, "echo", big)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, res.Error, "could not read request body")
}

func TestReadyCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	ReadyCheck(func() error { return nil })(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.NotEmpty(t, resp.Timestamp)
}
