package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"nodedeck/internal/ipc"
	"nodedeck/internal/packages"
	"nodedeck/internal/pm2"
	"nodedeck/internal/scaffold"
	"nodedeck/internal/service"
	"nodedeck/internal/store"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type IPCHandler struct {
	reg    *ipc.Registry
	logger zerolog.Logger
}

func NewIPCHandler(reg *ipc.Registry, logger zerolog.Logger) *IPCHandler {
	return &IPCHandler{reg: reg, logger: logger}
}

func (h *IPCHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("error encoding JSON response")
	}
}

func (h *IPCHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, ipc.Response{Success: true, Data: h.reg.Channels()})
}

// Invoke calls the channel named in the path with the request body as
// params. The body is always an envelope; the status code mirrors it.
func (h *IPCHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	channel := mux.Vars(r)["channel"]

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ipc.Response{Error: "could not read request body: " + err.Error()})
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		h.writeJSON(w, http.StatusBadRequest, ipc.Response{Error: ipc.ErrBadParams.Error() + ": body is not valid JSON"})
		return
	}

	res := h.reg.Invoke(r.Context(), channel, body)
	status := http.StatusOK
	if !res.Success {
		status = statusFor(res.Err())
		h.logger.Warn().Str("channel", channel).Int("status", status).Str("error", res.Error).Msg("ipc call failed")
	}
	h.writeJSON(w, status, res)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ipc.ErrUnknownChannel),
		errors.Is(err, store.ErrProjectNotFound),
		errors.Is(err, scaffold.ErrTemplateNotFound),
		errors.Is(err, service.ErrNoProcess),
		errors.Is(err, pm2.ErrProcessNotFound):
		return http.StatusNotFound
	case errors.Is(err, ipc.ErrBadParams),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrInvalidPath),
		errors.Is(err, packages.ErrInvalidPackage),
		errors.Is(err, packages.ErrNoPackageJSON),
		errors.Is(err, packages.ErrInvalidPackageJSON),
		errors.Is(err, store.ErrInvalidSettings),
		errors.Is(err, scaffold.ErrMissingVariable),
		errors.Is(err, scaffold.ErrInvalidManifest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAlreadyRunning),
		errors.Is(err, service.ErrNotRunning),
		errors.Is(err, store.ErrProjectExists),
		errors.Is(err, scaffold.ErrDestinationExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrPM2Unavailable),
		errors.Is(err, pm2.ErrNotInstalled),
		errors.Is(err, packages.ErrManagerNotFound):
		return http.StatusServiceUnavailable
	case errors.Is(err, packages.ErrInstallTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
