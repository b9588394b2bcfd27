package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ayusman/drivewatch/internal/bridge"
)

// maxBridgeBody bounds a bridge request body.
const maxBridgeBody = 4 << 10

// BridgeHandler exposes the bridge registry over HTTP.
type BridgeHandler struct {
	registry *bridge.Registry
}

// NewBridgeHandler creates a new BridgeHandler for registry.
func NewBridgeHandler(registry *bridge.Registry) *BridgeHandler {
	return &BridgeHandler{registry: registry}
}

type bridgeResponse struct {
	Method string `json:"method"`
	OK     bool   `json:"ok"`
}

type bridgeMethodsResponse struct {
	Methods []string `json:"methods"`
}

// ServeHTTP handles GET /api/bridge (list methods) and POST /api/bridge/{name}.
func (h *BridgeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/bridge")
	name = strings.TrimPrefix(name, "/")

	if name == "" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, bridgeMethodsResponse{Methods: h.registry.Names()})
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBridgeBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	args, err := bridge.DecodeArgs(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.registry.Call(name, args); err != nil {
		switch {
		case errors.Is(err, bridge.ErrUnknownMethod):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, bridge.ErrBadArity):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, bridgeResponse{Method: name, OK: true})
}
