package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/nimbusstore/gateway/pkg/registry"
)

// healthCheckTimeout bounds how long the readiness probe waits on the metadata
// store's own health check.
const healthCheckTimeout = 5 * time.Second

// HealthResponse is the liveness/readiness probe body.
type HealthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// HealthHandler serves the gateway's unauthenticated liveness endpoint.
type HealthHandler struct {
	reg *registry.Registry
}

// NewHealthHandler builds a HealthHandler backed by reg.
func NewHealthHandler(reg *registry.Registry) *HealthHandler {
	return &HealthHandler{reg: reg}
}

// Liveness handles GET /healthz: 200 whenever the process can serve a request,
// and additionally confirms the metadata store is reachable, since a gateway
// wedged on a dead metadata backend is not meaningfully "alive" for callers.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.reg.Metadata.Healthcheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Detail: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}
