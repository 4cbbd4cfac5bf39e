package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nimbusstore/gateway/internal/logger"
	"github.com/nimbusstore/gateway/pkg/api/handlers"
	"github.com/nimbusstore/gateway/pkg/auth"
	"github.com/nimbusstore/gateway/pkg/metrics"
	"github.com/nimbusstore/gateway/pkg/registry"
)

// NewRouter builds the gateway's chi router: request-id/real-ip/logging/recovery/
// timeout middleware, the unauthenticated health and metrics endpoints, and the
// authenticated object and multipart-upload routes (§6), each guarded by
// pkg/auth.Authorize.
//
// Grounded on the teacher's pkg/api.NewRouter middleware stack and route-mounting
// style; the route tree itself is this gateway's own, since the teacher has no
// object/MPU surface.
func NewRouter(reg *registry.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(reg)
	r.Get("/healthz", healthHandler.Liveness)

	if metricsHandler := metrics.Handler(); metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	objectHandler := handlers.NewObjectHandler(reg.Object)
	mpuHandler := handlers.NewMPUHandler(reg.MPU)

	r.Route("/{account}", func(r chi.Router) {
		r.Use(auth.Authorize(reg.Validator))

		r.Route("/uploads", func(r chi.Router) {
			r.Post("/", mpuHandler.Create)

			r.Route("/{prefix}/{id}", func(r chi.Router) {
				r.Put("/{partNum}", mpuHandler.UploadPart)
				r.Post("/abort", mpuHandler.Abort)
				r.Post("/commit", mpuHandler.Commit)
				r.Get("/state", mpuHandler.State)
			})

			// Legacy fully-unqualified upload references, resolved by id alone.
			r.Get("/{id}", mpuHandler.LegacyRedirect)
			r.Head("/{id}", mpuHandler.LegacyRedirect)
			r.Post("/{id}", mpuHandler.LegacyRedirect)
			r.Get("/{id}/{partNum}", mpuHandler.LegacyRedirect)
			r.Head("/{id}/{partNum}", mpuHandler.LegacyRedirect)
			r.Post("/{id}/{partNum}", mpuHandler.LegacyRedirect)
		})

		r.Put("/*", objectHandler.Put)
		r.Get("/*", objectHandler.Get)
		r.Head("/*", objectHandler.Head)
		r.Delete("/*", objectHandler.Delete)
	})

	return r
}

// requestLogger logs every request at DEBUG on start and INFO on completion,
// mirroring the teacher's pkg/api.requestLogger but keyed to this gateway's own
// structured-logging helpers.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
