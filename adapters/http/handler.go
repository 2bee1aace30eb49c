// Package http provides the debug HTTP server for a running store.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/artpar/modstore/adapters/shopapi"
	"github.com/artpar/modstore/core/module"
	"github.com/artpar/modstore/core/store"
	"github.com/artpar/modstore/domain/shop"
	"github.com/artpar/modstore/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Version is reported by /version. Set at build time.
var Version = "dev"

// ErrorResponseBody is the body of every error response.
type ErrorResponseBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes an error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Modules int    `json:"modules"`
	Version uint64 `json:"state_version"`
}

// GetterResponse carries one evaluated getter.
type GetterResponse struct {
	Module string `json:"module"`
	Getter string `json:"getter"`
	Value  any    `json:"value"`
}

// RouterConfig configures the debug router.
type RouterConfig struct {
	// Store is inspected by /state and /getters. Required.
	Store *store.Store

	// Modules are listed by /modules.
	Modules []*module.Accessor

	// Gatherer serves MetricsPath. Nil disables metrics.
	Gatherer    prometheus.Gatherer
	MetricsPath string

	// Shop, when set, is served under /shop in the protocol shopapi.Client speaks.
	Shop ports.ShopAPI

	// Timeout bounds each request. Zero means 30s.
	Timeout time.Duration

	Logger zerolog.Logger
}

// NewRouter creates the debug router.
func NewRouter(cfg RouterConfig) chi.Router {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	h := &debugHandler{
		store:   cfg.Store,
		modules: make(map[string]*module.Accessor, len(cfg.Modules)),
		logger:  cfg.Logger,
	}
	for _, acc := range cfg.Modules {
		h.modules[acc.Name()] = acc
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(cfg.Logger, cfg.MetricsPath))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))

	r.Get("/health", h.health)
	r.Get("/version", version)

	if cfg.Gatherer != nil {
		r.Handle(cfg.MetricsPath, promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/state", h.snapshot)
	r.Get("/state/{module}", h.moduleState)
	r.Get("/modules", h.listModules)
	r.Get("/modules/{module}", h.describeModule)
	r.Get("/getters/{module}/{getter}", h.getter)

	if cfg.Shop != nil {
		r.Mount("/shop", newShopHandler(cfg.Shop, cfg.Logger))
	}

	return r
}

type debugHandler struct {
	store   *store.Store
	modules map[string]*module.Accessor
	logger  zerolog.Logger
}

func (h *debugHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Modules: len(h.store.Modules()),
		Version: h.store.Version(),
	})
}

func version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: Version, Service: "modstore"})
}

func (h *debugHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

func (h *debugHandler) moduleState(w http.ResponseWriter, r *http.Request) {
	state, err := h.store.State(chi.URLParam(r, "module"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *debugHandler) listModules(w http.ResponseWriter, r *http.Request) {
	descs := make([]module.Description, 0, len(h.modules))
	for _, acc := range h.modules {
		descs = append(descs, acc.Describe())
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(descs),
		"modules": descs,
	})
}

func (h *debugHandler) describeModule(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.modules[chi.URLParam(r, "module")]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "module not found")
		return
	}
	writeJSON(w, http.StatusOK, acc.Describe())
}

func (h *debugHandler) getter(w http.ResponseWriter, r *http.Request) {
	ns, name := chi.URLParam(r, "module"), chi.URLParam(r, "getter")

	value, err := h.store.Getter(store.Qualify(ns, name))
	if err != nil {
		h.logger.Debug().Err(err).Str("module", ns).Str("getter", name).Msg("getter failed")
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GetterResponse{Module: ns, Getter: name, Value: value})
}

// shopHandler serves a ShopAPI over HTTP:
//
//	GET  /products  -> []shop.Product
//	POST /checkout  <- []shop.CartItem
func newShopHandler(api ports.ShopAPI, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/products", func(w http.ResponseWriter, r *http.Request) {
		products, err := api.GetProducts(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("get products failed")
			writeError(w, http.StatusBadGateway, "shop_unavailable", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, products)
	})

	r.Post("/checkout", func(w http.ResponseWriter, r *http.Request) {
		var items []shop.CartItem
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&items); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid cart items")
			return
		}
		if len(items) == 0 {
			writeError(w, http.StatusUnprocessableEntity, "empty_cart", "cart is empty")
			return
		}

		if err := api.BuyProducts(r.Context(), items); err != nil {
			if errors.Is(err, shopapi.ErrPurchaseFailed) {
				writeError(w, http.StatusPaymentRequired, "purchase_failed", err.Error())
				return
			}
			logger.Error().Err(err).Msg("checkout failed")
			writeError(w, http.StatusBadGateway, "shop_unavailable", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrUnknownModule),
		errors.Is(err, store.ErrUnknownGetter):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// writeJSON encodes v before writing so an unencodable value still yields
// a well-formed error response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	data, _ := json.Marshal(ErrorResponseBody{Error: ErrorDetail{Code: code, Message: message}})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

// NewLoggingMiddleware logs each request at debug level. Health checks and
// metric scrapes are skipped.
func NewLoggingMiddleware(logger zerolog.Logger, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == metricsPath {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
