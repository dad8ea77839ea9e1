// Package http exposes the admission service over HTTP: placing and
// cancelling orders, listing a user's order history, a health check and
// the Prometheus scrape endpoint. Authentication is HTTP Basic, the
// username being a numeric user id and the password an api key, checked
// against internal/store.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/saga-markets/dexbook/internal/admission"
	"github.com/saga-markets/dexbook/internal/store"
)

// Authenticator is the subset of *store.Store used by the basic-auth
// middleware, narrowed for testability.
type Authenticator interface {
	AuthenticateAPIKey(ctx context.Context, userID int64, key string) (bool, error)
}

// MetricsRecorder is the subset of *metrics.Collector the HTTP layer
// reports through.
type MetricsRecorder interface {
	ObserveAPIRequest(route, method, status string, durationMs float64)
}

// Server wires a gorilla/mux router over a Service.
type Server struct {
	router *mux.Router
	svc    *admission.Service
	auth   Authenticator
	log    zerolog.Logger
	metricsHandler http.Handler
	metrics MetricsRecorder
}

// New builds the router and registers every route. metricsHandler is
// mounted at /metrics and may be nil (cmd/server passes a promhttp
// handler over its own registry); recorder may be nil.
func New(svc *admission.Service, auth Authenticator, log zerolog.Logger, metricsHandler http.Handler, recorder MetricsRecorder) *Server {
	s := &Server{
		router:         mux.NewRouter(),
		svc:            svc,
		auth:           auth,
		log:            log.With().Str("component", "http").Logger(),
		metricsHandler: metricsHandler,
		metrics:        recorder,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	if s.metricsHandler != nil {
		s.router.Handle("/metrics", s.metricsHandler).Methods(http.MethodGet)
	}

	api := s.router.NewRoute().Subrouter()
	api.Use(s.requestID)
	api.Use(s.basicAuth)
	api.Use(s.instrument)

	api.HandleFunc("/orders", s.handlePlaceOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
	api.HandleFunc("/order/{id}", s.handleCancelOrder).Methods(http.MethodDelete)
}

// Handler returns the root http.Handler, for wiring into an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

type contextKey string

const (
	ctxKeyUserID    contextKey = "userID"
	ctxKeyRequestID contextKey = "requestID"
)

// requestID stamps every request with a correlation id, returned in the
// X-Request-Id response header and stored in the request context. The id
// is not written to the log.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// basicAuth authenticates the request's username (a user id) and
// password (an api key) against the store.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing credentials")
			return
		}

		userID, err := strconv.ParseInt(username, 10, 64)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid user id")
			return
		}

		valid, err := s.auth.AuthenticateAPIKey(r.Context(), userID, password)
		if err != nil {
			s.log.Error().Err(err).Msg("authentication lookup failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !valid {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusCapturingWriter lets the instrumentation middleware observe the
// status code a handler wrote, without the handler needing to cooperate.
type statusCapturingWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusCapturingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		sw := &statusCapturingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if tpl, err := mux.CurrentRoute(r).GetPathTemplate(); err == nil {
			route = tpl
		}
		s.metrics.ObserveAPIRequest(route, r.Method, strconv.Itoa(sw.status), float64(time.Since(start).Microseconds())/1000.0)
	})
}

func userIDFromContext(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxKeyUserID).(int64)
	return id
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type placeOrderRequest struct {
	Side   string `json:"side"`
	Amount string `json:"amount"`
	Price  string `json:"price"`
}

type placeOrderResponse struct {
	ID int64 `json:"id"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	userID := userIDFromContext(r)
	orderID, err := s.svc.PlaceOrder(r.Context(), userID, req.Side, req.Amount, req.Price)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, placeOrderResponse{ID: orderID})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orderID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	userID := userIDFromContext(r)
	if err := s.svc.CancelOrder(r.Context(), userID, orderID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

type matchView struct {
	ID             int64  `json:"id"`
	MatchedOrderID int64  `json:"matched_order_id"`
	Amount         string `json:"amount"`
}

type orderView struct {
	ID      int64       `json:"id"`
	Side    string      `json:"side"`
	Amount  string      `json:"amount"`
	Price   string      `json:"price"`
	Status  string      `json:"status"`
	Matches []matchView `json:"matches,omitempty"`
}

func toOrderView(v store.OrderView) orderView {
	out := orderView{ID: v.ID, Side: v.Side, Amount: v.Amount.String(), Price: v.Price.String(), Status: v.Status}
	for _, m := range v.Matches {
		out.Matches = append(out.Matches, matchView{ID: m.ID, MatchedOrderID: m.MatchedOrderID, Amount: m.Amount.String()})
	}
	return out
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r)
	orders, err := s.svc.ListOrders(r.Context(), userID)
	if err != nil {
		s.log.Error().Err(err).Msg("list orders failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": views})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case isInsufficientFundsError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case isUnknownOrderError(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
