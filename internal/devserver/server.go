// Package devserver is an in-memory stand-in for the ordering backend. It
// implements every contract the checkout core consumes, including draft
// orders that materialize into real orders after a delay, so the guest card
// flow (and its poller) can run end to end without infrastructure.
package devserver

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/tably/checkout/internal/backend"
)

// Server holds the fake backend's state.
type Server struct {
	mu           sync.Mutex
	log          *logrus.Logger
	confirmDelay time.Duration
	now          func() time.Time
	authToken    string

	orders     map[string]*backend.Order
	drafts     map[string]*draftOrder
	sessions   map[string]*backend.TableSession
	nextNumber int
}

// draftOrder is the transient record behind the guest flow. A card draft
// becomes a real order once confirmDelay has passed since payment was
// prepared, simulating the asynchronous webhook.
type draftOrder struct {
	id        string
	payload   backend.GuestOrderPayload
	createdAt time.Time
	orderID   string
}

// New creates a fake backend whose card drafts confirm after confirmDelay.
func New(confirmDelay time.Duration, log *logrus.Logger) *Server {
	return &Server{
		log:          log,
		confirmDelay: confirmDelay,
		now:          time.Now,
		orders:       map[string]*backend.Order{},
		drafts:       map[string]*draftOrder{},
		sessions:     map[string]*backend.TableSession{},
	}
}

// WithAuthToken makes the server require "Authorization: Bearer <token>" on
// every route except /health and the guest endpoints, mirroring the real
// backend's split between authenticated and guest surfaces.
func (s *Server) WithAuthToken(token string) *Server {
	s.authToken = token
	return s
}

// Router wires all routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)

		r.Get("/restaurants/{rid}/tables/{tn}/orders", s.tableOrders)
		r.Post("/restaurants/{rid}/tables/{tn}/orders", s.addOrderToTable)

		r.Post("/orders", s.createOrder)
		r.Get("/orders/{id}", s.getOrder)
		r.Post("/orders/{id}/payment-intent", s.createPaymentIntent)
		r.Patch("/orders/{id}/payment-status", s.updatePaymentStatus)
		r.Post("/orders/{id}/paid", s.markAsPaid)
		r.Post("/orders/{id}/receipt", s.requestReceipt)
	})

	r.Post("/guest/orders", s.prepareGuestOrder)
	r.Post("/guest/orders/{id}/cash", s.confirmGuestCash)
	r.Get("/guest/orders/{id}/status", s.draftStatus)

	return r
}

// requireToken gates the authenticated surface when a token is configured.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] != s.authToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) orderNumber() string {
	s.nextNumber++
	return fmt.Sprintf("TBL-%03d", s.nextNumber)
}

func sessionKey(restaurantID, tableNumber string) string {
	return restaurantID + "/" + tableNumber
}
