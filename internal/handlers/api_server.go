// internal/handlers/api_server.go
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/gridbingo/internal/lobby"
	"github.com/jason-s-yu/gridbingo/internal/middleware"
	"github.com/jason-s-yu/gridbingo/internal/payments"
	"github.com/sirupsen/logrus"
)

// Engine is the lobby engine surface the HTTP layer drives.
type Engine interface {
	JoinLobby(ctx context.Context, playerID string) (lobby.JoinResult, error)
	SubmitGrid(ctx context.Context, lobbyID, playerID string, grid lobby.Grid) (lobby.SubmitResult, error)
	GetStatus(ctx context.Context, lobbyID string) (*lobby.Snapshot, error)
	VerifyClaim(ctx context.Context, lobbyID, playerID string, highlighted []int) (lobby.ClaimResult, error)
	Ping(ctx context.Context) error
}

// Payments is the invoice surface behind the payment routes.
type Payments interface {
	CreateInvoice(ctx context.Context, lobbyID string, amount int64) (*payments.Invoice, error)
	HandleWebhook(ctx context.Context, ev payments.WebhookEvent) (payments.WebhookResult, error)
}

// Options configures an APIServer. StreamInterval defaults to one second.
type Options struct {
	Engine         Engine
	Payments       Payments
	Auth           middleware.Authenticator
	Logger         logrus.FieldLogger
	AllowedOrigins []string
	StreamInterval time.Duration
}

// APIServer serves the game API.
type APIServer struct {
	engine         Engine
	payments       Payments
	auth           middleware.Authenticator
	logger         logrus.FieldLogger
	allowedOrigins []string
	wsOrigins      []string
	streamInterval time.Duration
	now            func() time.Time
}

func NewAPIServer(o Options) *APIServer {
	if o.StreamInterval <= 0 {
		o.StreamInterval = time.Second
	}
	return &APIServer{
		engine:         o.Engine,
		payments:       o.Payments,
		auth:           o.Auth,
		logger:         o.Logger,
		allowedOrigins: o.AllowedOrigins,
		wsOrigins:      originHosts(o.AllowedOrigins),
		streamInterval: o.StreamInterval,
		now:            time.Now,
	}
}

// Router returns the routes. Everything under /api/game requires a bearer identity;
// the payment webhook is called by the provider and is not authenticated here.
func (s *APIServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.LogMiddleware(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/health", s.health)
	r.Post("/api/webhooks/payment", s.paymentWebhook)

	r.Route("/api/game", func(r chi.Router) {
		r.Use(middleware.RequireIdentity(s.auth, s.logger))
		r.Post("/join", s.join)
		r.Route("/{lobbyID}", func(r chi.Router) {
			r.Post("/submit-grid", s.submitGrid)
			r.Get("/status", s.status)
			r.Get("/ws", s.statusStream)
			r.Post("/claim", s.claim)
			r.Post("/invoices", s.createInvoice)
		})
	})
	return r
}

type healthResponse struct {
	Status         string    `json:"status"`
	RedisConnected bool      `json:"redis_connected"`
	Timestamp      time.Time `json:"timestamp"`
}

func (s *APIServer) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()

	resp := healthResponse{Status: "healthy", RedisConnected: true, Timestamp: s.now().UTC()}
	code := http.StatusOK
	if err := s.engine.Ping(ctx); err != nil {
		s.logger.WithError(err).Warn("health check: redis unreachable")
		resp.Status, resp.RedisConnected = "unhealthy", false
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// originHosts turns CORS origins like "https://app.example.com" into the host patterns
// the websocket handshake matches the Origin header against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			hosts = append(hosts, o)
			continue
		}
		if _, rest, ok := strings.Cut(o, "://"); ok {
			o = rest
		}
		if o = strings.TrimSuffix(o, "/"); o != "" {
			hosts = append(hosts, o)
		}
	}
	return hosts
}
