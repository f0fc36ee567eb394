// Package fakedesk is an in-process stand-in for the support backend. It
// serves every REST endpoint and real-time event the chat client consumes,
// with an optional echo agent, so the client can run and be tested without
// the real service.
package fakedesk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/realtime"
)

// Options configures the fake backend.
type Options struct {
	// Secret signs and verifies bearer tokens (HS256).
	Secret string
	// Blacklist holds merchant ids that are refused a room.
	Blacklist []string
	// AgentName is announced on assignment. Defaults to "Ana".
	AgentName string
	// Echo makes the agent pick up on the first merchant message and answer
	// every message after EchoDelay.
	Echo      bool
	EchoDelay time.Duration
	FAQ       []model.FAQEntry
	Logger    *zap.Logger
}

// Claims is the token payload the fake backend issues.
type Claims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// Inbound is one client event received over the socket.
type Inbound struct {
	UserID   string
	Envelope realtime.Envelope
}

type ctxKey struct{}

// Server is the fake backend.
type Server struct {
	opts     Options
	secret   []byte
	log      *zap.Logger
	router   chi.Router
	upgrader websocket.Upgrader

	mu       sync.Mutex
	rooms    map[string]*room // by room id
	byUser   map[string]string
	uploads  map[string][]byte
	inbound  []Inbound
	requests map[string]int
}

// New creates a fake backend.
func New(opts Options) *Server {
	if opts.AgentName == "" {
		opts.AgentName = "Ana"
	}
	if opts.Secret == "" {
		opts.Secret = "deskmock-secret"
	}
	if opts.EchoDelay <= 0 {
		opts.EchoDelay = 500 * time.Millisecond
	}
	if opts.FAQ == nil {
		opts.FAQ = DefaultFAQ()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		opts:     opts,
		secret:   []byte(opts.Secret),
		log:      log.Named("fakedesk"),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		rooms:    make(map[string]*room),
		byUser:   make(map[string]string),
		uploads:  make(map[string][]byte),
		requests: make(map[string]int),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving REST under /api and the socket at /ws.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/files/{folder}/{name}", s.serveFile)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/api", func(r chi.Router) {
			r.Get("/chat/room", s.getRoom)
			r.Get("/chat/messages/{roomId}", s.getMessages)
			r.Get("/questions", s.getQuestions)
			r.Post("/upload/single", s.upload)
		})
		r.Get("/ws", s.serveWS)
	})
	return r
}

// IssueToken signs a token for a merchant.
func (s *Server) IssueToken(userID, username, avatar string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:       userID,
		Username: username,
		Avatar:   avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (s *Server) validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.validate(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
	})
}

func claimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(ctxKey{}).(*Claims)
	return c
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.mu.Lock()
		s.requests[r.Method+" "+route]++
		s.mu.Unlock()

		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", r.Header.Get("X-Request-ID")),
		)
	})
}

// Requests returns how often "METHOD /route/pattern" was served.
func (s *Server) Requests(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[key]
}

// Inbound returns every client event received so far, in order.
func (s *Server) Inbound() []Inbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.inbound)
}

func (s *Server) blacklisted(userID string) bool {
	return slices.Contains(s.opts.Blacklist, userID)
}

// DefaultFAQ is the quick-help content served when none is configured.
func DefaultFAQ() []model.FAQEntry {
	return []model.FAQEntry{
		{ID: "q1", Category: "Account Status", Question: "Why is my store under review?", Answer: "New stores are reviewed within 24 hours of registration."},
		{ID: "q2", Category: "Capital Safety", Question: "How long does a withdrawal take?", Answer: "Withdrawals are processed within one business day."},
		{ID: "q3", Category: "Product Management", Question: "How do I distribute products?", Answer: "Pick products from the catalog and add them to your store."},
	}
}
