// Package gateway serves the agent to browser clients over websocket

package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gliderlab/planact/agent"
)

// Config is the gateway listener configuration
type Config struct {
	Host string
	Port int

	// AuthToken, when set, is required as a Bearer header or ?token=
	AuthToken string

	MaxConns      int32
	MaxConnsPerIP int32
	ReadLimit     int64
	PingInterval  time.Duration
	WriteTimeout  time.Duration

	// Cache, when set, is reported by /health
	Cache CacheCounter
}

// CacheCounter reports how many tool results are cached
type CacheCounter interface {
	Len() int
}

// DefaultConfig returns the defaults used by `agent serve`
func DefaultConfig() Config {
	return Config{
		Host:          "127.0.0.1",
		Port:          55003,
		MaxConns:      100,
		MaxConnsPerIP: 10,
		ReadLimit:     4 * 1024 * 1024,
		PingInterval:  30 * time.Second,
		WriteTimeout:  5 * time.Second,
	}
}

// writeJSON writes a JSON response with proper Content-Type header
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] Failed to encode JSON response: %v", err)
	}
}

// Gateway owns the HTTP server and the live websocket connections
type Gateway struct {
	cfg    Config
	agent  *agent.Agent
	server *http.Server

	mu        sync.Mutex
	wsIPConns map[string]int32

	wsConnCount atomic.Int32
	sessions    atomic.Int64
}

// New creates a gateway serving a
func New(cfg Config, a *agent.Agent) *Gateway {
	def := DefaultConfig()
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = def.MaxConns
	}
	if cfg.MaxConnsPerIP <= 0 {
		cfg.MaxConnsPerIP = def.MaxConnsPerIP
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	return &Gateway{
		cfg:       cfg,
		agent:     a,
		wsIPConns: make(map[string]int32),
	}
}

// Handler returns the routes without starting a listener
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/tools", g.requireAuth(g.handleTools))
	mux.HandleFunc("/ws/chat", g.HandleWebSocket)
	return g.addCORS(mux)
}

// Start listens until Stop is called. A clean shutdown returns nil.
func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.cfg.Host, g.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	g.mu.Lock()
	g.server = srv
	g.mu.Unlock()

	log.Printf("Gateway listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting up to 15 seconds
func (g *Gateway) Stop() {
	g.mu.Lock()
	srv := g.server
	g.mu.Unlock()
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Gateway graceful shutdown failed: %v", err)
		srv.Close()
	}
}

func (g *Gateway) validateToken(r *http.Request) bool {
	token := strings.TrimSpace(g.cfg.AuthToken)
	if token == "" {
		return true
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) >= 7 && strings.EqualFold(header[:7], "Bearer ") {
		candidate := strings.TrimSpace(header[7:])
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			return true
		}
	}

	queryToken := strings.TrimSpace(r.URL.Query().Get("token"))
	return subtle.ConstantTimeCompare([]byte(queryToken), []byte(token)) == 1
}

func (g *Gateway) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.validateToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// addCORS wraps an HTTP handler with CORS headers
func (g *Gateway) addCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":      "ok",
		"connections": g.wsConnCount.Load(),
		"sessions":    g.sessions.Load(),
	}
	if g.cfg.Cache != nil {
		health["cache_entries"] = g.cfg.Cache.Len()
	}
	writeJSON(w, health)
}

type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (g *Gateway) handleTools(w http.ResponseWriter, r *http.Request) {
	var out []toolInfo
	for _, def := range g.agent.Registry().Definitions() {
		out = append(out, toolInfo{Name: def.Name, Description: def.Description})
	}
	writeJSON(w, out)
}
