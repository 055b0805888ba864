// Package server exposes the vault over HTTP: deposit and withdrawal
// operations, balance reads, and digest previews for off-chain signing
// tooling. Requests are JSON; errors map onto status codes a client can act
// on (422 spender mismatch, 409 insolvency, 502 authority rejection).
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Layr-Labs/permit2-vault-go/pkg/vault"
)

// Server handles HTTP requests for the vault
type Server struct {
	vault      *vault.Vault
	httpServer *http.Server
	logger     *zap.Logger
	limiters   *clientLimiters
}

// NewServer creates a new server instance. rateLimit is requests per second
// per client address; 0 disables limiting.
func NewServer(v *vault.Vault, port int, rateLimit float64, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		vault:  v,
		logger: logger,
	}
	if rateLimit > 0 {
		s.limiters = newClientLimiters(rate.Limit(rateLimit), int(rateLimit)+1)
	}

	mux := http.NewServeMux()

	// Allowance deposits
	mux.HandleFunc("/deposit/permit", s.handleDepositWithPermit)
	mux.HandleFunc("/deposit/permit/batch", s.handleDepositBatchWithPermit)
	mux.HandleFunc("/deposit", s.handleDeposit)
	mux.HandleFunc("/deposit/batch", s.handleDepositBatch)

	// One-shot deposits
	mux.HandleFunc("/deposit/transfer", s.handleDepositWithTransferPermit)
	mux.HandleFunc("/deposit/transfer/batch", s.handleDepositBatchWithTransferPermit)
	mux.HandleFunc("/deposit/witness", s.handleDepositWithWitness)
	mux.HandleFunc("/deposit/witness/batch", s.handleDepositBatchWithWitness)

	// Withdrawals
	mux.HandleFunc("/withdraw", s.handleWithdraw)
	mux.HandleFunc("/withdraw/batch", s.handleWithdrawBatch)

	// Reads
	mux.HandleFunc("/balance", s.handleBalance)

	// Digest previews for signing tooling
	mux.HandleFunc("/digest/permit", s.handlePermitDigest)
	mux.HandleFunc("/digest/permit/batch", s.handlePermitBatchDigest)
	mux.HandleFunc("/digest/transfer", s.handleTransferPermitDigest)
	mux.HandleFunc("/digest/transfer/batch", s.handleBatchTransferPermitDigest)
	mux.HandleFunc("/digest/witness", s.handleWitnessTransferDigest)
	mux.HandleFunc("/digest/witness/batch", s.handleBatchWitnessTransferDigest)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.rateLimited(mux),
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go func() {
		s.logger.Sugar().Infow("Starting HTTP server", "vault_address", s.vault.Address().Hex(), "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Sugar().Errorw("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}

// clientLimiters hands out one token bucket per client address.
type clientLimiters struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	perIP map[string]*rate.Limiter
}

func newClientLimiters(limit rate.Limit, burst int) *clientLimiters {
	return &clientLimiters{
		limit: limit,
		burst: burst,
		perIP: make(map[string]*rate.Limiter),
	}
}

func (c *clientLimiters) allow(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	c.mu.Lock()
	limiter, ok := c.perIP[host]
	if !ok {
		limiter = rate.NewLimiter(c.limit, c.burst)
		c.perIP[host] = limiter
	}
	c.mu.Unlock()

	return limiter.Allow()
}

func (s *Server) rateLimited(next http.Handler) http.Handler {
	if s.limiters == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiters.allow(r.RemoteAddr) {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
