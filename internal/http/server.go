package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"apartment/internal/cache"
	"apartment/internal/core"
	"apartment/internal/log"
	"apartment/internal/middleware/ratelimit"
	"apartment/internal/middleware/security"
	"apartment/internal/middleware/trace"

	"github.com/google/uuid"
)

// LedgerAPI is the ledger surface the handlers need.
type LedgerAPI interface {
	Record(ctx context.Context, n core.NewTransaction) (core.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByRegister(ctx context.Context, registerID uuid.UUID) ([]core.Transaction, error)
	Summary(ctx context.Context, registerID uuid.UUID) (core.Summary, error)
	MonthlySummary(ctx context.Context, registerID uuid.UUID, year, month int) (core.MonthlySummary, error)
}

// RegisterAPI is the cash register surface the handlers need.
type RegisterAPI interface {
	List(ctx context.Context) ([]core.CashRegister, error)
	Get(ctx context.Context, id uuid.UUID) (core.CashRegister, error)
	Create(ctx context.Context, year int) (core.CashRegister, error)
	UpdateYear(ctx context.Context, id uuid.UUID, year int) (core.CashRegister, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Options tune the server around the handlers.
type Options struct {
	RateLimitPerMinute int
	IdempotencyTTL     time.Duration
	// Ready reports whether storage is reachable. Nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
}

type Server struct {
	http.Server
	ledger    LedgerAPI
	registers RegisterAPI
	ready     func(ctx context.Context) error
	logger    *log.Logger

	idempotency      *idempotencyStore
	cacheManager     *cache.Manager
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	transactionsRecorded int64
	transactionsDeleted  int64
	limitRejections      int64
	idempotentReplays    int64
	uptime               time.Time
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger LedgerAPI, registers RegisterAPI, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 10 * time.Minute
	}

	s := &Server{
		ledger:           ledger,
		registers:        registers,
		ready:            opts.Ready,
		logger:           logger.WithComponent(log.ComponentHTTP),
		idempotency:      newIdempotencyStore(opts.IdempotencyTTL),
		cacheManager:     cache.NewManager(),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}

	limiterCfg := ratelimit.DefaultConfig()
	limiterCfg.RequestsPerMinute = opts.RateLimitPerMinute
	s.rateLimiter = ratelimit.NewLimiter(limiterCfg)
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	s.cacheManager.Register(s.idempotency.results)
	s.cacheManager.StartCleanup(time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/registers", s.handleListRegisters)
	mux.HandleFunc("POST /api/registers", s.handleCreateRegister)
	mux.HandleFunc("GET /api/registers/{id}", s.handleGetRegister)
	mux.HandleFunc("PUT /api/registers/{id}", s.handleUpdateRegister)
	mux.HandleFunc("DELETE /api/registers/{id}", s.handleDeleteRegister)

	mux.HandleFunc("POST /api/transactions", s.handleRecordTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/registers/{id}/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/registers/{id}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/registers/{id}/monthly-summary", s.handleMonthlySummary)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited)

	var handler http.Handler = mux
	handler = limit(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.requestLogger(r).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// Shutdown stops background loops and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// requestLogger returns the request-scoped logger tagged for this package.
func (s *Server) requestLogger(r *http.Request) *log.Logger {
	if l, ok := log.Lookup(r.Context()); ok {
		return l.WithComponent(log.ComponentHTTP)
	}
	return s.logger
}

// writeError maps err to a response and logs unexpected failures with full
// detail, which never reaches the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp, unexpected := ErrorFromDomain(err)
	if unexpected {
		log.NewStructuredLogger(s.requestLogger(r)).LogError(r.Context(), "Request failed", err,
			log.ComponentHTTP, op,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
				WithErrorType(log.ErrorTypeInternal))
	}
	resp.Write(w)
}
