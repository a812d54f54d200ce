// Package server exposes the routing engine over HTTP: quote aggregation,
// transaction building, health, and metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"orren/internal/baseline"
	"orren/internal/fees"
	"orren/internal/observability"
	"orren/internal/quote"
	"orren/internal/storage"
	"orren/internal/txbuild"
)

const shutdownTimeout = 10 * time.Second

const (
	auditQueueSize = 256
	auditBatchSize = 32
)

// Server wires the engine's components behind the HTTP surface. The
// comparator and audit sink are optional; a nil comparator disables the
// baseline guarantee (quotes are served ungated), a nil sink disables the
// audit trail.
type Server struct {
	engine     *gin.Engine
	router     *quote.Router
	builder    *txbuild.Builder
	comparator *baseline.Comparator
	audit      storage.AuditSink
	auditCh    chan storage.QuoteRecord
	metrics    *observability.Metrics
	feeConfig  fees.Config
	logger     *zap.Logger
}

// New builds the server and registers its routes.
func New(
	router *quote.Router,
	builder *txbuild.Builder,
	comparator *baseline.Comparator,
	audit storage.AuditSink,
	metrics *observability.Metrics,
	feeConfig fees.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:     engine,
		router:     router,
		builder:    builder,
		comparator: comparator,
		audit:      audit,
		metrics:    metrics,
		feeConfig:  feeConfig,
		logger:     logger,
	}

	engine.GET("/health", s.handleHealth)
	engine.POST("/quote", s.handleQuote)
	engine.POST("/build-tx", s.handleBuildTx)
	if metrics != nil {
		engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	if audit != nil {
		s.auditCh = make(chan storage.QuoteRecord, auditQueueSize)
		go s.auditLoop()
	}
	return s
}

// auditLoop is the single audit writer: it drains queued records into
// batches so a slow sink backs up the bounded queue instead of spawning
// goroutines.
func (s *Server) auditLoop() {
	for record := range s.auditCh {
		batch := []storage.QuoteRecord{record}
	drain:
		for len(batch) < auditBatchSize {
			select {
			case next, ok := <-s.auditCh:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		err := s.audit.PutQuoteBatch(ctx, batch)
		cancel()
		if err != nil {
			s.logger.Warn("audit write failed", zap.Error(err), zap.Int("records", len(batch)))
		}
	}
}

// Handler returns the underlying HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
