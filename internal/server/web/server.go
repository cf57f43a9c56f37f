// Package web exposes the HTTP surface: the read-only status route, the
// per-invoice notification stream, and invoice creation. The dashboard
// itself is static files served from the public directory.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangaman/lightninggem/internal/logging"
	"github.com/sangaman/lightninggem/internal/server/listeners"
	"github.com/sangaman/lightninggem/internal/server/services"
)

// InvoiceIssuer is the slice of InvoiceService the handlers need.
type InvoiceIssuer interface {
	Issue(ctx context.Context, req *services.IssueRequest) (*services.IssuedInvoice, error)
}

// StatusProvider is the slice of AuctionService the handlers need.
type StatusProvider interface {
	Status() *services.Status
}

type Server struct {
	address   string
	publicDir string
	issuer    InvoiceIssuer
	status    StatusProvider
	registry  *listeners.Registry
	logger    logging.Logger
	engine    *gin.Engine
}

func NewServer(address, publicDir string, issuer InvoiceIssuer, status StatusProvider,
	registry *listeners.Registry, logger logging.Logger) *Server {

	s := &Server{
		address:   address,
		publicDir: publicDir,
		issuer:    issuer,
		status:    status,
		registry:  registry,
		logger:    logger.With("module", "web"),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(s.logger))

	engine.GET("/status", s.handleStatus)
	engine.GET("/listen/:r_hash", s.handleListen)
	engine.POST("/invoice", s.handleInvoice)

	if publicDir != "" {
		engine.NoRoute(gin.WrapH(http.FileServer(http.Dir(publicDir))))
	}

	s.engine = engine
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.address, Handler: s.engine}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "stopping http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "starting http server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
