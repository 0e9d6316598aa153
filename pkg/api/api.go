package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fieldops/console/pkg/apiresponses"
	"github.com/fieldops/console/pkg/config"
	"github.com/fieldops/console/pkg/metrics"
	"github.com/fieldops/console/pkg/system"
	"github.com/fieldops/console/pkg/version"
)

// APIController is one mountable slice of the HTTP surface. Register
// receives a group already rooted at BasePath with Handlers applied.
type APIController interface {
	BasePath() string
	Register(rg *gin.RouterGroup) error
	Handlers() []gin.HandlerFunc
}

// Pinger reports datastore liveness for the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	gin    *gin.Engine
	config config.Config
	db     Pinger
	log    *zap.SugaredLogger
}

// NewServer builds the Gin engine with request logging, panic
// recovery, the health and version endpoints and the Prometheus
// scrape endpoint. Controllers are mounted via RegisterAll.
func NewServer(log *zap.Logger, cfg config.Config, db Pinger) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		requestLogger(log.Sugar()),
	)
	if len(cfg.Server.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.Server.TrustedProxies)
	}

	if cfg.Debug {
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins: []string{"http://localhost:5173", "127.0.0.1:8080"},
				AllowMethods: []string{"GET", "PUT", "PATCH", "POST", "DELETE", "OPTIONS"},
				AllowHeaders: []string{"Origin", "Authorization", "Content-Type"},
				MaxAge:       12 * time.Hour,
			}),
		)
	}

	s := &Server{
		gin:    engine,
		config: cfg,
		db:     db,
		log:    log.Sugar(),
	}

	engine.GET("healthz", s.getHealth)
	engine.GET("readyz", s.getReady)
	engine.GET("metrics", gin.WrapH(metrics.MetricsHandler()))
	engine.GET("api/version", s.getVersion)

	return s
}

// RegisterAll mounts every controller under the shared /api group.
func (s *Server) RegisterAll(controllers []APIController) error {
	r := s.gin.Group("api")
	for _, c := range controllers {
		if err := c.Register(r.Group(c.BasePath(), c.Handlers()...)); err != nil {
			return err
		}
	}
	return nil
}

// Listen serves until the process exits. TLS is used when both cert
// and key files are configured.
func (s *Server) Listen() {
	if s.config.Server.TLSCertFile != "" && s.config.Server.TLSKeyFile != "" {
		_ = s.gin.RunTLS(s.config.Server.ListenAddress, s.config.Server.TLSCertFile, s.config.Server.TLSKeyFile)
		return
	}
	_ = s.gin.Run(s.config.Server.ListenAddress)
}

// Engine exposes the underlying router for tests.
func (s *Server) Engine() http.Handler {
	return s.gin
}

// requestLogger stores a request-scoped sugared logger in the gin
// context. Handlers retrieve it with system.GetReqLogger. The tenant
// field is only present on tenant-scoped routes.
func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := log.With("method", c.Request.Method, "path", c.FullPath())
		if tenant := c.Param("tenant"); tenant != "" {
			reqLog = reqLog.With("tenant", tenant)
		}
		c.Set(system.ReqLoggerKey, reqLog)
		c.Next()
	}
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getReady answers 503 until the datastore responds to a ping.
func (s *Server) getReady(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "not configured"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.log.Warnw("Readiness probe failed", "error", err)
		apiresponses.RespondServiceUnavailable(c, "database")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
}

func (s *Server) getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, version.GetBuildInfo())
}
