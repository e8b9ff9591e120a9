// Package ledgerd is an in-memory development ledger speaking the wire
// protocol of pkg/sequence. It keeps all state in one process behind one
// lock; only the audit chain may be persisted.
package ledgerd

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/sequence-sdk-go/internal/chain"
	"github.com/jmerrifield20/sequence-sdk-go/internal/signer"
)

// Config configures a Server. The zero value serves without auth, CORS or
// rate limiting.
type Config struct {
	// Name is the issuer of template signatures.
	Name string
	// CredentialHash is a bcrypt hash; when set every ledger call must
	// carry the matching Bearer credential.
	CredentialHash string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	// SignatureTTL bounds the time between sign and submit (default 5m).
	SignatureTTL time.Duration
	// MaxBodyBytes caps request bodies (default 1 MiB).
	MaxBodyBytes int64
}

// Server serves the ledger API.
type Server struct {
	cfg    Config
	store  *store
	chain  chain.Ledger
	logger *zap.Logger
}

// New creates a Server recording committed transactions on ledger. A nil
// ledger gets an in-memory chain.
func New(cfg Config, ledger chain.Ledger, logger *zap.Logger) *Server {
	if cfg.Name == "" {
		cfg.Name = "ledgerd"
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if ledger == nil {
		ledger = chain.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		store:  newStore(ledger, signer.NewKeyring(cfg.Name, cfg.SignatureTTL)),
		chain:  ledger,
		logger: logger,
	}
}

// Router builds the gin engine. Ledger calls are POST at the root, e.g.
// POST /create-key; /healthz and /metrics are public.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	if len(s.cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  s.cfg.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept", "Id"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
		c.Next()
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metricsHandler())

	api := router.Group("/")
	if s.cfg.RateLimitRPS > 0 {
		burst := s.cfg.RateLimitBurst
		if burst <= 0 {
			burst = int(s.cfg.RateLimitRPS * 2)
		}
		api.Use(rateLimiter(s.cfg.RateLimitRPS, max(burst, 1), s.logger))
	}
	if s.cfg.CredentialHash != "" {
		api.Use(credentialAuth([]byte(s.cfg.CredentialHash), s.logger))
	}
	api.Use(requestLogger(s.logger))

	s.register(api)
	(&chainHandler{ledger: s.chain, logger: s.logger}).register(api)
	return router
}

// requestLogger logs each ledger call at debug level.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetHeader("Id")),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
