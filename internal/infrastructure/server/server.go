package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tracekit/internal/infrastructure/config"
	"github.com/GriffinCanCode/tracekit/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tracekit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tracekit/internal/infrastructure/reporter"
	"github.com/GriffinCanCode/tracekit/internal/infrastructure/tracing"
)

// Server wraps the demo HTTP server and the agent wiring around it.
type Server struct {
	router  *gin.Engine
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a fully wired server instance.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		l, err := logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: false,
			OutputPaths: []string{"stdout"},
		})
		if err != nil {
			return nil, err
		}
		logger = l
	}

	logger.Info("Initializing TraceKit server",
		zap.String("port", cfg.Server.Port),
		zap.String("service", cfg.Agent.ServiceName),
	)

	metrics := monitoring.NewMetrics()

	tracerOpts := []tracing.TracerOption{tracing.WithMetrics(metrics)}
	if cfg.Reporter.Enabled {
		rep := reporter.New(cfg.Reporter, logger.Named("reporter"), metrics)
		tracerOpts = append(tracerOpts, tracing.WithProcessor(rep))
		logger.Info("Transaction reporting enabled", zap.String("url", cfg.Reporter.ServerURL))
	}
	tracer := tracing.New(cfg.Agent, logger.Named("tracer"), tracerOpts...)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Recovery sits outside the tracing middleware so re-raised handler
	// panics still become 500 responses after the transaction is ended.
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(cors.Default())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Demo routes showing derived and explicit transaction naming.
	router.GET("/orders/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"order": c.Param("id")})
	})
	router.POST("/checkout", func(c *gin.Context) {
		if tx := tracing.TransactionFromContext(c); tx != nil {
			tx.SetName("POST checkout")
		}
		c.JSON(http.StatusAccepted, gin.H{"queued": true})
	})

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close flushes in-flight transactions and shuts the agent down.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")
	s.tracer.Close()
	s.logger.Sync()
	return nil
}
