package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bhandras/studyhall/internal/api/handlers"
	"github.com/bhandras/studyhall/internal/api/middleware"
	"github.com/bhandras/studyhall/internal/auth"
	"github.com/bhandras/studyhall/internal/config"
	"github.com/bhandras/studyhall/internal/crypto"
	"github.com/bhandras/studyhall/internal/database"
	"github.com/bhandras/studyhall/internal/logger"
	"github.com/bhandras/studyhall/internal/models"
	"github.com/bhandras/studyhall/internal/notify"
	"github.com/bhandras/studyhall/internal/supervisor"
	"github.com/bhandras/studyhall/internal/websocket"
	wshandlers "github.com/bhandras/studyhall/internal/websocket/handlers"
	"github.com/bhandras/studyhall/pkg/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

// runToken prints a signed token for a user id. Operators use it to try the
// socket endpoint by hand.
func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := fs.Int64("user", 0, "user id to put in the token")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	configPath := fs.String("config", "", "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID <= 0 {
		return errors.New("token: -user must be a positive id")
	}

	overrides := config.Overrides{}
	if *configPath != "" {
		overrides.ConfigPath = configPath
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		return err
	}

	token, err := crypto.NewJWTManager(cfg.JWTSecret).IssueToken(*userID, *ttl)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	fmt.Println(token)
	return nil
}

func run() error {
	cfg, err := config.Load(config.Overrides{})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if cfg.Debug {
		level = "debug"
	}
	logger.Configure(os.Stderr, cfg.Log.Format, level)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("Opening %s database", cfg.Database.Driver)
	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	queries := models.New(db.DB)
	jwtManager := crypto.NewJWTManager(cfg.JWTSecret)

	// Sockets record presence on the user row; HTTP calls must not.
	socketAuth := auth.NewAuthenticator(jwtManager, auth.NewGate(queries, true), cfg.Socket.AuthTimeout)
	httpAuth := auth.NewAuthenticator(jwtManager, auth.NewGate(queries, false), cfg.Socket.AuthTimeout)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter, err = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.TTL, cfg.RateLimit.MaxPeers)
		if err != nil {
			return err
		}
		defer limiter.Close()
	}

	opts := websocket.Options{
		Path:           cfg.Socket.Path,
		PingInterval:   cfg.Socket.PingInterval,
		PingTimeout:    cfg.Socket.PingTimeout,
		AllowAnonymous: cfg.Socket.AllowAnonymous,
		AllowedOrigins: cfg.AllowedOrigins,
	}
	if limiter != nil {
		opts.Limiter = limiter
	}

	logger.Infof("Initializing Socket.IO server at %s", cfg.Socket.Path)
	deps := wshandlers.NewDeps(queries, queries, time.Now)
	socketIOServer := websocket.NewSocketIOServer(socketAuth, deps, websocket.NewRoomRegistry(), opts)

	dispatcher := notify.NewDispatcher(queries, time.Now)
	dispatcher.Attach(socketIOServer)

	tree := supervisor.NewTree("studyhall", supervisor.DefaultTreeConfig())

	nodeID := uuid.NewString()
	if cfg.Cluster.Enabled() {
		nc, err := nats.Connect(cfg.Cluster.NATSURL,
			nats.Name("studyhall-"+nodeID),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer func() { _ = nc.Drain() }()

		bus := websocket.NewClusterBus(nc, cfg.Cluster.Subject, nodeID, socketIOServer.ApplyRemote)
		socketIOServer.SetCluster(bus)
		tree.AddMessagingService(bus)
		logger.Infof("Cluster relay enabled on %s (node %s)", cfg.Cluster.Subject, nodeID)
	}

	authorizer, err := middleware.NewAuthorizer()
	if err != nil {
		return err
	}

	router := newRouter(cfg, routerDeps{
		httpAuth:   httpAuth,
		authorizer: authorizer,
		limiter:    limiter,
		socket:     socketIOServer,
		queries:    queries,
		dispatcher: dispatcher,
		nodeID:     nodeID,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	tree.AddAPIService(supervisor.NewHTTPService(srv, 10*time.Second))

	logger.Infof("Studyhall server starting on %s", cfg.Addr)
	errCh := tree.ServeBackground(ctx)

	<-ctx.Done()
	logger.Infof("Shutting down")
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warnf("Supervisor stopped: %v", err)
	}
	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logger.Warnf("Services did not stop in time: %v", report)
	}

	if err := socketIOServer.Close(); err != nil {
		logger.Warnf("Failed to close Socket.IO server: %v", err)
	}
	dispatcher.Wait()
	return nil
}

type routerDeps struct {
	httpAuth   *auth.Authenticator
	authorizer *middleware.Authorizer
	limiter    *middleware.RateLimiter
	socket     *websocket.SocketIOServer
	queries    *models.Queries
	dispatcher *notify.Dispatcher
	nodeID     string
}

func newRouter(cfg *config.Config, d routerDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	router.Use(middleware.LoggingMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, types.HealthResponse{
			Status:  "ok",
			Node:    d.nodeID,
			Sockets: d.socket.SessionCount(),
			Time:    time.Now().UTC(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// The handshake authenticates over the socket itself.
	path := strings.TrimSuffix(d.socket.Path(), "/")
	router.Any(path, d.socket.HandleSocketIO())
	router.Any(path+"/*any", d.socket.HandleSocketIO())

	v1 := router.Group("/v1")
	if d.limiter != nil {
		v1.Use(d.limiter.Middleware())
	}
	v1.Use(middleware.AuthMiddleware(d.httpAuth))

	handlers.NewNotificationsHandler(d.queries, d.socket).Register(v1)

	presence := handlers.NewPresenceHandler(d.socket)
	v1.GET("/presence/:userId", presence.Get)

	gated := v1.Group("", d.authorizer.Middleware())

	events := handlers.NewEventsHandler(d.dispatcher)
	gated.POST("/events/:kind", events.Create)

	admin := handlers.NewAdminHandler(d.queries, d.dispatcher)
	gated.GET("/admin/notifications", admin.List)
	gated.GET("/admin/notifications/stats", admin.Stats)
	gated.GET("/admin/notifications/:id", admin.Get)
	gated.DELETE("/admin/notifications/:id", admin.Delete)
	gated.POST("/admin/notifications", admin.Send)

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Auth-Token", "X-Access-Token", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
