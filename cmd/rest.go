package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AzielCF/az-funnel/conversation/script"
	coreconfig "github.com/AzielCF/az-funnel/core/config"
	domainSession "github.com/AzielCF/az-funnel/domains/session"
	"github.com/AzielCF/az-funnel/infrastructure/valkey"
	"github.com/AzielCF/az-funnel/pkg/msgworker"
	"github.com/AzielCF/az-funnel/pkg/sessionmonitor"
	"github.com/AzielCF/az-funnel/pkg/utils"
	"github.com/AzielCF/az-funnel/ui/rest"
	"github.com/AzielCF/az-funnel/ui/rest/middleware"
	"github.com/AzielCF/az-funnel/ui/websocket"
	"github.com/AzielCF/az-funnel/usecase"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the conversation over HTTP and websocket",
	Run:   restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func restServer(_ *cobra.Command, _ []string) {
	cfg := coreconfig.Global

	fiberConfig := fiber.Config{
		EnableTrustedProxyCheck: true,
		BodyLimit:               64 * 1024,
		Network:                 "tcp",
		AppName:                 "Az-Funnel",
		ServerHeader:            "Hidden",
	}
	if len(cfg.App.TrustedProxies) > 0 {
		fiberConfig.TrustedProxies = cfg.App.TrustedProxies
		fiberConfig.ProxyHeader = fiber.HeaderXForwardedHost
	}

	app := fiber.New(fiberConfig)

	app.Use(requestid.New())

	origins := strings.Join(cfg.App.CorsAllowedOrigins, ", ")
	if cfg.App.BaseUrl != "" && !strings.Contains(origins, cfg.App.BaseUrl) {
		origins += ", " + cfg.App.BaseUrl
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.TrimPrefix(origins, ", "),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.Recovery())

	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            31536000,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' https://scripts.converteai.net; frame-src https://scripts.converteai.net; img-src 'self' data: https://i.imgur.com; media-src 'self' https://i.imgur.com https://storage.saudebemestarmais.com; connect-src 'self' ws: wss:;",
	}))
	if cfg.App.RateLimitPerMinute > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.App.RateLimitPerMinute,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			Next: func(c *fiber.Ctx) bool {
				// Websocket traffic is long-lived; one upgrade should not eat the budget.
				return strings.Contains(c.Path(), "/ws/")
			},
		}))
	}

	if cfg.App.Debug {
		app.Use(logger.New())
	}

	serverID := utils.GetPersistentServerID(cfg.App.ServerID, cfg.Paths.Storages)
	vkClient := connectValkey(cfg.Valkey)

	pool := msgworker.GetGlobalPool()
	monitor := sessionmonitor.New(cfg.Funnel.MonitorBuffer, cfg.Funnel.MonitorTTL)
	sessionUsecase := usecase.NewSessionService(script.Default(), pool, cfg.Funnel, usecase.WithMonitor(monitor))
	landingUsecase := usecase.NewLandingService()

	apiGroup := app.Group(cfg.App.BasePath + "/api")

	rest.InitRestSession(apiGroup, sessionUsecase)
	rest.InitRestLanding(apiGroup, landingUsecase)
	rest.InitRestHealth(apiGroup, cfg.App.Version, serverID, vkClient)
	rest.InitRestMetrics(app, cfg.App.BasePath+"/metrics")

	if account := basicAuthAccounts(cfg.App.BasicAuth); len(account) > 0 {
		adminGroup := apiGroup.Group("/admin")
		adminGroup.Use(basicauth.New(basicauth.Config{
			Users: account,
			Next: func(c *fiber.Ctx) bool {
				// Allow CORS preflight without credentials.
				return c.Method() == fiber.MethodOptions
			},
		}))
		rest.InitRestSessionAdmin(adminGroup, sessionUsecase)
		rest.InitRestWorkerPool(adminGroup, pool)
		rest.InitRestMonitoring(adminGroup, monitor)
	} else {
		logrus.Warn("[REST] APP_BASIC_AUTH is not set, admin endpoints are disabled")
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	var broker websocket.Broker
	if vkClient != nil {
		broker = vkClient
	}
	hub := websocket.NewHub(broker, serverID, cfg.Funnel.SessionIdleTTL)
	hub.RegisterRoutes(apiGroup, sessionUsecase)
	go hub.Run(hubCtx)

	apiGroup.All("/*", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(utils.ResponseData{
			Status:  fiber.StatusNotFound,
			Code:    "NOT_FOUND_ERROR",
			Message: "API endpoint not found: " + c.Path(),
		})
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Reception of termination signal, shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}
		stopHub()
		stopApp(sessionUsecase, vkClient)
	}()

	logrus.Infof("[REST] Serving %s on :%s as %s", cfg.App.Version, cfg.App.Port, serverID)
	if err := app.Listen(":" + cfg.App.Port); err != nil {
		logrus.Fatalln("Failed to start: ", err.Error())
	}
}

// connectValkey returns nil when Valkey is disabled or unreachable; websocket fan-out then stays local.
func connectValkey(cfg coreconfig.ValkeyConfig) *valkey.Client {
	if !cfg.Enabled {
		return nil
	}
	client, err := valkey.NewClient(valkey.Config{
		Address:   cfg.Address,
		Password:  cfg.Password,
		DB:        cfg.DB,
		KeyPrefix: cfg.KeyPrefix,
	})
	if err != nil {
		logrus.WithError(err).Warn("[VALKEY] Connection failed, continuing without distributed broadcast")
		return nil
	}
	logrus.Infof("[VALKEY] Connected to %s", cfg.Address)
	return client
}

func basicAuthAccounts(credentials []string) map[string]string {
	account := make(map[string]string)
	for _, basicAuth := range credentials {
		ba := strings.SplitN(basicAuth, ":", 2)
		if len(ba) != 2 || ba[0] == "" {
			logrus.Fatalln("Basic auth is not valid, please this following format <user>:<secret>")
		}
		account[ba[0]] = ba[1]
	}
	return account
}

// stopApp closes sessions first so no event lands on a stopped pool.
func stopApp(sessions domainSession.ISessionUsecase, vkClient *valkey.Client) {
	logrus.Info("[APP] Stopping application...")

	sessions.Shutdown()
	msgworker.StopGlobalPool()
	if vkClient != nil {
		vkClient.Close()
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
