package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/LanceLiang2011/whoblockwho/api"
	"github.com/LanceLiang2011/whoblockwho/atclient"
	"github.com/LanceLiang2011/whoblockwho/blocks"
	"github.com/LanceLiang2011/whoblockwho/bot"
	"github.com/LanceLiang2011/whoblockwho/ledger"
	"github.com/LanceLiang2011/whoblockwho/parser"
	"github.com/LanceLiang2011/whoblockwho/util"
	"github.com/LanceLiang2011/whoblockwho/worker"
)

var (
	version      = "unknown"
	buildMachine = "unknown"
	buildTime    = "unknown"
)

func main() {
	e := echo.New()

	config, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load config: ", slog.String("error", err.Error()))
		panic(err)
	}

	slog.Info(fmt.Sprintf("Whoblockwho bot %s starting...", version))
	slog.Info(fmt.Sprintf("Account: %s PDS: %s", config.Bot.Handle, config.Bot.PDSURL))

	e.HidePort = true
	e.HideBanner = true

	if config.Server.EnableTrace {
		cleanup, err := util.SetupTraceProvider(config.Server.TraceEndpoint, "whoblockwho", version)
		if err != nil {
			panic(err)
		}
		defer cleanup()

		skipper := otelecho.WithSkipper(
			func(c echo.Context) bool {
				return c.Path() == "/metrics" || c.Path() == "/health"
			},
		)
		e.Use(otelecho.Middleware("whoblockwho", skipper))
	}

	e.Use(echoprometheus.NewMiddleware("whoblockwho"))
	e.Use(middleware.Recover())

	var mc *memcache.Client
	if config.Server.MemcachedAddr != "" {
		mc = memcache.New(config.Server.MemcachedAddr)
		defer mc.Close()
	}

	client := atclient.NewClient(mc, config.Bot)

	loginCtx, loginCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer loginCancel()
	if err := client.Login(loginCtx); err != nil {
		// the only fatal error past startup: without a session nothing works
		slog.Error("Failed to authenticate: ", slog.String("error", err.Error()))
		panic(err)
	}
	slog.Info(fmt.Sprintf("Authenticated as %s (%s)", client.Session().Handle, client.Session().DID))

	parserService := parser.NewService(client)
	blocksService := blocks.NewService(client)
	botService := bot.NewService(parserService, blocksService, client)
	dedupLedger := ledger.NewBounded(config.Bot.LedgerCapacity)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pollWorker := worker.NewWorker(client, botService, dedupLedger, config.Bot)
	go pollWorker.Run(ctx)

	apiService := api.NewService(botService, dedupLedger)
	apiHandler := api.NewHandler(apiService)

	e.GET("/health", apiHandler.GetHealth)
	e.GET("/stats", apiHandler.GetStats)
	e.GET("/metrics", echoprometheus.NewHandler())

	go func() {
		if err := e.Start(config.Server.ApiAddr); err != nil && err != http.ErrServerClosed {
			slog.Error("api server: ", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown: ", slog.String("error", err.Error()))
	}
}
