package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/tourai-backend/internal/adapters/http"
	mcpadapter "github.com/kirillkom/tourai-backend/internal/adapters/mcp"
	"github.com/kirillkom/tourai-backend/internal/bootstrap"
	"github.com/kirillkom/tourai-backend/internal/config"
	"github.com/kirillkom/tourai-backend/internal/observability/logging"
	"github.com/kirillkom/tourai-backend/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.Setup("api", cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg,
		bootstrap.WithResilienceObserver(httpMetrics.Resilience()),
		bootstrap.WithRecommendationObserver(httpMetrics),
	)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	routerOpts := []httpadapter.RouterOption{httpadapter.WithMetrics(httpMetrics)}
	if cfg.MCPEnabled {
		mcpServer := mcpadapter.NewServer(app.Tools, mcpadapter.WithCallObserver(httpMetrics.RecordAgentToolCall))
		routerOpts = append(routerOpts, httpadapter.WithMCPHandler(mcpServer.HTTPHandler()))
	}
	router := httpadapter.NewRouter(cfg, app.ChatUC, app.CatalogUC, app.StatsUC, routerOpts...)

	server := &http.Server{
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		log.Fatalf("api listen error: %v", err)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	go func() {
		log.Printf("api listening on :%s (max connections %d)", cfg.APIPort, cfg.APIMaxConnections)
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown error: %v", err)
	}
}
