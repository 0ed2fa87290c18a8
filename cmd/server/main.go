package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"volid/internal/credential"
	fpdfengine "volid/internal/credential/engine/fpdf"
	credentialhandler "volid/internal/credential/handler"
	jwttoken "volid/internal/jwt_token"
	"volid/internal/notification"
	"volid/internal/platform/config"
	"volid/internal/platform/httpserver"
	"volid/internal/platform/logger"
	platformmetrics "volid/internal/platform/metrics"
	"volid/internal/ratelimit"
	httptransport "volid/internal/transport/http"
	"volid/internal/verification"
	verificationhandler "volid/internal/verification/handler"
	volunteerhandler "volid/internal/volunteer/handler"
	"volid/internal/volunteer/identifier"
	volunteermetrics "volid/internal/volunteer/metrics"
	volunteerservice "volid/internal/volunteer/service"
	"volid/pkg/platform/audit/publishers/compliance"
	"volid/pkg/platform/audit/publishers/ops"
)

const (
	jwtIssuer       = "volid"
	jwtAudience     = "volid-api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "volid: %v\n", err)
		os.Exit(1)
	}
}

// run wires dependencies and blocks until SIGINT/SIGTERM, then shuts the HTTP
// server down and lets the notification dispatcher drain.
func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	dispatcher := notification.NewDispatcher(b.sender,
		notification.WithWorkers(cfg.Notification.Workers),
		notification.WithQueueSize(cfg.Notification.QueueSize),
		notification.WithMaxAttempts(cfg.Notification.MaxAttempts),
		notification.WithDrainWindow(cfg.Notification.DrainWindow),
		notification.WithLogger(log),
		notification.WithMetrics(notification.NewMetrics()),
	)

	volunteerMetrics := volunteermetrics.New()
	allocator, err := identifier.New(cfg.Identifier.Prefix, b.volunteers,
		identifier.WithReserver(b.reserver),
		identifier.WithMaxAttempts(cfg.Identifier.MaxAttempts),
		identifier.WithLogger(log),
		identifier.WithMetrics(volunteerMetrics),
	)
	if err != nil {
		return err
	}

	verifyOpts := []verification.Option{
		verification.WithLogger(log),
		verification.WithMetrics(verification.NewMetrics()),
	}
	if b.cache != nil {
		verifyOpts = append(verifyOpts, verification.WithCache(b.cache))
	}
	verifier := verification.New(cfg.Identifier.Prefix, b.volunteers, verifyOpts...)

	volunteers := volunteerservice.New(b.volunteers, allocator,
		volunteerservice.WithTxRunner(b.tx),
		volunteerservice.WithAuditPublisher(compliance.New(b.audit,
			compliance.WithLogger(log),
			compliance.WithMetrics(compliance.NewMetrics()),
		)),
		volunteerservice.WithNotifier(dispatcher),
		volunteerservice.WithCacheInvalidator(verifier),
		volunteerservice.WithLogger(log),
		volunteerservice.WithMetrics(volunteerMetrics),
	)

	credentialMetrics := credential.NewMetrics()
	rendererOpts := []credential.Option{
		credential.WithTimeout(cfg.Credential.RenderTimeout),
		credential.WithPhotoFetcher(credential.NewHTTPPhotoFetcher(nil,
			credential.WithAllowedPhotoHosts(cfg.Credential.PhotoHosts...),
		)),
		credential.WithLogger(log),
		credential.WithMetrics(credentialMetrics),
	}
	if cfg.Credential.LayoutPath != "" {
		rendererOpts = append(rendererOpts, credential.WithAssets(credential.DirAssets(cfg.Credential.LayoutPath)))
	}
	engine := fpdfengine.New(cfg.Credential.Concurrency, fpdfengine.WithInUseGauge(credentialMetrics.EngineInUse))
	renderer := credential.NewRenderer(engine, cfg.PublicBaseURL, rendererOpts...)

	tracker := ops.New(b.audit,
		ops.WithCircuitBreaker(ops.NewCircuitBreaker(cfg.Audit.BreakerThreshold, cfg.Audit.BreakerCooldown)),
		ops.WithLogger(log),
		ops.WithMetrics(ops.NewMetrics()),
	)
	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, jwtIssuer, jwtAudience)

	var verifyLimit func(http.Handler) http.Handler
	if cfg.RateLimit.VerifyPerMinute > 0 {
		verifyLimit = ratelimit.New(b.rateLimits, "verify", cfg.RateLimit.VerifyPerMinute, time.Minute, log).Handler
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		Latency:      platformmetrics.NewHTTP(),
		JWTValidator: jwttoken.NewJWTServiceAdapter(jwtService),
		Volunteers:   volunteerhandler.New(volunteers, log),
		Credentials:  credentialhandler.New(volunteers, renderer, tracker, log),
		Verification: verificationhandler.New(verifier, log),
		VerifyLimit:  verifyLimit,
		HealthChecks: b.health,
	})
	srv := httpserver.New(cfg.Addr, router, httpserver.WithSlowestHandler(cfg.Credential.RenderTimeout))

	// The dispatcher outlives the HTTP server so notifications enqueued by
	// in-flight requests are still delivered.
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	defer stopDispatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(dispatchCtx)
	})
	g.Go(func() error {
		log.InfoContext(gctx, "starting volid",
			"addr", cfg.Addr,
			"environment", cfg.Environment,
			"id_prefix", cfg.Identifier.Prefix,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("graceful shutdown failed", "error", err)
		}
		stopDispatch()
		return nil
	})
	return g.Wait()
}
