package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	corecfg "github.com/aevon-lab/tenantflow/internal/core/config"
	"github.com/aevon-lab/tenantflow/internal/core/storage/postgres"
	"github.com/aevon-lab/tenantflow/internal/dispatch"
	"github.com/aevon-lab/tenantflow/internal/dnsquorum"
	"github.com/aevon-lab/tenantflow/internal/ingestion"
	"github.com/aevon-lab/tenantflow/internal/migrations"
	"github.com/aevon-lab/tenantflow/internal/notify"
	"github.com/aevon-lab/tenantflow/internal/projection"
	"github.com/aevon-lab/tenantflow/internal/provider/cloudflare"
	"github.com/aevon-lab/tenantflow/internal/provider/resend"
	"github.com/aevon-lab/tenantflow/internal/provisioning"
	"github.com/aevon-lab/tenantflow/internal/server"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Logging))
	slog.Info("Loaded config",
		"server", fmtAddr(cfg.Server.Host, cfg.Server.Port),
		"dns_provider", cfg.DNS.Provider,
		"email_provider", cfg.Email.Provider,
		"notify", cfg.Notify.Enabled)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	projections := postgres.NewProjectionAdapter(dbAdapter.DB())
	runs := postgres.NewRunAdapter(dbAdapter.DB())

	// 3. Projection change notifications
	var notifier dispatch.Notifier = notify.Nop{}
	var publisher *notify.RedisPublisher
	if cfg.Notify.Enabled {
		publisher, err = notify.Dial(ctx, cfg.Notify.RedisAddr, cfg.Notify.Channel)
		if err != nil {
			slog.Error("Failed to connect projection notifier", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		notifier = publisher
	}

	// 4. Dispatch and ingestion
	dispatcher := dispatch.NewDispatcher(projections, notifier)
	sweeper := dispatch.NewSweeper(cfg.Dispatch.SweepInterval, cfg.Dispatch.SweepBatch, dbAdapter, dispatcher)
	ingestionSvc := ingestion.NewService(dbAdapter, dispatcher, cfg.Server.MaxBodySizeMB)

	// 5. Provisioning saga
	deps := provisioning.Dependencies{
		Emitter: ingestionSvc,
		Reader:  projections.Reader(),
	}
	if cfg.DNS.Provider == "cloudflare" {
		cfClient, err := cloudflare.New(cloudflare.Config{
			APIToken:   cfg.DNS.APIToken,
			BaseDomain: cfg.DNS.BaseDomain,
			Target:     cfg.DNS.Target,
			Proxied:    cfg.DNS.Proxied,
			TTL:        cfg.DNS.TTL,
			BaseURL:    cfg.DNS.BaseURL,
		})
		if err != nil {
			slog.Error("Failed to initialize DNS provider", "error", err)
			os.Exit(1)
		}
		verifier, err := dnsquorum.New(cfg.DNS.Resolvers, cfg.DNS.Quorum, cfg.DNS.Timeout)
		if err != nil {
			slog.Error("Failed to initialize DNS verifier", "error", err)
			os.Exit(1)
		}
		deps.DNS = provisioning.NewCloudflareDNS(cfClient)
		deps.Verifier = verifier
	} else {
		slog.Info("DNS provider disabled, subdomains will not be configured")
	}
	if cfg.Email.Provider == "resend" {
		mailClient, err := resend.New(resend.Config{
			APIKey:  cfg.Email.APIKey,
			From:    cfg.Email.From,
			BaseURL: cfg.Email.BaseURL,
		})
		if err != nil {
			slog.Error("Failed to initialize email provider", "error", err)
			os.Exit(1)
		}
		deps.Mailer = provisioning.NewResendMailer(mailClient)
	} else {
		slog.Info("Email provider disabled, invitations will be recorded as undelivered")
	}

	engine, err := provisioning.NewEngine(deps, sagaConfig(cfg), nil)
	if err != nil {
		slog.Error("Failed to initialize provisioning engine", "error", err)
		os.Exit(1)
	}
	scheduler := provisioning.NewScheduler(runs, engine, provisioning.SchedulerOptions{
		PollInterval: cfg.Saga.PollInterval,
		Lease:        cfg.Saga.Lease,
		BatchSize:    cfg.Saga.ClaimBatch,
		Retention:    cfg.Saga.Retention,
	})
	provisioningSvc := provisioning.NewService(runs, engine, scheduler)

	// 6. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), cfg.Server.Mode)
	srv.AddHealthCheck("database", server.HealthFunc(dbAdapter.DB().PingContext))
	if publisher != nil {
		srv.AddHealthCheck("redis", publisher)
	}
	srv.Mount(ingestionSvc, projection.NewReadAPI(projections.Reader()), provisioningSvc)

	// 7. Start background loops
	if cfg.Dispatch.SweepEnabled {
		go func() {
			if err := sweeper.Start(ctx); err != nil {
				slog.Error("Sweeper stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Redelivery sweeper disabled by config")
	}
	go func() {
		if err := scheduler.Start(ctx); err != nil {
			slog.Error("Scheduler stopped with error", "error", err)
		}
	}()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func newLogger(cfg corecfg.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func retryPolicy(r corecfg.RetryConfig) provisioning.RetryPolicy {
	return provisioning.RetryPolicy{
		MaxAttempts: r.MaxAttempts,
		BaseDelay:   r.BaseDelay,
		MaxDelay:    r.MaxDelay,
	}
}

func sagaConfig(cfg *corecfg.Config) provisioning.Config {
	return provisioning.Config{
		StepRetry:         retryPolicy(cfg.Saga.StepRetry),
		DNSVerifyRetry:    retryPolicy(cfg.Saga.DNSVerifyRetry),
		CompensationRetry: retryPolicy(cfg.Saga.CompensationRetry),
		EmailRetry:        retryPolicy(cfg.Saga.EmailRetry),
		InvitationTTL:     cfg.Saga.InvitationTTL,
		InvitationBaseURL: cfg.Email.InvitationBaseURL,
	}
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
