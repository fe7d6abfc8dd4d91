// Entry point for the attendance bot
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"attendance.service/internal/adapters/breaker"
	"attendance.service/internal/adapters/discord"
	"attendance.service/internal/adapters/logaudit"
	sesnotifier "attendance.service/internal/adapters/ses"
	"attendance.service/internal/api"
	"attendance.service/internal/config"
	"attendance.service/internal/core"
	"attendance.service/internal/ports"
	"attendance.service/internal/ports/messaging"
	"attendance.service/pkg/aws"
	"attendance.service/pkg/logger"
	"attendance.service/pkg/telemetry"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	// Configure structured logging
	logger.Setup(cfg.IsLocalDev)

	if err := cfg.ValidateBot(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Configure OpenTelemetry Tracing
	shutdownTracer, err := telemetry.InitTracer("attendance-bot", cfg.OTelEndpoint, cfg.IsLocalDev)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Discord session")
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsDirectMessages

	// Initialize dependencies
	discordGateway := discord.NewGateway(session, cfg.GuildID)
	gateway := breaker.New(discordGateway, cfg.GatewayTimeout)

	notifiers := []ports.AdminNotifier{discord.NewDMNotifier(session)}
	audits := []ports.AuditLog{logaudit.Log{}, discord.NewChannelAuditLog(gateway, cfg.LogChannelID, loc)}

	if cfg.AuditSQSQueueURL != "" || cfg.AdminEmail != "" {
		awsCfg, err := aws.NewAWSConfig(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("unable to load SDK config")
		}
		if cfg.AuditSQSQueueURL != "" {
			audits = append(audits, messaging.NewSQSProducer(sqs.NewFromConfig(awsCfg), cfg.AuditSQSQueueURL))
			log.Info().Str("queue", cfg.AuditSQSQueueURL).Msg("Publishing audit events to SQS")
		}
		if cfg.AdminEmail != "" {
			notifiers = append(notifiers, sesnotifier.NewEmailNotifier(ses.NewFromConfig(awsCfg), cfg.SESSender, cfg.AdminEmail))
			log.Info().Str("to", cfg.AdminEmail).Msg("Emailing admin notifications")
		}
	}
	notifier := ports.Notifiers(notifiers...)
	audit := ports.AuditLogs(audits...)

	workspaces := core.NewWorkspaceManager(gateway, audit, cfg.CategoryID)
	service := core.NewSessionService(core.NewMemoryStore(), workspaces, gateway, notifier, audit, core.Options{
		AdminUserID:      cfg.AdminUserID,
		ButtonChannelID:  cfg.ButtonChannelID,
		ReportsChannelID: cfg.UpdateReportsChannelID,
	})

	bootstrap := discord.NewBootstrap(discordGateway, workspaces, audit, notifier, discord.BootstrapOptions{
		AdminUserID:      cfg.AdminUserID,
		ButtonChannelID:  cfg.ButtonChannelID,
		LogChannelID:     cfg.LogChannelID,
		ReconcileOnStart: cfg.ReconcileOnStart,
	})
	session.AddHandler(bootstrap.OnReady(ctx))
	discord.NewHandler(service, cfg.ResetRoleID).Register(session)

	if err := session.Open(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Discord")
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Discord session")
		}
	}()

	// Setup router and server
	router := api.NewRouter(api.Deps{
		State:  service,
		Health: func() map[string]any { return map[string]any{"gateway": gateway.State()} },
	})

	// Middleware to inject logger with trace ID
	loggerMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.EnrichContextWithLogger(r.Context())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           otelhttp.NewHandler(loggerMiddleware(router), "api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.ServerPort).Msg("API Service starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down bot...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Int("active_sessions", service.ActiveSessions()).Msg("Bot exiting")
}
