package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/skoeber/agentgate/internal/config"
	"github.com/skoeber/agentgate/internal/logger"
	"github.com/skoeber/agentgate/internal/metrics"
	"github.com/skoeber/agentgate/pkg/agentruntime"
	"github.com/skoeber/agentgate/pkg/dispatch"
	"github.com/skoeber/agentgate/pkg/identity"
	"github.com/skoeber/agentgate/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agentgate HTTP server",
	Long: `Run the agentgate HTTP server in the foreground.
The server accepts chat requests, forwards them to the configured agent
endpoint and recovers transparently from expired sessions and credentials.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	validator := config.NewValidator()
	if err := validator.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	m := metrics.NewMetrics()

	source, err := identitySource(cfg)
	if err != nil {
		return err
	}

	creds, err := identity.NewContext(source,
		func(provider common.ConfigurationProvider) (agentruntime.Caller, error) {
			return agentruntime.NewClient(provider, cfg.Agent.Region)
		},
		identity.Options{
			Debounce: cfg.Debounce(),
			Logger:   log.GetZerolog(),
		})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A failed first acquisition is not fatal: the dispatcher re-acquires on
	// demand, and /api/chat answers 503 until a handle exists.
	if err := creds.Acquire(ctx); err != nil {
		m.CredentialRefreshesTotal.WithLabelValues("failure").Inc()
		log.Warn().Err(err).Str("source", source.Name()).Msg("Initial credential acquisition failed, will retry on demand")
	} else {
		m.CredentialRefreshesTotal.WithLabelValues("success").Inc()
		log.Info().Str("source", source.Name()).Msg("Credentials acquired")
	}

	dispatcher, err := dispatch.New(dispatch.Config{
		Credentials:     creds,
		AgentEndpointID: cfg.Agent.EndpointID,
		RemoteTimeout:   cfg.RemoteTimeout(),
		Logger:          log.GetZerolog(),
		Metrics:         m,
	})
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	srv, err := server.NewServer(server.Config{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		StaticDir:          cfg.Server.StaticDir,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		Chat:               dispatcher.Dispatch,
		Metrics:            m,
		Logger:             log.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	scheduler := startRefreshSchedule(cfg, creds, m, log)
	if scheduler != nil {
		defer scheduler.Stop()
	}

	watcher, err := config.NewWatcher(loader, log.GetZerolog(), func(next *config.Config) {
		if err := validator.ValidateLogLevel(next.Logging.Level); err != nil {
			log.Warn().Err(err).Msg("Ignoring reloaded log level")
			return
		}
		log.SetLevel(next.Logging.Level)
		log.Info().Str("level", next.Logging.Level).Msg("Log level updated")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Config watcher unavailable, log level changes require a restart")
	} else {
		defer watcher.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	log.Info().
		Str("endpoint_id", cfg.Agent.EndpointID).
		Str("region", cfg.Agent.Region).
		Str("version", version).
		Msg("Agentgate started")

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}

	return srv.Stop()
}

// identitySource picks the signing material source from the configured auth
// mode.
func identitySource(cfg *config.Config) (identity.Source, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeResourcePrincipal:
		return identity.ResourcePrincipalSource{}, nil
	case config.AuthModeFile:
		return identity.FileProfileSource{
			Path:    cfg.Auth.ConfigFile,
			Profile: cfg.Auth.Profile,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", cfg.Auth.Mode)
	}
}

// startRefreshSchedule arms the optional proactive credential refresh. The
// dispatcher refreshes reactively either way, so schedule errors only warn.
func startRefreshSchedule(cfg *config.Config, creds *identity.Context, m *metrics.Metrics, log *logger.Logger) *cron.Cron {
	if cfg.Auth.RefreshSchedule == "" {
		return nil
	}

	scheduler := cron.New()
	_, err := scheduler.AddFunc(cfg.Auth.RefreshSchedule, func() {
		if err := creds.Acquire(context.Background()); err != nil {
			m.CredentialRefreshesTotal.WithLabelValues("failure").Inc()
			log.Warn().Err(err).Msg("Scheduled credential refresh failed")
			return
		}
		m.CredentialRefreshesTotal.WithLabelValues("success").Inc()
		log.Debug().Msg("Scheduled credential refresh completed")
	})
	if err != nil {
		log.Warn().Err(err).Str("schedule", cfg.Auth.RefreshSchedule).Msg("Invalid refresh schedule, proactive refresh disabled")
		return nil
	}

	scheduler.Start()
	log.Info().Str("schedule", cfg.Auth.RefreshSchedule).Msg("Credential refresh scheduled")
	return scheduler
}
