// Jarvisd is the natural-language command service.
//
// It classifies free-text and image commands with OpenAI (falling back to
// Gemini), validates the result and applies it to the finance and calendar
// collaborators. Outcomes are published to NATS when configured.
//
// Configuration is loaded from an optional YAML file and environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	jarvisd
//
//	# Configure via environment
//	SERVER_HTTP_PORT=9090 OPENAI_API_KEY=sk-... GEMINI_API_KEY=... jarvisd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/jarvis/internal/collaborator/memory"
	"github.com/fyrsmithlabs/jarvis/internal/collaborator/supabase"
	"github.com/fyrsmithlabs/jarvis/internal/config"
	"github.com/fyrsmithlabs/jarvis/internal/dispatch"
	httpserver "github.com/fyrsmithlabs/jarvis/internal/http"
	"github.com/fyrsmithlabs/jarvis/internal/logging"
	"github.com/fyrsmithlabs/jarvis/internal/notify"
	"github.com/fyrsmithlabs/jarvis/internal/provider"
	"github.com/fyrsmithlabs/jarvis/internal/session"
	"github.com/fyrsmithlabs/jarvis/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath = flag.String("config", "", "path to YAML config file")

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  jarvisd [--config file]   Start the jarvis daemon\n")
			fmt.Fprintf(os.Stderr, "  jarvisd version           Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("jarvisd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts jarvisd and blocks until ctx is cancelled.
//
// Startup order:
//  1. Loads and validates configuration
//  2. Initializes telemetry and the logger
//  3. Builds AI providers and the classifier
//  4. Selects Supabase or in-memory collaborators
//  5. Connects to NATS when configured
//  6. Serves HTTP until shutdown
func run(ctx context.Context) error {
	cfg, err := config.LoadWithFile(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tel, err := initTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	ctxLogger, err := initLogger(cfg, tel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = ctxLogger.Sync()
	}()
	logger := ctxLogger.Underlying()

	logger.Info("Starting jarvisd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("service", cfg.Observability.ServiceName),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	deps, err := initDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	logger.Info("Dependencies initialized",
		zap.Any("providers", deps.classifier.Providers()),
		zap.Bool("supabase", cfg.Supabase.Enabled()),
		zap.Bool("nats_connected", deps.natsConn != nil))

	sess := session.New(session.Config{
		DefaultTimeZone: cfg.Command.DefaultTimeZone,
		RepairJSON:      cfg.Command.RepairJSON,
		EventWindow:     cfg.Command.EventWindow,
	}, deps.classifier, dispatch.New(deps.finance, deps.calendar, ctxLogger.Named("dispatch")), deps.calendar, deps.publisher, ctxLogger.Named("session"))

	srv, err := httpserver.NewServer(sess, deps.classifier, ctxLogger.Named("http"), &httpserver.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func initTelemetry(ctx context.Context, cfg *config.Config) (*telemetry.Telemetry, error) {
	telCfg := telemetry.NewConfigFromObservability(cfg.Observability, version)
	return telemetry.New(ctx, telCfg, nil)
}

// initLogger builds the logger, bridged to OTel logs when telemetry
// provides a log provider.
func initLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	logCfg, err := logging.NewConfigFromObservability(cfg.Observability)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(logCfg, tel.LoggerProvider())
}

// dependencies holds everything the session needs from the outside world.
type dependencies struct {
	classifier *provider.Classifier
	finance    dispatch.Finance
	calendar   dispatch.Calendar
	publisher  notify.Publisher
	natsConn   *nats.Conn
}

// Close releases infrastructure resources.
func (d *dependencies) Close() {
	if d.natsConn != nil {
		_ = d.natsConn.Drain()
	}
}

func initDependencies(cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	classifier, err := initClassifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	deps := &dependencies{classifier: classifier, publisher: notify.NoOp{}}

	if cfg.Supabase.Enabled() {
		client, err := supabase.New(cfg.Supabase, logger.Named("supabase"))
		if err != nil {
			return nil, fmt.Errorf("failed to create supabase client: %w", err)
		}
		deps.finance = supabase.NewFinance(client)
		deps.calendar = supabase.NewCalendar(client)
		logger.Info("Using Supabase collaborators", zap.String("url", cfg.Supabase.URL))
	} else {
		store := memory.New()
		deps.finance = store
		deps.calendar = store
		logger.Warn("Supabase not configured, using in-memory collaborators")
	}

	if cfg.NATS.URL != "" {
		nc, err := notify.Connect(cfg.NATS.URL, logger.Named("nats"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		deps.natsConn = nc
		deps.publisher = notify.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix)
		logger.Info("Connected to NATS", zap.String("url", cfg.NATS.URL))
	}

	return deps, nil
}

// initClassifier builds the providers whose credentials are present.
// Missing credentials are not an error; the classifier reports
// ErrProviderUnavailable per request instead.
func initClassifier(cfg *config.Config, logger *zap.Logger) (*provider.Classifier, error) {
	var ccfg provider.ClassifierConfig
	ccfg.AttemptTimeout = cfg.Command.AttemptTimeout

	if cfg.OpenAI.Enabled() {
		p, err := provider.NewOpenAIProvider(cfg.OpenAI, logger.Named("openai"))
		if err != nil {
			return nil, fmt.Errorf("failed to create openai provider: %w", err)
		}
		ccfg.Primary = p
	}
	if cfg.Gemini.Enabled() {
		p, err := provider.NewGeminiProvider(cfg.Gemini, logger.Named("gemini"))
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini provider: %w", err)
		}
		ccfg.Fallback = p
	}
	if ccfg.Primary == nil && ccfg.Fallback == nil {
		logger.Warn("No AI provider configured; every command will fail until OPENAI_API_KEY or GEMINI_API_KEY is set")
	}

	return provider.NewClassifier(ccfg, logger.Named("classifier")), nil
}
