package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zombor/betslip-tracker/internal/betslip"
	"github.com/zombor/betslip-tracker/internal/blobstore"
	"github.com/zombor/betslip-tracker/internal/bot"
	"github.com/zombor/betslip-tracker/internal/config"
	"github.com/zombor/betslip-tracker/internal/credential"
	"github.com/zombor/betslip-tracker/internal/ingest"
	"github.com/zombor/betslip-tracker/internal/linking"
	"github.com/zombor/betslip-tracker/internal/scanning"
	"github.com/zombor/betslip-tracker/internal/sheets"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	cfg, usage, err := config.Load(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		fmt.Fprintf(os.Stderr, "%s\n", usage)
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", usage)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if cfg.ShowVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Bot stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shut down")
}

func run(ctx context.Context, cfg config.Config) error {
	slog.Info("Initializing blob store...", "backend", cfg.BlobBackend, "bucket", cfg.Bucket)
	store, err := blobstore.Open(ctx, cfg.BlobOptions())
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}
	defer store.Close()

	if err := cfg.Bootstrap(ctx, store); err != nil {
		return fmt.Errorf("bootstrapping config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	callbackPath, err := cfg.CallbackPath()
	if err != nil {
		return err
	}

	provider := credential.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.RedirectURL)
	states := credential.NewStateSigner(cfg.StateKey(), credential.DefaultStateTTL, cfg.AcceptLegacyState)
	manager := credential.NewManager(credential.NewBlobRepository(store, cfg.Bucket), provider, states, cfg.RedirectURL)

	scanner, err := newScanner(cfg)
	if err != nil {
		return err
	}
	defer scanner.Close()

	writer := sheets.NewWriter(manager, sheets.NewGoogleConnector())
	metrics := ingest.NewMetrics(prometheus.DefaultRegisterer)
	orchestrator := ingest.NewOrchestrator(manager, scanner, betslip.NewParser(), writer, metrics)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("connecting to telegram: %w", err)
	}
	slog.Info("Authorized on account", "username", api.Self.UserName)

	b := bot.New(api, orchestrator, manager, writer)
	if err := b.RegisterCommands(); err != nil {
		slog.Warn("Failed to register commands", "error", err)
	}

	server := linking.NewServer(manager, linking.Options{
		CallbackPath: callbackPath,
		OnLinked:     b.NotifyLinked,
		Health: func(ctx context.Context) error {
			_, err := store.Exists(ctx, cfg.Bucket, config.BootstrapObject)
			return err
		},
	})
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start(ctx, cfg.ListenAddr)
		if err != nil {
			slog.Error("Server error", "error", err)
			cancel()
		}
		serverErr <- err
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	slog.Info("Bot started", "listen", cfg.ListenAddr, "callback", callbackPath)
	b.Run(ctx, updates)

	slog.Info("Shutting down...")
	return <-serverErr
}

func newScanner(cfg config.Config) (scanning.Scanner, error) {
	switch cfg.Scanner {
	case "gemini":
		slog.Info("Initializing Gemini scanner...", "model", cfg.GeminiModel)
		scanner, err := scanning.NewGemini(cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("initializing gemini: %w", err)
		}
		return scanner, nil
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		scanner, err := scanning.NewOllama(cfg.OllamaURL, cfg.OllamaModel)
		if err != nil {
			return nil, fmt.Errorf("initializing ollama: %w", err)
		}
		return scanner, nil
	default:
		return nil, fmt.Errorf("invalid scanner type %q", cfg.Scanner)
	}
}
