package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/chat-assistant/internal/config"
	"github.com/zhouzirui/chat-assistant/internal/gateway"
	"github.com/zhouzirui/chat-assistant/internal/service/engine"
	"github.com/zhouzirui/chat-assistant/internal/service/health"
	"github.com/zhouzirui/chat-assistant/internal/service/registry"
	"github.com/zhouzirui/chat-assistant/internal/service/session"
	"github.com/zhouzirui/chat-assistant/internal/ui"
)

var (
	flagBaseURL  string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Terminal client for the AI chat backend",
	Long: `A terminal client for the AI chat backend. It keeps a local session,
mirrors the server's conversation list and sends messages optimistically,
reconciling with the server's record shortly after each reply.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagBaseURL, "base-url", "", "backend base URL (overrides CHAT_BASE_URL)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "log level (overrides CHAT_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is the normal case; system environment still applies.
	_ = godotenv.Load()

	if flagBaseURL != "" {
		os.Setenv("CHAT_BASE_URL", flagBaseURL)
	}
	if flagLogLevel != "" {
		os.Setenv("CHAT_LOG_LEVEL", flagLogLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, closeLog, err := openLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	client := gateway.New(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout, log)
	sessions := session.NewStore(client, cfg.Client.StateDir, log)
	reg := registry.New(client, log)
	gate := health.NewGate(client, log)

	eng := engine.New(client, gate, log)
	eng.OnConversationResolved = func(id string) {
		// The backend minted a conversation during a send; fold it into the
		// list so the sidebar converges without a manual refresh.
		if err := reg.Adopt(context.Background(), id); err != nil {
			log.Warn().Err(err).Str("conversation", id).Msg("failed to adopt new conversation")
		}
	}

	model := ui.NewModel(sessions, reg, eng, gate, client, log, ui.Options{
		ReconcileDelay: cfg.Client.ReconcileDelay,
		HealthInterval: cfg.Backend.HealthInterval,
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// openLogger writes diagnostics to a file; the TUI owns the terminal.
func openLogger(cfg config.LoggingConfig) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("parse log level: %w", err)
	}
	if level == zerolog.Disabled {
		return zerolog.Nop(), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}

	log := zerolog.New(file).Level(level).With().Timestamp().Logger()
	return log, func() { _ = file.Close() }, nil
}
