// Command omega runs the personal-agent gateway.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/omega-agent/omega/pkg/channel"
	"github.com/omega-agent/omega/pkg/config"
	"github.com/omega-agent/omega/pkg/gateway"
	"github.com/omega-agent/omega/pkg/provider"
	"github.com/omega-agent/omega/pkg/provider/anthropic"
	"github.com/omega-agent/omega/pkg/provider/openai"
	"github.com/omega-agent/omega/pkg/store/sqlite"
	"github.com/omega-agent/omega/pkg/webhook"
)

func main() {
	var (
		configPath string
		dataDir    string
		debug      bool
	)

	root := &cobra.Command{
		Use:          "omega",
		Short:        "OMEGA personal-agent gateway",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
			if debug {
				log = log.Level(zerolog.DebugLevel)
			} else {
				log = log.Level(zerolog.InfoLevel)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return fmt.Errorf("creating data dir: %w", err)
			}

			dbPath := filepath.Join(cfg.DataDir, "omega.db")
			st, err := sqlite.Open(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			prov, err := buildProvider(cfg.Provider)
			if err != nil {
				return err
			}

			var channels *channel.Registry
			if cfg.Webhook.PushURL != "" {
				channels = channel.NewRegistry(webhook.NewPushChannel(cfg.Webhook.PushURL, cfg.Webhook.BearerToken))
			} else {
				channels = channel.NewRegistry()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gw := gateway.New(cfg, configPath, "sqlite3 "+dbPath, st, st, prov, channels, log)
			return gw.Run(ctx)
		},
	}

	defaultConfig := ""
	if home, err := os.UserHomeDir(); err == nil {
		defaultConfig = filepath.Join(home, ".config", "omega", "config.yaml")
	}
	root.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to config.yaml")
	root.Flags().StringVarP(&dataDir, "data-dir", "d", "", "override data directory")
	root.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildProvider(cfg config.ProviderConfig) (provider.Provider, error) {
	switch cfg.Kind {
	case "openai", "":
		return openai.New(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "anthropic":
		return anthropic.New(cfg.APIKey, cfg.Model, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}
