package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/siebog/console/internal/config"
	"github.com/siebog/console/internal/console"
	"github.com/siebog/console/internal/feed"
	"github.com/siebog/console/internal/logger"
	"github.com/siebog/console/internal/registry"
	"github.com/siebog/console/internal/tui"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	host       string
	apiBase    string
	logPath    string
	refresh    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "console",
		Short:         "Live siebog console",
		Long:          "Show messages pushed by a siebog server on /siebog/console together with its running agents.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger.Configure()
			closer, _, err := logger.SetupFile(cfg.LogPath)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer closer.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			agents := startRegistry(ctx, cfg)
			view := console.New(ctx, channelFactory(cfg), agents, console.WithHost(cfg.Host))
			return tui.Run(view)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to console.toml (default ~/.siebog/console.toml)")
	flags.StringVar(&opts.host, "host", "", "siebog server host[:port]")
	flags.StringVar(&opts.apiBase, "api", "", "agent REST API base URL (default http://<host>)")
	flags.StringVar(&opts.logPath, "log", "", "diagnostic log file")
	flags.DurationVar(&opts.refresh, "refresh", 0, "agent list refresh interval")

	cmd.AddCommand(newTailCmd(opts))
	return cmd
}

func newTailCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Print console lines to stdout as they arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger.Configure()

			view := console.New(cmd.Context(), channelFactory(cfg), nil, console.WithHost(cfg.Host))
			return tail(cmd.Context(), view, cmd.OutOrStdout())
		},
	}
}

// tail prints each new display line until the channel ends.
func tail(ctx context.Context, view *console.View, out io.Writer) error {
	printed := 0
	err := view.Run(ctx, func(feed.Event) {
		for ; printed < view.Len(); printed++ {
			fmt.Fprintln(out, view.Line(printed))
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (o *rootOptions) load() (config.Client, error) {
	cfg, err := config.LoadClient(o.configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	if o.host != "" {
		cfg.Host = o.host
	}
	if o.apiBase != "" {
		cfg.APIBase = o.apiBase
	}
	if o.logPath != "" {
		cfg.LogPath = o.logPath
	}
	if o.refresh > 0 {
		cfg.RefreshInterval = config.Duration(o.refresh)
	}
	return cfg, nil
}

// channelFactory opens push channels with the configured handshake timeout.
func channelFactory(cfg config.Client) feed.Factory {
	return feed.Dialer(feed.WithDialer(&websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: time.Duration(cfg.HandshakeTimeout),
	}))
}

func startRegistry(ctx context.Context, cfg config.Client) *registry.Registry {
	agents := registry.New(registry.WithBaseURL(cfg.APIBaseURL()))
	go agents.Watch(ctx, time.Duration(cfg.RefreshInterval))
	return agents
}
