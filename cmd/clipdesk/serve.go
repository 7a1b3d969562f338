package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/clipdesk/clipdesk/internal/api"
	"github.com/clipdesk/clipdesk/internal/clip"
	"github.com/clipdesk/clipdesk/internal/config"
	"github.com/clipdesk/clipdesk/internal/logging"
	"github.com/clipdesk/clipdesk/internal/mostreplayed"
	"github.com/clipdesk/clipdesk/internal/playback"
	"github.com/clipdesk/clipdesk/internal/player"
	"github.com/clipdesk/clipdesk/internal/processor"
	"github.com/clipdesk/clipdesk/internal/ui"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var headless bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the labeling panel and, unless a backend URL is set, the embedded backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(runCtx, ctx, headless || ctx.config.Headless())
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "Run without the system tray")
	return cmd
}

func runServe(ctx context.Context, cc *commandContext, headless bool) error {
	startTime := time.Now()
	cfg := cc.config
	logger := cc.logger()

	logger.Info("starting clipdesk",
		"version", config.Version,
		"data_dir", logging.SanitizePath(cfg.DataDir()),
		"config_file", cfg.SourceFile(),
		"embedded_backend", cfg.EmbeddedBackend(),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverCfg := api.ServerConfig{
		Port:      cfg.Port(),
		Logger:    logger,
		StartTime: startTime,
		Version:   config.Version,
	}

	if cfg.EmbeddedBackend() {
		l, err := cc.openLocal(false)
		if err != nil {
			return err
		}
		defer l.Close()

		if caps := l.doctor.Refresh(ctx); !caps.CanDownload || !caps.CanCut {
			logger.Warn("media tools missing, processing will fail until installed",
				"ffmpeg", cfg.FFmpegPath(),
				"yt_dlp", cfg.YtDlpPath(),
			)
		}

		serverCfg.Repository = l.repo
		serverCfg.Processor = l.processor
		serverCfg.Dataset = l.dataset
		serverCfg.Doctor = l.doctor
		serverCfg.ClipsDir = cfg.ClipsDir()
		serverCfg.MostReplayed = mostreplayed.NewService(cfg.MostReplayedURL(), l.repo, logging.WithComponent(logger, "most_replayed"))
		serverCfg.Playback = playback.NewServer(cfg.ClipsDir(), logger)

		if spec := cfg.ProcessSchedule(); spec != "" {
			sched, err := processor.NewScheduler(spec, l.processor, logging.WithComponent(logger, "scheduler"))
			if err != nil {
				return fmt.Errorf("failed to schedule processing: %w", err)
			}
			sched.Start()
			defer func() { <-sched.Stop().Done() }()
		}
	}

	client := cc.backendClient()
	bridge := player.NewBridgePlayer()
	session := clip.NewSession(bridge, logging.WithComponent(logger, "panel"))
	poller := player.NewPoller(bridge, session.ObserveTime, logging.WithComponent(logger, "poller"))
	go poller.Start(ctx)

	serverCfg.Session = session
	serverCfg.Bridge = bridge
	serverCfg.Poller = poller
	serverCfg.Backend = client

	apiServer := api.NewServer(serverCfg)
	panelURL := "http://" + apiServer.Addr() + "/"

	fmt.Println()
	fmt.Printf("  clipdesk %s\n", config.Version)
	fmt.Printf("  Panel:   %s\n", panelURL)
	fmt.Printf("  Backend: %s\n", client.BaseURL())
	fmt.Println()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- apiServer.Start()
	}()

	quitCh := make(chan struct{})
	var tray *ui.Tray
	if headless {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray = ui.NewTray(ui.TrayConfig{
			Context:  ctx,
			Panel:    session,
			Trigger:  client.Trigger,
			PanelURL: panelURL,
			Logger:   logging.WithComponent(logger, "tray"),
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
		if tray != nil {
			tray.Quit()
		}
	case <-quitCh:
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server error", "error", err)
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	cancel()
	bridge.Detach()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return runErr
}
