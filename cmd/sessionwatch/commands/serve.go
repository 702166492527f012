package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/sessionwatch/internal/config"
	"github.com/opencode-ai/sessionwatch/internal/event"
	"github.com/opencode-ai/sessionwatch/internal/logging"
	"github.com/opencode-ai/sessionwatch/internal/monitor"
	"github.com/opencode-ai/sessionwatch/internal/server"
	"github.com/opencode-ai/sessionwatch/internal/session"
	"github.com/opencode-ai/sessionwatch/pkg/types"
)

var (
	servePort     int
	serveHostname string
	serveDir      string
	serveWatch    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session store over HTTP",
	Long: `Start the HTTP API over a file-backed session store. Bus events,
including monitor alerts, stream over SSE at /event.

With --watch app/user/session, a background monitor is attached to that
session; a filesystem watcher nudges it whenever the session document
changes on disk.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHostname, "hostname", "127.0.0.1", "Hostname to listen on")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Working directory")
	serveCmd.Flags().StringVar(&serveWatch, "watch", "", "Session key to monitor (app/user/session)")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(serveDir)
	if err != nil {
		return err
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}
	applyLogConfig(cfg)

	dataDir := paths.StoragePath()
	if cfg.Data != nil && cfg.Data.Dir != "" {
		dataDir = cfg.Data.Dir
	}

	bus := event.NewBus()
	defer bus.Close()

	store := session.NewFileStore(dataDir, bus)
	logging.Info().Str("dir", dataDir).Msg("serving session store")

	if serveWatch != "" {
		key, err := parseSessionKey(serveWatch)
		if err != nil {
			return err
		}
		stop, err := attachMonitor(cfg, store, bus, key)
		if err != nil {
			return err
		}
		defer stop()
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Hostname = serveHostname
	serverConfig.Port = servePort
	if cfg.Server != nil {
		if cfg.Server.Hostname != "" && !cmd.Flags().Changed("hostname") {
			serverConfig.Hostname = cfg.Server.Hostname
		}
		if cfg.Server.Port != 0 && !cmd.Flags().Changed("port") {
			serverConfig.Port = cfg.Server.Port
		}
	}

	srv := server.New(serverConfig, store, bus)

	go func() {
		logging.Info().
			Str("addr", fmt.Sprintf("http://%s:%d", serverConfig.Hostname, serverConfig.Port)).
			Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}
	return nil
}

// attachMonitor starts a trigger monitor on the key, nudged by a filesystem
// watcher over the session document. It returns a stop function.
func attachMonitor(cfg *types.Config, store *session.FileStore, bus *event.Bus, key types.SessionKey) (func(), error) {
	interval := time.Duration(0)
	if cfg.Monitor != nil {
		interval = cfg.Monitor.Interval.Std()
	}
	detector := triggerDetectorFromConfig(cfg, monitor.NewBudget(interventionLimit(cfg)))

	watcher, err := session.NewWatcher(store, key)
	if err != nil {
		return nil, err
	}
	watcher.Start()

	m := monitor.New(monitor.Config{
		Store:    store,
		Key:      key,
		Detector: detector,
		Queue:    monitor.NewQueue(),
		Bus:      bus,
		Interval: interval,
		Nudge:    watcher.Nudge(),
	})
	if err := m.Start(); err != nil {
		watcher.Stop()
		return nil, err
	}

	logging.Info().Str("session", key.String()).Msg("monitor attached")
	return func() {
		m.Stop()
		watcher.Stop()
	}, nil
}

// parseSessionKey parses "app/user/session".
func parseSessionKey(s string) (types.SessionKey, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return types.SessionKey{}, fmt.Errorf("invalid session key %q, want app/user/session", s)
	}
	return types.SessionKey{AppID: parts[0], UserID: parts[1], SessionID: parts[2]}, nil
}
