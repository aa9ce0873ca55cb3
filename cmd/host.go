package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/grovetools/lombridge/cli"
	"github.com/grovetools/lombridge/config"
	"github.com/grovetools/lombridge/internal/daemon/collector"
	"github.com/grovetools/lombridge/internal/daemon/dispatch"
	"github.com/grovetools/lombridge/internal/daemon/engine"
	"github.com/grovetools/lombridge/internal/daemon/handler"
	"github.com/grovetools/lombridge/internal/daemon/metrics"
	"github.com/grovetools/lombridge/internal/daemon/pidfile"
	"github.com/grovetools/lombridge/internal/daemon/server"
	"github.com/grovetools/lombridge/internal/daemon/store"
	"github.com/grovetools/lombridge/internal/daemon/watcher"
	"github.com/grovetools/lombridge/internal/liveset"
	"github.com/grovetools/lombridge/logging"
	"github.com/grovetools/lombridge/pkg/client"
	"github.com/grovetools/lombridge/pkg/paths"
	"github.com/grovetools/lombridge/pkg/process"
)

const shutdownTimeout = 5 * time.Second

// NewHostCmd returns the host command with its lifecycle subcommands.
func NewHostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Run and inspect the graph host",
		Long:  "The host owns the object graph and serves the JSON command protocol.",
	}

	cmd.AddCommand(newHostStartCmd())
	cmd.AddCommand(newHostStopCmd())
	cmd.AddCommand(newHostStatusCmd())
	cmd.AddCommand(newHostEventsCmd())

	return cmd
}

func newHostStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the host in the foreground",
		Long: `Start the host in the foreground with an in-memory demo session.

Examples:
  lombridge host start
  lombridge host start --listen 127.0.0.1:9900 --http 127.0.0.1:9901`,
		RunE: runHostStart,
	}
	cmd.Flags().String("listen", "", "TCP address for the command protocol (overrides host.listen)")
	cmd.Flags().String("http", "", "HTTP address for /ws, /metrics and /api (overrides host.http_addr)")
	return cmd
}

func runHostStart(cmd *cobra.Command, args []string) error {
	cfg, cfgPath, err := cli.LoadConfig(cmd)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Host.Listen = listen
	}
	if httpAddr, _ := cmd.Flags().GetString("http"); httpAddr != "" {
		cfg.Host.HTTPAddr = httpAddr
	}
	logger := cli.GetLogger(cmd, "host")

	set := liveset.NewDefault()
	m := metrics.New()
	h := handler.New(set, cfg.Search, logger)
	d := dispatch.New(h.Handle, cfg.Host.Tick.Std(), m, logger)
	st := store.New()

	opts := server.Options{
		Addr:            cfg.Host.Listen,
		DispatchTimeout: cfg.Host.DispatchTimeout.Std(),
		MaxFrameBytes:   cfg.Host.MaxFrameBytes,
		AcceptRate:      cfg.Host.AcceptRate,
		Metrics:         m,
		Store:           st,
		Logger:          logger,
	}
	tcp := server.NewTCP(d, opts)
	if err := tcp.Listen(); err != nil {
		return err
	}

	pidPath := paths.PidFilePath()
	if err := pidfile.Acquire(pidPath, pidfile.Record{Listen: tcp.Addr(), HTTPAddr: cfg.Host.HTTPAddr}); err != nil {
		_ = tcp.Shutdown(context.Background())
		return err
	}
	defer func() {
		if err := pidfile.Release(pidPath); err != nil {
			logger.WithError(err).Error("Failed to release pidfile")
		}
	}()

	eng := engine.New(st, logger)
	eng.Register(collector.NewSessionCollector(d, cfg.Host.StatusInterval.Std(), logger))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.Run(gctx)
		return nil
	})
	g.Go(func() error { return tcp.Serve(gctx) })
	g.Go(func() error {
		eng.Start(gctx)
		return nil
	})

	var gateway *server.HTTPServer
	if cfg.Host.HTTPAddr != "" {
		gateway = server.NewHTTP(d, opts)
		gateway.SetRunningConfig(&server.RunningConfig{
			Listen:          tcp.Addr(),
			HTTPAddr:        cfg.Host.HTTPAddr,
			Tick:            cfg.Host.Tick.Std(),
			DispatchTimeout: cfg.Host.DispatchTimeout.Std(),
			MaxFrameBytes:   cfg.Host.MaxFrameBytes,
			ConfigFile:      cfgPath,
			StartedAt:       st.Get().StartedAt,
		})
		g.Go(func() error { return gateway.ListenAndServe(cfg.Host.HTTPAddr) })
	}

	if w, err := newConfigWatcher(cmd, cfgPath, h, st, logger); err != nil {
		logger.WithError(err).Warn("Config hot reload disabled")
	} else {
		g.Go(func() error { return w.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down host")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tcp.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("TCP shutdown incomplete")
		}
		if gateway != nil {
			if err := gateway.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warn("HTTP shutdown incomplete")
			}
		}
		return nil
	})

	logger.WithFields(logrus.Fields{
		"pid":    os.Getpid(),
		"listen": tcp.Addr(),
		"http":   cfg.Host.HTTPAddr,
	}).Info("Starting host")
	return g.Wait()
}

// newConfigWatcher reloads the search policy whenever a config file in the
// global or project directory changes.
func newConfigWatcher(cmd *cobra.Command, cfgPath string, h *handler.Handler, st *store.Store, logger *logrus.Entry) (*watcher.ConfigWatcher, error) {
	dirs := []string{paths.ConfigDir()}
	if cfgPath != "" {
		dirs = append(dirs, filepath.Dir(cfgPath))
	} else if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}

	return watcher.New(dirs, watcher.DefaultDebounce, func(file string) {
		cfg, _, err := cli.LoadConfig(cmd)
		if err != nil {
			logger.WithError(err).WithField("file", file).Warn("Ignoring invalid config change")
			return
		}
		logging.Reset()
		h.UpdateSearch(cfg.Search)
		st.BroadcastConfigReload(file)
		logger.WithField("file", file).Info("Search policy reloaded")
	})
}

func newHostStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running host",
		RunE: func(cmd *cobra.Command, args []string) error {
			running, rec, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "Host is not running")
				return nil
			}

			gone, err := process.Terminate(rec.PID, shutdownTimeout)
			if err != nil {
				return fmt.Errorf("failed to stop process %d: %w", rec.PID, err)
			}
			if !gone {
				return fmt.Errorf("host (PID %d) did not exit within %s", rec.PID, shutdownTimeout)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped host (PID %d)\n", rec.PID)
			return nil
		},
	}
}

// hostStatus is the --json shape of host status.
type hostStatus struct {
	Running bool            `json:"running"`
	Record  *pidfile.Record `json:"record,omitempty"`
	State   interface{}     `json:"state,omitempty"`
}

func newHostStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check host status",
		RunE: func(cmd *cobra.Command, args []string) error {
			running, rec, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error: %w", err)
			}

			status := hostStatus{Running: running}
			if running {
				status.Record = &rec
				if rec.HTTPAddr != "" {
					sc := client.NewStatusClient(rec.HTTPAddr)
					defer sc.Close()
					if state, err := sc.State(cmd.Context()); err == nil {
						status.State = state
					}
				}
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				data, err := json.MarshalIndent(status, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			} else if running {
				pretty := logging.NewPrettyLogger().WithWriter(out)
				pretty.Success(fmt.Sprintf("Running (PID: %d)", rec.PID))
				pretty.Field("Listen", rec.Listen)
				if rec.HTTPAddr != "" {
					pretty.Field("HTTP", rec.HTTPAddr)
				}
				pretty.Field("Started", rec.StartedAt.Format(time.RFC3339))
				if state, ok := status.State.(*store.State); ok {
					pretty.Field("Tempo", fmt.Sprintf("%.2f BPM", state.Session.Tempo))
					pretty.Field("Tracks", state.Session.Tracks)
					pretty.Field("Connections", state.Connections)
					pretty.Field("Commands", state.Commands)
				}
			} else {
				fmt.Fprintln(out, "Stopped")
			}

			if !running {
				// Non-zero for scripts.
				os.Exit(1)
			}
			return nil
		},
	}
}

func newHostEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Stream host status updates as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			running, rec, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return err
			}
			if !running || rec.HTTPAddr == "" {
				return fmt.Errorf("no running host with an HTTP gateway (set host.http_addr)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			updates, err := client.NewStatusClient(rec.HTTPAddr).StreamState(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for u := range updates {
				if err := enc.Encode(u); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// newManager builds a ConnectionManager from the layered config and --address.
func newManager(cmd *cobra.Command) (*client.Manager, *config.Config, error) {
	cfg, _, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if addr, _ := cmd.Flags().GetString("address"); addr != "" {
		cfg.Client.Address = addr
	}
	return client.New(cfg.Client), cfg, nil
}
