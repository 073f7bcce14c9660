package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daybookhq/daybook/internal/dashboard"
	"github.com/daybookhq/daybook/internal/engine"
	"github.com/daybookhq/daybook/internal/gateway"
	"github.com/daybookhq/daybook/internal/scheduler"
	"github.com/daybookhq/daybook/internal/store"
	"github.com/daybookhq/daybook/internal/ui"
)

var dashboardPort int

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: "admin",
	Short:   "Serve a live WebSocket dashboard (foreground)",
	Long: `Serve the observer dashboard in the foreground.

Connected WebSocket clients receive sync state transitions and, when the
store is file-backed, notifications about workspaces changed externally.
Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		acct, ws, err := resumeSession(cmd.Context(), a)
		if err != nil {
			return err
		}

		port := dashboardPort
		if port == 0 {
			port = a.cfg.Dashboard.Port
		}
		server := dashboard.NewServer(&dashboard.Config{
			Port:   port,
			Logger: a.cfg.NewLogger("[dashboard] "),
		})
		if err := server.Start(); err != nil {
			return err
		}
		defer server.Stop()

		a.gw = gateway.New(a.store, &gateway.Config{
			Latency: a.cfg.Latency(),
			Logger:  a.cfg.NewLogger("[gateway] "),
		})
		a.engine = engine.New(acct, ws, a.gw, &engine.Config{
			RehomeOnComplete: a.cfg.Engine.RehomeOnComplete,
			Logger:           a.cfg.NewLogger("[engine] "),
		})
		a.sched = scheduler.New(a.engine.SyncFunc(), &scheduler.Config{
			Quiescence:    a.cfg.Quiescence(),
			DisplayWindow: a.cfg.DisplayWindow(),
			Logger:        a.cfg.NewLogger("[scheduler] "),
			Notify:        server.NotifyFunc(),
		})
		a.engine.SetDirtyMarker(a.sched)
		a.sched.Start()
		defer a.sched.Stop()

		// File-backed stores can report external edits, e.g. an admin
		// import while this session is live.
		if fs, ok := a.store.(*store.FileStore); ok {
			changed, err := fs.Watch(cmd.Context())
			if err != nil {
				return err
			}
			go func() {
				for id := range changed {
					if id == acct.ID {
						server.PublishSyncState("external_change")
					}
				}
			}()
		}

		fmt.Printf("%s Dashboard for %s on %s\n", ui.RenderAccent("▶"), acct.DisplayName, server.Addr())
		fmt.Println("Press Ctrl+C to stop")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down")
		return nil
	},
}

func init() {
	dashboardCmd.Flags().IntVar(&dashboardPort, "port", 0, "listen port (default from config)")
	rootCmd.AddCommand(dashboardCmd)
}
