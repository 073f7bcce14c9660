package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daybookhq/daybook/internal/scheduler"
	"github.com/daybookhq/daybook/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "work",
	Short:   "Inspect and force store synchronization",
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sync state of the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSessionApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.shutdown()

		acct := a.engine.Account()
		fmt.Println(ui.RenderHeader("Sync"))
		if acct.Ephemeral {
			fmt.Printf("  %s guest session, nothing is persisted\n", ui.RenderWarn("⚠"))
			return nil
		}

		state := a.sched.State()
		var rendered string
		switch state {
		case scheduler.StateSynced:
			rendered = ui.RenderPass(string(state))
		case scheduler.StateError:
			rendered = ui.RenderFail(string(state))
		case scheduler.StateSyncing:
			rendered = ui.RenderWarn(string(state))
		default:
			rendered = ui.RenderDim(string(state))
		}
		fmt.Printf("  state: %s\n", rendered)
		if a.sched.Dirty() {
			fmt.Printf("  %s unsynced local changes\n", ui.RenderWarn("⚠"))
		}
		fmt.Printf("  store: %s (%s)\n", a.cfg.Store.Driver, a.cfg.Store.Path)
		return nil
	},
}

var syncFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Write pending changes to the store now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSessionApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.shutdown()

		if a.engine.Account().Ephemeral {
			fmt.Printf("%s guest session, nothing to flush\n", ui.RenderWarn("⚠"))
			return nil
		}
		if err := a.sched.Flush(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("%s Workspace written to store\n", ui.RenderPass("✓"))
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncFlushCmd)
	rootCmd.AddCommand(syncCmd)
}
