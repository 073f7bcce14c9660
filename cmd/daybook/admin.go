package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daybookhq/daybook/internal/ui"
)

var adminCmd = &cobra.Command{
	Use:     "admin",
	GroupID: "admin",
	Short:   "Whole-store maintenance",
}

var exportOut string

var adminExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the whole store as a portable snapshot",
	Long: `Export every account and workspace as a single encoded snapshot
string, suitable for backup or moving between store backends.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		encoded, err := a.store.Export(cmd.Context())
		if err != nil {
			return err
		}

		if exportOut != "" {
			if err := os.WriteFile(exportOut, []byte(encoded+"\n"), 0o600); err != nil {
				return fmt.Errorf("writing snapshot: %w", err)
			}
			fmt.Printf("%s Snapshot written to %s\n", ui.RenderPass("✓"), exportOut)
			return nil
		}
		fmt.Println(encoded)
		return nil
	},
}

var adminImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the store contents from a snapshot",
	Long: `Replace the entire store with the contents of a snapshot file.

The snapshot is fully validated before anything is written; a malformed
snapshot leaves the store untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}

		if err := a.store.Import(cmd.Context(), strings.TrimSpace(string(data))); err != nil {
			return err
		}
		fmt.Printf("%s Store replaced from %s\n", ui.RenderPass("✓"), args[0])
		return nil
	},
}

func init() {
	adminExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write snapshot to file instead of stdout")

	adminCmd.AddCommand(adminExportCmd)
	adminCmd.AddCommand(adminImportCmd)
	rootCmd.AddCommand(adminCmd)
}
