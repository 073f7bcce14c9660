package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/ui"
)

var teamCmd = &cobra.Command{
	Use:     "team",
	GroupID: "work",
	Short:   "Manage the team roster",
}

var teamAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a team member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSessionApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.shutdown()

		if err := a.engine.AddMember(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Added %s\n", ui.RenderPass("✓"), ui.RenderAccent(args[0]))
		return nil
	},
}

var teamRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a team member",
	Long: `Rename a team member.

Tasks assigned to the old name follow the rename.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSessionApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.shutdown()

		if err := a.engine.RenameMember(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s Renamed %s to %s\n", ui.RenderPass("✓"), args[0], ui.RenderAccent(args[1]))
		return nil
	},
}

var teamRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a team member",
	Long: `Remove a team member from the roster.

Tasks already assigned to them keep the name and show up as
"(former member)". The "Self" member cannot be removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSessionApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.shutdown()

		if err := a.engine.RemoveMember(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Removed %s\n", ui.RenderPass("✓"), args[0])
		return nil
	},
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the team roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSessionApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.shutdown()

		fmt.Println(ui.RenderHeader("Team"))
		for _, name := range a.engine.Team() {
			if name == model.Self {
				fmt.Printf("  %s %s\n", ui.RenderAccent(name), ui.RenderDim("(you)"))
			} else {
				fmt.Printf("  %s\n", name)
			}
		}
		return nil
	},
}

func init() {
	teamCmd.AddCommand(teamAddCmd)
	teamCmd.AddCommand(teamRenameCmd)
	teamCmd.AddCommand(teamRemoveCmd)
	teamCmd.AddCommand(teamListCmd)
	rootCmd.AddCommand(teamCmd)
}
