package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/daybookhq/daybook/internal/ui"
)

var accountCmd = &cobra.Command{
	Use:     "account",
	GroupID: "session",
	Short:   "Manage accounts and sessions",
}

var accountRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a durable account",
	Long: `Create a durable account with an interactive form.

Registration provisions an empty workspace in the store and signs you in.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		var name, contact, secret, style string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Display name").Value(&name),
				huh.NewInput().Title("Contact (email)").Value(&contact),
				huh.NewInput().Title("Secret").EchoMode(huh.EchoModePassword).Value(&secret),
				huh.NewSelect[string]().
					Title("Theme").
					Options(
						huh.NewOption("Default", ""),
						huh.NewOption("Dark", "dark"),
						huh.NewOption("Light", "light"),
					).
					Value(&style),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}

		acct, err := a.auth.Register(cmd.Context(), name, contact, secret, style)
		if err != nil {
			return err
		}
		if err := saveSession(session{AccountID: acct.ID}); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}

		fmt.Printf("%s Registered %s (%s)\n", ui.RenderPass("✓"), ui.RenderAccent(acct.DisplayName), acct.Contact)
		return nil
	},
}

var accountLoginCmd = &cobra.Command{
	Use:   "login <contact>",
	Short: "Sign in to a durable account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		fmt.Fprint(os.Stderr, "Secret: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading secret: %w", err)
		}

		acct, ws, err := a.auth.Login(cmd.Context(), args[0], string(raw))
		if err != nil {
			return err
		}
		if err := saveSession(session{AccountID: acct.ID}); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}

		fmt.Printf("%s Signed in as %s (%d tasks)\n", ui.RenderPass("✓"), ui.RenderAccent(acct.DisplayName), len(ws.Tasks))
		return nil
	},
}

var accountGuestCmd = &cobra.Command{
	Use:   "guest [name]",
	Short: "Start an ephemeral guest session",
	Long: `Start a guest session.

Guest sessions keep the workspace in memory only. Nothing is ever written
to the store, and the workspace is gone when the session ends.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		acct := a.auth.Guest(name)
		if err := saveSession(session{Guest: &acct}); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}

		fmt.Printf("%s Guest session for %s\n", ui.RenderPass("✓"), ui.RenderAccent(acct.DisplayName))
		fmt.Println(ui.RenderWarn("   Guest work is not persisted."))
		return nil
	},
}

var accountSignoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "End the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := clearSession(); err != nil {
			return err
		}
		fmt.Printf("%s Signed out\n", ui.RenderPass("✓"))
		return nil
	},
}

var accountWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		if s.Guest != nil {
			fmt.Printf("Guest session: %s %s\n", ui.RenderAccent(s.Guest.DisplayName), ui.RenderDim("(ephemeral)"))
			return nil
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		acct, _, err := a.auth.Resume(cmd.Context(), s.AccountID)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("%s <%s>", acct.DisplayName, acct.Contact)
		if acct.Style != "" {
			line += fmt.Sprintf(" [%s]", acct.Style)
		}
		fmt.Println(ui.RenderAccent(strings.TrimSpace(line)))
		return nil
	},
}

func init() {
	accountCmd.AddCommand(accountRegisterCmd)
	accountCmd.AddCommand(accountLoginCmd)
	accountCmd.AddCommand(accountGuestCmd)
	accountCmd.AddCommand(accountSignoutCmd)
	accountCmd.AddCommand(accountWhoamiCmd)
	rootCmd.AddCommand(accountCmd)
}
