package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daybookhq/daybook/internal/summary"
	"github.com/daybookhq/daybook/internal/ui"
)

var summaryCmd = &cobra.Command{
	Use:     "summary",
	GroupID: "work",
	Short:   "Summarize a day's work in prose",
	Long: `Summarize the view date's tasks in a few sentences.

Uses the configured language-model provider when available, and falls back
to a locally built summary when the provider is unreachable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSessionApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.shutdown()

		date, err := resolveViewDate()
		if err != nil {
			return err
		}
		tasks := a.engine.TasksOn(date)

		logger := a.cfg.NewLogger("[summary] ")
		client := summary.NewClient(a.cfg.Summary.APIKey, a.cfg.Summary.Model, logger)
		text := summary.SummarizeOrFallback(cmd.Context(), client, tasks, logger)

		fmt.Println(ui.RenderHeader(date))
		fmt.Println(text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}
