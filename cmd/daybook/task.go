package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daybookhq/daybook/internal/engine"
	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/ui"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	GroupID: "work",
	Short:   "Create and manage tasks",
}

var (
	taskNotes    string
	taskDetail   string
	taskCategory string
	taskPriority string
	taskAssignee string
	taskDue      string
	taskDone     bool
)

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Long: `Add a task to the current view date.

By default the task is planned (todo). With --done it is logged as already
completed, diary style. An explicit --due date overrides the view date.`,
	Args: cobra.MinimumNArgs(1),
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

		input := engine.TaskInput{
			Title:    strings.Join(args, " "),
			Notes:    taskNotes,
			Detail:   taskDetail,
			Category: taskCategory,
			Assignee: taskAssignee,
		}
		if taskPriority != "" {
			p := model.Priority(taskPriority)
			if !p.Valid() {
				return fmt.Errorf("invalid priority %q (low, normal, high)", taskPriority)
			}
			input.Priority = p
		}
		if taskDue != "" {
			due, err := parseNaturalDate(taskDue)
			if err != nil {
				return err
			}
			input.DueDate = due
		}

		entry := engine.EntryPlanner
		if taskDone {
			entry = engine.EntryDiary
		}

		task, err := a.engine.CreateTask(input, entry, date)
		if err != nil {
			return err
		}
		fmt.Printf("%s Added %s\n", ui.RenderPass("✓"), ui.TaskLine(task, a.engine.AssigneeLabel(task)))
		return nil
	},
}

func statusCommand(use, short string, status model.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newSessionApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.shutdown()

			id, err := resolveTaskID(a.engine, args[0])
			if err != nil {
				return err
			}
			if err := a.engine.SetStatus(id, status); err != nil {
				return err
			}
			task := a.engine.Snapshot().Task(id)
			fmt.Printf("%s %s\n", ui.RenderPass("✓"), ui.TaskLine(task, a.engine.AssigneeLabel(task)))
			return nil
		},
	}
}

var taskAssignCmd = &cobra.Command{
	Use:   "assign <task-id> <member>",
	Short: "Assign a task to a team member",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSessionApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.shutdown()

		id, err := resolveTaskID(a.engine, args[0])
		if err != nil {
			return err
		}
		if err := a.engine.Reassign(id, args[1]); err != nil {
			return err
		}
		fmt.Printf("%s Assigned to %s\n", ui.RenderPass("✓"), ui.RenderAccent(args[1]))
		return nil
	},
}

var taskDurationCmd = &cobra.Command{
	Use:   "duration <task-id> <hours>",
	Short: "Record time spent on a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSessionApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.shutdown()

		id, err := resolveTaskID(a.engine, args[0])
		if err != nil {
			return err
		}
		hours, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid hours %q", args[1])
		}
		if err := a.engine.SetDuration(id, hours); err != nil {
			return err
		}
		fmt.Printf("%s Recorded %.1fh\n", ui.RenderPass("✓"), hours)
		return nil
	},
}

var taskPostponeCmd = &cobra.Command{
	Use:   "postpone <task-id> <date> <reason>",
	Short: "Move a task to another day",
	Long: `Move a task to another day, recording why.

Both the date and the reason are required. The date accepts natural
language ("tomorrow", "next friday").`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSessionApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.shutdown()

		id, err := resolveTaskID(a.engine, args[0])
		if err != nil {
			return err
		}
		date, err := parseNaturalDate(args[1])
		if err != nil {
			return err
		}
		reason := strings.Join(args[2:], " ")
		if err := a.engine.Reschedule(id, date, reason); err != nil {
			return err
		}
		fmt.Printf("%s Moved to %s (%s)\n", ui.RenderPass("✓"), ui.RenderAccent(date), reason)
		return nil
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSessionApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.shutdown()

		id, err := resolveTaskID(a.engine, args[0])
		if err != nil {
			return err
		}
		if err := a.engine.DeleteTask(id); err != nil {
			return err
		}
		fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), ui.RenderAccent(id))
		return nil
	},
}

var listAll bool

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks for the view date",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSessionApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.shutdown()

		var tasks []*model.Task
		var heading string
		if listAll {
			tasks = a.engine.Snapshot().Tasks
			heading = "All tasks"
		} else {
			date, err := resolveViewDate()
			if err != nil {
				return err
			}
			tasks = a.engine.TasksOn(date)
			heading = date
		}

		fmt.Println(ui.RenderHeader(heading))
		if len(tasks) == 0 {
			fmt.Println(ui.RenderDim("  nothing here"))
			return nil
		}
		for _, t := range tasks {
			fmt.Println("  " + ui.TaskLine(t, a.engine.AssigneeLabel(t)))
		}
		return nil
	},
}

// resolveTaskID accepts a full task ID or an unambiguous prefix.
func resolveTaskID(e *engine.Engine, ref string) (string, error) {
	ws := e.Snapshot()
	if ws.Task(ref) != nil {
		return ref, nil
	}

	var matches []string
	for _, t := range ws.Tasks {
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("no task matching %q", ref)
	default:
		return "", fmt.Errorf("ambiguous task id %q (%d matches)", ref, len(matches))
	}
}

func init() {
	taskAddCmd.Flags().StringVar(&taskNotes, "notes", "", "short notes")
	taskAddCmd.Flags().StringVar(&taskDetail, "detail", "", "longer description")
	taskAddCmd.Flags().StringVar(&taskCategory, "category", "", "free-form category")
	taskAddCmd.Flags().StringVar(&taskPriority, "priority", "", "low, normal, or high")
	taskAddCmd.Flags().StringVar(&taskAssignee, "assignee", "", "team member to assign")
	taskAddCmd.Flags().StringVar(&taskDue, "due", "", "explicit due date (overrides --date)")
	taskAddCmd.Flags().BoolVar(&taskDone, "done", false, "log as already completed")
	taskListCmd.Flags().BoolVar(&listAll, "all", false, "list every task, not just the view date")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(statusCommand("done", "Mark a task completed", model.StatusDone))
	taskCmd.AddCommand(statusCommand("start", "Mark a task in progress", model.StatusInProgress))
	taskCmd.AddCommand(statusCommand("todo", "Mark a task not started", model.StatusTodo))
	taskCmd.AddCommand(taskAssignCmd)
	taskCmd.AddCommand(taskDurationCmd)
	taskCmd.AddCommand(taskPostponeCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskListCmd)
	rootCmd.AddCommand(taskCmd)
}
