package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/herd/internal/board"
	"github.com/ShayCichocki/herd/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create, update and inspect tasks",
}

var (
	taskAs   string
	taskJSON bool

	taskCreateTitle       string
	taskCreateDescription string
	taskCreateAssign      string
	taskCreateStatus      string
	taskCreateReason      string
	taskCreateProject     string
)

var taskCreateCmd = &cobra.Command{
	Use:   "create [board-id]",
	Short: "Create a task",
	Long: `Create a task on a board. Managers may omit the board id to use their
default board, which is created on first use. Tasks may be assigned only to
yourself or, for managers, to a direct report.`,
	Args: cobra.MaximumNArgs(1),
	RunE: withBoard(func(cmd *cobra.Command, a *app, s *board.Store, args []string) error {
		var boardID string
		if len(args) == 1 {
			boardID = args[0]
		}
		t, err := s.CreateTask(cmd.Context(), entryAgent(a, taskAs), boardID, board.CreateTaskInput{
			Title:        taskCreateTitle,
			Description:  taskCreateDescription,
			AssignedTo:   taskCreateAssign,
			Status:       taskCreateStatus,
			StatusReason: taskCreateReason,
			Project:      taskCreateProject,
		})
		if err != nil {
			return err
		}
		return showTask(cmd, t, "Created task")
	}),
}

var taskListCmd = &cobra.Command{
	Use:   "list <board-id>",
	Short: "List a board's tasks, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: withBoard(func(cmd *cobra.Command, a *app, s *board.Store, args []string) error {
		tasks, err := s.ListTasks(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printTasks(cmd, tasks)
	}),
}

var (
	taskLatestAssignee string
	taskLatestLimit    int
)

var taskLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "List the most recently created tasks across all boards",
	Args:  cobra.NoArgs,
	RunE: withBoard(func(cmd *cobra.Command, a *app, s *board.Store, args []string) error {
		tasks, err := s.ListLatestTasks(cmd.Context(), board.ListLatestOptions{
			Assignee: taskLatestAssignee,
			Limit:    taskLatestLimit,
		})
		if err != nil {
			return err
		}
		return printTasks(cmd, tasks)
	}),
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task with its blockers, artifacts and worklog",
	Args:  cobra.ExactArgs(1),
	RunE: withBoard(func(cmd *cobra.Command, a *app, s *board.Store, args []string) error {
		t, err := s.GetTask(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return showTask(cmd, t, "")
	}),
}

var taskStatusReason string

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id> <status>",
	Short: "Change a task's status",
	Long: `Change a task's status. Valid statuses are todo, doing, pending, blocked
and done. Pending and blocked require --reason. Only the assignee may update.`,
	Args: cobra.ExactArgs(2),
	RunE: withBoard(func(cmd *cobra.Command, a *app, s *board.Store, args []string) error {
		t, err := s.UpdateTaskStatus(cmd.Context(), entryAgent(a, taskAs), args[0], args[1], taskStatusReason)
		if err != nil {
			return err
		}
		return showTask(cmd, t, "Updated task")
	}),
}

type entryAdder func(ctx context.Context, actorID, taskID, content string) (models.Task, error)

// entryCmd builds the blocker, artifact and worklog subcommands.
func entryCmd(kind models.EntryKind, add func(s *board.Store) entryAdder) *cobra.Command {
	return &cobra.Command{
		Use:   string(kind) + " <task-id> <content...>",
		Short: fmt.Sprintf("Append a %s entry to a task", kind),
		Args:  cobra.MinimumNArgs(2),
		RunE: withBoard(func(cmd *cobra.Command, a *app, s *board.Store, args []string) error {
			t, err := add(s)(cmd.Context(), entryAgent(a, taskAs), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return showTask(cmd, t, fmt.Sprintf("Added %s to", kind))
		}),
	}
}

func showTask(cmd *cobra.Command, t models.Task, action string) error {
	out := cmd.OutOrStdout()
	if taskJSON {
		return printJSON(out, t)
	}
	if action != "" {
		printStatus(out, "✓", action+" "+t.TaskID, color.FgGreen)
	}
	printTask(out, t)
	return nil
}

func printTasks(cmd *cobra.Command, tasks []models.Task) error {
	out := cmd.OutOrStdout()
	if taskJSON {
		return printJSON(out, tasks)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks.")
		return nil
	}
	for _, t := range tasks {
		fmt.Fprintln(out, taskLine(t))
	}
	return nil
}

func init() {
	taskCmd.PersistentFlags().StringVar(&taskAs, "as", "", "Acting agent id (default: root agent)")
	taskCmd.PersistentFlags().BoolVar(&taskJSON, "json", false, "Print results as JSON")

	taskCreateCmd.Flags().StringVar(&taskCreateTitle, "title", "", "Task title (required)")
	taskCreateCmd.Flags().StringVar(&taskCreateDescription, "description", "", "Task description")
	taskCreateCmd.Flags().StringVar(&taskCreateAssign, "assign", "", "Assignee agent id (default: yourself)")
	taskCreateCmd.Flags().StringVar(&taskCreateStatus, "status", "", "Initial status (default: todo)")
	taskCreateCmd.Flags().StringVar(&taskCreateReason, "reason", "", "Reason for a pending or blocked status")
	taskCreateCmd.Flags().StringVar(&taskCreateProject, "project", "", "Project path marker (default: ~)")

	taskLatestCmd.Flags().StringVar(&taskLatestAssignee, "assignee", "", "Only tasks assigned to this agent")
	taskLatestCmd.Flags().IntVar(&taskLatestLimit, "limit", board.MaxLatestTasks, "Maximum number of tasks")

	taskStatusCmd.Flags().StringVar(&taskStatusReason, "reason", "", "Reason for a pending or blocked status")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskLatestCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskStatusCmd)
	taskCmd.AddCommand(entryCmd(models.EntryBlocker, func(s *board.Store) entryAdder { return s.AddTaskBlocker }))
	taskCmd.AddCommand(entryCmd(models.EntryArtifact, func(s *board.Store) entryAdder { return s.AddTaskArtifact }))
	taskCmd.AddCommand(entryCmd(models.EntryWorklog, func(s *board.Store) entryAdder { return s.AddTaskWorklog }))
}
