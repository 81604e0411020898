package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/herd/internal/board"
	"github.com/ShayCichocki/herd/internal/tui"
	"github.com/ShayCichocki/herd/pkg/models"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Manage task boards",
}

var boardCreateAs string

var boardCreateCmd = &cobra.Command{
	Use:   "create <title...>",
	Short: "Create a board owned by a manager",
	Args:  cobra.MinimumNArgs(1),
	RunE: withBoard(func(cmd *cobra.Command, a *app, s *board.Store, args []string) error {
		b, err := s.CreateBoard(cmd.Context(), entryAgent(a, boardCreateAs), strings.Join(args, " "))
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), "✓", "Created board "+boardLine(b), color.FgGreen)
		return nil
	}),
}

var boardListJSON bool

var boardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List boards, oldest first",
	Args:  cobra.NoArgs,
	RunE: withBoard(func(cmd *cobra.Command, a *app, s *board.Store, args []string) error {
		boards, err := s.ListBoards(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if boardListJSON {
			return printJSON(out, boards)
		}
		if len(boards) == 0 {
			fmt.Fprintln(out, "No boards.")
			return nil
		}
		for _, b := range boards {
			fmt.Fprintln(out, boardLine(b))
		}
		return nil
	}),
}

var (
	boardUpdateAs    string
	boardUpdateTitle string
)

var boardUpdateCmd = &cobra.Command{
	Use:   "update <board-id>",
	Short: "Rename a board",
	Args:  cobra.ExactArgs(1),
	RunE: withBoard(func(cmd *cobra.Command, a *app, s *board.Store, args []string) error {
		var in board.UpdateBoardInput
		if cmd.Flags().Changed("title") {
			in.Title = &boardUpdateTitle
		}
		b, err := s.UpdateBoard(cmd.Context(), entryAgent(a, boardUpdateAs), args[0], in)
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), "✓", "Updated board "+boardLine(b), color.FgGreen)
		return nil
	}),
}

var boardWatchTUI bool

var boardWatchCmd = &cobra.Command{
	Use:   "watch <board-id>",
	Short: "Print a board's tasks and reprint them whenever the board changes",
	Long: `Print a board's tasks and reprint them whenever any herd process writes to
the board database. Stop with Ctrl-C.

With --tui, show an interactive view with task details and filtering.`,
	Args: cobra.ExactArgs(1),
	RunE: withBoard(func(cmd *cobra.Command, a *app, s *board.Store, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		changes, err := s.Watch(ctx)
		if err != nil {
			return err
		}
		if boardWatchTUI {
			return tui.RunBoard(ctx, func(ctx context.Context) (models.Board, []models.Task, error) {
				b, err := s.GetBoard(ctx, args[0])
				if err != nil {
					return models.Board{}, nil, err
				}
				tasks, err := s.ListTasks(ctx, args[0])
				return b, tasks, err
			}, changes)
		}
		if err := printBoardTasks(cmd, s, args[0], out); err != nil {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case _, ok := <-changes:
				if !ok {
					return nil
				}
				fmt.Fprintln(out)
				if err := printBoardTasks(cmd, s, args[0], out); err != nil {
					return err
				}
			}
		}
	}),
}

func printBoardTasks(cmd *cobra.Command, s *board.Store, boardID string, out io.Writer) error {
	ctx := cmd.Context()
	b, err := s.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	tasks, err := s.ListTasks(ctx, boardID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, boardLine(b))
	if len(tasks) == 0 {
		fmt.Fprintln(out, labelStyle.Render("  no tasks"))
	}
	for _, t := range tasks {
		fmt.Fprintln(out, "  "+taskLine(t))
	}
	return nil
}

func init() {
	boardCreateCmd.Flags().StringVar(&boardCreateAs, "as", "", "Acting agent id (default: root agent)")
	boardListCmd.Flags().BoolVar(&boardListJSON, "json", false, "Print boards as JSON")
	boardUpdateCmd.Flags().StringVar(&boardUpdateAs, "as", "", "Acting agent id (default: root agent)")
	boardUpdateCmd.Flags().StringVar(&boardUpdateTitle, "title", "", "New board title")
	boardWatchCmd.Flags().BoolVar(&boardWatchTUI, "tui", false, "Show an interactive board view")

	boardCmd.AddCommand(boardCreateCmd)
	boardCmd.AddCommand(boardListCmd)
	boardCmd.AddCommand(boardUpdateCmd)
	boardCmd.AddCommand(boardWatchCmd)
}
