package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/ShayCichocki/herd/pkg/models"
)

var (
	badgeBase = lipgloss.NewStyle().Bold(true).Padding(0, 1)

	statusBadges = map[models.TaskStatus]lipgloss.Style{
		models.TaskStatusTodo:    badgeBase.Foreground(lipgloss.Color("250")),
		models.TaskStatusDoing:   badgeBase.Foreground(lipgloss.Color("39")),  // Blue
		models.TaskStatusPending: badgeBase.Foreground(lipgloss.Color("214")), // Orange
		models.TaskStatusBlocked: badgeBase.Foreground(lipgloss.Color("196")), // Red
		models.TaskStatusDone:    badgeBase.Foreground(lipgloss.Color("34")),  // Green
	}

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle    = lipgloss.NewStyle().Bold(true)
)

// printStatus prints a status line with color
func printStatus(w io.Writer, symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}

// statusBadge renders a task status for terminal output.
func statusBadge(s models.TaskStatus) string {
	style, ok := statusBadges[s]
	if !ok {
		style = badgeBase
	}
	return style.Render(strings.ToUpper(string(s)))
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// taskLine is the one-line summary used by task listings.
func taskLine(t models.Task) string {
	return fmt.Sprintf("%s %s %s %s",
		idStyle.Render(t.TaskID),
		statusBadge(t.Status),
		t.Title,
		labelStyle.Render("@"+t.AssignedTo),
	)
}

func printTask(w io.Writer, t models.Task) {
	fmt.Fprintf(w, "%s %s\n", idStyle.Render(t.TaskID), statusBadge(t.Status))
	field := func(label, value string) {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", label+":")), value)
	}
	field("Title", t.Title)
	if t.Description != "" {
		field("Description", t.Description)
	}
	field("Board", t.BoardID)
	field("Project", t.Project)
	field("Owner", t.Owner)
	field("Assigned", t.AssignedTo)
	if t.StatusReason != nil {
		field("Reason", *t.StatusReason)
	}
	field("Created", t.CreatedAt.Local().Format(time.DateTime))
	field("Updated", t.UpdatedAt.Local().Format(time.DateTime))

	entries := func(label string, list []models.TaskEntry) {
		if len(list) == 0 {
			return
		}
		fmt.Fprintf(w, "  %s\n", labelStyle.Render(label+":"))
		for _, e := range list {
			fmt.Fprintf(w, "    - %s %s\n", e.Content,
				labelStyle.Render(fmt.Sprintf("(%s, %s)", e.CreatedBy, e.CreatedAt.Local().Format(time.DateTime))))
		}
	}
	entries("Blockers", t.Blockers)
	entries("Artifacts", t.Artifacts)
	entries("Worklog", t.Worklog)
}

func boardLine(b models.Board) string {
	line := fmt.Sprintf("%s %s %s", idStyle.Render(b.BoardID), b.Title, labelStyle.Render("owner:"+b.Owner))
	if b.IsDefault {
		line += " " + labelStyle.Render("(default)")
	}
	return line
}

// routingSummary describes where a message went.
func routingSummary(d models.RoutingDecision) string {
	if !d.Delegated() {
		return fmt.Sprintf("%s kept the request (confidence %.2f): %s", d.EntryAgentID, d.Confidence, d.Reason)
	}
	return fmt.Sprintf("%s -> %s (confidence %.2f): %s", d.EntryAgentID, d.TargetAgentID, d.Confidence, d.Reason)
}
