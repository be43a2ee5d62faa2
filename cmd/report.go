package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/pulse/internal/engine"
)

var (
	reportFormat string
	reportAI     bool
	reportLimit  int
)

var reportCmd = &cobra.Command{
	Use:   "report <project>",
	Short: "Export a full project report as JSON or Markdown",
	Long:  "Run every analysis on a project and export health, priorities, chat activity, burndown and recommendations.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("limit") {
			reportLimit = viper.GetInt("analytics.priority_limit")
		}
		return reportRun(args[0])
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "markdown", "Output format: json, markdown")
	reportCmd.Flags().BoolVar(&reportAI, "ai", false, "Use the narrative service for recommendations")
	reportCmd.Flags().IntVarP(&reportLimit, "limit", "l", 10, "Maximum prioritized tasks (0 for all)")
	rootCmd.AddCommand(reportCmd)
}

func reportRun(ref string) error {
	if reportFormat != "json" && reportFormat != "markdown" {
		return fmt.Errorf("unknown format: %s (use: json, markdown)", reportFormat)
	}
	snap, err := loadSnapshot(ref)
	if err != nil {
		return err
	}
	e := newEngine()
	r, err := e.Analyze(context.Background(), *snap, engine.Options{
		PriorityLimit:  reportLimit,
		ChatWindowDays: viper.GetInt("analytics.chat_window_days"),
		IncludeChat:    true,
		Narrative:      wantNarrative(e, reportAI),
	})
	if err != nil {
		return err
	}

	if reportFormat == "json" {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return writeMarkdown(ui.Out, r)
}

// writeMarkdown renders r as a Markdown document.
func writeMarkdown(w io.Writer, r *engine.ProjectReport) error {
	var b strings.Builder
	h, rec := r.Health, r.Recommendations
	m := h.Metrics

	fmt.Fprintf(&b, "# %s\n\n", r.Project.Name)
	fmt.Fprintf(&b, "_Generated %s_\n\n", r.GeneratedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "%s\n\n", rec.Summary)

	b.WriteString("## Health\n\n")
	fmt.Fprintf(&b, "**Risk:** %s. %s\n\n", h.RiskLevel, h.Message)
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Tasks | %d (%d%% done) |\n", m.TotalTasks, m.CompletionPercentage)
	fmt.Fprintf(&b, "| In progress / todo | %d / %d |\n", m.InProgressTasks, m.TodoTasks)
	fmt.Fprintf(&b, "| Overdue | %d |\n", m.OverdueTasks)
	fmt.Fprintf(&b, "| Unassigned | %d |\n", m.UnassignedTasks)
	fmt.Fprintf(&b, "| Velocity | %.2f tasks/day |\n", m.TeamVelocity)
	fmt.Fprintf(&b, "| Days to complete | %d |\n", m.EstimatedDaysToComplete)
	if m.DaysUntilDeadline != nil {
		fmt.Fprintf(&b, "| Days to deadline | %d |\n", *m.DaysUntilDeadline)
	}
	b.WriteString("\n")
	for _, f := range h.RiskFactors {
		fmt.Fprintf(&b, "- %s\n", f.Description)
	}
	if len(h.RiskFactors) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("## Priorities\n\n")
	if len(r.Priorities) == 0 {
		b.WriteString("No open tasks.\n\n")
	} else {
		b.WriteString("| Score | Level | Task | Assignee | Reasons |\n|-------|-------|------|----------|---------|\n")
		for _, p := range r.Priorities {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
				p.Score, p.Level, p.Task.Title, orDash(p.Task.Assignee), strings.Join(p.Reasons, ", "))
		}
		b.WriteString("\n")
	}

	if r.Chat != nil {
		st := r.Chat.Stats
		b.WriteString("## Chat activity\n\n")
		fmt.Fprintf(&b, "%d messages in the last %d days; %d of %d members active (%d%%).\n\n",
			st.TotalMessages, st.WindowDays, st.ActiveMembers, st.TotalProjectMembers, st.ActivityRate)
		for _, in := range r.Chat.Insights {
			fmt.Fprintf(&b, "- %s\n", in)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Burndown\n\n")
	if len(r.Burndown.Points) == 0 {
		b.WriteString("No tasks yet.\n\n")
	} else {
		b.WriteString("| Date | Remaining | |\n|------|-----------|---|\n")
		for _, p := range r.Burndown.Points {
			note := ""
			if p.Projected {
				note = "projected"
			}
			fmt.Fprintf(&b, "| %s | %d | %s |\n", p.Date.Format(dateFmt), p.RemainingTasks, note)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Recommendations\n\n### Next steps\n\n")
	for i, s := range rec.NextSteps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	if len(rec.Risks) > 0 {
		b.WriteString("\n### Risks\n\n")
		for _, k := range rec.Risks {
			fmt.Fprintf(&b, "- **%s** %s: %s\n", k.Severity, k.Risk, k.Mitigation)
		}
	}
	if len(rec.DeadlineAlerts) > 0 {
		b.WriteString("\n### Deadline alerts\n\n")
		for _, a := range rec.DeadlineAlerts {
			fmt.Fprintf(&b, "- **%s** %s, due %s (%d days)\n", a.Urgency, a.Title, a.Deadline.Format(dateFmt), a.DaysRemaining)
		}
	}
	if len(rec.TeamSuggestions) > 0 {
		b.WriteString("\n### Team\n\n")
		for _, s := range rec.TeamSuggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	if len(rec.ProcessImprovements) > 0 {
		b.WriteString("\n### Process\n\n")
		for _, s := range rec.ProcessImprovements {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	tp := rec.TimelinePrediction
	b.WriteString("\n### Timeline\n\n")
	eta := "unknown"
	if tp.EstimatedCompletion != nil {
		eta = tp.EstimatedCompletion.Format(dateFmt)
	}
	fmt.Fprintf(&b, "On track: %t. Estimated completion %s, %s confidence. %s\n", tp.OnTrack, eta, tp.Confidence, tp.Reasoning)

	_, err := io.WriteString(w, b.String())
	return err
}
