package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/pulse/internal/burndown"
	"github.com/joescharf/pulse/internal/chat"
	"github.com/joescharf/pulse/internal/engine"
	"github.com/joescharf/pulse/internal/health"
	"github.com/joescharf/pulse/internal/output"
	"github.com/joescharf/pulse/internal/priority"
	"github.com/joescharf/pulse/internal/recommend"
)

var (
	prioritiesLimit int
	chatDays        int
	chatTrends      bool
	recommendAI     bool
)

const dateFmt = "2006-01-02"

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectsRun()
	},
}

var healthCmd = &cobra.Command{
	Use:   "health <project>",
	Short: "Show project health and risk factors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return healthRun(args[0])
	},
}

var prioritiesCmd = &cobra.Command{
	Use:   "priorities <project>",
	Short: "Rank open tasks by priority",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("limit") {
			prioritiesLimit = viper.GetInt("analytics.priority_limit")
		}
		return prioritiesRun(args[0], prioritiesLimit)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat <project>",
	Short: "Summarize team chat activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("days") {
			chatDays = viper.GetInt("analytics.chat_window_days")
		}
		return chatRun(args[0], chatDays, chatTrends)
	},
}

var burndownCmd = &cobra.Command{
	Use:   "burndown <project>",
	Short: "Show the daily burndown of remaining tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return burndownRun(args[0])
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <project>",
	Short: "Recommend next steps, risks and deadline alerts",
	Long: `Recommend next steps, risks and deadline alerts for a project.

With --ai (or narrative.enabled) the recommendations are written by the
narrative service; if it is unavailable the built-in rules are used.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return recommendRun(args[0], recommendAI)
	},
}

func init() {
	prioritiesCmd.Flags().IntVarP(&prioritiesLimit, "limit", "l", 10, "Maximum tasks to show (0 for all)")
	chatCmd.Flags().IntVarP(&chatDays, "days", "d", engine.DefaultChatWindowDays, "Activity window in days")
	chatCmd.Flags().BoolVar(&chatTrends, "trends", false, "Compare the 7, 14 and 30 day windows")
	recommendCmd.Flags().BoolVar(&recommendAI, "ai", false, "Use the narrative service")

	rootCmd.AddCommand(projectsCmd, healthCmd, prioritiesCmd, chatCmd, burndownCmd, recommendCmd)
}

// loadSnapshot resolves ref by ID or name and loads its full history.
func loadSnapshot(ref string) (*engine.Snapshot, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	return engine.Load(context.Background(), s, ref, time.Time{})
}

func projectsRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	projects, err := s.ListProjects(context.Background())
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		ui.Info("No projects. Import some with: pulse import <file.yaml>")
		return nil
	}

	table := ui.Table([]string{"NAME", "LEAD", "TEAM", "CREATED", "ENDS", "ID"})
	for _, p := range projects {
		ends := "-"
		if p.EndDate != nil {
			ends = p.EndDate.Format(dateFmt)
		}
		if err := table.Append([]string{
			output.Cyan(p.Name),
			p.TeamLead,
			fmt.Sprintf("%d", p.TeamSize()),
			p.CreatedAt.Format(dateFmt),
			ends,
			p.ID,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func healthRun(ref string) error {
	snap, err := loadSnapshot(ref)
	if err != nil {
		return err
	}
	r, err := newEngine().AnalyzeHealth(snap.Project, snap.Tasks)
	if err != nil {
		return err
	}
	printHealth(r)
	return nil
}

func printHealth(r *health.Report) {
	m := r.Metrics
	fmt.Fprintf(ui.Out, "%s  risk %s\n", output.Cyan(r.ProjectName), output.LevelColor(string(r.RiskLevel)))
	fmt.Fprintf(ui.Out, "  %s\n\n", r.Message)
	if m.TotalTasks == 0 {
		return
	}

	fmt.Fprintf(ui.Out, "  Progress    %s %s (%d/%d done)\n",
		output.Bar(m.CompletedTasks, m.TotalTasks, 20), output.PercentColor(m.CompletionPercentage),
		m.CompletedTasks, m.TotalTasks)
	fmt.Fprintf(ui.Out, "  Open        %d in progress, %d todo, %d overdue, %d unassigned\n",
		m.InProgressTasks, m.TodoTasks, m.OverdueTasks, m.UnassignedTasks)
	velocity := fmt.Sprintf("%.2f tasks/day", m.TeamVelocity)
	if m.DefaultVelocity {
		velocity += " (assumed)"
	}
	fmt.Fprintf(ui.Out, "  Velocity    %s, ~%d days to finish\n", velocity, m.EstimatedDaysToComplete)
	if m.DaysUntilDeadline != nil {
		fmt.Fprintf(ui.Out, "  Deadline    %d days\n", *m.DaysUntilDeadline)
	}

	if len(r.RiskFactors) > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "Risk factors:")
		for _, f := range r.RiskFactors {
			fmt.Fprintf(ui.Out, "  %s %s\n", output.Red("!"), f.Description)
		}
	}
	if len(r.UrgentTasks) > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "Urgent tasks:")
		for _, u := range r.UrgentTasks {
			when := fmt.Sprintf("due in %d days", u.DaysRemaining)
			if u.Overdue {
				when = output.Red(fmt.Sprintf("overdue by %d days", -u.DaysRemaining))
			}
			fmt.Fprintf(ui.Out, "  %-32s %s  %s\n", u.Title, when, orDash(u.Assignee))
		}
	}
	if len(r.Recommendations) > 0 {
		fmt.Fprintln(ui.Out)
		for _, rec := range r.Recommendations {
			fmt.Fprintf(ui.Out, "  %s %s\n", output.Green("\u2192"), rec)
		}
	}
}

func prioritiesRun(ref string, limit int) error {
	snap, err := loadSnapshot(ref)
	if err != nil {
		return err
	}
	ranked, err := newEngine().ScoreTaskPriorities(snap.Tasks, limit)
	if err != nil {
		return err
	}
	return printPriorities(ranked)
}

func printPriorities(ranked []priority.RankedTask) error {
	if len(ranked) == 0 {
		ui.Success("No open tasks")
		return nil
	}
	table := ui.Table([]string{"SCORE", "LEVEL", "TASK", "STATUS", "ASSIGNEE", "DEADLINE", "REASONS"})
	for _, r := range ranked {
		deadline := "-"
		if r.Task.Deadline != nil {
			deadline = r.Task.Deadline.Format(dateFmt)
		}
		if err := table.Append([]string{
			fmt.Sprintf("%d", r.Score),
			output.LevelColor(string(r.Level)),
			r.Task.Title,
			output.StatusColor(string(r.Task.Status)),
			orDash(r.Task.Assignee),
			deadline,
			strings.Join(r.Reasons, ", "),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func chatRun(ref string, days int, trends bool) error {
	snap, err := loadSnapshot(ref)
	if err != nil {
		return err
	}
	e := newEngine()
	if trends {
		tr, err := e.ChatTrends(snap.Project, snap.Messages)
		if err != nil {
			return err
		}
		return printChatTrends(tr)
	}
	s, err := e.AnalyzeChatActivity(snap.Project, snap.Messages, days)
	if err != nil {
		return err
	}
	return printChat(s)
}

func printChat(s *chat.Summary) error {
	st := s.Stats
	fmt.Fprintf(ui.Out, "Last %d days: %d messages, %.1f/day, avg %d chars, %d/%d members active (%s)\n\n",
		st.WindowDays, st.TotalMessages, st.MessagesPerDay, st.AverageMessageLength,
		st.ActiveMembers, st.TotalProjectMembers, output.PercentColor(st.ActivityRate))

	top := 0
	if len(s.AllMemberActivity) > 0 {
		top = s.AllMemberActivity[0].MessageCount
	}
	table := ui.Table([]string{"MEMBER", "MESSAGES", ""})
	for _, m := range s.AllMemberActivity {
		if err := table.Append([]string{m.Member, fmt.Sprintf("%d", m.MessageCount), output.Bar(m.MessageCount, top, 20)}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintln(ui.Out)
	for _, in := range s.Insights {
		fmt.Fprintf(ui.Out, "  %s %s\n", output.Green("\u2192"), in)
	}
	return nil
}

func printChatTrends(tr *chat.TrendReport) error {
	table := ui.Table([]string{"WINDOW", "MESSAGES", "PER DAY", "ACTIVE", "RATE"})
	for _, s := range []*chat.Summary{tr.Week, tr.Fortnight, tr.Month} {
		st := s.Stats
		if err := table.Append([]string{
			fmt.Sprintf("%d days", st.WindowDays),
			fmt.Sprintf("%d", st.TotalMessages),
			fmt.Sprintf("%.1f", st.MessagesPerDay),
			fmt.Sprintf("%d/%d", st.ActiveMembers, st.TotalProjectMembers),
			output.PercentColor(st.ActivityRate),
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	t := tr.Trend
	fmt.Fprintf(ui.Out, "\nWeek over week: %s %+.1f%% (%d vs %d messages)\n", t.Direction, t.Percentage, t.Latest, t.Previous)
	return nil
}

func burndownRun(ref string) error {
	snap, err := loadSnapshot(ref)
	if err != nil {
		return err
	}
	s, err := newEngine().BuildBurndown(snap.Project, snap.Tasks)
	if err != nil {
		return err
	}
	printBurndown(s)
	return nil
}

func printBurndown(s *burndown.Series) {
	if len(s.Points) == 0 {
		ui.Info("No tasks yet")
		return
	}
	fmt.Fprintf(ui.Out, "%s to %s: %d of %d tasks remaining\n\n",
		s.ProjectStartDate.Format(dateFmt), s.ProjectEndDate.Format(dateFmt),
		s.CurrentRemainingTasks, s.TotalInitialTasks)
	for _, p := range s.Points {
		bar := output.Bar(p.RemainingTasks, s.TotalInitialTasks, 30)
		if p.Projected {
			bar = output.Yellow(bar)
		}
		fmt.Fprintf(ui.Out, "  %s %3d %s\n", p.Date.Format(dateFmt), p.RemainingTasks, bar)
	}
}

func recommendRun(ref string, ai bool) error {
	snap, err := loadSnapshot(ref)
	if err != nil {
		return err
	}
	e := newEngine()
	r, err := e.Analyze(context.Background(), *snap, engine.Options{
		IncludeChat:    true,
		ChatWindowDays: viper.GetInt("analytics.chat_window_days"),
		Narrative:      wantNarrative(e, ai),
	})
	if err != nil {
		return err
	}
	printRecommendations(r.Recommendations)
	return nil
}

func printRecommendations(r *recommend.Report) {
	if r.Source == recommend.SourceFallback {
		ui.Warning("Narrative service unavailable; showing built-in recommendations")
	}
	fmt.Fprintf(ui.Out, "%s\n\n", r.Summary)

	fmt.Fprintln(ui.Out, "Next steps:")
	for i, s := range r.NextSteps {
		fmt.Fprintf(ui.Out, "  %d. %s\n", i+1, s)
	}
	if len(r.Risks) > 0 {
		fmt.Fprintln(ui.Out, "\nRisks:")
		for _, k := range r.Risks {
			fmt.Fprintf(ui.Out, "  [%s] %s\n        %s\n", output.LevelColor(string(k.Severity)), k.Risk, k.Mitigation)
		}
	}
	if len(r.DeadlineAlerts) > 0 {
		fmt.Fprintln(ui.Out, "\nDeadline alerts:")
		for _, a := range r.DeadlineAlerts {
			fmt.Fprintf(ui.Out, "  [%s] %s (%s, %d days)\n", output.LevelColor(string(a.Urgency)), a.Title, a.Deadline.Format(dateFmt), a.DaysRemaining)
		}
	}
	for _, section := range []struct {
		title string
		items []string
	}{
		{"Team", r.TeamSuggestions},
		{"Process", r.ProcessImprovements},
	} {
		if len(section.items) == 0 {
			continue
		}
		fmt.Fprintf(ui.Out, "\n%s:\n", section.title)
		for _, s := range section.items {
			fmt.Fprintf(ui.Out, "  %s %s\n", output.Green("\u2192"), s)
		}
	}

	tp := r.TimelinePrediction
	eta := "unknown"
	if tp.EstimatedCompletion != nil {
		eta = tp.EstimatedCompletion.Format(dateFmt)
	}
	track := output.Green("on track")
	if !tp.OnTrack {
		track = output.Red("off track")
	}
	fmt.Fprintf(ui.Out, "\nTimeline: %s, estimated completion %s (%s confidence)\n  %s\n", track, eta, tp.Confidence, tp.Reasoning)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
