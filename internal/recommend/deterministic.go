package recommend

import (
	"fmt"
	"strings"
	"time"

	"github.com/joescharf/pulse/internal/chat"
	"github.com/joescharf/pulse/internal/health"
	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/priority"
)

// Tasks due within this many days are upcoming.
const alertHorizonDays = 7

var riskPlaybook = map[health.FactorKind]struct {
	severity   Severity
	mitigation string
}{
	health.FactorOverdue: {SeverityHigh,
		"Reassign or re-scope the overdue tasks and agree on new dates with the team."},
	health.FactorDeadline: {SeverityHigh,
		"Cut scope for the next deadline or move more people onto the tasks it depends on."},
	health.FactorVelocity: {SeverityMedium,
		"Split large tasks into smaller ones and clear blockers on in-progress work daily."},
	health.FactorUnassigned: {SeverityMedium,
		"Give every open task an owner during the next planning session."},
}

// Deterministic composes the report from the analyses alone.
func Deterministic(in Input) *Report {
	h := in.health()
	r := &Report{
		Summary:             summary(h),
		NextSteps:           nextSteps(h, in.Ranked),
		Risks:               risks(h),
		DeadlineAlerts:      deadlineAlerts(h),
		TeamSuggestions:     teamSuggestions(h, in.Chat),
		ProcessImprovements: processImprovements(h, in.Ranked, in.Chat),
		TimelinePrediction:  timeline(h, in.Now),
		Source:              SourceDeterministic,
	}
	r.normalize()
	return r
}

func summary(h *health.Report) string {
	m := h.Metrics
	if m.TotalTasks == 0 {
		return health.NoTasksMessage + " Add tasks to start tracking progress."
	}
	name := h.ProjectName
	if name == "" {
		name = "The project"
	}
	s := fmt.Sprintf("%s has completed %d of %d tasks (%d%%) with risk level %s.",
		name, m.CompletedTasks, m.TotalTasks, m.CompletionPercentage, h.RiskLevel)
	if h.IsAtRisk {
		s += fmt.Sprintf(" %d risk %s need attention.", len(h.RiskFactors), plural(len(h.RiskFactors), "factor", "factors"))
	} else {
		s += " " + health.OnTrackMessage
	}
	return s
}

func nextSteps(h *health.Report, ranked []priority.RankedTask) []string {
	var steps []string
	m := h.Metrics

	if m.OverdueTasks > 0 {
		step := fmt.Sprintf("Resolve the %d overdue %s", m.OverdueTasks, plural(m.OverdueTasks, "task", "tasks"))
		if first := firstUrgent(h, func(u health.UrgentTask) bool { return u.Overdue }); first != nil {
			step += fmt.Sprintf(", starting with %q", first.Title)
		}
		steps = append(steps, step+".")
	}
	if u := firstUrgent(h, func(u health.UrgentTask) bool { return !u.Overdue && u.DaysRemaining <= alertHorizonDays }); u != nil {
		steps = append(steps, fmt.Sprintf("Finish %q before its deadline in %d %s.", u.Title, u.DaysRemaining, plural(u.DaysRemaining, "day", "days")))
	}
	if m.InProgressTasks > 0 {
		steps = append(steps, fmt.Sprintf("Close out the %d in-progress %s before starting new work.",
			m.InProgressTasks, plural(m.InProgressTasks, "task", "tasks")))
	}
	if m.UnassignedTasks > 0 {
		steps = append(steps, fmt.Sprintf("Assign owners to the %d unassigned %s.",
			m.UnassignedTasks, plural(m.UnassignedTasks, "task", "tasks")))
	}

	switch {
	case len(ranked) > 0 && ranked[0].Task != nil:
		steps = append(steps, fmt.Sprintf("Pick up the top-priority task %q next.", ranked[0].Task.Title))
	case m.TotalTasks == 0:
		steps = append(steps, "Break the project goal into tasks and assign them.")
	default:
		steps = append(steps, "Review the remaining work and plan the next milestone.")
	}

	if len(steps) > MaxNextSteps {
		steps = steps[:MaxNextSteps]
	}
	return steps
}

func firstUrgent(h *health.Report, match func(health.UrgentTask) bool) *health.UrgentTask {
	for i := range h.UrgentTasks {
		if match(h.UrgentTasks[i]) {
			return &h.UrgentTasks[i]
		}
	}
	return nil
}

func risks(h *health.Report) []Risk {
	out := make([]Risk, 0, len(h.RiskFactors))
	for _, f := range h.RiskFactors {
		play, ok := riskPlaybook[f.Kind]
		if !ok {
			play.severity, play.mitigation = SeverityLow, "Review this risk with the team."
		}
		out = append(out, Risk{Risk: f.Description, Severity: play.severity, Mitigation: play.mitigation})
	}
	return out
}

func deadlineAlerts(h *health.Report) []DeadlineAlert {
	var out []DeadlineAlert
	for _, u := range h.UrgentTasks {
		if u.DaysRemaining > alertHorizonDays {
			continue
		}
		out = append(out, DeadlineAlert{
			TaskID:        u.ID,
			Title:         u.Title,
			Deadline:      u.Deadline,
			DaysRemaining: u.DaysRemaining,
			Urgency:       urgencyFor(u.DaysRemaining),
		})
	}
	return out
}

func urgencyFor(daysRemaining int) Urgency {
	switch {
	case daysRemaining < 0:
		return UrgencyCritical
	case daysRemaining <= 3:
		return UrgencyHigh
	default:
		return UrgencyMedium
	}
}

func teamSuggestions(h *health.Report, c *chat.Summary) []string {
	var out []string
	m := h.Metrics
	if m.TeamSize > 0 {
		open := m.TodoTasks + m.InProgressTasks
		perPerson := float64(open) / float64(m.TeamSize)
		if perPerson > 5 {
			out = append(out, fmt.Sprintf("Each team member carries about %.1f open tasks; consider adding capacity or trimming scope.", perPerson))
		}
	} else if m.TotalTasks > 0 {
		out = append(out, "No team members are assigned to this project yet.")
	}
	if h.HasFactor(health.FactorUnassigned) {
		out = append(out, "Balance the workload by spreading unassigned tasks across the team.")
	}
	if c != nil {
		if c.Stats.ActivityRate < 50 && c.Stats.TotalProjectMembers > 0 {
			out = append(out, fmt.Sprintf("Only %d%% of the team posted in chat recently; check in with quieter members.", c.Stats.ActivityRate))
		}
		var silent []string
		for _, a := range c.AllMemberActivity {
			if a.MessageCount == 0 {
				silent = append(silent, a.Member)
			}
		}
		if len(silent) > 0 && len(silent) < len(c.AllMemberActivity) {
			out = append(out, fmt.Sprintf("Reach out to %s, who %s not posted in the last %d days.",
				strings.Join(silent, ", "), plural(len(silent), "has", "have"), c.Stats.WindowDays))
		}
	}
	if len(out) == 0 {
		out = append(out, "Team workload looks balanced.")
	}
	return out
}

func processImprovements(h *health.Report, ranked []priority.RankedTask, c *chat.Summary) []string {
	var out []string
	m := h.Metrics
	if m.DefaultVelocity && m.TotalTasks > 0 {
		out = append(out, "Mark tasks done as soon as they finish so velocity reflects real progress.")
	}
	noDeadline := 0
	for _, r := range ranked {
		if r.HasReason(priority.ReasonNoDeadline) {
			noDeadline++
		}
	}
	if noDeadline > 0 {
		out = append(out, fmt.Sprintf("Set deadlines on the %d open %s without one.", noDeadline, plural(noDeadline, "task", "tasks")))
	}
	if h.HasFactor(health.FactorVelocity) {
		out = append(out, "Hold a short weekly review to surface blocked work early.")
	}
	if c != nil && c.Stats.MessagesPerDay < 1 {
		out = append(out, "Post brief daily status updates in the project chat.")
	}
	if len(out) == 0 {
		out = append(out, "Keep the current workflow; it is delivering steadily.")
	}
	return out
}

func timeline(h *health.Report, now time.Time) TimelinePrediction {
	m := h.Metrics
	p := TimelinePrediction{OnTrack: !h.IsAtRisk, Confidence: ConfidenceMedium}

	switch {
	case m.DefaultVelocity || h.RiskLevel == health.RiskHigh:
		p.Confidence = ConfidenceLow
	case len(h.RiskFactors) == 0:
		p.Confidence = ConfidenceHigh
	}

	open := m.TodoTasks + m.InProgressTasks
	if m.TotalTasks == 0 {
		p.Confidence = ConfidenceLow
		p.Reasoning = "No tasks to project a timeline from."
		return p
	}

	eta := models.StartOfDay(now).AddDate(0, 0, m.EstimatedDaysToComplete)
	p.EstimatedCompletion = &eta

	if open == 0 {
		p.Reasoning = "All tasks are complete."
		return p
	}
	p.Reasoning = fmt.Sprintf("%d open %s at %.2f tasks/day need about %d %s.",
		open, plural(open, "task", "tasks"), m.TeamVelocity, m.EstimatedDaysToComplete, plural(m.EstimatedDaysToComplete, "day", "days"))
	if m.DefaultVelocity {
		p.Reasoning += " Velocity is assumed because no completions have been recorded."
	}
	if m.DaysUntilDeadline != nil {
		d := *m.DaysUntilDeadline
		if d < 0 {
			p.Reasoning += fmt.Sprintf(" The earliest deadline passed %d %s ago.", -d, plural(-d, "day", "days"))
		} else {
			p.Reasoning += fmt.Sprintf(" The earliest deadline is in %d %s.", d, plural(d, "day", "days"))
		}
	}
	return p
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
