// Package engine is the entry point to project analytics. It validates
// snapshots, captures the current time once per call and runs the analyzers.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/joescharf/pulse/internal/burndown"
	"github.com/joescharf/pulse/internal/chat"
	"github.com/joescharf/pulse/internal/health"
	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/priority"
	"github.com/joescharf/pulse/internal/recommend"
)

// DefaultChatWindowDays is used when Options.ChatWindowDays is zero.
const DefaultChatWindowDays = 7

// Clock returns the current time.
type Clock func() time.Time

// Snapshot is everything known about one project at analysis time.
type Snapshot struct {
	Project  *models.Project
	Tasks    []*models.Task
	Messages []*models.Message
}

// Options tune Analyze.
type Options struct {
	PriorityLimit  int  // 0 keeps every open task
	ChatWindowDays int  // 0 uses DefaultChatWindowDays
	IncludeChat    bool // analyze messages and feed chat into recommendations
	Narrative      bool // use the narrative composer when one is configured
}

// ProjectReport combines every analysis of one snapshot.
type ProjectReport struct {
	Project         *models.Project       `json:"project"`
	GeneratedAt     time.Time             `json:"generatedAt"`
	Health          *health.Report        `json:"health"`
	Priorities      []priority.RankedTask `json:"priorities"`
	Chat            *chat.Summary         `json:"chat,omitempty"`
	Burndown        *burndown.Series      `json:"burndown"`
	Recommendations *recommend.Report     `json:"recommendations"`
}

// Engine runs the analyzers. It holds no per-project state and is safe for
// concurrent use.
type Engine struct {
	health        *health.Analyzer
	deterministic *recommend.Composer
	narrative     *recommend.Composer
	clock         Clock
	logger        *slog.Logger

	generator        recommend.NarrativeGenerator
	narrativeTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithNarrative enables narrative recommendations through g, bounded by
// timeout (zero keeps the composer default).
func WithNarrative(g recommend.NarrativeGenerator, timeout time.Duration) Option {
	return func(e *Engine) {
		e.generator, e.narrativeTimeout = g, timeout
	}
}

// New returns an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		health: health.NewAnalyzer(),
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.deterministic = recommend.NewComposer(recommend.WithLogger(e.logger))
	if e.generator != nil {
		e.narrative = recommend.NewComposer(
			recommend.WithNarrative(e.generator),
			recommend.WithTimeout(e.narrativeTimeout),
			recommend.WithLogger(e.logger),
		)
	}
	return e
}

// HasNarrative reports whether narrative recommendations are available.
func (e *Engine) HasNarrative() bool { return e.narrative != nil }

func (e *Engine) composer(narrative bool) *recommend.Composer {
	if narrative && e.narrative != nil {
		return e.narrative
	}
	return e.deterministic
}

// ScoreTaskPriorities ranks the open tasks. A negative limit is invalid.
func (e *Engine) ScoreTaskPriorities(tasks []*models.Task, limit int) ([]priority.RankedTask, error) {
	if limit < 0 {
		return nil, models.InvalidParam("limit", limit, "must not be negative")
	}
	if err := models.ValidateTasks("", tasks); err != nil {
		return nil, err
	}
	return priority.Score(tasks, limit, e.clock()), nil
}

// AnalyzeHealth computes the health report of project.
func (e *Engine) AnalyzeHealth(project *models.Project, tasks []*models.Task) (*health.Report, error) {
	if err := validateProjectTasks(project, tasks); err != nil {
		return nil, err
	}
	return e.health.Analyze(project, tasks, e.clock()), nil
}

// AnalyzeChatActivity summarizes the project chat over windowDays.
func (e *Engine) AnalyzeChatActivity(project *models.Project, messages []*models.Message, windowDays int) (*chat.Summary, error) {
	if windowDays <= 0 {
		return nil, models.InvalidParam("windowDays", windowDays, "must be positive")
	}
	if err := validateProjectMessages(project, messages); err != nil {
		return nil, err
	}
	return chat.Analyze(project.Roster(), messages, windowDays, e.clock()), nil
}

// ChatTrends compares the project chat over the 7, 14 and 30 day windows.
func (e *Engine) ChatTrends(project *models.Project, messages []*models.Message) (*chat.TrendReport, error) {
	if err := validateProjectMessages(project, messages); err != nil {
		return nil, err
	}
	return chat.Trends(project.Roster(), messages, e.clock()), nil
}

// BuildBurndown builds the daily burndown series of project.
func (e *Engine) BuildBurndown(project *models.Project, tasks []*models.Task) (*burndown.Series, error) {
	if err := validateProjectTasks(project, tasks); err != nil {
		return nil, err
	}
	return burndown.Build(project, tasks, e.clock()), nil
}

// ComposeRecommendations builds the recommendation report from finished
// analyses. chatSummary may be nil. The narrative composer is used when
// configured; its failures never surface.
func (e *Engine) ComposeRecommendations(ctx context.Context, h *health.Report, ranked []priority.RankedTask, chatSummary *chat.Summary) (*recommend.Report, error) {
	if h == nil {
		return nil, models.InvalidParam("health", nil, "is required")
	}
	return e.composer(true).Compose(ctx, recommend.Input{
		Health: h,
		Ranked: ranked,
		Chat:   chatSummary,
		Now:    e.clock(),
	}), nil
}

// Analyze runs every analyzer on snap concurrently and composes the
// recommendations from their results.
func (e *Engine) Analyze(ctx context.Context, snap Snapshot, opts Options) (*ProjectReport, error) {
	if opts.PriorityLimit < 0 {
		return nil, models.InvalidParam("limit", opts.PriorityLimit, "must not be negative")
	}
	if opts.ChatWindowDays < 0 {
		return nil, models.InvalidParam("windowDays", opts.ChatWindowDays, "must be positive")
	}
	if opts.ChatWindowDays == 0 {
		opts.ChatWindowDays = DefaultChatWindowDays
	}
	if err := validateProjectTasks(snap.Project, snap.Tasks); err != nil {
		return nil, err
	}
	if opts.IncludeChat {
		if err := models.ValidateMessages(snap.Project.ID, snap.Messages); err != nil {
			return nil, err
		}
	}

	now := e.clock()
	r := &ProjectReport{Project: snap.Project, GeneratedAt: now}
	var ranked []priority.RankedTask

	var wg conc.WaitGroup
	wg.Go(func() { r.Health = e.health.Analyze(snap.Project, snap.Tasks, now) })
	wg.Go(func() { ranked = priority.Score(snap.Tasks, 0, now) })
	wg.Go(func() { r.Burndown = burndown.Build(snap.Project, snap.Tasks, now) })
	if opts.IncludeChat {
		wg.Go(func() {
			r.Chat = chat.Analyze(snap.Project.Roster(), snap.Messages, opts.ChatWindowDays, now)
		})
	}
	if p := wg.WaitAndRecover(); p != nil {
		return nil, fmt.Errorf("analyze project %s: %w", snap.Project.ID, p.AsError())
	}

	r.Priorities = ranked
	if opts.PriorityLimit > 0 && len(ranked) > opts.PriorityLimit {
		r.Priorities = ranked[:opts.PriorityLimit]
	}

	r.Recommendations = e.composer(opts.Narrative).Compose(ctx, recommend.Input{
		Health: r.Health,
		Ranked: ranked,
		Chat:   r.Chat,
		Now:    now,
	})

	e.logger.Debug("project analyzed",
		"project", snap.Project.ID,
		"tasks", len(snap.Tasks),
		"risk", r.Health.RiskLevel,
		"source", r.Recommendations.Source)
	return r, nil
}

func validateProjectTasks(project *models.Project, tasks []*models.Task) error {
	if err := project.Validate(); err != nil {
		return err
	}
	return models.ValidateTasks(project.ID, tasks)
}

func validateProjectMessages(project *models.Project, messages []*models.Message) error {
	if err := project.Validate(); err != nil {
		return err
	}
	return models.ValidateMessages(project.ID, messages)
}
