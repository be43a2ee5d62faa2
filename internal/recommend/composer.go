package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joescharf/pulse/internal/chat"
	"github.com/joescharf/pulse/internal/health"
	"github.com/joescharf/pulse/internal/priority"
)

// DefaultNarrativeTimeout bounds a NarrativeGenerator call.
const DefaultNarrativeTimeout = 20 * time.Second

// Input is what the composer works from. Chat is optional.
type Input struct {
	Health *health.Report
	Ranked []priority.RankedTask
	Chat   *chat.Summary
	Now    time.Time
}

func (in Input) health() *health.Report {
	if in.Health != nil {
		return in.Health
	}
	return &health.Report{
		RiskLevel:       health.RiskLow,
		RiskFactors:     []health.RiskFactor{},
		UrgentTasks:     []health.UrgentTask{},
		Recommendations: []string{},
		Message:         health.NoTasksMessage,
	}
}

// Metrics is the structured payload handed to a NarrativeGenerator. Baseline
// is the deterministic report the narrative should rephrase.
type Metrics struct {
	ProjectName string                `json:"projectName"`
	Health      *health.Report        `json:"health"`
	Priorities  []priority.RankedTask `json:"priorities"`
	Chat        *chat.Summary         `json:"chat,omitempty"`
	Baseline    *Report               `json:"baseline"`
}

// NarrativeGenerator produces a report with the same shape as the
// deterministic one, typically by asking a language model to phrase it.
type NarrativeGenerator interface {
	Generate(ctx context.Context, m Metrics) (*Report, error)
}

// NarrativeFunc adapts a function to NarrativeGenerator.
type NarrativeFunc func(ctx context.Context, m Metrics) (*Report, error)

func (f NarrativeFunc) Generate(ctx context.Context, m Metrics) (*Report, error) { return f(ctx, m) }

// Composer builds recommendation reports.
type Composer struct {
	narrative NarrativeGenerator
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithNarrative enables narrative enrichment through g.
func WithNarrative(g NarrativeGenerator) Option {
	return func(c *Composer) { c.narrative = g }
}

// WithTimeout sets the narrative deadline. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Composer) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used to report narrative fallbacks.
func WithLogger(l *slog.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewComposer returns a Composer. Without WithNarrative it is purely
// deterministic.
func NewComposer(opts ...Option) *Composer {
	c := &Composer{timeout: DefaultNarrativeTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Narrative reports whether a NarrativeGenerator is configured.
func (c *Composer) Narrative() bool { return c.narrative != nil }

// Compose returns the recommendation report for in. It never fails: when the
// narrative generator errors, times out, panics or returns a malformed
// report, the deterministic report is returned with Source set to
// SourceFallback.
func (c *Composer) Compose(ctx context.Context, in Input) *Report {
	base := Deterministic(in)
	if c.narrative == nil {
		return base
	}

	r, err := c.narrate(ctx, Metrics{
		ProjectName: in.health().ProjectName,
		Health:      in.health(),
		Priorities:  in.Ranked,
		Chat:        in.Chat,
		Baseline:    base,
	})
	if err != nil {
		c.logger.Warn("narrative unavailable, using deterministic recommendations",
			"project", in.health().ProjectID, "error", err)
		base.Source = SourceFallback
		return base
	}
	return r
}

type narrateResult struct {
	report *Report
	err    error
}

func (c *Composer) narrate(ctx context.Context, m Metrics) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan narrateResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- narrateResult{err: fmt.Errorf("narrative generator panicked: %v", p)}
			}
		}()
		r, err := c.narrative.Generate(ctx, m)
		done <- narrateResult{report: r, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("narrative generator: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("narrative generator timed out: %w", res.err)
			}
			return nil, fmt.Errorf("narrative generator: %w", res.err)
		}
		if err := res.report.Validate(); err != nil {
			return nil, err
		}
		r := *res.report
		r.Source = SourceNarrative
		r.normalize()
		return &r, nil
	}
}
