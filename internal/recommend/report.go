// Package recommend composes the recommendation report of a project from
// its health, priority and chat analyses.
package recommend

import (
	"errors"
	"fmt"
	"time"
)

// Severity of a risk.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Urgency of a deadline alert.
type Urgency string

const (
	UrgencyCritical Urgency = "CRITICAL"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyMedium   Urgency = "MEDIUM"
)

// Confidence of a timeline prediction.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Source records how a report was produced.
type Source string

const (
	SourceDeterministic Source = "deterministic"
	SourceNarrative     Source = "narrative"
	SourceFallback      Source = "fallback" // narrative requested but unusable
)

// MaxNextSteps caps Report.NextSteps.
const MaxNextSteps = 5

// ErrMalformed is returned by Report.Validate.
var ErrMalformed = errors.New("malformed recommendation report")

// Risk is one risk with its severity and a way to reduce it.
type Risk struct {
	Risk       string   `json:"risk"`
	Severity   Severity `json:"severity"`
	Mitigation string   `json:"mitigation"`
}

// DeadlineAlert flags an overdue or upcoming task.
type DeadlineAlert struct {
	TaskID        string    `json:"taskId"`
	Title         string    `json:"title"`
	Deadline      time.Time `json:"deadline"`
	DaysRemaining int       `json:"daysRemaining"`
	Urgency       Urgency   `json:"urgency"`
}

// TimelinePrediction estimates when the open work will be finished.
type TimelinePrediction struct {
	OnTrack             bool       `json:"onTrack"`
	EstimatedCompletion *time.Time `json:"estimatedCompletion,omitempty"`
	Confidence          Confidence `json:"confidence"`
	Reasoning           string     `json:"reasoning"`
}

// Report is the composed recommendation report.
type Report struct {
	Summary             string             `json:"summary"`
	NextSteps           []string           `json:"nextSteps"`
	Risks               []Risk             `json:"risks"`
	DeadlineAlerts      []DeadlineAlert    `json:"deadlineAlerts"`
	TeamSuggestions     []string           `json:"teamSuggestions"`
	ProcessImprovements []string           `json:"processImprovements"`
	TimelinePrediction  TimelinePrediction `json:"timelinePrediction"`
	Source              Source             `json:"source"`
}

// Validate checks the shape of a report, typically one produced by a
// NarrativeGenerator.
func (r *Report) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil report", ErrMalformed)
	}
	if r.Summary == "" {
		return fmt.Errorf("%w: empty summary", ErrMalformed)
	}
	if len(r.NextSteps) == 0 || len(r.NextSteps) > MaxNextSteps {
		return fmt.Errorf("%w: %d next steps, want 1 to %d", ErrMalformed, len(r.NextSteps), MaxNextSteps)
	}
	for i, s := range r.NextSteps {
		if s == "" {
			return fmt.Errorf("%w: next step %d is empty", ErrMalformed, i)
		}
	}
	for i, risk := range r.Risks {
		if risk.Risk == "" || risk.Mitigation == "" {
			return fmt.Errorf("%w: risk %d is incomplete", ErrMalformed, i)
		}
		switch risk.Severity {
		case SeverityHigh, SeverityMedium, SeverityLow:
		default:
			return fmt.Errorf("%w: risk %d has severity %q", ErrMalformed, i, risk.Severity)
		}
	}
	for i, a := range r.DeadlineAlerts {
		switch a.Urgency {
		case UrgencyCritical, UrgencyHigh, UrgencyMedium:
		default:
			return fmt.Errorf("%w: deadline alert %d has urgency %q", ErrMalformed, i, a.Urgency)
		}
	}
	switch r.TimelinePrediction.Confidence {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
	default:
		return fmt.Errorf("%w: confidence %q", ErrMalformed, r.TimelinePrediction.Confidence)
	}
	if r.TimelinePrediction.Reasoning == "" {
		return fmt.Errorf("%w: empty timeline reasoning", ErrMalformed)
	}
	return nil
}

// normalize replaces nil lists with empty ones so the report always renders
// the same JSON shape.
func (r *Report) normalize() {
	if r.NextSteps == nil {
		r.NextSteps = []string{}
	}
	if r.Risks == nil {
		r.Risks = []Risk{}
	}
	if r.DeadlineAlerts == nil {
		r.DeadlineAlerts = []DeadlineAlert{}
	}
	if r.TeamSuggestions == nil {
		r.TeamSuggestions = []string{}
	}
	if r.ProcessImprovements == nil {
		r.ProcessImprovements = []string{}
	}
}
