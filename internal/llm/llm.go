package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"github.com/joescharf/pulse/internal/recommend"
)

// completeFunc sends one system/user prompt pair and returns the text reply.
type completeFunc func(ctx context.Context, system, user string) (string, error)

// Narrator phrases recommendation reports with Claude. It implements
// recommend.NarrativeGenerator.
type Narrator struct {
	complete completeFunc
	breaker  *gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// NewNarrator creates a Narrator with the given API key and model.
func NewNarrator(apiKey, model string, logger *slog.Logger) *Narrator {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return newNarrator(messagesCompleter(&client, anthropic.Model(model)), logger)
}

func newNarrator(complete completeFunc, logger *slog.Logger) *Narrator {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Narrator{complete: complete, logger: logger}
	n.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "narrative",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return n
}

func messagesCompleter(api *anthropic.Client, model anthropic.Model) completeFunc {
	return func(ctx context.Context, system, user string) (string, error) {
		msg, err := api.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     model,
			MaxTokens: 2048,
			System: []anthropic.TextBlockParam{
				{Text: system},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
			},
		})
		if err != nil {
			return "", fmt.Errorf("anthropic API call: %w", err)
		}
		for _, block := range msg.Content {
			if block.Type == "text" {
				return block.Text, nil
			}
		}
		return "", fmt.Errorf("no text content in API response")
	}
}

const systemPrompt = `You write recommendation reports for software project teams. You receive a JSON object with the project's health analysis, ranked open tasks, optional chat activity, and a "baseline" report. Rewrite the baseline in clear, encouraging, specific language. Return ONLY a JSON object with exactly these fields:

- "summary": 2-3 sentence overview of project status
- "nextSteps": array of 1 to 5 concrete actions, most important first
- "risks": array of {"risk", "severity", "mitigation"}; severity is one of "HIGH", "MEDIUM", "LOW"
- "deadlineAlerts": array of {"taskId", "title", "deadline", "daysRemaining", "urgency"}; urgency is one of "CRITICAL", "HIGH", "MEDIUM"
- "teamSuggestions": array of strings
- "processImprovements": array of strings
- "timelinePrediction": {"onTrack", "estimatedCompletion", "confidence", "reasoning"}; confidence is one of "high", "medium", "low"

Rules:
- Do not invent tasks, people, dates or numbers that are not in the input
- Keep every risk and deadline alert from the baseline
- Return valid JSON only, no markdown fencing or explanation`

// buildPrompt constructs the system and user prompts for a report.
func buildPrompt(m recommend.Metrics) (system string, user string, err error) {
	payload, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode metrics: %w", err)
	}
	var sb strings.Builder
	if m.ProjectName != "" {
		sb.WriteString("Project: ")
		sb.WriteString(m.ProjectName)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Metrics:\n\n")
	sb.Write(payload)
	return systemPrompt, sb.String(), nil
}

// Generate asks the model for a report. Once the breaker opens, calls fail
// immediately until it half-opens again.
func (n *Narrator) Generate(ctx context.Context, m recommend.Metrics) (*recommend.Report, error) {
	system, user, err := buildPrompt(m)
	if err != nil {
		return nil, err
	}

	out, err := n.breaker.Execute(func() (interface{}, error) {
		text, err := n.complete(ctx, system, user)
		if err != nil {
			return nil, err
		}
		return parseReport(text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			n.logger.Debug("narrative breaker rejected call", "state", n.breaker.State().String())
		}
		return nil, err
	}
	return out.(*recommend.Report), nil
}

// parseReport decodes a reply into a report. Unknown fields, trailing data
// and shape violations are errors.
func parseReport(text string) (*recommend.Report, error) {
	text = stripFence(text)
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.DisallowUnknownFields()
	var r recommend.Report
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("parse LLM response as JSON: trailing data after report")
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// stripFence removes markdown code fencing if present.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		} else {
			text = ""
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
