package models

import (
	"fmt"
	"time"
)

// Message is a single project chat message.
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	ProjectID string    `json:"projectId" yaml:"project_id"`
	Sender    string    `json:"sender" yaml:"sender"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

func (m *Message) Validate() error {
	if m == nil {
		return &ValidationError{Entity: "message", Reason: "is nil"}
	}
	if m.Sender == "" {
		return &ValidationError{Entity: "message", ID: m.ID, Field: "sender", Reason: "is empty"}
	}
	if m.Timestamp.IsZero() {
		return &ValidationError{Entity: "message", ID: m.ID, Field: "timestamp", Reason: "is not set"}
	}
	return nil
}

// ValidateMessages validates every message and, when projectID is non-empty,
// that each message belongs to that project.
func ValidateMessages(projectID string, messages []*Message) error {
	for _, m := range messages {
		if err := m.Validate(); err != nil {
			return err
		}
		if projectID != "" && m.ProjectID != "" && m.ProjectID != projectID {
			return &ValidationError{Entity: "message", ID: m.ID, Field: "projectId", Reason: fmt.Sprintf("belongs to %s, not %s", m.ProjectID, projectID)}
		}
	}
	return nil
}
