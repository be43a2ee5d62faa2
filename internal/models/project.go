package models

import "time"

// Project represents a team project whose tasks and chat are analyzed.
type Project struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	TeamLead  string     `json:"teamLead" yaml:"team_lead"`
	Members   []string   `json:"members" yaml:"members"`
	Mentors   []string   `json:"mentors" yaml:"mentors"`
	CreatedAt time.Time  `json:"createdAt" yaml:"created_at"`
	EndDate   *time.Time `json:"endDate,omitempty" yaml:"end_date"`
}

// TeamSize counts the distinct people expected to complete tasks: the lead
// plus members. Mentors advise but are not counted.
func (p *Project) TeamSize() int {
	seen := make(map[string]bool, len(p.Members)+1)
	for _, u := range append([]string{p.TeamLead}, p.Members...) {
		if u != "" {
			seen[u] = true
		}
	}
	return len(seen)
}

// Roster returns every participant of the project (lead, members, mentors)
// without duplicates, in that order.
func (p *Project) Roster() []string {
	seen := make(map[string]bool)
	var roster []string
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		roster = append(roster, u)
	}
	add(p.TeamLead)
	for _, m := range p.Members {
		add(m)
	}
	for _, m := range p.Mentors {
		add(m)
	}
	return roster
}

// Validate checks that the project is usable as an analysis snapshot root.
func (p *Project) Validate() error {
	if p == nil {
		return &ValidationError{Entity: "project", Reason: "is nil"}
	}
	if p.ID == "" {
		return &ValidationError{Entity: "project", Field: "id", Reason: "is empty"}
	}
	if p.CreatedAt.IsZero() {
		return &ValidationError{Entity: "project", ID: p.ID, Field: "createdAt", Reason: "is not set"}
	}
	if p.EndDate != nil && p.EndDate.Before(p.CreatedAt) {
		return &ValidationError{Entity: "project", ID: p.ID, Field: "endDate", Reason: "is before createdAt"}
	}
	return nil
}
