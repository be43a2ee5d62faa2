package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import projects, tasks and chat messages from YAML",
	Long: `Import project snapshots from a YAML file:

  projects:
    - name: apollo
      team_lead: ana
      members: [bo, cy]
      mentors: [prof]
      created_at: 2026-05-04T09:00:00Z
      end_date: 2026-07-01T00:00:00Z
      tasks:
        - title: Login page
          status: in_progress      # todo, in_progress or done
          assignee: bo
          deadline: 2026-05-20T17:00:00Z
      messages:
        - sender: bo
          content: pushed the login form
          timestamp: 2026-05-08T10:12:00Z

Use --dry-run to validate and preview without writing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return importRun(args[0])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// importDoc is the YAML import document.
type importDoc struct {
	Projects []importProject `yaml:"projects"`
}

type importProject struct {
	models.Project `yaml:",inline"`
	Tasks          []*models.Task    `yaml:"tasks"`
	Messages       []*models.Message `yaml:"messages"`
}

// parseImport decodes and validates an import document. Task status
// defaults to todo.
func parseImport(data []byte) (*importDoc, error) {
	var doc importDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}
	if len(doc.Projects) == 0 {
		return nil, fmt.Errorf("import file has no projects")
	}

	seen := make(map[string]bool)
	for i := range doc.Projects {
		p := &doc.Projects[i]
		if p.Name == "" {
			return nil, &models.ValidationError{Entity: "project", Field: "name", Reason: fmt.Sprintf("is empty (entry %d)", i+1)}
		}
		if seen[p.Name] {
			return nil, &models.ValidationError{Entity: "project", ID: p.Name, Reason: "is listed twice"}
		}
		seen[p.Name] = true
		if p.EndDate != nil && !p.CreatedAt.IsZero() && p.EndDate.Before(p.CreatedAt) {
			return nil, &models.ValidationError{Entity: "project", ID: p.Name, Field: "end_date", Reason: "is before created_at"}
		}

		for j, t := range p.Tasks {
			if t == nil || t.Title == "" {
				return nil, &models.ValidationError{Entity: "task", ID: fmt.Sprintf("%s#%d", p.Name, j+1), Field: "title", Reason: "is empty"}
			}
			if t.Status == "" {
				t.Status = models.TaskStatusToDo
			}
			if !t.Status.Valid() {
				return nil, &models.ValidationError{Entity: "task", ID: t.Title, Field: "status", Reason: fmt.Sprintf("unknown value %q", t.Status)}
			}
		}
		if err := models.ValidateMessages("", p.Messages); err != nil {
			return nil, fmt.Errorf("project %s: %w", p.Name, err)
		}
	}
	return &doc, nil
}

// apply writes every project of doc with its tasks and messages.
func (doc *importDoc) apply(ctx context.Context, s store.Store) error {
	for i := range doc.Projects {
		ip := &doc.Projects[i]
		p := ip.Project
		if err := s.CreateProject(ctx, &p); err != nil {
			return fmt.Errorf("import project %s: %w", ip.Name, err)
		}
		for _, t := range ip.Tasks {
			t.ProjectID = p.ID
			if err := s.CreateTask(ctx, t); err != nil {
				return fmt.Errorf("import task %q of %s: %w", t.Title, p.Name, err)
			}
		}
		for _, m := range ip.Messages {
			m.ProjectID = p.ID
			if err := s.CreateMessage(ctx, m); err != nil {
				return fmt.Errorf("import message of %s: %w", p.Name, err)
			}
		}
		ui.VerboseLog("Imported %s (%s)", p.Name, p.ID)
	}
	return nil
}

func importRun(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	doc, err := parseImport(data)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would import %d project(s) from %s", len(doc.Projects), file)
		table := ui.Table([]string{"PROJECT", "LEAD", "TEAM", "TASKS", "MESSAGES"})
		for _, p := range doc.Projects {
			if err := table.Append([]string{
				p.Name,
				p.TeamLead,
				fmt.Sprintf("%d", p.TeamSize()),
				fmt.Sprintf("%d", len(p.Tasks)),
				fmt.Sprintf("%d", len(p.Messages)),
			}); err != nil {
				return err
			}
		}
		return table.Render()
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	if err := doc.apply(context.Background(), s); err != nil {
		return err
	}

	tasks, messages := 0, 0
	for _, p := range doc.Projects {
		tasks += len(p.Tasks)
		messages += len(p.Messages)
	}
	ui.Success("Imported %d project(s), %d task(s), %d message(s)", len(doc.Projects), tasks, messages)
	return nil
}
