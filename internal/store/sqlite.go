package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/pulse/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection serializes access; SQLite has a single writer and the
	// API serves concurrent requests.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", strings.ToLower(strings.TrimPrefix(pragma, "PRAGMA ")), err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// --- Projects ---

// CreateProject inserts p with its members and mentors. A zero CreatedAt is
// set to the current time; imported history keeps its own dates.
func (s *SQLiteStore) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = newULID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.CreatedAt = p.CreatedAt.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO projects (id, name, team_lead, created_at, end_date) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.TeamLead, p.CreatedAt, nullTime(p.EndDate),
	); err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	insert := func(role string, people []string) error {
		for i, who := range people {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO project_members (project_id, member, role, position) VALUES (?, ?, ?, ?)`,
				p.ID, who, role, i,
			); err != nil {
				return fmt.Errorf("add project %s %s: %w", role, who, err)
			}
		}
		return nil
	}
	if err := insert("member", p.Members); err != nil {
		return err
	}
	if err := insert("mentor", p.Mentors); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const projectColumns = `id, name, team_lead, created_at, end_date`

func scanProject(row interface{ Scan(...any) error }) (*models.Project, error) {
	p := &models.Project{}
	var endDate sql.NullTime
	if err := row.Scan(&p.ID, &p.Name, &p.TeamLead, &p.CreatedAt, &endDate); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.EndDate = timePtr(endDate)
	return p, nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return s.getProject(ctx, "id", id)
}

func (s *SQLiteStore) GetProjectByName(ctx context.Context, name string) (*models.Project, error) {
	return s.getProject(ctx, "name", name)
}

func (s *SQLiteStore) getProject(ctx context.Context, column, value string) (*models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE `+column+` = ?`, value))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %s: %w", value, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if err := s.loadMembers(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	// Members are loaded after the cursor is closed; the pool has one connection.
	for _, p := range projects {
		if err := s.loadMembers(ctx, p); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

func (s *SQLiteStore) loadMembers(ctx context.Context, p *models.Project) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT member, role FROM project_members WHERE project_id = ? ORDER BY role, position`, p.ID)
	if err != nil {
		return fmt.Errorf("list project members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	p.Members, p.Mentors = []string{}, []string{}
	for rows.Next() {
		var member, role string
		if err := rows.Scan(&member, &role); err != nil {
			return fmt.Errorf("scan project member: %w", err)
		}
		if role == "mentor" {
			p.Mentors = append(p.Mentors, member)
		} else {
			p.Members = append(p.Members, member)
		}
	}
	return rows.Err()
}

// --- Tasks ---

// CreateTask inserts t. A zero CreatedAt defaults to the current time and a
// zero UpdatedAt to CreatedAt, except on done tasks, where UpdatedAt is the
// completion time and stays unset when unknown.
func (s *SQLiteStore) CreateTask(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		t.ID = newULID()
	}
	if t.Status == "" {
		t.Status = models.TaskStatusToDo
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() && t.Status != models.TaskStatusDone {
		t.UpdatedAt = t.CreatedAt
	}
	t.CreatedAt = t.CreatedAt.UTC()
	var updated *time.Time
	if !t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.UpdatedAt.UTC()
		updated = &t.UpdatedAt
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, project_id, title, description, status, assignee, deadline, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Title, t.Description, string(t.Status), t.Assignee,
		nullTime(t.Deadline), t.CreatedAt, nullTime(updated),
	)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// UpdateTask saves t and stamps UpdatedAt, which doubles as the completion
// time of done tasks.
func (s *SQLiteStore) UpdateTask(ctx context.Context, t *models.Task) error {
	t.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title=?, description=?, status=?, assignee=?, deadline=?, updated_at=? WHERE id=?`,
		t.Title, t.Description, string(t.Status), t.Assignee, nullTime(t.Deadline), t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]*models.Task, error) {
	query := `SELECT id, project_id, title, description, status, assignee, deadline, created_at, updated_at FROM tasks`
	var conditions []string
	var args []any

	if filter.ProjectID != "" {
		conditions = append(conditions, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Assignee != "" {
		conditions = append(conditions, "assignee = ?")
		args = append(args, filter.Assignee)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*models.Task
	for rows.Next() {
		t := &models.Task{}
		var status string
		var deadline, updated sql.NullTime
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &status, &t.Assignee,
			&deadline, &t.CreatedAt, &updated); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Status = models.TaskStatus(status)
		t.Deadline = timePtr(deadline)
		t.CreatedAt = t.CreatedAt.UTC()
		if updated.Valid {
			t.UpdatedAt = updated.Time.UTC()
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// --- Messages ---

func (s *SQLiteStore) CreateMessage(ctx context.Context, m *models.Message) error {
	if m.ID == "" {
		m.ID = newULID()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	m.Timestamp = m.Timestamp.UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, project_id, sender, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ProjectID, m.Sender, m.Content, m.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListMessages returns messages oldest first. Since is applied after the
// rows are decoded: stored timestamps are text and do not compare reliably
// in SQL.
func (s *SQLiteStore) ListMessages(ctx context.Context, filter MessageFilter) ([]*models.Message, error) {
	query := `SELECT id, project_id, sender, content, timestamp FROM messages`
	var args []any
	if filter.ProjectID != "" {
		query += " WHERE project_id = ?"
		args = append(args, filter.ProjectID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []*models.Message
	for rows.Next() {
		m := &models.Message{}
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Sender, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Timestamp = m.Timestamp.UTC()
		if !filter.Since.IsZero() && m.Timestamp.Before(filter.Since) {
			continue
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}
