// Package store persists generated projects in a local SQLite database.
// Tasks are stored flat with parent references; the tree is rebuilt on read.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"planforge/internal/hierarchy"
	"planforge/internal/provider"
)

// ErrNotFound is returned when a project id does not exist.
var ErrNotFound = errors.New("project not found")

// Store manages the projects database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// ProjectSummary is one row of a project listing.
type ProjectSummary struct {
	ID        string
	Name      string
	TaskCount int
	CreatedAt time.Time
}

// New creates or opens the projects store at dbPath.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		provider TEXT,
		team_members_json TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		parent_task_id TEXT,
		title TEXT NOT NULL,
		description TEXT,
		duration INTEGER NOT NULL,
		aggregated_duration INTEGER NOT NULL,
		level INTEGER NOT NULL,
		is_main_task INTEGER NOT NULL,
		has_subtasks INTEGER NOT NULL,
		original_order INTEGER NOT NULL,
		module_type TEXT,
		priority TEXT,
		dependencies_json TEXT,
		deliverable TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_task_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveProject stores a project and its full task tree. Saving an existing id
// replaces the previous version.
func (s *Store) SaveProject(ctx context.Context, p *provider.Project, providerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear project: %w", err)
	}

	teamJSON, err := json.Marshal(p.TeamMembers)
	if err != nil {
		return fmt.Errorf("marshal team members: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (id, name, description, provider, team_members_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, providerName, string(teamJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tasks (id, project_id, parent_task_id, title, description, duration,
		 aggregated_duration, level, is_main_task, has_subtasks, original_order,
		 module_type, priority, dependencies_json, deliverable)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare task insert: %w", err)
	}
	defer stmt.Close()

	for _, task := range hierarchy.Flatten(p.Tasks) {
		depsJSON, err := json.Marshal(task.Dependencies)
		if err != nil {
			return fmt.Errorf("marshal dependencies: %w", err)
		}
		var parent any
		if task.ParentTaskID != "" {
			parent = task.ParentTaskID
		}
		_, err = stmt.ExecContext(ctx,
			task.ID, p.ID, parent, task.Title, task.Description, task.Duration,
			task.AggregatedDuration, task.Level, task.IsMainTask, task.HasSubtasks,
			task.OriginalOrder, task.ModuleType, task.Priority, string(depsJSON),
			task.Deliverable)
		if err != nil {
			return fmt.Errorf("insert task %s: %w", task.ID, err)
		}
	}

	return tx.Commit()
}

// GetProject loads one project with its task tree rebuilt.
func (s *Store) GetProject(ctx context.Context, id string) (*provider.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p provider.Project
	var teamJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, team_members_json FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Description, &teamJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if teamJSON.Valid && teamJSON.String != "" && teamJSON.String != "null" {
		if err := json.Unmarshal([]byte(teamJSON.String), &p.TeamMembers); err != nil {
			return nil, fmt.Errorf("decode team members: %w", err)
		}
	}

	tasks, err := s.loadTasks(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Tasks = tasks
	return &p, nil
}

func (s *Store) loadTasks(ctx context.Context, projectID string) ([]hierarchy.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_task_id, title, description, duration, aggregated_duration,
		 level, is_main_task, has_subtasks, original_order, module_type, priority,
		 dependencies_json, deliverable
		 FROM tasks WHERE project_id = ? ORDER BY original_order`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	var flat []hierarchy.Task
	for rows.Next() {
		var t hierarchy.Task
		var parent, depsJSON sql.NullString
		err := rows.Scan(&t.ID, &parent, &t.Title, &t.Description, &t.Duration,
			&t.AggregatedDuration, &t.Level, &t.IsMainTask, &t.HasSubtasks,
			&t.OriginalOrder, &t.ModuleType, &t.Priority, &depsJSON, &t.Deliverable)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.ProjectID = projectID
		t.ParentTaskID = parent.String
		if depsJSON.Valid && depsJSON.String != "" && depsJSON.String != "null" {
			if err := json.Unmarshal([]byte(depsJSON.String), &t.Dependencies); err != nil {
				return nil, fmt.Errorf("decode dependencies for %s: %w", t.ID, err)
			}
		}
		flat = append(flat, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return rebuildTree(flat), nil
}

// rebuildTree nests a flat, order-sorted task list back into a forest.
// Child lists keep the original order because the flat list is already
// sorted by it.
func rebuildTree(flat []hierarchy.Task) []hierarchy.Task {
	known := make(map[string]bool, len(flat))
	for i := range flat {
		known[flat[i].ID] = true
	}

	children := make(map[string][]*hierarchy.Task)
	var roots []*hierarchy.Task
	for i := range flat {
		n := &flat[i]
		if n.ParentTaskID == "" || !known[n.ParentTaskID] {
			roots = append(roots, n)
			continue
		}
		children[n.ParentTaskID] = append(children[n.ParentTaskID], n)
	}

	var materialize func(n *hierarchy.Task) hierarchy.Task
	materialize = func(n *hierarchy.Task) hierarchy.Task {
		out := *n
		out.Subtasks = nil
		for _, c := range children[n.ID] {
			out.Subtasks = append(out.Subtasks, materialize(c))
		}
		return out
	}

	out := make([]hierarchy.Task, 0, len(roots))
	for _, r := range roots {
		out = append(out, materialize(r))
	}
	return out
}

// ListProjects returns all saved projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.name, p.created_at,
		   (SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id)
		 FROM projects p ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []ProjectSummary
	for rows.Next() {
		var ps ProjectSummary
		if err := rows.Scan(&ps.ID, &ps.Name, &ps.CreatedAt, &ps.TaskCount); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

// DeleteProject removes a project and its tasks.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}
