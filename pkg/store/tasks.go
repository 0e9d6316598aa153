package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskRepository handles reads and writes on the tasks table.
type TaskRepository struct {
	pool *pgxpool.Pool
}

const taskColumns = `id, project_id, tenant_id, kind, title, due_at, submitted_at, escalated_at, deleted_at, created_at`

// TaskFilter narrows ListByTenant. Zero values mean "no constraint".
type TaskFilter struct {
	ProjectID        string
	Kind             TaskKind
	DueFrom          *time.Time
	DueTo            *time.Time
	IncludeSubmitted bool
}

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, t *Task) error {
	query := `
		INSERT INTO tasks (id, project_id, tenant_id, kind, title, due_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query,
		t.ID, t.ProjectID, t.TenantID, t.Kind, t.Title, t.DueAt,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// GetByID retrieves one task scoped to a tenant. Soft-deleted tasks are
// still returned so the audit trail stays inspectable.
func (r *TaskRepository) GetByID(ctx context.Context, tenantID, id string) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND tenant_id = $2`
	task, err := scanTask(r.pool.QueryRow(ctx, query, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return task, err
}

// ListByTenant returns the tenant's live tasks matching the filter,
// ordered by due time ascending.
func (r *TaskRepository) ListByTenant(ctx context.Context, tenantID string, f TaskFilter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE tenant_id = $1 AND deleted_at IS NULL`
	args := []any{tenantID}

	if f.ProjectID != "" {
		args = append(args, f.ProjectID)
		query += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	if f.Kind != "" {
		args = append(args, f.Kind)
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if f.DueFrom != nil {
		args = append(args, *f.DueFrom)
		query += fmt.Sprintf(" AND due_at >= $%d", len(args))
	}
	if f.DueTo != nil {
		args = append(args, *f.DueTo)
		query += fmt.Sprintf(" AND due_at <= $%d", len(args))
	}
	if !f.IncludeSubmitted {
		query += " AND submitted_at IS NULL"
	}
	query += " ORDER BY due_at ASC"

	return r.queryTasks(ctx, query, args...)
}

// ListOverdue returns the tenant's escalation candidates: unsubmitted,
// not deleted, past due at the given instant.
func (r *TaskRepository) ListOverdue(ctx context.Context, tenantID string, now time.Time) ([]Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE tenant_id = $1
		  AND submitted_at IS NULL
		  AND deleted_at IS NULL
		  AND due_at < $2
		ORDER BY due_at ASC
	`
	return r.queryTasks(ctx, query, tenantID, now)
}

// ListDueBetween returns unsubmitted live tasks whose due time falls in
// [from, to]. The reminder job uses this for the warning window.
func (r *TaskRepository) ListDueBetween(ctx context.Context, tenantID string, from, to time.Time) ([]Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE tenant_id = $1
		  AND submitted_at IS NULL
		  AND deleted_at IS NULL
		  AND due_at >= $2
		  AND due_at <= $3
		ORDER BY due_at ASC
	`
	return r.queryTasks(ctx, query, tenantID, from, to)
}

// ListWindow returns all live tasks (submitted or not) due inside the
// window, for digest aggregation.
func (r *TaskRepository) ListWindow(ctx context.Context, tenantID string, from, to time.Time) ([]Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE tenant_id = $1
		  AND deleted_at IS NULL
		  AND due_at >= $2
		  AND due_at <= $3
		ORDER BY due_at ASC
	`
	return r.queryTasks(ctx, query, tenantID, from, to)
}

// Acknowledge records the submission time for a task. The update only
// fires when submitted_at is still NULL, so repeated acknowledgments
// are no-ops and the first write wins. Returns true when this call
// performed the transition.
func (r *TaskRepository) Acknowledge(ctx context.Context, tenantID, id string, now time.Time) (bool, error) {
	query := `
		UPDATE tasks
		SET submitted_at = $3
		WHERE id = $1 AND tenant_id = $2
		  AND submitted_at IS NULL
		  AND deleted_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query, id, tenantID, now)
	if err != nil {
		return false, fmt.Errorf("acknowledging task %s: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	// Distinguish "already submitted" from "no such task".
	if _, err := r.GetByID(ctx, tenantID, id); err != nil {
		return false, err
	}
	return false, nil
}

// MarkEscalated is the escalation cooldown gate. The read-check-write
// is a single conditional update so two overlapping scheduler runs can
// never both claim the same task: whichever update commits first wins
// and the other affects zero rows. Returns true when this call claimed
// the escalation.
func (r *TaskRepository) MarkEscalated(ctx context.Context, id string, now time.Time, cooldown time.Duration) (bool, error) {
	query := `
		UPDATE tasks
		SET escalated_at = $2
		WHERE id = $1
		  AND submitted_at IS NULL
		  AND deleted_at IS NULL
		  AND (escalated_at IS NULL OR escalated_at <= $3)
	`
	tag, err := r.pool.Exec(ctx, query, id, now, now.Add(-cooldown))
	if err != nil {
		return false, fmt.Errorf("marking task %s escalated: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// SoftDelete marks a task deleted. Rows are never removed so the audit
// trail survives.
func (r *TaskRepository) SoftDelete(ctx context.Context, tenantID, id string, now time.Time) error {
	query := `
		UPDATE tasks
		SET deleted_at = $3
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query, id, tenantID, now)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	t := &Task{}
	err := row.Scan(
		&t.ID,
		&t.ProjectID,
		&t.TenantID,
		&t.Kind,
		&t.Title,
		&t.DueAt,
		&t.SubmittedAt,
		&t.EscalatedAt,
		&t.DeletedAt,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
