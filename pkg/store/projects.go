package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProjectRepository handles project lookups. Projects are read-only
// from this subsystem's perspective.
type ProjectRepository struct {
	pool *pgxpool.Pool
}

const projectColumns = `id, tenant_id, name, category, manager_email, owner_email, supervisor_phone, contacts, at_risk_minutes, red_minutes`

// GetByID retrieves one project scoped to a tenant.
func (r *ProjectRepository) GetByID(ctx context.Context, tenantID, id string) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND tenant_id = $2`
	p, err := scanProject(r.pool.QueryRow(ctx, query, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// ListByTenant returns all of a tenant's projects ordered by name, the
// stable order digests group by.
func (r *ProjectRepository) ListByTenant(ctx context.Context, tenantID string) ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE tenant_id = $1 ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// MapByID returns the tenant's projects keyed by id. Jobs use this to
// resolve each task's project without a query per task.
func (r *ProjectRepository) MapByID(ctx context.Context, tenantID string) (map[string]Project, error) {
	projects, err := r.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	m := make(map[string]Project, len(projects))
	for _, p := range projects {
		m[p.ID] = p
	}
	return m, nil
}

func scanProject(row rowScanner) (*Project, error) {
	p := &Project{}
	var contactsJSON []byte

	err := row.Scan(
		&p.ID,
		&p.TenantID,
		&p.Name,
		&p.Category,
		&p.ManagerEmail,
		&p.OwnerEmail,
		&p.SupervisorPhone,
		&contactsJSON,
		&p.AtRiskMinutes,
		&p.RedMinutes,
	)
	if err != nil {
		return nil, err
	}
	if len(contactsJSON) > 0 {
		if err := json.Unmarshal(contactsJSON, &p.Contacts); err != nil {
			return nil, fmt.Errorf("unmarshaling project contacts: %w", err)
		}
	}
	return p, nil
}
