package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Simula/internal/domain"
)

// TemplateRepo — репозиторий для работы с templates.
type TemplateRepo struct {
	pool *pgxpool.Pool
}

// NewTemplateRepo создаёт новый TemplateRepo.
func NewTemplateRepo(pool *pgxpool.Pool) *TemplateRepo {
	return &TemplateRepo{pool: pool}
}

// Create создаёт новый template.
func (r *TemplateRepo) Create(ctx context.Context, tmpl *domain.Template) error {
	scenarioJSON, err := json.Marshal(tmpl.Scenario)
	if err != nil {
		return fmt.Errorf("marshal scenario: %w", err)
	}

	query := `
		INSERT INTO templates (id, name, description, version, scenario, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		tmpl.ID,
		tmpl.Name,
		nullString(tmpl.Description),
		nullString(tmpl.Version),
		scenarioJSON,
		tmpl.IsDefault,
		tmpl.CreatedAt,
		tmpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

// GetByID возвращает template по ID.
func (r *TemplateRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	query := `
		SELECT id, name, description, version, scenario, is_default, created_at, updated_at
		FROM templates
		WHERE id = $1
	`
	return r.scanTemplate(r.pool.QueryRow(ctx, query, id))
}

// GetByName возвращает template по имени.
func (r *TemplateRepo) GetByName(ctx context.Context, name string) (*domain.Template, error) {
	query := `
		SELECT id, name, description, version, scenario, is_default, created_at, updated_at
		FROM templates
		WHERE name = $1
	`
	return r.scanTemplate(r.pool.QueryRow(ctx, query, name))
}

// GetDefault возвращает template с флагом is_default.
func (r *TemplateRepo) GetDefault(ctx context.Context) (*domain.Template, error) {
	query := `
		SELECT id, name, description, version, scenario, is_default, created_at, updated_at
		FROM templates
		WHERE is_default
		ORDER BY updated_at DESC
		LIMIT 1
	`
	return r.scanTemplate(r.pool.QueryRow(ctx, query))
}

// List возвращает список всех templates.
func (r *TemplateRepo) List(ctx context.Context) ([]domain.Template, error) {
	query := `
		SELECT id, name, description, version, scenario, is_default, created_at, updated_at
		FROM templates
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []domain.Template
	for rows.Next() {
		tmpl, err := r.scanTemplateFromRows(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *tmpl)
	}
	return templates, rows.Err()
}

// Update обновляет template.
func (r *TemplateRepo) Update(ctx context.Context, tmpl *domain.Template) error {
	scenarioJSON, err := json.Marshal(tmpl.Scenario)
	if err != nil {
		return fmt.Errorf("marshal scenario: %w", err)
	}

	query := `
		UPDATE templates
		SET name = $2, description = $3, version = $4, scenario = $5, is_default = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		tmpl.ID,
		tmpl.Name,
		nullString(tmpl.Description),
		nullString(tmpl.Version),
		scenarioJSON,
		tmpl.IsDefault,
		tmpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет template (каскадно удалит executions и schedules).
func (r *TemplateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM templates WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanTemplate сканирует template из одной строки.
func (r *TemplateRepo) scanTemplate(row pgx.Row) (*domain.Template, error) {
	var tmpl domain.Template
	var description, version *string
	var scenarioJSON []byte

	err := row.Scan(
		&tmpl.ID,
		&tmpl.Name,
		&description,
		&version,
		&scenarioJSON,
		&tmpl.IsDefault,
		&tmpl.CreatedAt,
		&tmpl.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}

	if description != nil {
		tmpl.Description = *description
	}
	if version != nil {
		tmpl.Version = *version
	}
	if err := json.Unmarshal(scenarioJSON, &tmpl.Scenario); err != nil {
		return nil, fmt.Errorf("unmarshal scenario: %w", err)
	}

	return &tmpl, nil
}

// scanTemplateFromRows сканирует template из rows.
func (r *TemplateRepo) scanTemplateFromRows(rows pgx.Rows) (*domain.Template, error) {
	return r.scanTemplate(rows)
}
