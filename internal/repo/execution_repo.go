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

// ExecutionRepo — репозиторий для работы с executions.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// ExecutionFilter — параметры фильтрации при листинге executions.
type ExecutionFilter struct {
	TemplateID *uuid.UUID
	Status     domain.ExecutionStatus
	Limit      int
	Offset     int
}

// Create создаёт новый execution.
func (r *ExecutionRepo) Create(ctx context.Context, exec *domain.Execution) error {
	variablesJSON, err := json.Marshal(exec.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}
	statesJSON, err := json.Marshal(exec.NodeStates)
	if err != nil {
		return fmt.Errorf("marshal node states: %w", err)
	}

	query := `
		INSERT INTO executions (id, template_id, status, current_tick, node_states,
		                        variables, seed, tick_interval_ms, started_at, last_saved_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.pool.Exec(ctx, query,
		exec.ID,
		exec.TemplateID,
		exec.Status,
		exec.CurrentTick,
		statesJSON,
		variablesJSON,
		exec.Seed,
		exec.TickIntervalMs,
		exec.StartedAt,
		exec.LastSavedAt,
		exec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByID возвращает execution по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `
		SELECT id, template_id, status, current_tick, node_states,
		       variables, seed, tick_interval_ms, started_at, last_saved_at, created_at
		FROM executions
		WHERE id = $1
	`
	return r.scanExecution(r.pool.QueryRow(ctx, query, id))
}

// List возвращает список executions с фильтрацией.
func (r *ExecutionRepo) List(ctx context.Context, filter ExecutionFilter) ([]domain.Execution, error) {
	query := `
		SELECT id, template_id, status, current_tick, node_states,
		       variables, seed, tick_interval_ms, started_at, last_saved_at, created_at
		FROM executions
		WHERE ($1::uuid IS NULL OR template_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.TemplateID),
		nullString(string(filter.Status)),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var executions []domain.Execution
	for rows.Next() {
		exec, err := r.scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *exec)
	}
	return executions, rows.Err()
}

// ListPending возвращает executions в статусе IDLE (ещё не подхваченные
// engine-демоном).
func (r *ExecutionRepo) ListPending(ctx context.Context, limit int) ([]domain.Execution, error) {
	return r.List(ctx, ExecutionFilter{Status: domain.StatusIdle, Limit: limit})
}

// UpdateState сохраняет снимок runtime-состояния после тика.
//
// Вызывается engine-демоном на границе тика; статус, счётчик тиков и
// node_states пишутся одним стейтментом, читатель видит согласованный
// снимок.
func (r *ExecutionRepo) UpdateState(ctx context.Context, exec *domain.Execution) error {
	statesJSON, err := json.Marshal(exec.NodeStates)
	if err != nil {
		return fmt.Errorf("marshal node states: %w", err)
	}

	query := `
		UPDATE executions
		SET status = $2, current_tick = $3, node_states = $4, started_at = $5, last_saved_at = now()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		exec.ID,
		exec.Status,
		exec.CurrentTick,
		statesJSON,
		exec.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("update execution state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus обновляет только статус execution.
func (r *ExecutionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ExecutionStatus) error {
	query := `UPDATE executions SET status = $2 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update execution status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет execution.
func (r *ExecutionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM executions WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanExecution сканирует execution из строки.
func (r *ExecutionRepo) scanExecution(row pgx.Row) (*domain.Execution, error) {
	var exec domain.Execution
	var statesJSON, variablesJSON []byte

	err := row.Scan(
		&exec.ID,
		&exec.TemplateID,
		&exec.Status,
		&exec.CurrentTick,
		&statesJSON,
		&variablesJSON,
		&exec.Seed,
		&exec.TickIntervalMs,
		&exec.StartedAt,
		&exec.LastSavedAt,
		&exec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if statesJSON != nil {
		if err := json.Unmarshal(statesJSON, &exec.NodeStates); err != nil {
			return nil, fmt.Errorf("unmarshal node states: %w", err)
		}
	}
	if variablesJSON != nil {
		if err := json.Unmarshal(variablesJSON, &exec.Variables); err != nil {
			return nil, fmt.Errorf("unmarshal variables: %w", err)
		}
	}

	return &exec, nil
}
