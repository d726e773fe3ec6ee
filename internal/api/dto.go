package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Simula/internal/domain"
)

// Template DTOs

// CreateTemplateRequest — запрос на создание template.
type CreateTemplateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Version     string          `json:"version,omitempty"`
	Scenario    domain.Scenario `json:"scenario"`
	IsDefault   bool            `json:"is_default,omitempty"`
}

// UpdateTemplateRequest — запрос на обновление template.
type UpdateTemplateRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Version     *string          `json:"version,omitempty"`
	Scenario    *domain.Scenario `json:"scenario,omitempty"`
	IsDefault   *bool            `json:"is_default,omitempty"`
}

// TemplateResponse — ответ с template.
type TemplateResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Version     string          `json:"version,omitempty"`
	Scenario    domain.Scenario `json:"scenario"`
	IsDefault   bool            `json:"is_default"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TemplateFromDomain конвертирует domain.Template в TemplateResponse.
func TemplateFromDomain(t domain.Template) TemplateResponse {
	return TemplateResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Version:     t.Version,
		Scenario:    t.Scenario,
		IsDefault:   t.IsDefault,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// Execution DTOs

// CreateExecutionRequest — запрос на создание execution.
type CreateExecutionRequest struct {
	Variables      map[string]any `json:"variables,omitempty"`
	Seed           int64          `json:"seed,omitempty"`
	TickIntervalMs int            `json:"tick_interval_ms,omitempty"`
}

// ExecutionResponse — ответ с execution.
type ExecutionResponse struct {
	ID             uuid.UUID                   `json:"id"`
	TemplateID     uuid.UUID                   `json:"template_id"`
	Status         string                      `json:"status"`
	CurrentTick    int                         `json:"current_tick"`
	NodeStates     map[string]domain.NodeState `json:"node_states,omitempty"`
	Variables      map[string]any              `json:"variables,omitempty"`
	Seed           int64                       `json:"seed"`
	TickIntervalMs int                         `json:"tick_interval_ms,omitempty"`
	StartedAt      *time.Time                  `json:"started_at,omitempty"`
	LastSavedAt    *time.Time                  `json:"last_saved_at,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(e domain.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:             e.ID,
		TemplateID:     e.TemplateID,
		Status:         string(e.Status),
		CurrentTick:    e.CurrentTick,
		NodeStates:     e.NodeStates,
		Variables:      e.Variables,
		Seed:           e.Seed,
		TickIntervalMs: e.TickIntervalMs,
		StartedAt:      e.StartedAt,
		LastSavedAt:    e.LastSavedAt,
		CreatedAt:      e.CreatedAt,
	}
}

// SnapshotResponse — снимок состояния узлов execution.
type SnapshotResponse struct {
	ExecutionID uuid.UUID                   `json:"execution_id"`
	Status      string                      `json:"status"`
	Tick        int                         `json:"tick"`
	NodeStates  map[string]domain.NodeState `json:"node_states"`
	SavedAt     *time.Time                  `json:"saved_at,omitempty"`
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	Name        string         `json:"name"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
	Enabled     bool           `json:"enabled"`
	Variables   map[string]any `json:"variables,omitempty"`
}

// UpdateScheduleRequest — запрос на обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string         `json:"name,omitempty"`
	CronExpr    *string         `json:"cron_expr,omitempty"`
	IntervalSec *int            `json:"interval_sec,omitempty"`
	Timezone    *string         `json:"timezone,omitempty"`
	Variables   *map[string]any `json:"variables,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ с schedule.
type ScheduleResponse struct {
	ID              uuid.UUID      `json:"id"`
	TemplateID      uuid.UUID      `json:"template_id"`
	Name            string         `json:"name"`
	CronExpr        string         `json:"cron_expr,omitempty"`
	IntervalSec     int            `json:"interval_sec,omitempty"`
	Timezone        string         `json:"timezone"`
	Enabled         bool           `json:"enabled"`
	NextDueAt       *time.Time     `json:"next_due_at,omitempty"`
	LastRunAt       *time.Time     `json:"last_run_at,omitempty"`
	LastExecutionID *uuid.UUID     `json:"last_execution_id,omitempty"`
	Variables       map[string]any `json:"variables,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	return ScheduleResponse{
		ID:              s.ID,
		TemplateID:      s.TemplateID,
		Name:            s.Name,
		CronExpr:        s.CronExpr,
		IntervalSec:     s.IntervalSec,
		Timezone:        s.Timezone,
		Enabled:         s.Enabled,
		NextDueAt:       s.NextDueAt,
		LastRunAt:       s.LastRunAt,
		LastExecutionID: s.LastExecutionID,
		Variables:       s.Variables,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// NodeTypeResponse — описание зарегистрированного типа узла.
type NodeTypeResponse struct {
	Type string `json:"type"`
}
