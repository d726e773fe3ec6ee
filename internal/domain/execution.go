package domain

import (
	"time"

	"github.com/google/uuid"
)

// Execution — экземпляр выполнения template.
//
// Execution создаётся когда:
// - Пользователь запускает симуляцию вручную (через API/CLI)
// - Scheduler создаёт execution по расписанию
//
// Каждый execution владеет собственным runtime-состоянием узлов и
// продвигается тиками. Состояние сохраняется в БД после каждого тика
// (снимок между тиками, никогда — посреди тика).
type Execution struct {
	// ID — уникальный идентификатор execution.
	ID uuid.UUID `json:"id"`

	// TemplateID — ссылка на template, который выполняется.
	TemplateID uuid.UUID `json:"template_id"`

	// Status — текущий статус выполнения.
	Status ExecutionStatus `json:"status"`

	// CurrentTick — номер следующего тика (количество завершённых тиков).
	CurrentTick int `json:"current_tick"`

	// NodeStates — runtime-состояние каждого узла (nodeID → NodeState).
	// Снимок последнего завершённого тика.
	NodeStates map[string]NodeState `json:"node_states,omitempty"`

	// Variables — переменные сценария, подставленные в конфигурацию
	// узлов при старте ({{var.path}} плейсхолдеры).
	Variables map[string]any `json:"variables,omitempty"`

	// Seed — seed генератора случайных чисел.
	// Фиксированный seed даёт воспроизводимый прогон.
	Seed int64 `json:"seed"`

	// TickIntervalMs — интервал между тиками для engine-демона.
	TickIntervalMs int `json:"tick_interval_ms,omitempty"`

	// StartedAt — время старта (когда статус стал RUNNING).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// LastSavedAt — время последнего сохранения снимка.
	LastSavedAt *time.Time `json:"last_saved_at,omitempty"`

	// CreatedAt — время создания execution.
	CreatedAt time.Time `json:"created_at"`
}

// NodeState — runtime-состояние одного узла в рамках одного execution.
//
// Принадлежит исключительно симуляционному планировщику на время
// прогона; сбрасывается при старте нового execution.
type NodeState struct {
	// Value — последнее вычисленное значение (любой JSON-совместимый тип).
	Value any `json:"value"`

	// Error — текст ошибки вычисления или пустая строка.
	// Ошибка локальна для узла и не прерывает тик.
	Error string `json:"error,omitempty"`

	// IsActive — транзиентный флаг "узел вычислялся на этом тике"
	// (пульсация в UI).
	IsActive bool `json:"is_active"`

	// Details — опциональная человекочитаемая строка для UI.
	Details string `json:"details,omitempty"`

	// LastUpdatedTick — тик, на котором значение обновилось в последний раз.
	LastUpdatedTick int `json:"last_updated_tick"`
}

// MarkRunning переводит execution в статус RUNNING.
func (e *Execution) MarkRunning() {
	now := time.Now()
	e.Status = StatusRunning
	e.StartedAt = &now
}

// MarkPaused переводит execution в статус PAUSED.
func (e *Execution) MarkPaused() {
	e.Status = StatusPaused
}

// MarkStopped переводит execution в статус STOPPED.
func (e *Execution) MarkStopped() {
	e.Status = StatusStopped
}

// MarkSaved обновляет время сохранения снимка.
func (e *Execution) MarkSaved() {
	now := time.Now()
	e.LastSavedAt = &now
}

// IsFinished возвращает true, если execution завершён.
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}
