package domain

import (
	"time"

	"github.com/google/uuid"
)

// Template — сохранённое, параметризуемое определение сценария.
//
// Template — это "рецепт" симуляции. Один template может порождать
// множество executions (запусков), в том числе одновременных.
type Template struct {
	// ID — уникальный идентификатор template.
	ID uuid.UUID `json:"id"`

	// Name — имя template (например, "greenhouse-demo", "factory-line").
	Name string `json:"name"`

	// Description — описание назначения сценария.
	Description string `json:"description,omitempty"`

	// Version — версия template (строка, задаётся пользователем).
	Version string `json:"version,omitempty"`

	// Scenario — граф симуляции.
	Scenario Scenario `json:"scenario"`

	// IsDefault — флаг "шаблон по умолчанию" (показывается первым в UI).
	IsDefault bool `json:"is_default"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch обновляет UpdatedAt.
func (t *Template) Touch() {
	t.UpdatedAt = time.Now()
}
