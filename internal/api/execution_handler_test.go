package api

import (
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/Simula/internal/domain"
)

func TestNewExecutionRecord(t *testing.T) {
	templateID := uuid.New()
	req := CreateExecutionRequest{
		Variables:      map[string]any{"setpoint": 21.5},
		Seed:           42,
		TickIntervalMs: 500,
	}

	exec := newExecutionRecord(templateID, req)

	if exec.ID == uuid.Nil {
		t.Error("ID не задан")
	}
	if exec.TemplateID != templateID {
		t.Errorf("TemplateID = %s, want %s", exec.TemplateID, templateID)
	}
	if exec.Status != domain.StatusIdle {
		t.Errorf("Status = %s, want %s", exec.Status, domain.StatusIdle)
	}
	if exec.Seed != 42 {
		t.Errorf("Seed = %d, want 42", exec.Seed)
	}
	if exec.TickIntervalMs != 500 {
		t.Errorf("TickIntervalMs = %d, want 500", exec.TickIntervalMs)
	}
	if exec.Variables["setpoint"] != 21.5 {
		t.Errorf("Variables[setpoint] = %v, want 21.5", exec.Variables["setpoint"])
	}

	// List сортирует по created_at; нулевое время ломает порядок выдачи
	if exec.CreatedAt.IsZero() {
		t.Error("CreatedAt не задан")
	}
}

func TestNewExecutionRecord_UniqueIDs(t *testing.T) {
	templateID := uuid.New()

	a := newExecutionRecord(templateID, CreateExecutionRequest{})
	b := newExecutionRecord(templateID, CreateExecutionRequest{})

	if a.ID == b.ID {
		t.Error("записи получили одинаковый ID")
	}
}
