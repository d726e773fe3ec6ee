package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Simula/internal/domain"
	"github.com/shaiso/Simula/internal/mq"
	"github.com/shaiso/Simula/internal/repo"
)

// errNoPublisher — команды управления требуют подключения к RabbitMQ.
var errNoPublisher = errors.New("publisher not configured")

// ListExecutions возвращает список executions с фильтрацией.
// GET /api/v1/executions?template_id=...&status=...&limit=...&offset=...
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	filter := repo.ExecutionFilter{}

	// Парсим query параметры
	if templateIDStr := r.URL.Query().Get("template_id"); templateIDStr != "" {
		templateID, err := uuid.Parse(templateIDStr)
		if err != nil {
			BadRequest(w, "invalid template_id")
			return
		}
		filter.TemplateID = &templateID
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.ExecutionStatus(status)
	}

	filter.Limit = parseIntQuery(r.URL.Query().Get("limit"), 50)
	filter.Offset = parseIntQuery(r.URL.Query().Get("offset"), 0)

	executions, err := h.executionRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(executions))
	for i, e := range executions {
		result[i] = ExecutionFromDomain(e)
	}

	List(w, result, len(result))
}

// CreateExecution создаёт новый execution для template.
// POST /api/v1/templates/{id}/executions
func (h *Handler) CreateExecution(w http.ResponseWriter, r *http.Request) {
	templateID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid template id")
		return
	}

	var req CreateExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	// Проверяем, что template существует
	tmpl, err := h.templateRepo.GetByID(r.Context(), templateID)
	if HandleRepoError(w, h.logger, err, "template not found") {
		return
	}

	exec := newExecutionRecord(tmpl.ID, req)

	if err := h.executionRepo.Create(r.Context(), exec); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	// Публикуем событие в очередь — engine подхватит execution
	if h.publisher != nil {
		if err := h.publisher.PublishExecutionPending(r.Context(), exec.ID); err != nil {
			h.logger.Warn("failed to publish execution.pending", "execution_id", exec.ID, "error", err)
		}
	}

	Created(w, ExecutionFromDomain(*exec))
}

// newExecutionRecord собирает запись нового execution в статусе IDLE.
// CreatedAt задаётся здесь: List сортирует по created_at.
func newExecutionRecord(templateID uuid.UUID, req CreateExecutionRequest) *domain.Execution {
	return &domain.Execution{
		ID:             uuid.New(),
		TemplateID:     templateID,
		Status:         domain.StatusIdle,
		Variables:      req.Variables,
		Seed:           req.Seed,
		TickIntervalMs: req.TickIntervalMs,
		CreatedAt:      time.Now(),
	}
}

// GetExecution возвращает execution по ID.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	exec, err := h.executionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ExecutionFromDomain(*exec))
}

// GetExecutionSnapshot возвращает последний сохранённый снимок состояния.
// GET /api/v1/executions/{id}/snapshot
func (h *Handler) GetExecutionSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	exec, err := h.executionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, SnapshotResponse{
		ExecutionID: exec.ID,
		Status:      string(exec.Status),
		Tick:        exec.CurrentTick,
		NodeStates:  exec.NodeStates,
		SavedAt:     exec.LastSavedAt,
	})
}

// PauseExecution приостанавливает execution.
// POST /api/v1/executions/{id}/pause
func (h *Handler) PauseExecution(w http.ResponseWriter, r *http.Request) {
	h.controlExecution(w, r, mq.ControlPause, domain.StatusRunning)
}

// ResumeExecution возобновляет приостановленный execution.
// POST /api/v1/executions/{id}/resume
func (h *Handler) ResumeExecution(w http.ResponseWriter, r *http.Request) {
	h.controlExecution(w, r, mq.ControlResume, domain.StatusPaused)
}

// StopExecution останавливает execution окончательно.
// POST /api/v1/executions/{id}/stop
func (h *Handler) StopExecution(w http.ResponseWriter, r *http.Request) {
	h.controlExecution(w, r, mq.ControlStop, "")
}

// controlExecution публикует команду управления execution.
// Команда применяется engine-демоном асинхронно; API проверяет лишь,
// что текущий статус допускает команду.
func (h *Handler) controlExecution(w http.ResponseWriter, r *http.Request, command string, required domain.ExecutionStatus) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	exec, err := h.executionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	if exec.IsFinished() {
		InvalidState(w, "execution is already finished")
		return
	}

	if required != "" && exec.Status != required {
		InvalidState(w, "execution is not in "+string(required)+" state")
		return
	}

	if h.publisher == nil {
		InternalError(w, h.logger, errNoPublisher)
		return
	}

	if err := h.publisher.PublishControl(r.Context(), exec.ID, command); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, ExecutionFromDomain(*exec))
}

// parseIntQuery парсит числовой query-параметр с дефолтным значением.
func parseIntQuery(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}
