package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Simula/internal/domain"
	"github.com/shaiso/Simula/internal/engine"
)

// ListTemplates возвращает список всех templates.
// GET /api/v1/templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templateRepo.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]TemplateResponse, len(templates))
	for i, t := range templates {
		result[i] = TemplateFromDomain(t)
	}

	List(w, result, len(result))
}

// CreateTemplate создаёт новый template.
// POST /api/v1/templates
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	if err := h.validateScenario(&req.Scenario); err != nil {
		BadRequest(w, err.Error())
		return
	}

	version := req.Version
	if version == "" {
		version = "1"
	}

	tmpl := &domain.Template{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Version:     version,
		Scenario:    req.Scenario,
		IsDefault:   req.IsDefault,
	}

	if err := h.templateRepo.Create(r.Context(), tmpl); err != nil {
		if HandleRepoError(w, h.logger, err, "") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Created(w, TemplateFromDomain(*tmpl))
}

// GetTemplate возвращает template по ID.
// GET /api/v1/templates/{id}
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid template id")
		return
	}

	tmpl, err := h.templateRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "template not found") {
		return
	}

	Success(w, TemplateFromDomain(*tmpl))
}

// GetDefaultTemplate возвращает template, помеченный как default.
// GET /api/v1/templates/default
func (h *Handler) GetDefaultTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.templateRepo.GetDefault(r.Context())
	if HandleRepoError(w, h.logger, err, "no default template") {
		return
	}

	Success(w, TemplateFromDomain(*tmpl))
}

// UpdateTemplate обновляет template.
// PUT /api/v1/templates/{id}
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid template id")
		return
	}

	var req UpdateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	tmpl, err := h.templateRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "template not found") {
		return
	}

	if req.Name != nil {
		tmpl.Name = *req.Name
	}
	if req.Description != nil {
		tmpl.Description = *req.Description
	}
	if req.Version != nil {
		tmpl.Version = *req.Version
	}
	if req.Scenario != nil {
		if err := h.validateScenario(req.Scenario); err != nil {
			BadRequest(w, err.Error())
			return
		}
		tmpl.Scenario = *req.Scenario
	}
	if req.IsDefault != nil {
		tmpl.IsDefault = *req.IsDefault
	}

	tmpl.Touch()

	if err := h.templateRepo.Update(r.Context(), tmpl); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, TemplateFromDomain(*tmpl))
}

// DeleteTemplate удаляет template.
// DELETE /api/v1/templates/{id}
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid template id")
		return
	}

	if err := h.templateRepo.Delete(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "template not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	NoContent(w)
}

// ListNodeTypes возвращает зарегистрированные типы узлов.
// GET /api/v1/node-types
func (h *Handler) ListNodeTypes(w http.ResponseWriter, r *http.Request) {
	types := h.registry.Types()

	result := make([]NodeTypeResponse, len(types))
	for i, t := range types {
		result[i] = NodeTypeResponse{Type: t}
	}

	List(w, result, len(result))
}

// validateScenario выполняет структурную валидацию сценария:
// уникальность ID, отсутствие висячих рёбер, известность типов узлов.
// Конфигурации узлов здесь не проверяются — они могут содержать
// {{var}} плейсхолдеры и валидируются при создании execution.
func (h *Handler) validateScenario(sc *domain.Scenario) error {
	if _, err := engine.Load(sc, nil); err != nil {
		return err
	}

	for i := range sc.Nodes {
		if !h.registry.Has(sc.Nodes[i].Type) {
			return fmt.Errorf("node %s: unknown node type %q", sc.Nodes[i].ID, sc.Nodes[i].Type)
		}
	}

	return nil
}
