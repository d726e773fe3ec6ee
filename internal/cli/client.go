package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// TemplateResponse — template из API.
type TemplateResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Version     string         `json:"version,omitempty"`
	Scenario    map[string]any `json:"scenario"`
	IsDefault   bool           `json:"is_default"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

// ExecutionResponse — execution из API.
type ExecutionResponse struct {
	ID             string                   `json:"id"`
	TemplateID     string                   `json:"template_id"`
	Status         string                   `json:"status"`
	CurrentTick    int                      `json:"current_tick"`
	NodeStates     map[string]NodeStateView `json:"node_states,omitempty"`
	Variables      map[string]any           `json:"variables,omitempty"`
	Seed           int64                    `json:"seed"`
	TickIntervalMs int                      `json:"tick_interval_ms,omitempty"`
	StartedAt      string                   `json:"started_at,omitempty"`
	LastSavedAt    string                   `json:"last_saved_at,omitempty"`
	CreatedAt      string                   `json:"created_at"`
}

// NodeStateView — состояние узла из API.
type NodeStateView struct {
	Value           any    `json:"value"`
	Error           string `json:"error,omitempty"`
	IsActive        bool   `json:"is_active"`
	Details         string `json:"details,omitempty"`
	LastUpdatedTick int    `json:"last_updated_tick"`
}

// SnapshotResponse — снимок состояния execution из API.
type SnapshotResponse struct {
	ExecutionID string                   `json:"execution_id"`
	Status      string                   `json:"status"`
	Tick        int                      `json:"tick"`
	NodeStates  map[string]NodeStateView `json:"node_states"`
	SavedAt     string                   `json:"saved_at,omitempty"`
}

// ScheduleResponse — schedule из API.
type ScheduleResponse struct {
	ID              string         `json:"id"`
	TemplateID      string         `json:"template_id"`
	Name            string         `json:"name"`
	CronExpr        string         `json:"cron_expr,omitempty"`
	IntervalSec     int            `json:"interval_sec,omitempty"`
	Timezone        string         `json:"timezone"`
	Enabled         bool           `json:"enabled"`
	NextDueAt       string         `json:"next_due_at,omitempty"`
	LastRunAt       string         `json:"last_run_at,omitempty"`
	LastExecutionID string         `json:"last_execution_id,omitempty"`
	Variables       map[string]any `json:"variables,omitempty"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

// NodeTypeResponse — тип узла из API.
type NodeTypeResponse struct {
	Type string `json:"type"`
}

// --- Request types ---

// CreateTemplateRequest — создание template.
type CreateTemplateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Scenario    json.RawMessage `json:"scenario"`
	IsDefault   bool            `json:"is_default,omitempty"`
}

// UpdateTemplateRequest — обновление template.
type UpdateTemplateRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Scenario    json.RawMessage `json:"scenario,omitempty"`
	IsDefault   *bool           `json:"is_default,omitempty"`
}

// CreateExecutionRequest — создание execution.
type CreateExecutionRequest struct {
	Variables      map[string]any `json:"variables,omitempty"`
	Seed           int64          `json:"seed,omitempty"`
	TickIntervalMs int            `json:"tick_interval_ms,omitempty"`
}

// CreateScheduleRequest — создание schedule.
type CreateScheduleRequest struct {
	Name        string         `json:"name"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
	Enabled     bool           `json:"enabled"`
	Variables   map[string]any `json:"variables,omitempty"`
}

// UpdateScheduleRequest — обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string `json:"name,omitempty"`
	CronExpr    *string `json:"cron_expr,omitempty"`
	IntervalSec *int    `json:"interval_sec,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
}

// ListExecutionsOpts — параметры фильтрации executions.
type ListExecutionsOpts struct {
	TemplateID string
	Status     string
	Limit      int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Simula API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Templates ---

// ListTemplates возвращает все templates.
func (c *Client) ListTemplates() ([]TemplateResponse, error) {
	var templates []TemplateResponse
	err := c.list("/api/v1/templates", nil, &templates)
	return templates, err
}

// CreateTemplate создаёт новый template.
func (c *Client) CreateTemplate(req CreateTemplateRequest) (*TemplateResponse, error) {
	var tmpl TemplateResponse
	err := c.post("/api/v1/templates", req, &tmpl)
	return &tmpl, err
}

// GetTemplate возвращает template по ID.
func (c *Client) GetTemplate(id string) (*TemplateResponse, error) {
	var tmpl TemplateResponse
	err := c.get("/api/v1/templates/"+id, &tmpl)
	return &tmpl, err
}

// GetDefaultTemplate возвращает default template.
func (c *Client) GetDefaultTemplate() (*TemplateResponse, error) {
	var tmpl TemplateResponse
	err := c.get("/api/v1/templates/default", &tmpl)
	return &tmpl, err
}

// UpdateTemplate обновляет template.
func (c *Client) UpdateTemplate(id string, req UpdateTemplateRequest) (*TemplateResponse, error) {
	var tmpl TemplateResponse
	err := c.put("/api/v1/templates/"+id, req, &tmpl)
	return &tmpl, err
}

// DeleteTemplate удаляет template.
func (c *Client) DeleteTemplate(id string) error {
	return c.delete("/api/v1/templates/" + id)
}

// ListNodeTypes возвращает зарегистрированные типы узлов.
func (c *Client) ListNodeTypes() ([]NodeTypeResponse, error) {
	var types []NodeTypeResponse
	err := c.list("/api/v1/node-types", nil, &types)
	return types, err
}

// --- Executions ---

// ListExecutions возвращает список executions с фильтрацией.
func (c *Client) ListExecutions(opts ListExecutionsOpts) ([]ExecutionResponse, error) {
	params := url.Values{}
	if opts.TemplateID != "" {
		params.Set("template_id", opts.TemplateID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var executions []ExecutionResponse
	err := c.list("/api/v1/executions", params, &executions)
	return executions, err
}

// CreateExecution создаёт execution для template.
func (c *Client) CreateExecution(templateID string, req CreateExecutionRequest) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.post("/api/v1/templates/"+templateID+"/executions", req, &exec)
	return &exec, err
}

// GetExecution возвращает execution по ID.
func (c *Client) GetExecution(id string) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.get("/api/v1/executions/"+id, &exec)
	return &exec, err
}

// GetSnapshot возвращает последний снимок состояния execution.
func (c *Client) GetSnapshot(id string) (*SnapshotResponse, error) {
	var snapshot SnapshotResponse
	err := c.get("/api/v1/executions/"+id+"/snapshot", &snapshot)
	return &snapshot, err
}

// PauseExecution приостанавливает execution.
func (c *Client) PauseExecution(id string) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.post("/api/v1/executions/"+id+"/pause", nil, &exec)
	return &exec, err
}

// ResumeExecution возобновляет execution.
func (c *Client) ResumeExecution(id string) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.post("/api/v1/executions/"+id+"/resume", nil, &exec)
	return &exec, err
}

// StopExecution останавливает execution.
func (c *Client) StopExecution(id string) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.post("/api/v1/executions/"+id+"/stop", nil, &exec)
	return &exec, err
}

// --- Schedules ---

// ListSchedules возвращает schedules. Если templateID не пустой — фильтрует.
func (c *Client) ListSchedules(templateID string) ([]ScheduleResponse, error) {
	params := url.Values{}
	if templateID != "" {
		params.Set("template_id", templateID)
	}

	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", params, &schedules)
	return schedules, err
}

// CreateSchedule создаёт schedule для template.
func (c *Client) CreateSchedule(templateID string, req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/templates/"+templateID+"/schedules", req, &schedule)
	return &schedule, err
}

// GetSchedule возвращает schedule по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, &schedule)
	return &schedule, err
}

// UpdateSchedule обновляет schedule.
func (c *Client) UpdateSchedule(id string, req UpdateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.put("/api/v1/schedules/"+id, req, &schedule)
	return &schedule, err
}

// DeleteSchedule удаляет schedule.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// EnableSchedule включает schedule.
func (c *Client) EnableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": true}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// DisableSchedule выключает schedule.
func (c *Client) DisableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": false}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
