package sim

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Simula/internal/domain"
	"github.com/shaiso/Simula/internal/engine"
	"github.com/shaiso/Simula/internal/nodes"
)

// Execution — работающий экземпляр симуляции.
//
// Владеет runtime-состоянием всех узлов на время прогона. Тики строго
// сериализованы мьютексом: Tick не выполняется одновременно ни с самим
// собой, ни со Start/Pause/Stop того же execution. Независимые
// executions не разделяют изменяемого состояния и могут идти
// параллельно.
//
// Внешние читатели (UI, персистенция) видят только снимки между
// тиками через Snapshot; отмена срабатывает на границе тика.
type Execution struct {
	mu sync.Mutex

	id         uuid.UUID
	templateID uuid.UUID

	graph    *engine.Graph
	registry *nodes.Registry

	status domain.ExecutionStatus
	tick   int
	states map[string]*domain.NodeState

	// prev — арена значений предыдущего тика для feedback-рёбер.
	// Только для чтения в течение тика, подменяется целиком на
	// границе тика.
	prev map[string]any

	rng       *rand.Rand
	seed      int64
	variables map[string]any
	startedAt time.Time
}

// Config — конфигурация для создания Execution.
type Config struct {
	// ID — идентификатор execution (новый, если zero).
	ID uuid.UUID

	// TemplateID — template, из которого создан сценарий.
	TemplateID uuid.UUID

	// Scenario — сценарий с сырыми (неподставленными) конфигурациями.
	Scenario *domain.Scenario

	// Registry — реестр типов узлов.
	Registry *nodes.Registry

	// Variables — переменные для подстановки {{var.path}} при старте.
	Variables map[string]any

	// Seed — seed генератора случайных чисел.
	// 0 означает "засеять текущим временем" (невоспроизводимый прогон).
	Seed int64
}

// NewExecution строит execution из сценария.
//
// Конфигурации узлов подставляются через engine.Substitute против
// Variables, затем разрешённый сценарий валидируется и превращается
// в граф. Ошибка валидации (dangling edge, неверная конфигурация) —
// фатальная, execution не создаётся.
func NewExecution(cfg Config) (*Execution, error) {
	if cfg.Scenario == nil {
		return nil, engine.ErrEmptyNodes
	}

	resolved := engine.SubstituteScenario(cfg.Scenario, cfg.Variables)

	graph, err := engine.Load(resolved, cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}

	id := cfg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Execution{
		id:         id,
		templateID: cfg.TemplateID,
		graph:      graph,
		registry:   cfg.Registry,
		status:     domain.StatusIdle,
		states:     make(map[string]*domain.NodeState),
		prev:       make(map[string]any),
		rng:        rand.New(rand.NewSource(seed)),
		seed:       seed,
		variables:  cfg.Variables,
	}, nil
}

// Restore восстанавливает execution из сохранённого снимка.
//
// Граф строится заново из сценария template, состояние узлов и счётчик
// тиков берутся из записи. Восстановленный execution находится в
// PAUSED и ждёт команды resume. Поток случайных чисел после
// восстановления расходится с непрерывным прогоном: побитовая
// воспроизводимость гарантируется только для прогона без рестартов.
func Restore(cfg Config, rec *domain.Execution) (*Execution, error) {
	cfg.ID = rec.ID
	cfg.TemplateID = rec.TemplateID
	cfg.Variables = rec.Variables
	cfg.Seed = rec.Seed

	e, err := NewExecution(cfg)
	if err != nil {
		return nil, err
	}

	e.status = domain.StatusPaused
	e.tick = rec.CurrentTick
	e.rng = rand.New(rand.NewSource(rec.Seed + int64(rec.CurrentTick)))

	for id, st := range rec.NodeStates {
		s := st
		e.states[id] = &s
		e.prev[id] = st.Value
	}
	// Узлы, добавленные в сценарий после сохранения, получают пустое
	// состояние.
	for id := range e.graph.Nodes {
		if _, ok := e.states[id]; !ok {
			e.states[id] = &domain.NodeState{LastUpdatedTick: -1}
		}
	}

	if rec.StartedAt != nil {
		e.startedAt = *rec.StartedAt
	}

	return e, nil
}

// Start инициализирует состояние узлов и переводит execution в RUNNING.
func (e *Execution) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != domain.StatusIdle {
		return fmt.Errorf("%w: status %s", ErrAlreadyStarted, e.status)
	}

	for id := range e.graph.Nodes {
		e.states[id] = &domain.NodeState{
			Value:           nil,
			Error:           "",
			IsActive:        false,
			LastUpdatedTick: -1,
		}
	}

	e.status = domain.StatusRunning
	e.startedAt = time.Now()

	return nil
}

// Tick выполняет один тик симуляции.
//
// Узлы вычисляются в порядке graph.Order; контекст каждого узла
// собирается из значений текущего тика (прямые рёбра) и арены
// предыдущего тика (feedback-рёбра). Ошибка одного узла попадает в
// его NodeState.Error и не прерывает тик остальных — тик атомарен
// с точки зрения наблюдателя. На границе тика арена предыдущих
// значений подменяется целиком и счётчик тиков увеличивается.
func (e *Execution) Tick() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.status.CanTick() {
		return fmt.Errorf("%w: status %s", ErrNotRunning, e.status)
	}

	current := make(map[string]any, len(e.graph.Nodes))

	for _, id := range e.graph.Order {
		node := e.graph.Node(id)
		state := e.states[id]

		upstream, sources := e.collectUpstream(id, current)

		ev, err := e.registry.Get(node.Type)
		if err != nil {
			// Тип проверен при загрузке; сюда можно попасть только
			// если реестр мутировали после создания execution.
			state.Value = nil
			state.Error = err.Error()
			state.IsActive = false
			current[id] = nil
			continue
		}

		resp, err := ev.Evaluate(&nodes.Request{
			Node:     node,
			Tick:     e.tick,
			Upstream: upstream,
			Sources:  sources,
			Previous: *state,
			Rand:     e.rng,
		})

		if err != nil {
			state.Value = nil
			state.Error = err.Error()
			state.Details = ""
			state.IsActive = true
			state.LastUpdatedTick = e.tick
			current[id] = nil
			continue
		}

		state.Value = resp.Value
		state.Error = ""
		state.Details = resp.Details
		state.IsActive = !resp.Retained
		if !resp.Retained {
			state.LastUpdatedTick = e.tick
		}
		current[id] = resp.Value
	}

	e.prev = current
	e.tick++

	return nil
}

// collectUpstream собирает контекст узла из входящих связей.
// Прямые рёбра читают значения текущего тика, feedback-рёбра — арену
// предыдущего (nil на тике 0). Источник с ошибкой даёт nil.
func (e *Execution) collectUpstream(nodeID string, current map[string]any) (map[string]any, []string) {
	inputs := e.graph.Inputs(nodeID)
	if len(inputs) == 0 {
		return nil, nil
	}

	upstream := make(map[string]any, len(inputs))
	sources := make([]string, 0, len(inputs))

	for _, in := range inputs {
		if _, seen := upstream[in.Source]; !seen {
			sources = append(sources, in.Source)
		}
		if in.Feedback {
			upstream[in.Source] = e.prev[in.Source]
		} else {
			upstream[in.Source] = current[in.Source]
		}
	}

	return upstream, sources
}

// Pause приостанавливает execution. Состояние узлов сохраняется,
// Resume продолжает с того же тика.
func (e *Execution) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != domain.StatusRunning {
		return fmt.Errorf("%w: status %s", ErrNotRunning, e.status)
	}
	e.status = domain.StatusPaused
	return nil
}

// Resume возобновляет приостановленный execution.
func (e *Execution) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.status.CanResume() {
		return fmt.Errorf("%w: status %s", ErrNotPaused, e.status)
	}
	e.status = domain.StatusRunning
	return nil
}

// Stop останавливает execution окончательно.
func (e *Execution) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status.IsTerminal() {
		return ErrStopped
	}
	e.status = domain.StatusStopped
	return nil
}

// Snapshot возвращает копию состояния всех узлов.
//
// Снимок делается только между тиками (под тем же мьютексом, что и
// Tick), поэтому наблюдатель никогда не видит частично вычисленный
// тик.
func (e *Execution) Snapshot() map[string]domain.NodeState {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := make(map[string]domain.NodeState, len(e.states))
	for id, state := range e.states {
		snapshot[id] = *state
	}
	return snapshot
}

// Record возвращает снимок execution для персистенции.
//
// Состояние узлов, статус и счётчик тиков читаются под одним мьютексом:
// запись никогда не смешивает состояние одного тика со счётчиком другого.
func (e *Execution) Record() *domain.Execution {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := make(map[string]domain.NodeState, len(e.states))
	for id, state := range e.states {
		snapshot[id] = *state
	}

	rec := &domain.Execution{
		ID:          e.id,
		TemplateID:  e.templateID,
		Status:      e.status,
		CurrentTick: e.tick,
		NodeStates:  snapshot,
		Variables:   e.variables,
		Seed:        e.seed,
	}
	if !e.startedAt.IsZero() {
		started := e.startedAt
		rec.StartedAt = &started
	}
	return rec
}

// ID возвращает идентификатор execution.
func (e *Execution) ID() uuid.UUID {
	return e.id
}

// TemplateID возвращает идентификатор template.
func (e *Execution) TemplateID() uuid.UUID {
	return e.templateID
}

// Status возвращает текущий статус.
func (e *Execution) Status() domain.ExecutionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// CurrentTick возвращает количество завершённых тиков.
func (e *Execution) CurrentTick() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Seed возвращает seed генератора случайных чисел.
func (e *Execution) Seed() int64 {
	return e.seed
}

// Graph возвращает граф execution.
func (e *Execution) Graph() *engine.Graph {
	return e.graph
}
