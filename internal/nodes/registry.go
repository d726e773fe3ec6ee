package nodes

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/Simula/internal/domain"
	"github.com/shaiso/Simula/internal/engine"
	"github.com/shaiso/Simula/internal/expr"
)

// Registry — реестр типов узлов.
//
// Позволяет регистрировать и получать стратегии вычисления по тегу типа.
// Реализует engine.Validator: модель графа проверяет через реестр,
// что тип узла известен и конфигурация ему соответствует.
// Потокобезопасен.
type Registry struct {
	mu         sync.RWMutex
	evaluators map[string]Evaluator
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		evaluators: make(map[string]Evaluator),
	}
}

// DefaultRegistry создаёт реестр со всеми стандартными типами узлов.
func DefaultRegistry(ev *expr.Evaluator) *Registry {
	r := NewRegistry()

	r.Register(NewDataSourceNode())
	r.Register(NewFormulaNode(ev))
	r.Register(NewOutputNode())
	r.Register(NewConstantNode())

	return r
}

// Register регистрирует стратегию в реестре.
// Стратегия с уже существующим типом перезаписывается.
func (r *Registry) Register(ev Evaluator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluators[ev.Type()] = ev
}

// Get возвращает стратегию по типу.
// Возвращает ErrTypeNotFound, если тип не зарегистрирован.
func (r *Registry) Get(nodeType string) (Evaluator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ev, exists := r.evaluators[nodeType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, nodeType)
	}

	return ev, nil
}

// Has проверяет, зарегистрирован ли тип.
func (r *Registry) Has(nodeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.evaluators[nodeType]
	return exists
}

// Types возвращает отсортированный список зарегистрированных типов.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.evaluators))
	for t := range r.evaluators {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ValidateNode реализует engine.Validator.
//
// Проверяет, что тип узла известен, и делегирует проверку
// конфигурации его стратегии.
func (r *Registry) ValidateNode(node *domain.Node) error {
	ev, err := r.Get(node.Type)
	if err != nil {
		return engine.NewValidationError(node.ID, "type",
			fmt.Sprintf("unknown node type: %s", node.Type), engine.ErrUnknownNodeType)
	}

	if err := ev.ValidateConfig(node.Config); err != nil {
		return engine.NewValidationError(node.ID, "config",
			fmt.Sprintf("config does not match type %s: %v", node.Type, err),
			engine.ErrInvalidNodeConfig)
	}

	return nil
}
