package nodes

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shaiso/Simula/internal/domain"
	"github.com/shaiso/Simula/internal/engine"
	"github.com/shaiso/Simula/internal/expr"
)

func TestDataSource_SamplesInRange(t *testing.T) {
	n := NewDataSourceNode()
	rng := rand.New(rand.NewSource(1))

	node := &domain.Node{
		ID:   "src",
		Type: TypeDataSource,
		Config: map[string]any{
			"interval":  1,
			"value_min": 18.0,
			"value_max": 26.0,
		},
	}

	for tick := 0; tick < 50; tick++ {
		resp, err := n.Evaluate(&Request{Node: node, Tick: tick, Rand: rng})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		v, ok := resp.Value.(float64)
		if !ok {
			t.Fatalf("expected float64, got %T", resp.Value)
		}
		if v < 18.0 || v > 26.0 {
			t.Errorf("tick %d: value %g out of range [18, 26]", tick, v)
		}
		if resp.Retained {
			t.Errorf("tick %d: interval 1 should sample every tick", tick)
		}
	}
}

func TestDataSource_IntervalGating(t *testing.T) {
	n := NewDataSourceNode()
	rng := rand.New(rand.NewSource(1))

	node := &domain.Node{
		ID:   "src",
		Type: TypeDataSource,
		Config: map[string]any{
			"interval":  3,
			"value_min": 0.0,
			"value_max": 1.0,
		},
	}

	// Тик 0 кратен interval — семплируем
	resp, err := n.Evaluate(&Request{Node: node, Tick: 0, Rand: rng})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Retained {
		t.Error("tick 0 should sample")
	}
	sampled := resp.Value

	// Тики 1 и 2 сохраняют предыдущее значение
	prev := domain.NodeState{Value: sampled, Details: resp.Details}
	for tick := 1; tick <= 2; tick++ {
		resp, err = n.Evaluate(&Request{Node: node, Tick: tick, Previous: prev, Rand: rng})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !resp.Retained {
			t.Errorf("tick %d: should retain previous value", tick)
		}
		if resp.Value != sampled {
			t.Errorf("tick %d: expected retained value %v, got %v", tick, sampled, resp.Value)
		}
	}

	// Тик 3 снова семплирует
	resp, err = n.Evaluate(&Request{Node: node, Tick: 3, Previous: prev, Rand: rng})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Retained {
		t.Error("tick 3 should sample again")
	}
}

func TestDataSource_SeedReproducible(t *testing.T) {
	n := NewDataSourceNode()
	node := &domain.Node{
		ID:   "src",
		Type: TypeDataSource,
		Config: map[string]any{
			"value_min": 0.0,
			"value_max": 100.0,
		},
	}

	sample := func(seed int64) []any {
		rng := rand.New(rand.NewSource(seed))
		values := make([]any, 0, 10)
		for tick := 0; tick < 10; tick++ {
			resp, err := n.Evaluate(&Request{Node: node, Tick: tick, Rand: rng})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			values = append(values, resp.Value)
		}
		return values
	}

	first := sample(42)
	second := sample(42)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("tick %d: same seed should give same value, got %v and %v",
				i, first[i], second[i])
		}
	}
}

func TestDataSource_ValidateConfig(t *testing.T) {
	n := NewDataSourceNode()

	if err := n.ValidateConfig(map[string]any{"interval": 1}); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	err := n.ValidateConfig(map[string]any{"interval": 0})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for interval 0, got %v", err)
	}

	err = n.ValidateConfig(map[string]any{"value_min": 10.0, "value_max": 5.0})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for min > max, got %v", err)
	}
}

func TestFormula_Evaluate(t *testing.T) {
	n := NewFormulaNode(expr.New())

	node := &domain.Node{
		ID:   "calc",
		Type: TypeFormula,
		Config: map[string]any{
			"expression": "inputs.a.value + inputs.b.value",
		},
	}

	resp, err := n.Evaluate(&Request{
		Node:     node,
		Tick:     0,
		Upstream: map[string]any{"a": 2.0, "b": 3.0},
		Sources:  []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Value != 5.0 {
		t.Errorf("expected 5.0, got %v", resp.Value)
	}
}

func TestFormula_TickInEnv(t *testing.T) {
	n := NewFormulaNode(expr.New())

	node := &domain.Node{
		ID:   "calc",
		Type: TypeFormula,
		Config: map[string]any{
			"expression": "tick * 10",
		},
	}

	resp, err := n.Evaluate(&Request{Node: node, Tick: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Value != 70 {
		t.Errorf("expected 70, got %v", resp.Value)
	}
}

func TestFormula_ErrorReturned(t *testing.T) {
	n := NewFormulaNode(expr.New())

	node := &domain.Node{
		ID:   "calc",
		Type: TypeFormula,
		Config: map[string]any{
			"expression": "inputs.missing.value * 2",
		},
	}

	// Источник с ошибкой даёт nil, операция над nil — ошибку вычисления
	_, err := n.Evaluate(&Request{
		Node:     node,
		Tick:     0,
		Upstream: map[string]any{"missing": nil},
		Sources:  []string{"missing"},
	})
	if err == nil {
		t.Fatal("expected evaluation error")
	}
}

func TestFormula_ValidateConfig(t *testing.T) {
	n := NewFormulaNode(expr.New())

	if err := n.ValidateConfig(map[string]any{"expression": "1 + 1"}); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	err := n.ValidateConfig(map[string]any{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for missing expression, got %v", err)
	}
}

func TestOutput_PassThrough(t *testing.T) {
	n := NewOutputNode()

	node := &domain.Node{ID: "out", Type: TypeOutput}

	resp, err := n.Evaluate(&Request{
		Node:     node,
		Upstream: map[string]any{"src": 42.0},
		Sources:  []string{"src"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Value != 42.0 {
		t.Errorf("expected 42.0, got %v", resp.Value)
	}
}

func TestOutput_NoUpstream(t *testing.T) {
	n := NewOutputNode()

	resp, err := n.Evaluate(&Request{Node: &domain.Node{ID: "out", Type: TypeOutput}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Value != nil {
		t.Errorf("expected nil without upstream, got %v", resp.Value)
	}
	if resp.Details == "" {
		t.Error("expected details explaining missing upstream")
	}
}

func TestOutput_MultipleUpstream(t *testing.T) {
	n := NewOutputNode()

	// При нескольких источниках берётся первый по порядку
	resp, err := n.Evaluate(&Request{
		Node:     &domain.Node{ID: "out", Type: TypeOutput},
		Upstream: map[string]any{"a": 1.0, "b": 2.0},
		Sources:  []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Value != 1.0 {
		t.Errorf("expected value of first source, got %v", resp.Value)
	}
	if resp.Details == "" {
		t.Error("expected details mentioning extra upstream nodes")
	}
}

func TestConstant_Evaluate(t *testing.T) {
	n := NewConstantNode()

	node := &domain.Node{
		ID:   "const",
		Type: TypeConstant,
		Config: map[string]any{
			"value": 21.5,
		},
	}

	// Первый тик — активное значение
	resp, err := n.Evaluate(&Request{Node: node, Tick: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Value != 21.5 {
		t.Errorf("expected 21.5, got %v", resp.Value)
	}
	if resp.Retained {
		t.Error("tick 0 should not be retained")
	}

	// Последующие тики — retained
	resp, err = n.Evaluate(&Request{Node: node, Tick: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Value != 21.5 {
		t.Errorf("expected 21.5, got %v", resp.Value)
	}
	if !resp.Retained {
		t.Error("tick 1 should be retained")
	}
}

func TestConstant_ValidateConfig(t *testing.T) {
	n := NewConstantNode()

	if err := n.ValidateConfig(map[string]any{"value": 0}); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	err := n.ValidateConfig(map[string]any{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for missing value, got %v", err)
	}
}

func TestRegistry_GetAndTypes(t *testing.T) {
	r := DefaultRegistry(expr.New())

	for _, typ := range []string{TypeDataSource, TypeFormula, TypeOutput, TypeConstant} {
		ev, err := r.Get(typ)
		if err != nil {
			t.Errorf("type %s should be registered: %v", typ, err)
		}
		if ev.Type() != typ {
			t.Errorf("expected type %s, got %s", typ, ev.Type())
		}
	}

	_, err := r.Get("teleport")
	if !errors.Is(err, ErrTypeNotFound) {
		t.Errorf("expected ErrTypeNotFound, got %v", err)
	}

	types := r.Types()
	if len(types) != 4 {
		t.Errorf("expected 4 types, got %v", types)
	}
	// Types отсортированы
	for i := 1; i < len(types); i++ {
		if types[i-1] > types[i] {
			t.Errorf("types should be sorted, got %v", types)
		}
	}
}

func TestRegistry_ValidateNode(t *testing.T) {
	r := DefaultRegistry(expr.New())

	err := r.ValidateNode(&domain.Node{ID: "x", Type: "teleport"})
	if !errors.Is(err, engine.ErrUnknownNodeType) {
		t.Errorf("expected ErrUnknownNodeType, got %v", err)
	}

	err = r.ValidateNode(&domain.Node{
		ID:     "calc",
		Type:   TypeFormula,
		Config: map[string]any{},
	})
	if !errors.Is(err, engine.ErrInvalidNodeConfig) {
		t.Errorf("expected ErrInvalidNodeConfig, got %v", err)
	}

	err = r.ValidateNode(&domain.Node{
		ID:     "calc",
		Type:   TypeFormula,
		Config: map[string]any{"expression": "1 + tick"},
	})
	if err != nil {
		t.Errorf("valid node rejected: %v", err)
	}
}

func TestGetConfigHelpers_StringNumerics(t *testing.T) {
	// После подстановки {{var}} числа приходят строками
	config := map[string]any{
		"interval":  "5",
		"value_max": "26.5",
	}

	if got := GetConfigInt(config, "interval", 1); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
	if got := GetConfigFloat(config, "value_max", 0); got != 26.5 {
		t.Errorf("expected 26.5, got %g", got)
	}

	// Неразборчивые строки дают default
	if got := GetConfigInt(map[string]any{"interval": "{{x}}"}, "interval", 7); got != 7 {
		t.Errorf("expected default 7, got %d", got)
	}
}
