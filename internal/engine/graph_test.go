package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Simula/internal/domain"
)

func TestLoad_SimpleChain(t *testing.T) {
	sc := &domain.Scenario{
		Nodes: []domain.Node{
			{ID: "A", Type: "datasource"},
			{ID: "B", Type: "formula"},
			{ID: "C", Type: "output"},
		},
		Edges: []domain.Edge{
			{Source: "A", Target: "B"},
			{Source: "B", Target: "C"},
		},
	}

	g, err := Load(sc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Проверяем количество узлов
	if g.Size() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.Size())
	}

	// Порядок вычисления: A перед B, B перед C
	if len(g.Order) != 3 {
		t.Fatalf("expected 3 nodes in order, got %d", len(g.Order))
	}
	positions := make(map[string]int)
	for i, id := range g.Order {
		positions[id] = i
	}
	if positions["A"] > positions["B"] {
		t.Error("A should come before B")
	}
	if positions["B"] > positions["C"] {
		t.Error("B should come before C")
	}

	// Feedback-рёбер нет
	if g.FeedbackCount() != 0 {
		t.Errorf("expected no feedback edges, got %d", g.FeedbackCount())
	}
}

func TestLoad_Diamond(t *testing.T) {
	// A → B → D
	// A → C → D
	sc := &domain.Scenario{
		Nodes: []domain.Node{
			{ID: "A", Type: "datasource"},
			{ID: "B", Type: "formula"},
			{ID: "C", Type: "formula"},
			{ID: "D", Type: "output"},
		},
		Edges: []domain.Edge{
			{Source: "A", Target: "B"},
			{Source: "A", Target: "C"},
			{Source: "B", Target: "D"},
			{Source: "C", Target: "D"},
		},
	}

	g, err := Load(sc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Проверяем, что D видит два источника
	inputs := g.Inputs("D")
	if len(inputs) != 2 {
		t.Fatalf("node D should have 2 inputs, got %d", len(inputs))
	}

	// Входы отсортированы по ID источника
	if inputs[0].Source != "B" || inputs[1].Source != "C" {
		t.Errorf("inputs should be sorted by source, got %s, %s",
			inputs[0].Source, inputs[1].Source)
	}

	positions := make(map[string]int)
	for i, id := range g.Order {
		positions[id] = i
	}
	if positions["A"] > positions["B"] || positions["A"] > positions["C"] {
		t.Error("A should come before B and C")
	}
	if positions["B"] > positions["D"] || positions["C"] > positions["D"] {
		t.Error("B and C should come before D")
	}
}

func TestLoad_DeterministicOrder(t *testing.T) {
	// Независимые узлы встают в порядок по возрастанию ID
	sc := &domain.Scenario{
		Nodes: []domain.Node{
			{ID: "zulu", Type: "constant"},
			{ID: "alpha", Type: "constant"},
			{ID: "mike", Type: "constant"},
		},
	}

	for i := 0; i < 10; i++ {
		g, err := Load(sc, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if g.Order[0] != "alpha" || g.Order[1] != "mike" || g.Order[2] != "zulu" {
			t.Fatalf("expected [alpha mike zulu], got %v", g.Order)
		}
	}
}

func TestLoad_EmptyScenario(t *testing.T) {
	_, err := Load(&domain.Scenario{}, nil)
	if !errors.Is(err, ErrEmptyNodes) {
		t.Errorf("expected ErrEmptyNodes, got %v", err)
	}

	_, err = Load(nil, nil)
	if !errors.Is(err, ErrEmptyNodes) {
		t.Errorf("expected ErrEmptyNodes for nil scenario, got %v", err)
	}
}

func TestLoad_DuplicateNodeID(t *testing.T) {
	sc := &domain.Scenario{
		Nodes: []domain.Node{
			{ID: "A", Type: "constant"},
			{ID: "A", Type: "constant"},
		},
	}

	_, err := Load(sc, nil)
	if !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("expected ErrDuplicateNodeID, got %v", err)
	}

	// Ошибка несёт контекст узла
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.NodeID != "A" {
		t.Errorf("expected NodeID A, got %q", verr.NodeID)
	}
}

func TestLoad_EmptyNodeID(t *testing.T) {
	sc := &domain.Scenario{
		Nodes: []domain.Node{
			{ID: "", Type: "constant"},
		},
	}

	_, err := Load(sc, nil)
	if !errors.Is(err, ErrEmptyNodeID) {
		t.Errorf("expected ErrEmptyNodeID, got %v", err)
	}
}

func TestLoad_DanglingEdge(t *testing.T) {
	sc := &domain.Scenario{
		Nodes: []domain.Node{
			{ID: "A", Type: "constant"},
		},
		Edges: []domain.Edge{
			{Source: "A", Target: "ghost"},
		},
	}

	_, err := Load(sc, nil)
	if !errors.Is(err, ErrDanglingEdge) {
		t.Errorf("expected ErrDanglingEdge for unknown target, got %v", err)
	}

	sc = &domain.Scenario{
		Nodes: []domain.Node{
			{ID: "A", Type: "constant"},
		},
		Edges: []domain.Edge{
			{Source: "ghost", Target: "A"},
		},
	}

	_, err = Load(sc, nil)
	if !errors.Is(err, ErrDanglingEdge) {
		t.Errorf("expected ErrDanglingEdge for unknown source, got %v", err)
	}
}

func TestLoad_CycleBecomesFeedback(t *testing.T) {
	// A → B → C → A: цикл не фатален, одно ребро становится feedback
	sc := &domain.Scenario{
		Nodes: []domain.Node{
			{ID: "A", Type: "formula"},
			{ID: "B", Type: "formula"},
			{ID: "C", Type: "formula"},
		},
		Edges: []domain.Edge{
			{Source: "A", Target: "B"},
			{Source: "B", Target: "C"},
			{Source: "C", Target: "A"},
		},
	}

	g, err := Load(sc, nil)
	if err != nil {
		t.Fatalf("cycle should not be fatal, got %v", err)
	}

	if g.FeedbackCount() != 1 {
		t.Fatalf("expected 1 feedback edge, got %d", g.FeedbackCount())
	}

	// Жертва разбиения — узел с наименьшим ID, поэтому feedback
	// получает ребро C → A
	inputsA := g.Inputs("A")
	if len(inputsA) != 1 || !inputsA[0].Feedback {
		t.Error("edge C -> A should be marked as feedback")
	}
	if g.Inputs("B")[0].Feedback || g.Inputs("C")[0].Feedback {
		t.Error("forward edges should not be marked as feedback")
	}

	// Порядок после разбиения: A, B, C
	if g.Order[0] != "A" || g.Order[1] != "B" || g.Order[2] != "C" {
		t.Errorf("expected order [A B C], got %v", g.Order)
	}
}

func TestLoad_SelfLoop(t *testing.T) {
	// Петля всегда feedback: узел читает своё значение с прошлого тика
	sc := &domain.Scenario{
		Nodes: []domain.Node{
			{ID: "acc", Type: "formula"},
		},
		Edges: []domain.Edge{
			{Source: "acc", Target: "acc"},
		},
	}

	g, err := Load(sc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inputs := g.Inputs("acc")
	if len(inputs) != 1 || !inputs[0].Feedback {
		t.Error("self-loop should be marked as feedback")
	}
	if g.FeedbackCount() != 1 {
		t.Errorf("expected 1 feedback edge, got %d", g.FeedbackCount())
	}
}

func TestLoad_TwoIndependentCycles(t *testing.T) {
	// Два независимых цикла: в каждом ровно одно feedback-ребро
	sc := &domain.Scenario{
		Nodes: []domain.Node{
			{ID: "A", Type: "formula"},
			{ID: "B", Type: "formula"},
			{ID: "X", Type: "formula"},
			{ID: "Y", Type: "formula"},
		},
		Edges: []domain.Edge{
			{Source: "A", Target: "B"},
			{Source: "B", Target: "A"},
			{Source: "X", Target: "Y"},
			{Source: "Y", Target: "X"},
		},
	}

	g, err := Load(sc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.FeedbackCount() != 2 {
		t.Errorf("expected 2 feedback edges, got %d", g.FeedbackCount())
	}
	if len(g.Order) != 4 {
		t.Errorf("expected all 4 nodes in order, got %v", g.Order)
	}
}

type rejectValidator struct {
	rejectID string
}

func (v *rejectValidator) ValidateNode(node *domain.Node) error {
	if node.ID == v.rejectID {
		return NewValidationError(node.ID, "config", "rejected", ErrInvalidNodeConfig)
	}
	return nil
}

func TestLoad_ValidatorRejectsNode(t *testing.T) {
	sc := &domain.Scenario{
		Nodes: []domain.Node{
			{ID: "ok", Type: "constant"},
			{ID: "bad", Type: "constant"},
		},
	}

	_, err := Load(sc, &rejectValidator{rejectID: "bad"})
	if !errors.Is(err, ErrInvalidNodeConfig) {
		t.Errorf("expected ErrInvalidNodeConfig, got %v", err)
	}
}
