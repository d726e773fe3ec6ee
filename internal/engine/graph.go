package engine

import (
	"fmt"
	"sort"

	"github.com/shaiso/Simula/internal/domain"
)

// Validator проверяет, что конфигурация узла соответствует его типу.
// Реализуется реестром типов узлов (nodes.Registry).
type Validator interface {
	ValidateNode(node *domain.Node) error
}

// Input — входящая связь узла с признаком feedback.
type Input struct {
	// Source — ID узла-источника.
	Source string

	// Label — подпись ребра.
	Label string

	// Feedback — true, если ребро замыкает цикл.
	// Значение источника берётся с предыдущего тика.
	Feedback bool
}

// Graph — валидированный граф сценария с порядком вычисления.
//
// Циклы разрешены: ребро, которое замкнуло бы цикл, помечается как
// feedback-ребро и на каждом тике читает значение источника с
// предыдущего тика. Это даёт единственный корректный порядок
// вычисления на тик и детерминированные результаты.
type Graph struct {
	// Nodes — узлы графа (nodeID → Node).
	Nodes map[string]*domain.Node

	// Order — детерминированный порядок вычисления узлов.
	Order []string

	// inputs — входящие связи каждого узла (nodeID → []Input),
	// отсортированы по ID источника.
	inputs map[string][]Input

	// feedbackCount — количество feedback-рёбер.
	feedbackCount int
}

// Load строит Graph из сценария.
//
// Валидация:
// - Сценарий содержит хотя бы один узел
// - ID узлов непусты и уникальны
// - Конфигурация каждого узла соответствует типу (через validator)
// - Оба конца каждого ребра существуют (dangling edge — фатальная ошибка)
//
// После валидации вычисляется топологический порядок (алгоритм Кана
// с сортированной очередью готовых узлов). Если очередь пуста, а узлы
// остались — есть цикл: оставшийся узел с наименьшим ID принудительно
// объявляется готовым, его неразрешённые входящие рёбра становятся
// feedback-рёбрами. Выбор наименьшего ID делает разбиение циклов
// детерминированным.
func Load(sc *domain.Scenario, validator Validator) (*Graph, error) {
	if sc == nil || len(sc.Nodes) == 0 {
		return nil, ErrEmptyNodes
	}

	g := &Graph{
		Nodes:  make(map[string]*domain.Node, len(sc.Nodes)),
		inputs: make(map[string][]Input),
	}

	// Узлы: уникальность ID и соответствие конфигурации типу.
	for i := range sc.Nodes {
		node := &sc.Nodes[i]

		if node.ID == "" {
			return nil, NewValidationError("", "id", "node has empty ID", ErrEmptyNodeID)
		}
		if _, exists := g.Nodes[node.ID]; exists {
			return nil, NewValidationError(node.ID, "id",
				fmt.Sprintf("duplicate node ID: %s", node.ID), ErrDuplicateNodeID)
		}
		if validator != nil {
			if err := validator.ValidateNode(node); err != nil {
				return nil, err
			}
		}
		g.Nodes[node.ID] = node
	}

	// Рёбра: оба конца должны существовать.
	for _, edge := range sc.Edges {
		if _, ok := g.Nodes[edge.Source]; !ok {
			return nil, NewValidationError("", "edges",
				fmt.Sprintf("edge source references unknown node: %s", edge.Source), ErrDanglingEdge)
		}
		if _, ok := g.Nodes[edge.Target]; !ok {
			return nil, NewValidationError("", "edges",
				fmt.Sprintf("edge target references unknown node: %s", edge.Target), ErrDanglingEdge)
		}
	}

	g.buildOrder(sc.Edges)

	return g, nil
}

// buildOrder вычисляет порядок вычисления и классифицирует feedback-рёбра.
func (g *Graph) buildOrder(edges []domain.Edge) {
	// Входящие рёбра и inDegree без учёта петель (source == target).
	// Петля по построению всегда feedback.
	inDegree := make(map[string]int, len(g.Nodes))
	incoming := make(map[string][]int) // target → индексы рёбер
	feedback := make([]bool, len(edges))

	for id := range g.Nodes {
		inDegree[id] = 0
	}
	for i, e := range edges {
		if e.Source == e.Target {
			feedback[i] = true
			continue
		}
		incoming[e.Target] = append(incoming[e.Target], i)
		inDegree[e.Target]++
	}

	placed := make(map[string]bool, len(g.Nodes))
	order := make([]string, 0, len(g.Nodes))

	// ready — узлы с inDegree 0, извлекаем всегда наименьший ID.
	ready := make([]string, 0, len(g.Nodes))
	for id, d := range inDegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	outgoing := make(map[string][]int) // source → индексы рёбер
	for i, e := range edges {
		if !feedback[i] {
			outgoing[e.Source] = append(outgoing[e.Source], i)
		}
	}

	for len(order) < len(g.Nodes) {
		if len(ready) == 0 {
			// Цикл: принудительно освобождаем оставшийся узел
			// с наименьшим ID, его неразрешённые входящие рёбра
			// становятся feedback.
			victim := ""
			for id := range g.Nodes {
				if !placed[id] && (victim == "" || id < victim) {
					victim = id
				}
			}
			for _, ei := range incoming[victim] {
				if !feedback[ei] && !placed[edges[ei].Source] {
					feedback[ei] = true
				}
			}
			inDegree[victim] = 0
			ready = append(ready, victim)
		}

		id := ready[0]
		ready = ready[1:]
		if placed[id] {
			continue
		}
		placed[id] = true
		order = append(order, id)

		for _, ei := range outgoing[id] {
			if feedback[ei] {
				continue
			}
			target := edges[ei].Target
			inDegree[target]--
			if inDegree[target] == 0 && !placed[target] {
				ready = insertSorted(ready, target)
			}
		}
	}

	g.Order = order

	// Собираем входящие связи с признаком feedback.
	for i, e := range edges {
		g.inputs[e.Target] = append(g.inputs[e.Target], Input{
			Source:   e.Source,
			Label:    e.Label,
			Feedback: feedback[i],
		})
		if feedback[i] {
			g.feedbackCount++
		}
	}
	for id := range g.inputs {
		ins := g.inputs[id]
		sort.Slice(ins, func(a, b int) bool { return ins[a].Source < ins[b].Source })
	}
}

// insertSorted вставляет id в отсортированный слайс.
func insertSorted(s []string, id string) []string {
	i := sort.SearchStrings(s, id)
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = id
	return s
}

// Inputs возвращает входящие связи узла, отсортированные по источнику.
func (g *Graph) Inputs(nodeID string) []Input {
	return g.inputs[nodeID]
}

// Node возвращает узел по ID.
func (g *Graph) Node(id string) *domain.Node {
	return g.Nodes[id]
}

// Size возвращает количество узлов.
func (g *Graph) Size() int {
	return len(g.Nodes)
}

// FeedbackCount возвращает количество feedback-рёбер.
func (g *Graph) FeedbackCount() int {
	return g.feedbackCount
}
