package nodes

import "fmt"

// TypeOutput — тег типа выходного узла.
const TypeOutput = "output"

// OutputNode — узел-приёмник.
//
// Пропускает значение единственного источника без изменений;
// используется как точка наблюдения для UI и внешних потребителей.
// Узел без входящих связей выдаёт nil.
type OutputNode struct{}

// NewOutputNode создаёт новый OutputNode.
func NewOutputNode() *OutputNode {
	return &OutputNode{}
}

// Type возвращает тег типа.
func (n *OutputNode) Type() string {
	return TypeOutput
}

// ValidateConfig — у output нет обязательной конфигурации.
func (n *OutputNode) ValidateConfig(config map[string]any) error {
	return nil
}

// Evaluate пропускает значение источника.
//
// При нескольких источниках берётся первый по порядку (наименьший ID),
// остальные отмечаются в Details.
func (n *OutputNode) Evaluate(req *Request) (*Response, error) {
	if len(req.Sources) == 0 {
		return &Response{
			Value:   nil,
			Details: "no upstream connected",
		}, nil
	}

	source := req.Sources[0]
	resp := &Response{Value: req.Upstream[source]}

	if len(req.Sources) > 1 {
		resp.Details = fmt.Sprintf("passing through %s (%d upstream nodes connected)",
			source, len(req.Sources))
	}

	return resp, nil
}
