package nodes

import "fmt"

const (
	// TypeConstant — тег типа константного узла.
	TypeConstant = "constant"

	// Ключ конфигурации.
	configValue = "value"
)

// ConstantNode — узел с фиксированным значением из конфигурации.
//
// Удобен как стабильный операнд для формул (пороги, коэффициенты),
// параметризуемый через {{var.path}} в конфигурации.
//
// Конфигурация:
//
//	{
//	    "value": 21.5
//	}
type ConstantNode struct{}

// NewConstantNode создаёт новый ConstantNode.
func NewConstantNode() *ConstantNode {
	return &ConstantNode{}
}

// Type возвращает тег типа.
func (n *ConstantNode) Type() string {
	return TypeConstant
}

// ValidateConfig проверяет наличие value.
func (n *ConstantNode) ValidateConfig(config map[string]any) error {
	if !HasConfigKey(config, configValue) {
		return fmt.Errorf("%w: %s: value is required", ErrInvalidConfig, TypeConstant)
	}
	return nil
}

// Evaluate возвращает сконфигурированное значение.
//
// Значение не меняется между тиками, поэтому после первого тика
// узел отчитывается как retained и не пульсирует в UI.
func (n *ConstantNode) Evaluate(req *Request) (*Response, error) {
	value := req.Node.Config[configValue]

	if req.Tick > 0 {
		return &Response{Value: value, Retained: true}, nil
	}

	return &Response{Value: value}, nil
}
