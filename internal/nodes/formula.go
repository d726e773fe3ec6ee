package nodes

import (
	"errors"
	"fmt"

	"github.com/shaiso/Simula/internal/expr"
)

const (
	// TypeFormula — тег типа формульного узла.
	TypeFormula = "formula"

	// Ключ конфигурации.
	configExpression = "expression"
)

// FormulaNode — вычисляемый узел.
//
// Строит контекст из значений узлов-источников и делегирует
// вычисление выражению. Значения источников адресуются как
// inputs.{sourceID}.value, номер тика — как tick.
//
// Конфигурация:
//
//	{
//	    "expression": "inputs.temp.value * 1.8 + 32"
//	}
//
// Ошибка вычисления (синтаксис, отсутствующая переменная, операция
// над nil от ошибочного источника) возвращается дословно и попадает
// в NodeState.Error этого узла; значение на тике становится nil.
// Остальной граф продолжает вычисляться.
type FormulaNode struct {
	eval *expr.Evaluator
}

// NewFormulaNode создаёт новый FormulaNode с явным вычислителем.
func NewFormulaNode(eval *expr.Evaluator) *FormulaNode {
	return &FormulaNode{eval: eval}
}

// Type возвращает тег типа.
func (n *FormulaNode) Type() string {
	return TypeFormula
}

// ValidateConfig проверяет конфигурацию formula.
//
// Выражение не компилируется при загрузке: ошибка парсинга — это
// ошибка вычисления (локальная для узла), а не ошибка построения.
func (n *FormulaNode) ValidateConfig(config map[string]any) error {
	if GetConfigString(config, configExpression) == "" {
		return fmt.Errorf("%w: %s: expression is required",
			ErrInvalidConfig, TypeFormula)
	}
	return nil
}

// Evaluate вычисляет выражение узла над значениями источников.
func (n *FormulaNode) Evaluate(req *Request) (*Response, error) {
	formula := GetConfigString(req.Node.Config, configExpression)

	inputs := make(map[string]any, len(req.Upstream))
	for sourceID, value := range req.Upstream {
		inputs[sourceID] = map[string]any{"value": value}
	}

	env := map[string]any{
		"inputs": inputs,
		"tick":   req.Tick,
	}

	result := n.eval.Evaluate(formula, env)
	if result.Error != "" {
		return nil, errors.New(result.Error)
	}

	return &Response{Value: result.Value}, nil
}
