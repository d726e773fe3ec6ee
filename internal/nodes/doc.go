// Package nodes содержит реестр типов узлов и стандартные стратегии
// их вычисления.
//
// # Обзор
//
// Каждый тип узла — стратегия, реализующая интерфейс Evaluator:
//
//	type Evaluator interface {
//	    Type() string
//	    ValidateConfig(config map[string]any) error
//	    Evaluate(req *Request) (*Response, error)
//	}
//
// Request содержит узел с подставленной конфигурацией, номер тика,
// значения источников (feedback-рёбра уже разрешены планировщиком),
// состояние узла с предыдущего тика и сидированный генератор
// случайных чисел execution.
//
// # Типы узлов
//
// ## datasource (datasource.go)
//
// На тиках, кратных interval, семплирует равномерное значение из
// [value_min, value_max]; иначе сохраняет предыдущее значение.
//
// ## formula (formula.go)
//
// Вычисляет выражение над значениями источников через internal/expr.
// Контекст: inputs.{sourceID}.value и tick. Ошибка вычисления
// попадает в NodeState.Error узла и не прерывает тик.
//
// ## output (output.go)
//
// Пропускает значение единственного источника; точка наблюдения.
//
// ## constant (constant.go)
//
// Фиксированное значение из конфигурации.
//
// # Registry
//
// Registry — потокобезопасная фабрика стратегий по тегу типа.
// Реализует engine.Validator: при загрузке графа проверяет, что тип
// узла известен и конфигурация ему соответствует. Добавление нового
// типа узла не требует изменений в планировщике или модели графа:
//
//	registry := nodes.DefaultRegistry(expr.New())
//	registry.Register(&MyCustomNode{})
//
// # Файлы пакета
//
//   - node.go       — интерфейс Evaluator, Request, Response, хелперы конфига
//   - registry.go   — Registry и валидация узлов при загрузке
//   - datasource.go — DataSourceNode
//   - formula.go    — FormulaNode
//   - output.go     — OutputNode
//   - constant.go   — ConstantNode
package nodes
