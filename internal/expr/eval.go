// Package expr содержит вычислитель выражений для formula-узлов.
//
// Обёртка над expr-lang/expr: арифметика, сравнения, булевы операторы
// и встроенные математические функции. Грамматика не содержит операторов
// присваивания — выражение только читает контекст и выводит новое
// значение, не мутируя состояние симуляции.
package expr

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Result — результат вычисления выражения.
//
// Ошибки парсинга и вычисления никогда не поднимаются к вызывающему:
// они возвращаются текстом в Error, а Value становится nil.
type Result struct {
	// Value — вычисленное значение или nil при ошибке.
	Value any

	// Error — текст ошибки или пустая строка.
	Error string
}

// Evaluator — вычислитель выражений с кэшем скомпилированных программ.
//
// Evaluator — явное значение, передаваемое в конструкторы узлов;
// процесс-wide синглтонов здесь нет. Потокобезопасен.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// New создаёт новый Evaluator.
func New() *Evaluator {
	return &Evaluator{
		cache: make(map[string]*vm.Program),
	}
}

// Evaluate вычисляет формулу в контексте env.
//
// Ключи env адресуются dot-путями из выражения (например,
// inputs.NodeA.value при env = {"inputs": {"NodeA": {"value": 3}}}).
// Отсутствующие переменные дают nil, что приводит к ошибке вычисления
// в операциях над ними — ошибка возвращается в Result.Error.
func (e *Evaluator) Evaluate(formula string, env map[string]any) Result {
	program, err := e.compile(formula)
	if err != nil {
		return Result{Error: err.Error()}
	}

	if env == nil {
		env = map[string]any{}
	}

	value, err := vm.Run(program, env)
	if err != nil {
		return Result{Error: err.Error()}
	}

	return Result{Value: value}
}

// compile возвращает скомпилированную программу из кэша или компилирует.
func (e *Evaluator) compile(formula string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.cache[formula]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(formula)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[formula] = program
	e.mu.Unlock()

	return program, nil
}
