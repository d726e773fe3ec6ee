// Package engine содержит модель графа симуляции.
//
// Включает:
//   - graph.go    — валидация сценария, порядок вычисления, feedback-рёбра
//   - template.go — подстановка переменных {{var.path}} в конфигурацию узлов
//
// Engine отвечает за понимание структуры сценария и определение
// детерминированного порядка вычисления узлов. Циклы в графе разрешены:
// ребро, замыкающее цикл, классифицируется как feedback-ребро и читает
// значение источника с предыдущего тика.
package engine
