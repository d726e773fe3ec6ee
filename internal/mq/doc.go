// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - execution.pending  — новый execution ожидает запуска
//   - execution.control  — команда pause/resume/stop
//   - execution.snapshot — снимок состояния после тика
//
// Exchanges:
//   - simula.executions — команды жизненного цикла executions
//   - simula.snapshots  — fanout поток снимков для подписчиков
//   - simula.dlq        — dead letter queue
package mq
