// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler с DI (репозитории, registry, publisher, logger)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (logging, recovery)
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - template_handler.go  — обработчики для /templates и /node-types
//   - execution_handler.go — обработчики для /executions
//   - schedule_handler.go  — обработчики для /schedules
//
// API предоставляет REST endpoints для управления templates,
// executions и schedules. Команды pause/resume/stop публикуются в
// RabbitMQ и применяются engine-демоном асинхронно.
package api
