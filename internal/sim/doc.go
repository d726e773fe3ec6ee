// Package sim исполняет симуляции.
//
// Execution держит runtime-состояние одного прогона: граф, значения
// узлов, счётчик тиков, генератор случайных чисел. Tick прогоняет все
// узлы в порядке зависимостей за один шаг модельного времени.
//
// Manager — ядро engine-демона:
//   - Получает новые executions из очереди RabbitMQ
//   - Держит каждый активный execution на собственном тикере
//   - Применяет команды pause/resume/stop
//   - Персистит состояние и публикует снимок после каждого тика
//
// Manager — это "сердце" системы, которое двигает модельное время.
package sim
