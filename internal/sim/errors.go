package sim

import "errors"

// Ошибки состояния симуляции.
var (
	// ErrNotRunning — операция требует статуса RUNNING.
	// Тик вне RUNNING — отклонённая операция, состояние не меняется.
	ErrNotRunning = errors.New("execution is not running")

	// ErrNotPaused — возобновление возможно только из PAUSED.
	ErrNotPaused = errors.New("execution is not paused")

	// ErrAlreadyStarted — повторный старт запущенного execution.
	ErrAlreadyStarted = errors.New("execution already started")

	// ErrStopped — execution остановлен окончательно.
	ErrStopped = errors.New("execution is stopped")

	// ErrExecutionActive — execution уже обрабатывается менеджером.
	ErrExecutionActive = errors.New("execution already active")

	// ErrExecutionNotPending — запуск возможен только из IDLE.
	ErrExecutionNotPending = errors.New("execution is not pending")

	// ErrExecutionNotActive — execution не найден среди активных.
	ErrExecutionNotActive = errors.New("execution not active")
)
