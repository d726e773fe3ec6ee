package domain

// ExecutionStatus — статус выполнения execution.
//
// Жизненный цикл:
//
//	IDLE → RUNNING → PAUSED → RUNNING (resume)
//	               ↘ STOPPED
type ExecutionStatus string

const (
	// StatusIdle — execution создан, но ещё не запущен.
	StatusIdle ExecutionStatus = "IDLE"

	// StatusRunning — тики продвигаются.
	StatusRunning ExecutionStatus = "RUNNING"

	// StatusPaused — тики приостановлены, состояние сохранено.
	// Из PAUSED можно вернуться в RUNNING.
	StatusPaused ExecutionStatus = "PAUSED"

	// StatusStopped — execution остановлен окончательно.
	StatusStopped ExecutionStatus = "STOPPED"
)

// IsTerminal возвращает true, если статус финальный.
func (s ExecutionStatus) IsTerminal() bool {
	return s == StatusStopped
}

// CanTick возвращает true, если в этом статусе разрешены тики.
func (s ExecutionStatus) CanTick() bool {
	return s == StatusRunning
}

// CanResume возвращает true, если из этого статуса можно возобновиться.
func (s ExecutionStatus) CanResume() bool {
	return s == StatusPaused
}
