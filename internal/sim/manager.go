package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Simula/internal/domain"
	"github.com/shaiso/Simula/internal/mq"
	"github.com/shaiso/Simula/internal/nodes"
	"github.com/shaiso/Simula/internal/repo"
	"github.com/shaiso/Simula/internal/telemetry"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 100
	defaultTickInterval = time.Second
)

// Manager управляет работающими executions в engine-демоне.
//
// Manager — центральный компонент engine, который:
//   - Получает новые executions из очереди RabbitMQ (event-driven)
//   - Периодически проверяет pending executions в БД (polling fallback)
//   - Держит каждый активный execution на собственном тикере
//   - Применяет команды pause/resume/stop из очереди управления
//   - Персистит состояние и публикует снимок после каждого тика
type Manager struct {
	// Repositories
	executionRepo *repo.ExecutionRepo
	templateRepo  *repo.TemplateRepo

	// MQ
	publisher *mq.Publisher
	conn      *mq.Connection

	// Registry — реестр типов узлов для сборки executions.
	registry *nodes.Registry

	// Active executions (executionID → состояние тикера)
	active map[uuid.UUID]*activeExecution
	mu     sync.RWMutex

	// Consumers
	pendingConsumer *mq.Consumer
	controlConsumer *mq.Consumer

	// Configuration
	pollInterval time.Duration
	batchSize    int
	tickInterval time.Duration

	// Lifecycle
	logger     *slog.Logger
	baseCtx    context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// activeExecution — execution, запущенный на тикере внутри Manager.
type activeExecution struct {
	exec     *Execution
	interval time.Duration
	cancel   context.CancelFunc
}

// ManagerConfig — конфигурация Manager.
type ManagerConfig struct {
	// Repositories
	ExecutionRepo *repo.ExecutionRepo
	TemplateRepo  *repo.TemplateRepo

	// MQ
	Publisher *mq.Publisher
	Conn      *mq.Connection

	// Registry — реестр типов узлов.
	Registry *nodes.Registry

	// Polling configuration
	PollInterval time.Duration // интервал polling (default: 10s)
	BatchSize    int           // количество executions за один poll (default: 100)

	// TickInterval — интервал тика, если execution не задал свой (default: 1s).
	TickInterval time.Duration

	// Logger
	Logger *slog.Logger
}

// NewManager создаёт новый Manager.
func NewManager(cfg ManagerConfig) *Manager {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		executionRepo: cfg.ExecutionRepo,
		templateRepo:  cfg.TemplateRepo,
		publisher:     cfg.Publisher,
		conn:          cfg.Conn,
		registry:      cfg.Registry,
		active:        make(map[uuid.UUID]*activeExecution),
		pollInterval:  pollInterval,
		batchSize:     batchSize,
		tickInterval:  tickInterval,
		logger:        logger,
	}
}

// Start запускает Manager.
//
// Запускает:
//   - Consumer для executions.pending
//   - Consumer для executions.control
//   - Polling горутину для fallback
func (m *Manager) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.baseCtx = ctx
	m.cancelFunc = cancel

	m.logger.Info("starting engine manager",
		"poll_interval", m.pollInterval,
		"batch_size", m.batchSize,
		"tick_interval", m.tickInterval,
	)

	// Создаём consumers
	m.pendingConsumer = mq.NewConsumer(m.conn, m.logger, mq.ConsumerConfig{
		Queue:    mq.QueueExecutionsPending,
		Handler:  m.handleExecutionPending,
		Prefetch: 10,
	})

	m.controlConsumer = mq.NewConsumer(m.conn, m.logger, mq.ConsumerConfig{
		Queue:    mq.QueueExecutionsControl,
		Handler:  m.handleControl,
		Prefetch: 10,
	})

	// Запускаем pending consumer
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.pendingConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("pending consumer error", "error", err)
		}
	}()

	// Запускаем control consumer
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.controlConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("control consumer error", "error", err)
		}
	}()

	// Запускаем polling
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.pollLoop(ctx)
	}()

	m.logger.Info("engine manager started")
	return nil
}

// Stop останавливает Manager.
//
// Активные executions переводятся в PAUSED и персистятся: после
// рестарта их можно возобновить командой resume.
func (m *Manager) Stop() {
	m.logger.Info("stopping engine manager...")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if m.pendingConsumer != nil {
		m.pendingConsumer.Stop()
	}
	if m.controlConsumer != nil {
		m.controlConsumer.Stop()
	}

	// Ждём завершения тикеров и consumers
	m.wg.Wait()

	// Персистим то, что осталось активным
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m.mu.Lock()
	remaining := make([]*activeExecution, 0, len(m.active))
	for _, a := range m.active {
		remaining = append(remaining, a)
	}
	m.active = make(map[uuid.UUID]*activeExecution)
	m.mu.Unlock()

	for _, a := range remaining {
		if a.exec.Status() == domain.StatusRunning {
			if err := a.exec.Pause(); err != nil {
				m.logger.Warn("pause on shutdown failed",
					"execution_id", a.exec.ID(),
					"error", err,
				)
			}
		}
		if err := m.persist(ctx, a.exec); err != nil {
			m.logger.Error("persist on shutdown failed",
				"execution_id", a.exec.ID(),
				"error", err,
			)
		}
	}
	telemetry.ExecutionsActive.Set(0)

	m.logger.Info("engine manager stopped", "parked_executions", len(remaining))
}

// ActiveCount возвращает количество активных executions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// pollLoop — цикл polling для fallback.
func (m *Manager) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем executions, созданные
	// пока engine был выключен)
	m.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (m *Manager) poll(ctx context.Context) {
	pending, err := m.executionRepo.ListPending(ctx, m.batchSize)
	if err != nil {
		m.logger.Error("failed to list pending executions", "error", err)
		return
	}

	if len(pending) == 0 {
		return
	}

	m.logger.Debug("poll found pending executions", "count", len(pending))

	for i := range pending {
		rec := &pending[i]

		if m.isActive(rec.ID) {
			continue
		}

		if err := m.startExecution(ctx, rec.ID); err != nil {
			m.logger.Error("failed to start execution from poll",
				"execution_id", rec.ID,
				"error", err,
			)
		}
	}
}

// handleExecutionPending обрабатывает событие о новом pending execution.
func (m *Manager) handleExecutionPending(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := delivery.ExecutionPending()
	if err != nil {
		// Некорректный payload не станет корректным при retry
		m.logger.Error("failed to parse execution.pending payload", "error", err)
		return nil
	}

	m.logger.Debug("received execution.pending event", "execution_id", payload.ExecutionID)

	if m.isActive(payload.ExecutionID) {
		m.logger.Debug("execution already active, skipping", "execution_id", payload.ExecutionID)
		return nil
	}

	if err := m.startExecution(ctx, payload.ExecutionID); err != nil {
		if errors.Is(err, ErrExecutionNotPending) || errors.Is(err, ErrExecutionActive) {
			m.logger.Debug("execution not started", "execution_id", payload.ExecutionID, "reason", err)
			return nil
		}
		m.logger.Error("failed to start execution", "execution_id", payload.ExecutionID, "error", err)
		return err
	}

	return nil
}

// handleControl обрабатывает команду pause/resume/stop.
func (m *Manager) handleControl(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := delivery.Control()
	if err != nil {
		// Некорректный payload не станет корректным при retry
		m.logger.Error("failed to parse execution.control payload", "error", err)
		return nil
	}

	logger := telemetry.WithExecutionID(m.logger, payload.ExecutionID.String())
	logger.Debug("received control command", "command", payload.Command)

	a := m.getActive(payload.ExecutionID)

	switch payload.Command {
	case mq.ControlPause:
		if a == nil {
			logger.Debug("pause for inactive execution, ignoring")
			return nil
		}
		if err := a.exec.Pause(); err != nil {
			logger.Warn("pause rejected", "error", err)
			return nil
		}
		return m.persist(ctx, a.exec)

	case mq.ControlResume:
		if a == nil {
			// Execution выгружен (рестарт engine) — поднимаем из БД
			return m.resumeExecution(ctx, payload.ExecutionID)
		}
		if err := a.exec.Resume(); err != nil {
			logger.Warn("resume rejected", "error", err)
			return nil
		}
		return m.persist(ctx, a.exec)

	case mq.ControlStop:
		if a == nil {
			// Не в памяти — финализируем прямо в БД
			err := m.executionRepo.UpdateStatus(ctx, payload.ExecutionID, domain.StatusStopped)
			if errors.Is(err, repo.ErrNotFound) {
				return nil
			}
			return err
		}
		if err := a.exec.Stop(); err != nil {
			logger.Warn("stop rejected", "error", err)
			return nil
		}
		m.removeActive(payload.ExecutionID)
		a.cancel()
		return m.persist(ctx, a.exec)
	}

	// Недостижимо: Control() пропускает только известные команды
	return nil
}

// startExecution поднимает pending execution и запускает его тикер.
func (m *Manager) startExecution(ctx context.Context, executionID uuid.UUID) error {
	// 1. Загружаем запись из БД
	rec, err := m.executionRepo.GetByID(ctx, executionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("execution %s: %w", executionID, repo.ErrNotFound)
		}
		return fmt.Errorf("get execution: %w", err)
	}

	// 2. Проверяем статус
	if rec.Status != domain.StatusIdle {
		return ErrExecutionNotPending
	}

	// 3. Загружаем template со сценарием
	tmpl, err := m.templateRepo.GetByID(ctx, rec.TemplateID)
	if err != nil {
		return fmt.Errorf("get template %s: %w", rec.TemplateID, err)
	}

	// 4. Собираем execution (подстановка переменных + валидация графа)
	exec, err := NewExecution(Config{
		ID:         rec.ID,
		TemplateID: rec.TemplateID,
		Scenario:   &tmpl.Scenario,
		Registry:   m.registry,
		Variables:  rec.Variables,
		Seed:       rec.Seed,
	})
	if err != nil {
		// Сценарий невалиден — execution не может быть запущен
		if uerr := m.executionRepo.UpdateStatus(ctx, rec.ID, domain.StatusStopped); uerr != nil {
			m.logger.Error("failed to mark invalid execution stopped",
				"execution_id", rec.ID,
				"error", uerr,
			)
		}
		return fmt.Errorf("build execution: %w", err)
	}

	if err := exec.Start(); err != nil {
		return fmt.Errorf("start execution: %w", err)
	}

	return m.launch(ctx, exec, rec.TickIntervalMs)
}

// resumeExecution восстанавливает PAUSED execution из БД и запускает его.
func (m *Manager) resumeExecution(ctx context.Context, executionID uuid.UUID) error {
	rec, err := m.executionRepo.GetByID(ctx, executionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get execution: %w", err)
	}

	if rec.Status != domain.StatusPaused {
		m.logger.Debug("resume for non-paused execution, ignoring",
			"execution_id", executionID,
			"status", rec.Status,
		)
		return nil
	}

	tmpl, err := m.templateRepo.GetByID(ctx, rec.TemplateID)
	if err != nil {
		return fmt.Errorf("get template %s: %w", rec.TemplateID, err)
	}

	exec, err := Restore(Config{
		Scenario: &tmpl.Scenario,
		Registry: m.registry,
	}, rec)
	if err != nil {
		return fmt.Errorf("restore execution: %w", err)
	}

	if err := exec.Resume(); err != nil {
		return fmt.Errorf("resume execution: %w", err)
	}

	m.logger.Info("execution restored",
		"execution_id", executionID,
		"tick", exec.CurrentTick(),
	)

	return m.launch(ctx, exec, rec.TickIntervalMs)
}

// launch регистрирует execution как активный и запускает его тикер.
func (m *Manager) launch(ctx context.Context, exec *Execution, tickIntervalMs int) error {
	interval := m.tickInterval
	if tickIntervalMs > 0 {
		interval = time.Duration(tickIntervalMs) * time.Millisecond
	}

	// Тикер живёт на контексте Manager, а не обработчика сообщения
	loopCtx, cancel := context.WithCancel(m.baseCtx)

	a := &activeExecution{
		exec:     exec,
		interval: interval,
		cancel:   cancel,
	}

	if err := m.addActive(a); err != nil {
		cancel()
		return err
	}

	if err := m.persist(ctx, exec); err != nil {
		m.removeActive(exec.ID())
		cancel()
		return fmt.Errorf("persist started execution: %w", err)
	}

	m.logger.Info("execution started",
		"execution_id", exec.ID(),
		"template_id", exec.TemplateID(),
		"nodes", exec.Graph().Size(),
		"feedback_edges", exec.Graph().FeedbackCount(),
		"tick_interval", interval,
		"seed", exec.Seed(),
	)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.tickLoop(loopCtx, a)
	}()

	return nil
}

// tickLoop крутит тики одного execution до его остановки.
func (m *Manager) tickLoop(ctx context.Context, a *activeExecution) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	logger := telemetry.WithExecutionID(m.logger, a.exec.ID().String())

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			err := a.exec.Tick()
			switch {
			case err == nil:
				telemetry.TicksTotal.Inc()
				countNodeErrors(a.exec)

			case errors.Is(err, ErrNotRunning):
				if a.exec.Status().IsTerminal() {
					logger.Info("execution finished", "tick", a.exec.CurrentTick())
					m.removeActive(a.exec.ID())
					m.persistAndLog(logger, a.exec)
					return
				}
				// PAUSED: тикер продолжает крутиться, тики пропускаются
				continue

			default:
				logger.Error("tick failed", "error", err)
				continue
			}

			// Персистим состояние и публикуем снимок
			m.persistAndLog(logger, a.exec)
			m.publishSnapshot(ctx, logger, a.exec)
		}
	}
}

// countNodeErrors учитывает ошибки узлов, возникшие на последнем тике.
func countNodeErrors(exec *Execution) {
	lastTick := exec.CurrentTick() - 1
	for _, st := range exec.Snapshot() {
		if st.Error != "" && st.LastUpdatedTick == lastTick {
			telemetry.NodeErrorsTotal.Inc()
		}
	}
}

// persist сохраняет снимок execution в БД.
func (m *Manager) persist(ctx context.Context, exec *Execution) error {
	return m.executionRepo.UpdateState(ctx, exec.Record())
}

// persistAndLog сохраняет снимок, логируя ошибку вместо её возврата.
// Потеря одного снимка не останавливает симуляцию.
func (m *Manager) persistAndLog(logger *slog.Logger, exec *Execution) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.persist(ctx, exec); err != nil {
		logger.Error("failed to persist execution state",
			"tick", exec.CurrentTick(),
			"error", err,
		)
	}
}

// publishSnapshot публикует снимок состояния после тика.
func (m *Manager) publishSnapshot(ctx context.Context, logger *slog.Logger, exec *Execution) {
	snapshot := exec.Snapshot()

	states := make(map[string]any, len(snapshot))
	for id, st := range snapshot {
		states[id] = st
	}

	payload := mq.SnapshotPayload{
		ExecutionID: exec.ID(),
		Tick:        exec.CurrentTick(),
		Status:      string(exec.Status()),
		NodeStates:  states,
	}

	if err := m.publisher.PublishSnapshot(ctx, payload); err != nil {
		logger.Warn("failed to publish snapshot",
			"tick", exec.CurrentTick(),
			"error", err,
		)
		return
	}

	telemetry.SnapshotsPublished.Inc()
}

// isActive проверяет, находится ли execution в обработке.
func (m *Manager) isActive(executionID uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.active[executionID]
	return exists
}

// getActive возвращает активный execution.
func (m *Manager) getActive(executionID uuid.UUID) *activeExecution {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[executionID]
}

// addActive добавляет execution в активные.
func (m *Manager) addActive(a *activeExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[a.exec.ID()]; exists {
		return ErrExecutionActive
	}

	m.active[a.exec.ID()] = a
	telemetry.ExecutionsActive.Set(float64(len(m.active)))
	return nil
}

// removeActive удаляет execution из активных.
func (m *Manager) removeActive(executionID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, executionID)
	telemetry.ExecutionsActive.Set(float64(len(m.active)))
}
