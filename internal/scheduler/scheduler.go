package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Simula/internal/domain"
	"github.com/shaiso/Simula/internal/mq"
	"github.com/shaiso/Simula/internal/repo"
)

// Scheduler — планировщик, обрабатывающий due schedules.
type Scheduler struct {
	scheduleRepo  *repo.ScheduleRepo
	executionRepo *repo.ExecutionRepo
	templateRepo  *repo.TemplateRepo
	publisher     *mq.Publisher
	logger        *slog.Logger
	batchSize     int
}

// Config — конфигурация Scheduler.
type Config struct {
	ScheduleRepo  *repo.ScheduleRepo
	ExecutionRepo *repo.ExecutionRepo
	TemplateRepo  *repo.TemplateRepo
	Publisher     *mq.Publisher
	Logger        *slog.Logger
	BatchSize     int // количество schedules за один тик (default: 100)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &Scheduler{
		scheduleRepo:  cfg.ScheduleRepo,
		executionRepo: cfg.ExecutionRepo,
		templateRepo:  cfg.TemplateRepo,
		publisher:     cfg.Publisher,
		logger:        cfg.Logger,
		batchSize:     batchSize,
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due schedules (enabled=true, next_due_at <= now)
// 2. Для каждого schedule создаёт execution
// 3. Обновляет next_due_at
// 4. Публикует execution.pending в RabbitMQ
//
// Ошибки одного schedule не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	// 1. Находим due schedules
	schedules, err := s.scheduleRepo.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}

	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	// 2. Обрабатываем каждый schedule
	var processed, created int
	for i := range schedules {
		sched := &schedules[i]

		execCreated, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			// Продолжаем обработку остальных
			continue
		}

		processed++
		if execCreated {
			created++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"executions_created", created,
	)

	return nil
}

// processSchedule обрабатывает один schedule.
// Возвращает true, если execution был создан.
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	// 1. Проверяем, что template существует
	if _, err := s.templateRepo.GetByID(ctx, sched.TemplateID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("template not found for schedule, skipping",
				"schedule_id", sched.ID,
				"template_id", sched.TemplateID,
			)
			// Не возвращаем ошибку — просто пропускаем
			return false, nil
		}
		return false, fmt.Errorf("get template: %w", err)
	}

	// 2. Создаём execution в IDLE — engine подхватит его из очереди
	// или через polling
	exec := &domain.Execution{
		ID:         uuid.New(),
		TemplateID: sched.TemplateID,
		Status:     domain.StatusIdle,
		Variables:  sched.Variables,
		CreatedAt:  now,
	}

	if err := s.executionRepo.Create(ctx, exec); err != nil {
		return false, fmt.Errorf("create execution: %w", err)
	}

	s.logger.Info("created execution from schedule",
		"execution_id", exec.ID,
		"schedule_id", sched.ID,
		"schedule_name", sched.Name,
		"template_id", sched.TemplateID,
	)

	// 3. Вычисляем следующее время выполнения
	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		s.logger.Error("failed to calculate next due, leaving schedule as is",
			"schedule_id", sched.ID,
			"error", err,
		)
		// Schedule некорректный — лучше не трогать next_due_at
		return true, nil
	}

	// 4. Обновляем schedule
	sched.RecordRun(exec.ID, nextDue)
	if err := s.scheduleRepo.Update(ctx, sched); err != nil {
		return true, fmt.Errorf("update schedule: %w", err)
	}

	// 5. Публикуем событие в RabbitMQ (если publisher настроен)
	if s.publisher != nil {
		if err := s.publisher.PublishExecutionPending(ctx, exec.ID); err != nil {
			// Не фатальная ошибка — execution уже создан в БД,
			// engine может забрать его через polling
			s.logger.Warn("failed to publish execution.pending",
				"execution_id", exec.ID,
				"error", err,
			)
		}
	}

	return true, nil
}
