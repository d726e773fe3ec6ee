package api

import (
	"log/slog"

	"github.com/shaiso/Simula/internal/mq"
	"github.com/shaiso/Simula/internal/nodes"
	"github.com/shaiso/Simula/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	templateRepo  *repo.TemplateRepo
	executionRepo *repo.ExecutionRepo
	scheduleRepo  *repo.ScheduleRepo
	registry      *nodes.Registry
	publisher     *mq.Publisher
	logger        *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	TemplateRepo  *repo.TemplateRepo
	ExecutionRepo *repo.ExecutionRepo
	ScheduleRepo  *repo.ScheduleRepo
	Registry      *nodes.Registry
	Publisher     *mq.Publisher
	Logger        *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		templateRepo:  cfg.TemplateRepo,
		executionRepo: cfg.ExecutionRepo,
		scheduleRepo:  cfg.ScheduleRepo,
		registry:      cfg.Registry,
		publisher:     cfg.Publisher,
		logger:        cfg.Logger,
	}
}
