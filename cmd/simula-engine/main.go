// Simula Engine — исполняет симуляции.
//
// Engine:
//   - Получает новые executions из RabbitMQ (с polling fallback)
//   - Строит граф из сценария template и валидирует конфигурации узлов
//   - Крутит tick loop для каждого активного execution
//   - Сохраняет состояние и публикует снапшоты после каждого тика
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Simula/internal/expr"
	"github.com/shaiso/Simula/internal/mq"
	"github.com/shaiso/Simula/internal/nodes"
	"github.com/shaiso/Simula/internal/repo"
	"github.com/shaiso/Simula/internal/sim"
	"github.com/shaiso/Simula/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting simula-engine")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Создаём репозитории
	executionRepo := repo.NewExecutionRepo(pool)
	templateRepo := repo.NewTemplateRepo(pool)

	// RabbitMQ
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Реестр типов узлов со стандартным набором
	registry := nodes.DefaultRegistry(expr.New())

	// Создаём manager
	manager := sim.NewManager(sim.ManagerConfig{
		ExecutionRepo: executionRepo,
		TemplateRepo:  templateRepo,
		Publisher:     publisher,
		Conn:          mqConn,
		Registry:      registry,
		Logger:        logger,
	})

	// Запускаем manager
	if err := manager.Start(ctx); err != nil {
		logger.Error("failed to start manager", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("ENGINE_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем manager: активные executions паркуются как PAUSED
	manager.Stop()
	logger.Info("simula-engine stopped")
}
