package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeExecutions Exchange = "simula.executions"
	ExchangeSnapshots  Exchange = "simula.snapshots"
	ExchangeDLQ        Exchange = "simula.dlq"
)

// Queues — имена очередей.
const (
	QueueExecutionsPending Queue = "executions.pending"
	QueueExecutionsControl Queue = "executions.control"
	QueueSnapshotsLive     Queue = "snapshots.live"
	QueueDLQExecutions     Queue = "dlq.executions"
)

// Routing keys.
const (
	RoutingKeyPending       RoutingKey = "pending"
	RoutingKeyControl       RoutingKey = "control"
	RoutingKeySnapshot      RoutingKey = "snapshot"
	RoutingKeyDLQExecutions RoutingKey = "executions"
)

func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		// 1. Создаём exchanges
		if err := declareExchanges(ch); err != nil {
			return err
		}

		// 2. Создаём queues
		if err := declareQueues(ch); err != nil {
			return err
		}

		// 3. Привязываем queues к exchanges
		if err := bindQueues(ch); err != nil {
			return err
		}

		return nil
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeExecutions, "direct"},
		{ExchangeSnapshots, "fanout"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	// Аргументы для очередей с DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQExecutions),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// executions.pending — с DLQ (битые команды не крутятся вечно)
		{QueueExecutionsPending, dlqArgs},

		// executions.control — с DLQ
		{QueueExecutionsControl, dlqArgs},

		// snapshots.live — без DLQ (поток снимков, потеря допустима)
		{QueueSnapshotsLive, nil},

		// dlq.executions — сама DLQ очередь
		{QueueDLQExecutions, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueExecutionsPending, RoutingKeyPending, ExchangeExecutions},
		{QueueExecutionsControl, RoutingKeyControl, ExchangeExecutions},
		{QueueSnapshotsLive, RoutingKeySnapshot, ExchangeSnapshots},
		{QueueDLQExecutions, RoutingKeyDLQExecutions, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Simula RabbitMQ Topology:

    simula.executions (direct)
    ├── executions.pending [routing: pending]
    │       Consumer: Engine
    │       DLQ: dlq.executions
    └── executions.control [routing: control]
            Consumer: Engine
            DLQ: dlq.executions

    simula.snapshots (fanout)
    └── snapshots.live [routing: snapshot]
            Consumer: UI / subscribers

    simula.dlq (direct)
    └── dlq.executions [routing: executions]
            Manual processing
  `
}
