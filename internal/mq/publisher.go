package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeExecutionPending MessageType = "execution.pending"
	MessageTypeExecutionControl MessageType = "execution.control"
	MessageTypeSnapshot         MessageType = "execution.snapshot"
)

// Команды управления execution.
const (
	ControlPause  = "pause"
	ControlResume = "resume"
	ControlStop   = "stop"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionPendingPayload — payload для сообщения о новом execution.
type ExecutionPendingPayload struct {
	ExecutionID uuid.UUID `json:"execution_id"`
}

// ControlPayload — payload команды управления execution.
type ControlPayload struct {
	ExecutionID uuid.UUID `json:"execution_id"`
	Command     string    `json:"command"` // pause, resume, stop
}

// SnapshotPayload — payload снимка состояния после тика.
type SnapshotPayload struct {
	ExecutionID uuid.UUID      `json:"execution_id"`
	Tick        int            `json:"tick"`
	Status      string         `json:"status"`
	NodeStates  map[string]any `json:"node_states"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishExecutionPending публикует событие о новом execution, ожидающем запуска.
// Потребитель: Engine.
func (p *Publisher) PublishExecutionPending(ctx context.Context, executionID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeExecutionPending,
		Payload:   ExecutionPendingPayload{ExecutionID: executionID},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeExecutions, RoutingKeyPending, msg)
}

// PublishControl публикует команду управления execution (pause/resume/stop).
// Потребитель: Engine.
func (p *Publisher) PublishControl(ctx context.Context, executionID uuid.UUID, command string) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeExecutionControl,
		Payload:   ControlPayload{ExecutionID: executionID, Command: command},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeExecutions, RoutingKeyControl, msg)
}

// PublishSnapshot публикует снимок состояния execution после тика.
// Снимки уходят в fanout exchange — их читают подписчики UI.
func (p *Publisher) PublishSnapshot(ctx context.Context, payload SnapshotPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeSnapshot,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeSnapshots, RoutingKeySnapshot, msg)
}

// PublishJSON публикует произвольный JSON payload.
func (p *Publisher) PublishJSON(ctx context.Context, exchange Exchange, routingKey RoutingKey, msgType MessageType, payload any) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, exchange, routingKey, msg)
}
