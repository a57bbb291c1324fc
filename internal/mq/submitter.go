package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Waferline/internal/codec"
	"github.com/shaiso/Waferline/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeGroupSubmitted     MessageType = "group.submitted"
	MessageTypeGroupUpdated       MessageType = "group.updated"
	MessageTypeExperimentProgress MessageType = "experiment.progress"
)

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

// GroupPayload — wire-представление группы для оркестратора.
// Stages сериализуются в формате OrchestratorCreationRequest:
// оркестратору нужны и Id, и StageId каждого этапа.
type GroupPayload struct {
	GroupID     uuid.UUID           `json:"group_id"`
	Name        string              `json:"name"`
	Owner       string              `json:"owner"`
	Experiments []ExperimentPayload `json:"experiments"`
}

// ExperimentPayload — wire-представление эксперимента.
type ExperimentPayload struct {
	ExperimentID uuid.UUID                           `json:"experiment_id"`
	Title        string                              `json:"title"`
	State        string                              `json:"state"`
	LotID        string                              `json:"lot_id,omitempty"`
	Stages       []codec.OrchestratorCreationRequest `json:"stages"`
}

// ProgressPayload — событие прогресса эксперимента.
type ProgressPayload struct {
	GroupID      uuid.UUID `json:"group_id"`
	ExperimentID uuid.UUID `json:"experiment_id"`
	Status       string    `json:"status"`
}

// GroupPayloadFrom собирает wire-представление группы.
func GroupPayloadFrom(group *domain.ExperimentGroup) GroupPayload {
	payload := GroupPayload{
		GroupID:     group.ID,
		Name:        group.Name,
		Owner:       group.Owner,
		Experiments: make([]ExperimentPayload, 0, len(group.Experiments)),
	}
	for i := range group.Experiments {
		exp := &group.Experiments[i]
		ep := ExperimentPayload{
			ExperimentID: exp.ID,
			Title:        exp.Title,
			State:        string(exp.State),
			Stages:       make([]codec.OrchestratorCreationRequest, 0, len(exp.Stages)),
		}
		if exp.Material != nil {
			ep.LotID = exp.Material.LotID
		}
		for j := range exp.Stages {
			ep.Stages = append(ep.Stages, codec.OrchestratorRequestFromStage(&exp.Stages[j]))
		}
		payload.Experiments = append(payload.Experiments, ep)
	}
	return payload
}

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

// SubmitExperimentGroup публикует новую группу для оркестратора.
func (p *Publisher) SubmitExperimentGroup(ctx context.Context, group *domain.ExperimentGroup) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeGroupSubmitted,
		Payload:   GroupPayloadFrom(group),
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeGroups, RoutingKeySubmitted, msg)
}

// SubmitUpdateExperimentGroup публикует обновлённый состав группы.
func (p *Publisher) SubmitUpdateExperimentGroup(ctx context.Context, group *domain.ExperimentGroup) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeGroupUpdated,
		Payload:   GroupPayloadFrom(group),
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeGroups, RoutingKeyUpdated, msg)
}

// NotifyExperimentUpdated публикует событие прогресса эксперимента.
func (p *Publisher) NotifyExperimentUpdated(ctx context.Context, group *domain.ExperimentGroup, exp *domain.Experiment, status domain.ProcessStatus) error {
	msg := &Message{
		ID:   uuid.New().String(),
		Type: MessageTypeExperimentProgress,
		Payload: ProgressPayload{
			GroupID:      group.ID,
			ExperimentID: exp.ID,
			Status:       string(status),
		},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeExperiments, RoutingKeyProgress, msg)
}
