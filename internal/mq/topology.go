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
	ExchangeGroups      Exchange = "waferline.groups"
	ExchangeExperiments Exchange = "waferline.experiments"
	ExchangeDLQ         Exchange = "waferline.dlq"
)

// Queues — имена очередей.
const (
	QueueGroupsSubmitted    Queue = "groups.submitted"
	QueueGroupsUpdated      Queue = "groups.updated"
	QueueExperimentProgress Queue = "experiments.progress"
	QueueDLQGroups          Queue = "dlq.groups"
)

// Routing keys.
const (
	RoutingKeySubmitted RoutingKey = "submitted"
	RoutingKeyUpdated   RoutingKey = "updated"
	RoutingKeyProgress  RoutingKey = "progress"
	RoutingKeyDLQGroups RoutingKey = "groups"
)

func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeGroups, "direct"},
		{ExchangeExperiments, "direct"},
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
	// Группы, которые оркестратор не смог принять, уходят в DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQGroups),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueGroupsSubmitted, dlqArgs},
		{QueueGroupsUpdated, dlqArgs},

		// experiments.progress — события прогресса, без DLQ
		{QueueExperimentProgress, nil},

		{QueueDLQGroups, nil},
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
		{QueueGroupsSubmitted, RoutingKeySubmitted, ExchangeGroups},
		{QueueGroupsUpdated, RoutingKeyUpdated, ExchangeGroups},
		{QueueExperimentProgress, RoutingKeyProgress, ExchangeExperiments},
		{QueueDLQGroups, RoutingKeyDLQGroups, ExchangeDLQ},
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
  Waferline RabbitMQ Topology:

    waferline.groups (direct)
    ├── groups.submitted [routing: submitted]
    │       Consumer: process orchestrator
    │       DLQ: dlq.groups
    └── groups.updated [routing: updated]
            Consumer: process orchestrator
            DLQ: dlq.groups

    waferline.experiments (direct)
    └── experiments.progress [routing: progress]
            Consumer: notification service

    waferline.dlq (direct)
    └── dlq.groups [routing: groups]
            Manual processing
  `
}
