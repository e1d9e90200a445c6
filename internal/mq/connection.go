// Package mq wraps RabbitMQ publishing and consuming on a single topic exchange.
package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName    = "projecthub.events"
	DLQExchangeName = "projecthub.events.dlq"
)

// NewConnection creates a new RabbitMQ connection.
func NewConnection(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// DeclareExchange declares the events exchange.
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil)
}

// DeclareDLQ declares the dead letter exchange and a queue for routingKey bound to it.
func DeclareDLQ(ch *amqp091.Channel, routingKey string) error {
	if err := ch.ExchangeDeclare(DLQExchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}
	q, err := ch.QueueDeclare(routingKey+".dlq", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, routingKey, DLQExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ queue: %w", err)
	}
	return nil
}
