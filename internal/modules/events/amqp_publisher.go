package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// OrderExchange is the topic exchange order events are published to; the
// routing key is the event type.
const OrderExchange = "order_topic"

// AMQPPublisher publishes order events to RabbitMQ.
type AMQPPublisher struct {
	conn *amqp091.Connection
	ch   *amqp091.Channel
}

// NewAMQPPublisher connects and declares the order exchange.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		OrderExchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", OrderExchange, err)
	}

	log.Println("Connected to RabbitMQ")
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

// Send publishes one event; failures are logged.
func (p *AMQPPublisher) Send(ev OrderEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("events: marshal %s: %v", ev.Type, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(ctx,
		OrderExchange,
		ev.Type,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    ev.At,
			Body:         body,
		},
	)
	if err != nil {
		log.Printf("events: publish %s for order %s: %v", ev.Type, ev.OrderID, err)
	}
}

func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
