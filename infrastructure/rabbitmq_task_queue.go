package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/vitovidale/video-manager-service/domain"
	"github.com/vitovidale/video-manager-service/logging"
)

// RabbitMQTaskQueue publishes post-process tasks to a durable queue and consumes them.
type RabbitMQTaskQueue struct {
	conn      *amqp.Connection
	queueName string

	mu sync.Mutex
	ch *amqp.Channel
}

var _ domain.TaskQueue = (*RabbitMQTaskQueue)(nil)

// DialRabbitMQ connects to the broker, retrying while it starts.
func DialRabbitMQ(ctx context.Context, url, queueName string) (*RabbitMQTaskQueue, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < connectAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			logging.Info("RabbitMQ connection established")
			break
		}
		logging.Warn("Retrying RabbitMQ connection in %s... (%d/%d)", connectBackoff, i+1, connectAttempts)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to RabbitMQ after %d attempts: %w", connectAttempts, err)
	}

	q := &RabbitMQTaskQueue{conn: conn, queueName: queueName}
	ch, err := q.channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	q.ch = ch
	return q, nil
}

// channel opens a channel and declares the task queue on it.
func (q *RabbitMQTaskQueue) channel() (*amqp.Channel, error) {
	ch, err := q.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		q.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", q.queueName, err)
	}
	return ch, nil
}

func (q *RabbitMQTaskQueue) EnqueuePostProcess(ctx context.Context, task domain.VideoPostProcessTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ch == nil || q.ch.IsClosed() {
		ch, err := q.channel()
		if err != nil {
			return err
		}
		q.ch = ch
	}

	err = q.ch.PublishWithContext(ctx,
		"",
		q.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}
	logging.Debug("Published %s for video %d", task.Task, task.VideoID)
	return nil
}

// ConsumePostProcess blocks, handing each delivery to handler until ctx is done
// or the delivery channel closes. Messages are acknowledged whatever the
// handler returns; a failed task is not retried.
func (q *RabbitMQTaskQueue) ConsumePostProcess(ctx context.Context, handler func(context.Context, domain.VideoPostProcessTask) error) error {
	ch, err := q.channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	msgs, err := ch.Consume(
		q.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	logging.Info("Waiting for post-process tasks on %s", q.queueName)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			handleDelivery(ctx, d.Body, handler)
			if err := d.Ack(false); err != nil {
				logging.Error("Failed to ack delivery: %v", err)
			}
		}
	}
}

func (q *RabbitMQTaskQueue) Healthy() error {
	if q.conn == nil || q.conn.IsClosed() {
		return fmt.Errorf("disconnected")
	}
	return nil
}

func (q *RabbitMQTaskQueue) Close() error {
	q.mu.Lock()
	if q.ch != nil {
		q.ch.Close()
	}
	q.mu.Unlock()
	return q.conn.Close()
}

// handleDelivery decodes a task message and runs handler, logging any failure.
func handleDelivery(ctx context.Context, body []byte, handler func(context.Context, domain.VideoPostProcessTask) error) {
	var task domain.VideoPostProcessTask
	if err := json.Unmarshal(body, &task); err != nil {
		logging.Error("Failed to unmarshal task message: %v", err)
		return
	}
	if task.Task != domain.VideoPostProcessTaskName {
		logging.Warn("Ignoring unknown task %q", task.Task)
		return
	}
	if err := handler(ctx, task); err != nil {
		logging.Error("Task %s for video %d failed: %v", task.Task, task.VideoID, err)
	}
}
