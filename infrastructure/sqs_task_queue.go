package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/vitovidale/video-manager-service/domain"
	"github.com/vitovidale/video-manager-service/logging"
)

// SQSAPI is the subset of the SQS client used by SQSTaskQueue.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

const sqsWaitSeconds = 20

// SQSTaskQueue carries post-process tasks over an SQS queue.
type SQSTaskQueue struct {
	client   SQSAPI
	queueURL string
}

var _ domain.TaskQueue = (*SQSTaskQueue)(nil)

func NewSQSTaskQueue(ctx context.Context, queueURL string) (*SQSTaskQueue, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewSQSTaskQueueWithClient(sqs.NewFromConfig(cfg), queueURL), nil
}

func NewSQSTaskQueueWithClient(client SQSAPI, queueURL string) *SQSTaskQueue {
	return &SQSTaskQueue{client: client, queueURL: queueURL}
}

func (q *SQSTaskQueue) EnqueuePostProcess(ctx context.Context, task domain.VideoPostProcessTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to send task: %w", err)
	}
	return nil
}

// ConsumePostProcess long-polls the queue until ctx is done. Each message is
// deleted after its handler runs, whether or not the handler succeeded.
func (q *SQSTaskQueue) ConsumePostProcess(ctx context.Context, handler func(context.Context, domain.VideoPostProcessTask) error) error {
	logging.Info("Polling %s for post-process tasks", q.queueURL)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(q.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     sqsWaitSeconds,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Error("Failed to receive tasks: %v", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range out.Messages {
			handleDelivery(ctx, []byte(aws.ToString(msg.Body)), handler)
			_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(q.queueURL),
				ReceiptHandle: msg.ReceiptHandle,
			})
			if err != nil {
				logging.Error("Failed to delete task message: %v", err)
			}
		}
	}
}

func (q *SQSTaskQueue) Close() error { return nil }
