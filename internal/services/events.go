package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"rag-console/internal/models"
)

// PipelineEventType names a change pushed to document subscribers
type PipelineEventType string

const (
	EventJobEnqueued    PipelineEventType = "job_enqueued"
	EventStageStarted   PipelineEventType = "stage_started"
	EventStageProgress  PipelineEventType = "stage_progress"
	EventStageCompleted PipelineEventType = "stage_completed"
	EventStageFailed    PipelineEventType = "stage_failed"
	EventStageSkipped   PipelineEventType = "stage_skipped"
	EventStageReset     PipelineEventType = "stage_reset"
	EventModeChanged    PipelineEventType = "mode_changed"
	EventPauseChanged   PipelineEventType = "pause_changed"
	EventChainFinished  PipelineEventType = "chain_finished"
	EventChainStopped   PipelineEventType = "chain_stopped"
)

const (
	eventChannelPrefix   = "pipeline:events:"
	eventSubscriberQueue = 32
)

// PipelineEvent is a document pipeline change
type PipelineEvent struct {
	Type       PipelineEventType  `json:"type"`
	DocumentID string             `json:"document_id"`
	Stage      models.Stage       `json:"stage,omitempty"`
	JobID      string             `json:"job_id,omitempty"`
	Status     models.StageStatus `json:"status,omitempty"`
	Progress   int                `json:"progress,omitempty"`
	Message    string             `json:"message,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}

// EventBus pushes pipeline events to interested clients
type EventBus interface {
	Publish(ctx context.Context, event PipelineEvent) error
	// Subscribe streams events for one document until ctx ends or the returned cancel is called
	Subscribe(ctx context.Context, documentID string) (<-chan PipelineEvent, func(), error)
}

// RedisEventBus implements EventBus with Redis Pub/Sub so every server instance sees every event
type RedisEventBus struct {
	client *redis.Client
	logger *log.Logger
}

// NewRedisEventBus creates a Pub/Sub backed event bus
func NewRedisEventBus(client *redis.Client, logger *log.Logger) *RedisEventBus {
	return &RedisEventBus{client: client, logger: logger}
}

func eventChannel(documentID string) string {
	return eventChannelPrefix + documentID
}

// Publish sends an event to the document's channel
func (b *RedisEventBus) Publish(ctx context.Context, event PipelineEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal pipeline event: %w", err)
	}
	if err := b.client.Publish(ctx, eventChannel(event.DocumentID), data).Err(); err != nil {
		return models.NewTransientStorageError("publish_event", err)
	}
	return nil
}

// Subscribe listens on the document's channel
func (b *RedisEventBus) Subscribe(ctx context.Context, documentID string) (<-chan PipelineEvent, func(), error) {
	pubsub := b.client.Subscribe(ctx, eventChannel(documentID))
	// wait for the subscription confirmation so no event published after return is lost
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, models.NewTransientStorageError("subscribe_events", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan PipelineEvent, eventSubscriberQueue)
	messages := pubsub.Channel()

	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event PipelineEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Printf("Dropping malformed pipeline event on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}
