package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

const (
	// EventJobQueued is published when a job enters the pending state.
	EventJobQueued = "ocr.job.queued"

	defaultPublishTimeout = 10 * time.Second
)

// JobQueuedEvent tells OCR workers which church database holds the job.
type JobQueuedEvent struct {
	ChurchID     uint      `json:"church_id"`
	DatabaseName string    `json:"database_name"`
	JobID        string    `json:"job_id"`
	QueuedAt     time.Time `json:"queued_at"`
}

// Publisher announces OCR jobs to the processing pipeline.
type Publisher interface {
	PublishJobQueued(ctx context.Context, event JobQueuedEvent) error
}

type noopPublisher struct{}

func (noopPublisher) PublishJobQueued(context.Context, JobQueuedEvent) error { return nil }

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type messagePublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

// PubSubPublisher publishes job events on a Pub/Sub topic.
type PubSubPublisher struct {
	pub     messagePublisher
	timeout time.Duration
}

// NewPubSubPublisher wraps a topic publisher. A nil publisher yields nil.
func NewPubSubPublisher(p *gcppubsub.Publisher) *PubSubPublisher {
	if p == nil {
		return nil
	}
	return &PubSubPublisher{pub: &gcpPublisher{Publisher: p}, timeout: defaultPublishTimeout}
}

func (p *PubSubPublisher) PublishJobQueued(ctx context.Context, event JobQueuedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", EventJobQueued, err)
	}
	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_type":    EventJobQueued,
			"church_id":     strconv.FormatUint(uint64(event.ChurchID), 10),
			"database_name": event.DatabaseName,
			"job_id":        event.JobID,
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	result := p.pub.Publish(publishCtx, msg)
	if result == nil {
		return fmt.Errorf("publisher returned nil for %s", EventJobQueued)
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publishing %s: %w", EventJobQueued, err)
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
