package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"

	"funnel_backend/internal/submission/tracking"
	"funnel_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues delivery jobs. It implements the submission orchestrator's
// Queue port.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueCRMDelivery queues the CRM webhook push for a persisted lead. The
// worker loads the lead by submission id so the payload stays minimal.
func (c *Client) EnqueueCRMDelivery(ctx context.Context, submissionID uuid.UUID) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("scheduler client not initialized")
	}

	task, err := NewDeliverCRMTask(DeliverCRMPayload{SubmissionID: submissionID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(5))
	return err
}

// EnqueueTrackingEvent queues the analytics fan-out for one event.
func (c *Client) EnqueueTrackingEvent(ctx context.Context, event tracking.Event) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("scheduler client not initialized")
	}

	task, err := NewEmitTrackingTask(EmitTrackingPayload{Event: event})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(5))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
