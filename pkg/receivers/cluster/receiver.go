// Package cluster consumes platform events from the cluster event queue
// in Redis and republishes them on the strato bus, where the worker's
// event router and the scheduler's trigger matcher pick them up.
package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/stratoml/strato/pkg/eventbus"
	"github.com/stratoml/strato/pkg/events"
)

// DefaultQueue is the Redis list cluster infrastructure pushes events to.
const DefaultQueue = "strato:platform-events"

type Receiver struct {
	queue  string
	client redis.UniversalClient
	bus    eventbus.EventBus
	logger *slog.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Config connects the receiver to Redis. An empty Queue uses DefaultQueue.
type Config struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

func NewReceiver(ctx context.Context, cfg Config, bus eventbus.EventBus, logger *slog.Logger) (*Receiver, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}

	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger = logger.With("module", "cluster_receiver", "queue", cfg.Queue)
	logger.InfoContext(ctx, "Connected to Redis", "addr", cfg.Addr, "db", cfg.DB)

	return &Receiver{
		queue:  cfg.Queue,
		client: client,
		bus:    bus,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

func (r *Receiver) Start(ctx context.Context) {
	r.wg.Add(1)

	go r.consume(ctx)
}

func (r *Receiver) Stop() error {
	close(r.stopCh)
	r.wg.Wait()

	return r.client.Close()
}

func (r *Receiver) consume(ctx context.Context) {
	defer r.wg.Done()

	r.logger.InfoContext(ctx, "Starting platform event consumer")

	for {
		select {
		case <-r.stopCh:
			r.logger.InfoContext(ctx, "Platform event consumer stopped")

			return
		case <-ctx.Done():
			return
		default:
			if err := r.processMessage(ctx); err != nil {
				r.logger.ErrorContext(ctx, "Error processing platform event", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (r *Receiver) processMessage(ctx context.Context) error {
	result, err := r.client.BLPop(ctx, 1*time.Second, r.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return nil
		}

		return fmt.Errorf("failed to pop platform event: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	var event events.PlatformEvent
	if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
		return fmt.Errorf("malformed platform event: %w", err)
	}

	// Metadata envelopes carry no completion signal.
	if event.IsMetadata() {
		return nil
	}

	if event.ID == "" {
		event.ID = r.bus.GenerateID()
	}

	r.logger.InfoContext(ctx, "Platform event received",
		"event", event.EventName(), "correlation_id", event.CorrelationID())

	return r.bus.Publish(ctx, event.CorrelationID(), event)
}
