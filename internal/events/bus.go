// Package events streams pipeline progress to external consumers (the
// visualizer, log tails) over Redis Streams. Publishing is fire-and-forget:
// a dead Redis degrades to a log line, never a failed turn.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nworb999/stable-genius/internal/pipeline"
	"github.com/nworb999/stable-genius/internal/psyche"
)

const streamPrefix = "genius:agent:"

// Event is one pipeline progress record on the wire.
type Event struct {
	Agent     string            `json:"agent"`
	Stage     string            `json:"stage"`
	Speech    string            `json:"speech,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	Call      *pipeline.GenCall `json:"call,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Bus publishes per-agent event streams.
type Bus struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewBus connects to Redis and verifies it with a ping.
func NewBus(redisURL string, logger *zap.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Bus{rdb: rdb, logger: logger}, nil
}

// Publish appends one event to the agent's stream.
func (b *Bus) Publish(ctx context.Context, ev *Event) error {
	ev.Timestamp = time.Now()
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	stream := streamPrefix + psyche.Key(ev.Agent)
	if err := b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: 1000,
		Approx: true,
		Values: map[string]interface{}{"data": string(data)},
	}).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", stream, err)
	}
	return nil
}

// Observer returns a pipeline observer that forwards the agent's stage and
// llm_call events to the stream. Publish failures are logged and dropped.
func (b *Bus) Observer(agentName string) pipeline.Observer {
	return func(event string, turn *pipeline.Turn, call *pipeline.GenCall) {
		ev := &Event{Agent: agentName, Stage: event, Call: call}
		if event == "complete" {
			ev.Speech = turn.Speech
			ev.Errors = turn.Errors
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := b.Publish(ctx, ev); err != nil {
			b.logger.Debug("event publish failed",
				zap.String("agent", agentName),
				zap.String("stage", event),
				zap.Error(err))
		}
	}
}

// Subscribe tails an agent's event stream. Cancel the context to stop.
func (b *Bus) Subscribe(ctx context.Context, agentName string) <-chan *Event {
	ch := make(chan *Event, 16)
	stream := streamPrefix + psyche.Key(agentName)

	go func() {
		defer close(ch)
		lastID := "$"

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			results, err := b.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{stream, lastID},
				Count:   10,
				Block:   time.Second * 2,
			}).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}

			for _, r := range results {
				for _, msg := range r.Messages {
					lastID = msg.ID
					data, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					var ev Event
					if json.Unmarshal([]byte(data), &ev) != nil {
						continue
					}
					select {
					case ch <- &ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return ch
}

// Close shuts down the Redis connection.
func (b *Bus) Close() error {
	return b.rdb.Close()
}
