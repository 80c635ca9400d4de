package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/tugas-backend/internal/config"
)

// Publisher fans an upload's events out to subscribers.
type Publisher interface {
	Publish(ctx context.Context, userID string, ev Event) error
}

// Subscription delivers events for a single upload until closed.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// RedisBroker publishes and subscribes over Redis Pub/Sub. Channels are
// scoped per user so one student cannot follow another's upload.
type RedisBroker struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewRedisBroker(rdb *redis.Client, log zerolog.Logger) *RedisBroker {
	return &RedisBroker{
		rdb: rdb,
		log: log.With().Str("component", "progress_broker").Logger(),
	}
}

func (b *RedisBroker) Publish(ctx context.Context, userID string, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	channel := config.CacheKey.UploadProgressChannel(userID, ev.UploadID)
	if err := b.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		return fmt.Errorf("publish progress: %w", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed before returning, so
// no event published afterwards is missed.
func (b *RedisBroker) Subscribe(ctx context.Context, userID, uploadID string) (Subscription, error) {
	ps := b.rdb.Subscribe(ctx, config.CacheKey.UploadProgressChannel(userID, uploadID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe progress: %w", err)
	}

	sub := &redisSubscription{ps: ps, events: make(chan Event, 16), done: make(chan struct{})}
	go func() {
		defer close(sub.events)
		for msg := range ps.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn().Err(err).Str("channel", msg.Channel).Msg("Dropping malformed progress event")
				continue
			}
			select {
			case sub.events <- ev:
			case <-sub.done:
				return
			}
		}
	}()
	return sub, nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) Events() <-chan Event { return s.events }

func (s *redisSubscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.ps.Close()
}

// Forward publishes every event from events until the channel is closed.
// Publish failures are logged and do not stop the drain.
func Forward(ctx context.Context, pub Publisher, userID string, events <-chan Event, log zerolog.Logger) {
	for ev := range events {
		if pub == nil {
			continue
		}
		if err := pub.Publish(ctx, userID, ev); err != nil {
			log.Warn().Err(err).Str("upload_id", ev.UploadID).Msg("Progress publish failed")
		}
	}
}
