// Package pubsub relays local change notifications between server instances
// over a redis channel. Each instance tags what it publishes with its own id
// and ignores its own messages on the way back in, so only writes made by
// other instances trigger a local reload.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Handler reacts to a change type announced by another instance.
type Handler func(ctx context.Context, typ string) error

// Message is the wire payload on the redis channel.
type Message struct {
	Instance string    `json:"instance"`
	Type     string    `json:"type"`
	At       time.Time `json:"at"`
}

// ErrNoClient is returned by Notify and Run when the bridge has no redis client.
var ErrNoClient = errors.New("pubsub: no redis client")

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Bridge publishes local change types and dispatches remote ones to handlers.
type Bridge struct {
	rdb      *redis.Client
	channel  string
	instance string

	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBridge creates a bridge on channel with a fresh instance id.
func NewBridge(rdb *redis.Client, channel string) *Bridge {
	return &Bridge{
		rdb:      rdb,
		channel:  channel,
		instance: uuid.NewString(),
		handlers: make(map[string][]Handler),
	}
}

// Instance returns the id stamped on outgoing messages.
func (b *Bridge) Instance() string { return b.instance }

// Handle registers h for remote changes of type typ.
func (b *Bridge) Handle(typ string, h Handler) {
	b.mu.Lock()
	b.handlers[typ] = append(b.handlers[typ], h)
	b.mu.Unlock()
}

// Notify announces a local change of type typ to the other instances.
func (b *Bridge) Notify(ctx context.Context, typ string) error {
	if b.rdb == nil {
		return ErrNoClient
	}
	payload, err := b.encode(typ, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", b.channel, err)
	}
	return nil
}

// Run subscribes to the channel and dispatches messages until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	if b.rdb == nil {
		return ErrNoClient
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	// Wait for the subscription confirmation so early publishes are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}
	log.Info().Str("channel", b.channel).Str("instance", b.instance).Msg("pubsub: subscribed")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			b.dispatch(ctx, m.Payload)
		}
	}
}

func (b *Bridge) encode(typ string, at time.Time) (string, error) {
	raw, err := json.Marshal(Message{Instance: b.instance, Type: typ, At: at})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// dispatch decodes payload and runs the handlers for its type. It reports
// whether any handler ran.
func (b *Bridge) dispatch(ctx context.Context, payload string) bool {
	var m Message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		log.Warn().Err(err).Msg("pubsub: bad message")
		return false
	}
	if m.Instance == b.instance || strings.TrimSpace(m.Type) == "" {
		return false
	}

	b.mu.RLock()
	hs := append([]Handler(nil), b.handlers[m.Type]...)
	b.mu.RUnlock()

	for _, h := range hs {
		if err := h(ctx, m.Type); err != nil {
			log.Error().Err(err).Str("type", m.Type).Str("from", m.Instance).Msg("pubsub: handler failed")
		}
	}
	return len(hs) > 0
}
