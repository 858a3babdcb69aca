package ws

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/phuslu/log"

	"leap/internal/queue"
)

// RedisRelay lets several service instances share one event stream. Events are delivered to the
// local hub first, then published on a redis channel; every instance forwards messages published
// by the others to its own hub. It implements queue.Broadcaster.
type RedisRelay struct {
	client     *redis.Client
	hub        *Hub
	channel    string
	instanceID string
	out        chan relayMessage
	logger     *log.Logger
}

type relayMessage struct {
	Origin  string          `json:"origin"`
	VenueID string          `json:"venueId"`
	Message json.RawMessage `json:"message"`
}

func NewRedisRelay(client *redis.Client, hub *Hub, channel string, logger *log.Logger) *RedisRelay {
	return &RedisRelay{
		client:     client,
		hub:        hub,
		channel:    channel,
		instanceID: uuid.NewString(),
		out:        make(chan relayMessage, sendBuffer),
		logger:     logger,
	}
}

// InstanceID identifies this process on the channel.
func (r *RedisRelay) InstanceID() string {
	return r.instanceID
}

func (r *RedisRelay) Emit(ev queue.Event) {
	msg, err := encodeEvent(ev)
	if err != nil {
		r.logger.Error().Err(err).Str("event", ev.Name).Msg("failed to encode queue event")
		return
	}
	r.hub.Deliver(ev.VenueID, msg)

	select {
	case r.out <- relayMessage{Origin: r.instanceID, VenueID: ev.VenueID, Message: msg}:
	default:
		r.logger.Warn().Str("venue_id", ev.VenueID).Msg("relay buffer full, event not published")
	}
}

// Run publishes local events and forwards remote ones until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) {
	go r.publish(ctx)
	r.subscribe(ctx)
}

func (r *RedisRelay) publish(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-r.out:
			payload, err := json.Marshal(m)
			if err != nil {
				r.logger.Error().Err(err).Msg("failed to encode relay message")
				continue
			}
			if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
				r.logger.Warn().Err(err).Str("venue_id", m.VenueID).Msg("failed to publish queue event")
			}
		}
	}
}

func (r *RedisRelay) subscribe(ctx context.Context) {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	r.logger.Info().Str("channel", r.channel).Str("instance_id", r.instanceID).Msg("queue event relay subscribed")
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			r.forward(msg.Payload)
		}
	}
}

// forward delivers a message published by another instance to the local hub.
func (r *RedisRelay) forward(payload string) {
	var m relayMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		r.logger.Warn().Err(err).Msg("malformed relay message")
		return
	}
	if m.Origin == r.instanceID {
		return
	}
	r.hub.Deliver(m.VenueID, m.Message)
}
