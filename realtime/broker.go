// Package realtime fans out per-user events over NATS. Channels are keyed
// by recipient identity ("user:<id>"); delivery is best-effort and
// at-most-once, so offline clients re-fetch state on reconnect instead of
// replaying.
package realtime

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chirp/metrics"
)

// Event names carried on user channels.
const (
	EventNewTweet        = "new_tweet"
	EventUpdateFollowers = "update_followers"
	EventReceiveMessage  = "receive_message"
	EventTweetUpdated    = "tweet_updated"
	EventNotification    = "notification"
)

type Event struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload once at publish time. Payloads are the same
// JSON shapes the REST endpoints return for the corresponding entity.
func NewEvent(name string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Payload: b}, nil
}

type Broker interface {
	Publish(ctx context.Context, channel string, event Event) error
	// Subscribe returns a channel of events plus a cancel func the caller
	// must invoke when done.
	Subscribe(channel string) (<-chan Event, func(), error)
}

// UserChannel names the per-user room.
func UserChannel(userID string) string {
	return "user:" + userID
}

type NATSBroker struct {
	tracer trace.Tracer
	nc     *nats.Conn
}

func NewNATSBroker(nc *nats.Conn, tracer trace.Tracer) *NATSBroker {
	return &NATSBroker{
		tracer: tracer,
		nc:     nc,
	}
}

// subject maps "user:<id>" onto the NATS subject "user.<id>".
func subject(channel string) string {
	return strings.ReplaceAll(channel, ":", ".")
}

func (b *NATSBroker) Publish(ctx context.Context, channel string, event Event) error {
	_, span := b.tracer.Start(ctx, "NATSBroker.Publish")
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := b.nc.Publish(subject(channel), data); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	metrics.EventsPublishedTotal.WithLabelValues(event.Name).Inc()
	return nil
}

func (b *NATSBroker) Subscribe(channel string) (<-chan Event, func(), error) {
	msgs := make(chan *nats.Msg, 64)
	sub, err := b.nc.ChanSubscribe(subject(channel), msgs)
	if err != nil {
		return nil, nil, err
	}

	events := make(chan Event, 64)
	done := make(chan struct{})

	go func() {
		defer close(events)
		for {
			select {
			case msg := <-msgs:
				var ev Event
				if err := json.Unmarshal(msg.Data, &ev); err != nil {
					continue
				}
				select {
				case events <- ev:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()

	cancel := func() {
		_ = sub.Unsubscribe()
		close(done)
	}

	return events, cancel, nil
}
