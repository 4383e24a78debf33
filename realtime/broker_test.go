package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func startTestNATS(t *testing.T) *nats.Conn {
	t.Helper()

	srv, err := server.NewServer(&server.Options{Port: -1})
	require.NoError(t, err)

	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server did not start")
	}
	t.Cleanup(srv.Shutdown)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	return nc
}

func TestPublishSubscribeRoundtrip(t *testing.T) {
	nc := startTestNATS(t)
	broker := NewNATSBroker(nc, trace.NewNoopTracerProvider().Tracer("test"))

	events, cancel, err := broker.Subscribe(UserChannel("42"))
	require.NoError(t, err)
	defer cancel()

	event, err := NewEvent(EventNewTweet, map[string]string{"id": "t1"})
	require.NoError(t, err)
	require.NoError(t, broker.Publish(context.Background(), UserChannel("42"), event))

	select {
	case got := <-events:
		assert.Equal(t, EventNewTweet, got.Name)

		var payload map[string]string
		require.NoError(t, json.Unmarshal(got.Payload, &payload))
		assert.Equal(t, "t1", payload["id"])
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestSubscribeIsPerChannel(t *testing.T) {
	nc := startTestNATS(t)
	broker := NewNATSBroker(nc, trace.NewNoopTracerProvider().Tracer("test"))

	events, cancel, err := broker.Subscribe(UserChannel("alice"))
	require.NoError(t, err)
	defer cancel()

	event, err := NewEvent(EventNotification, map[string]string{"for": "bob"})
	require.NoError(t, err)
	require.NoError(t, broker.Publish(context.Background(), UserChannel("bob"), event))

	select {
	case got := <-events:
		t.Fatalf("unexpected event %q on another user's channel", got.Name)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCancelClosesEventChannel(t *testing.T) {
	nc := startTestNATS(t)
	broker := NewNATSBroker(nc, trace.NewNoopTracerProvider().Tracer("test"))

	events, cancel, err := broker.Subscribe(UserChannel("42"))
	require.NoError(t, err)

	cancel()

	select {
	case _, open := <-events:
		assert.False(t, open)
	case <-time.After(5 * time.Second):
		t.Fatal("event channel not closed after cancel")
	}
}

func TestUserChannelSubjectMapping(t *testing.T) {
	assert.Equal(t, "user:42", UserChannel("42"))
	assert.Equal(t, "user.42", subject(UserChannel("42")))
}
