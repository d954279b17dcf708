package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRedis struct {
	channel string
	message any
	err     error
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	f.channel = channel
	f.message = message
	return redis.NewIntResult(1, f.err)
}

func TestRedisPublisherWrapsEnvelope(t *testing.T) {
	client := &fakeRedis{}
	pub := NewRedisPublisher(client, zap.NewNop())

	require.NoError(t, pub.Publish(context.Background(), "project-3", EventFileUploaded, map[string]string{"name": "brief.pdf"}))
	assert.Equal(t, DefaultKeyPrefix+"project-3", client.channel)

	data, ok := client.message.([]byte)
	require.True(t, ok)
	var evt Event
	require.NoError(t, json.Unmarshal(data, &evt))
	assert.Equal(t, "project-3", evt.Channel)
	assert.Equal(t, EventFileUploaded, evt.Name)
}

func TestRedisPublisherPropagatesErrors(t *testing.T) {
	client := &fakeRedis{err: errors.New("connection refused")}
	pub := NewRedisPublisher(client, zap.NewNop())

	err := pub.Publish(context.Background(), "tenant-1", EventNotificationCreated, nil)
	assert.ErrorContains(t, err, "connection refused")
}

func TestBridgeHandleDeliversToHub(t *testing.T) {
	hub := NewHub()
	sub, _, err := hub.Subscribe("tenant-8")
	require.NoError(t, err)
	defer sub.Close()

	bridge := NewBridge(nil, hub, zap.NewNop())
	data, err := json.Marshal(Event{Channel: "tenant-8", Name: EventNotificationCreated, Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)

	bridge.handle(&redis.Message{Channel: DefaultKeyPrefix + "tenant-8", Payload: string(data)})
	bridge.handle(&redis.Message{Channel: DefaultKeyPrefix + "tenant-8", Payload: "not json"})

	select {
	case evt := <-sub.Events():
		assert.Equal(t, EventNotificationCreated, evt.Name)
	case <-time.After(time.Second):
		t.Fatal("bridge did not deliver event")
	}
}
