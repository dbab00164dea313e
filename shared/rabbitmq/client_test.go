package rabbitmq

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	failures  int
	calls     int
	published []amqp.Publishing
	keys      []string
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("channel/connection is not open")
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func newTestClient(ch *fakeChannel, retries int) (*Client, *[]time.Duration) {
	var slept []time.Duration
	return &Client{
		config: &Config{
			ExchangeName:      "jobgroup_events",
			RoutingKey:        "jobgroup.status",
			PublishRetries:    retries,
			PublishRetryDelay: 10 * time.Millisecond,
		},
		channel: ch,
		logger:  slog.New(slog.DiscardHandler),
		sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return ctx.Err()
		},
	}, &slept
}

func TestPublish(t *testing.T) {
	tests := []struct {
		name       string
		failures   int
		retries    int
		wantErr    bool
		wantCalls  int
		wantSleeps []time.Duration
	}{
		{
			name:      "first attempt succeeds",
			retries:   3,
			wantCalls: 1,
		},
		{
			name:       "succeeds after retries",
			failures:   2,
			retries:    3,
			wantCalls:  3,
			wantSleeps: []time.Duration{10 * time.Millisecond, 20 * time.Millisecond},
		},
		{
			name:       "gives up",
			failures:   10,
			retries:    2,
			wantErr:    true,
			wantCalls:  3,
			wantSleeps: []time.Duration{10 * time.Millisecond, 20 * time.Millisecond},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &fakeChannel{failures: tt.failures}
			client, slept := newTestClient(ch, tt.retries)

			err := client.Publish(context.Background(), "complete", []byte(`{"status":"COMPLETE"}`))

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to publish message after 3 attempts")
			} else {
				require.NoError(t, err)
				require.Len(t, ch.published, 1)
				assert.Equal(t, "jobgroup.status.complete", ch.keys[0])
				assert.Equal(t, "application/json", ch.published[0].ContentType)
				assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
			}
			assert.Equal(t, tt.wantCalls, ch.calls)
			assert.Equal(t, tt.wantSleeps, *slept)
		})
	}
}

func TestPublish_ContextCancelled(t *testing.T) {
	ch := &fakeChannel{failures: 10}
	client, _ := newTestClient(ch, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Publish(ctx, "", []byte("{}"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, ch.calls)
}

func TestPublish_NotConnected(t *testing.T) {
	client := &Client{config: &Config{}, logger: slog.New(slog.DiscardHandler)}
	assert.Error(t, client.Publish(context.Background(), "", nil))
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, backoff(0, 0, 0))
	assert.Equal(t, 400*time.Millisecond, backoff(0, 0, 2))
	assert.Equal(t, 900*time.Millisecond, backoff(100*time.Millisecond, 3, 2))
}

func TestClose(t *testing.T) {
	ch := &fakeChannel{}
	client, _ := newTestClient(ch, 1)

	require.NoError(t, client.Close())
	assert.True(t, ch.closed)
	assert.False(t, client.IsConnected())
}
