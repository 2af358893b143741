package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cryptodesk/pkg/coin"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	channel string
	payload []byte
	err     error
}

func (r *recorder) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	r.channel = channel
	r.payload, _ = message.([]byte)
	return redis.NewIntResult(1, r.err)
}

func TestPublishEncodesSnapshot(t *testing.T) {
	rec := &recorder{}
	p := NewRedisPublisher(rec, "cryptodesk:prices", nil)

	snap := coin.Snapshot{
		Rates:     map[string]float64{"BTC": 67000},
		Prices:    []coin.PriceQuote{{Symbol: "BTC", Price: 67000, Change: 2.5}},
		Timestamp: 1700000000000,
		Source:    coin.SourceLive,
	}
	require.NoError(t, p.Publish(context.Background(), snap))

	assert.Equal(t, "cryptodesk:prices", rec.channel)
	var got coin.Snapshot
	require.NoError(t, json.Unmarshal(rec.payload, &got))
	assert.Equal(t, snap, got)
}

func TestOnSnapshotSwallowsErrors(t *testing.T) {
	rec := &recorder{err: errors.New("connection refused")}
	p := NewRedisPublisher(rec, "prices", nil)

	assert.NotPanics(t, func() {
		p.OnSnapshot(context.Background(), coin.Snapshot{Source: coin.SourceLive})
	})
	assert.Error(t, p.Publish(context.Background(), coin.Snapshot{}))
}

func TestOnSnapshotSkipsOlderSnapshots(t *testing.T) {
	rec := &recorder{}
	p := NewRedisPublisher(rec, "prices", nil)
	ctx := context.Background()

	p.OnSnapshot(ctx, coin.Snapshot{Timestamp: 2000, Source: coin.SourceLive})
	p.OnSnapshot(ctx, coin.Snapshot{Timestamp: 1000, Source: coin.SourceLive})

	var got coin.Snapshot
	require.NoError(t, json.Unmarshal(rec.payload, &got))
	assert.EqualValues(t, 2000, got.Timestamp)

	p.OnSnapshot(ctx, coin.Snapshot{Timestamp: 3000, Source: coin.SourceLive})
	require.NoError(t, json.Unmarshal(rec.payload, &got))
	assert.EqualValues(t, 3000, got.Timestamp)
}

func TestConsumeDecodesAndSkipsGarbage(t *testing.T) {
	ch := make(chan *redis.Message, 3)
	ch <- &redis.Message{Channel: "prices", Payload: `{"rates":{"BTC":67000},"prices":[],"timestamp":1,"source":"live"}`}
	ch <- &redis.Message{Channel: "prices", Payload: "not json"}
	ch <- &redis.Message{Channel: "prices", Payload: `{"rates":{"ETH":3500},"prices":[],"timestamp":2,"source":"live","stale":true}`}
	close(ch)

	var got []coin.Snapshot
	err := consume(context.Background(), ch, func(s coin.Snapshot) { got = append(got, s) })
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, 67000.0, got[0].Rates["BTC"])
	assert.True(t, got[1].Stale)
}

func TestConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := consume(ctx, make(chan *redis.Message), func(coin.Snapshot) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubscribeReceivesPublishedSnapshot(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}

	ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()

	got := make(chan coin.Snapshot, 1)
	done := make(chan error, 1)
	go func() {
		done <- Subscribe(ctx, rdb, "cryptodesk:test", func(s coin.Snapshot) {
			select {
			case got <- s:
			default:
			}
		})
	}()

	p := NewRedisPublisher(rdb, "cryptodesk:test", nil)
	snap := coin.Snapshot{Rates: map[string]float64{"BTC": 67000}, Prices: []coin.PriceQuote{}, Timestamp: 1, Source: coin.SourceLive}
	require.Eventually(t, func() bool {
		_ = p.Publish(ctx, snap)
		return len(got) > 0
	}, 3*time.Second, 50*time.Millisecond)

	assert.Equal(t, snap.Rates, (<-got).Rates)
	stop()
	assert.ErrorIs(t, <-done, context.Canceled)
}
