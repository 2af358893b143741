package publish

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"cryptodesk/pkg/coin"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

// publisher is the slice of redis.UniversalClient used here.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher announces live snapshots on a Pub/Sub channel so other
// processes can follow prices. Nothing is stored.
type RedisPublisher struct {
	client  publisher
	channel string
	lastTS  atomic.Int64
	logger  *zap.Logger
}

func NewRedisPublisher(client publisher, channel string, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger.Named("publish")}
}

// OnSnapshot implements aggregator.Listener. Failures are logged and dropped,
// as are snapshots older than one already published.
func (p *RedisPublisher) OnSnapshot(ctx context.Context, snap coin.Snapshot) {
	for {
		last := p.lastTS.Load()
		if snap.Timestamp < last {
			p.logger.Debug("ignoring out-of-order snapshot", zap.Int64("timestamp", snap.Timestamp))
			return
		}
		if p.lastTS.CompareAndSwap(last, snap.Timestamp) {
			break
		}
	}
	if err := p.Publish(ctx, snap); err != nil {
		p.logger.Warn("failed to publish snapshot", zap.String("channel", p.channel), zap.Error(err))
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, snap coin.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// Subscribe calls handle for every snapshot published on channel.
// It blocks until ctx is done or the subscription closes.
func Subscribe(ctx context.Context, client *redis.Client, channel string, handle func(coin.Snapshot)) error {
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	return consume(ctx, sub.Channel(), handle)
}

// consume decodes messages until ctx is done or ch closes. Payloads that are
// not snapshots are skipped.
func consume(ctx context.Context, ch <-chan *redis.Message, handle func(coin.Snapshot)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var snap coin.Snapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
				continue
			}
			handle(snap)
		}
	}
}
