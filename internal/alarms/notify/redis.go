package notify

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	alarmapp "gridwatch/internal/alarms/application"
)

const defaultAlarmChannel = "gridwatch:alarms"

// RedisPublisher broadcasts alarm lifecycle events on a Redis channel so
// external consumers (dashboards, pagers) can subscribe without polling.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher constructs a publisher.
func NewRedisPublisher(client *redis.Client, channel string) (*RedisPublisher, error) {
	if client == nil {
		return nil, errors.New("redis publisher: nil client")
	}
	if channel == "" {
		channel = defaultAlarmChannel
	}
	return &RedisPublisher{client: client, channel: channel}, nil
}

// Notify implements AlarmNotifier. Publish failures are dropped; the
// alarm is already persisted and notification is best-effort.
func (p *RedisPublisher) Notify(ctx context.Context, event alarmapp.AlarmEvent) {
	if p == nil || p.client == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	p.client.Publish(ctx, p.channel, payload)
}
