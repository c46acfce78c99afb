package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/reloop-app/sync-engine/internal/core/services"
)

var _ services.ChangePublisher = (*RedisPublisher)(nil)

// RedisPublisher fans change events out over redis pub/sub, one channel per
// user. Delivery is best-effort and at-least-once from the client's point of
// view: subscribers only use events as a cue to re-fetch, so a dropped or
// duplicated message is harmless.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func ChannelFor(userID string) string {
	return fmt.Sprintf("changes:%s", userID)
}

func (p *RedisPublisher) PublishChange(ctx context.Context, event services.ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[REALTIME] Failed to marshal event for loop %s: %v", event.LoopID, err)
		return
	}

	if err := p.client.Publish(ctx, ChannelFor(event.UserID), payload).Err(); err != nil {
		log.Printf("[REALTIME] Failed to publish change for loop %s: %v", event.LoopID, err)
	}
}
