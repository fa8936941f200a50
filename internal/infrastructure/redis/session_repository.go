package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wms-platform/transfer-service/internal/domain"
)

const keyPrefix = "transfer:session:"

// Connect parses a redis:// URL and pings the server
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// PackingSessionRepository stores sessions as JSON with a TTL so abandoned carts expire.
// A session holding a slot reservation never expires; it must be confirmed or discarded
// so the slot is released.
type PackingSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPackingSessionRepository(client *redis.Client, ttl time.Duration) *PackingSessionRepository {
	return &PackingSessionRepository{client: client, ttl: ttl}
}

func sessionKey(orderID, itemCode string) string {
	return keyPrefix + orderID + ":" + itemCode
}

func (r *PackingSessionRepository) Get(ctx context.Context, orderID, itemCode string) (*domain.PackingSession, error) {
	data, err := r.client.Get(ctx, sessionKey(orderID, itemCode)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session domain.PackingSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode packing session: %w", err)
	}
	return &session, nil
}

func (r *PackingSessionRepository) Save(ctx context.Context, session *domain.PackingSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode packing session: %w", err)
	}
	return r.client.Set(ctx, sessionKey(session.OrderID, session.ItemCode), data, r.expiry(session)).Err()
}

func (r *PackingSessionRepository) Delete(ctx context.Context, orderID, itemCode string) error {
	return r.client.Del(ctx, sessionKey(orderID, itemCode)).Err()
}

func (r *PackingSessionRepository) expiry(session *domain.PackingSession) time.Duration {
	if session.HoldsReservation() {
		return 0
	}
	return r.ttl
}
