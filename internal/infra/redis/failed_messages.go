package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/applyflow/applyflow/internal/core/domain"
)

// Entries expire after a day; messages that still fail by then are picked up
// again by the unread listing on the next run.
const failedMessageTTL = 24 * time.Hour

// FailedMessageRepo tracks messages whose classification failed, so repeat
// offenders can be inspected and retried in priority order.
type FailedMessageRepo struct {
	rdb *redis.Client
}

// NewFailedMessageRepo creates a new Redis-backed failed message repository.
func NewFailedMessageRepo(client *Client) *FailedMessageRepo {
	return &FailedMessageRepo{rdb: client.rdb}
}

// Key helpers
func (r *FailedMessageRepo) queueKey() string {
	return "failed_messages"
}

func (r *FailedMessageRepo) messageKey(id string) string {
	return fmt.Sprintf("failed_message:%s", id)
}

// Add records a failed message. Re-adding an existing message resets its
// reason but keeps queue position via the stored attempt count.
func (r *FailedMessageRepo) Add(ctx context.Context, fm *domain.FailedMessage) error {
	data, err := json.Marshal(fm)
	if err != nil {
		return fmt.Errorf("failed to marshal failed message: %w", err)
	}

	if err := r.rdb.Set(ctx, r.messageKey(fm.MessageID), data, failedMessageTTL).Err(); err != nil {
		return fmt.Errorf("failed to set failed message: %w", err)
	}

	// Sorted set score = attempt count, lower retries first
	if err := r.rdb.ZAdd(ctx, r.queueKey(), redis.Z{
		Score:  float64(fm.Attempts),
		Member: fm.MessageID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}

	return nil
}

// Record registers a fresh failure: first offense creates the entry,
// repeats bump the attempt count and refresh the reason.
func (r *FailedMessageRepo) Record(ctx context.Context, messageID, reason string) error {
	data, err := r.rdb.Get(ctx, r.messageKey(messageID)).Bytes()
	if err == redis.Nil {
		now := time.Now()
		return r.Add(ctx, &domain.FailedMessage{
			MessageID:   messageID,
			Reason:      reason,
			Attempts:    1,
			LastAttempt: now,
			CreatedAt:   now,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to get failed message: %w", err)
	}

	var fm domain.FailedMessage
	if err := json.Unmarshal(data, &fm); err != nil {
		return fmt.Errorf("failed to unmarshal failed message: %w", err)
	}
	fm.Reason = reason
	fm.Attempts++
	fm.LastAttempt = time.Now()

	newData, err := json.Marshal(fm)
	if err != nil {
		return fmt.Errorf("failed to marshal failed message: %w", err)
	}
	if err := r.rdb.Set(ctx, r.messageKey(messageID), newData, failedMessageTTL).Err(); err != nil {
		return fmt.Errorf("failed to set failed message: %w", err)
	}
	return r.rdb.ZAdd(ctx, r.queueKey(), redis.Z{
		Score:  float64(fm.Attempts),
		Member: messageID,
	}).Err()
}

// IncrementRetry bumps the attempt count and updates last attempt time.
func (r *FailedMessageRepo) IncrementRetry(ctx context.Context, messageID string) error {
	data, err := r.rdb.Get(ctx, r.messageKey(messageID)).Bytes()
	if err != nil {
		return fmt.Errorf("failed to get failed message: %w", err)
	}

	var fm domain.FailedMessage
	if err := json.Unmarshal(data, &fm); err != nil {
		return fmt.Errorf("failed to unmarshal failed message: %w", err)
	}

	fm.Attempts++
	fm.LastAttempt = time.Now()

	newData, err := json.Marshal(fm)
	if err != nil {
		return fmt.Errorf("failed to marshal failed message: %w", err)
	}

	if err := r.rdb.Set(ctx, r.messageKey(messageID), newData, failedMessageTTL).Err(); err != nil {
		return fmt.Errorf("failed to set failed message: %w", err)
	}

	if err := r.rdb.ZAdd(ctx, r.queueKey(), redis.Z{
		Score:  float64(fm.Attempts),
		Member: messageID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to update queue: %w", err)
	}

	return nil
}

// Resolve removes a message that eventually classified successfully.
func (r *FailedMessageRepo) Resolve(ctx context.Context, messageID string) error {
	if err := r.rdb.ZRem(ctx, r.queueKey(), messageID).Err(); err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}
	if err := r.rdb.Del(ctx, r.messageKey(messageID)).Err(); err != nil {
		return fmt.Errorf("failed to delete failed message: %w", err)
	}
	return nil
}

// GetAll retrieves all tracked failed messages, fewest attempts first.
func (r *FailedMessageRepo) GetAll(ctx context.Context) ([]*domain.FailedMessage, error) {
	ids, err := r.rdb.ZRange(ctx, r.queueKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	messages := make([]*domain.FailedMessage, 0, len(ids))
	for _, id := range ids {
		data, err := r.rdb.Get(ctx, r.messageKey(id)).Bytes()
		if err == redis.Nil {
			// Data expired but ID still in queue, drop it
			r.rdb.ZRem(ctx, r.queueKey(), id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get failed message: %w", err)
		}

		var fm domain.FailedMessage
		if err := json.Unmarshal(data, &fm); err != nil {
			continue
		}
		messages = append(messages, &fm)
	}

	return messages, nil
}

// Count returns the number of tracked failed messages.
func (r *FailedMessageRepo) Count(ctx context.Context) (int, error) {
	count, err := r.rdb.ZCard(ctx, r.queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}
