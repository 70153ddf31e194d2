package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

const (
	reconcileKeyPrefix  = "escrow:reconcile:" // entry JSON: escrow:reconcile:{project_id}
	reconcilePendingSet = "escrow:reconcile:pending"
	settledChannel      = "escrow:settled" // pub/sub channel for settlement events
)

// Queue journals in-flight and record-lagging settlements in Redis. Redis
// fails independently of Postgres, which is the point: when the primary
// store is the thing that just failed, the journal entry still survives.
type Queue struct {
	client *redis.Client
}

func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

func (q *Queue) entryKey(projectID string) string {
	return reconcileKeyPrefix + projectID
}

// Enqueue records a settlement awaiting reconciliation. Entries carry no
// TTL: a real fund movement may never age out of the journal unresolved.
func (q *Queue) Enqueue(ctx context.Context, e ReconcileEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal reconcile entry: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, q.entryKey(e.ProjectID), data, 0)
	pipe.SAdd(ctx, reconcilePendingSet, e.ProjectID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue reconcile entry: %w", err)
	}
	return nil
}

// ListPending returns all journaled settlements.
func (q *Queue) ListPending(ctx context.Context) ([]ReconcileEntry, error) {
	ids, err := q.client.SMembers(ctx, reconcilePendingSet).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending reconciliations: %w", err)
	}

	out := make([]ReconcileEntry, 0, len(ids))
	for _, id := range ids {
		data, err := q.client.Get(ctx, q.entryKey(id)).Result()
		if err == redis.Nil {
			// set member without an entry: drop the orphan
			q.client.SRem(ctx, reconcilePendingSet, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load reconcile entry %s: %w", id, err)
		}

		var e ReconcileEntry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("decode reconcile entry %s: %w", id, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Resolve removes a reconciled settlement from the journal.
func (q *Queue) Resolve(ctx context.Context, projectID string) error {
	pipe := q.client.Pipeline()
	pipe.Del(ctx, q.entryKey(projectID))
	pipe.SRem(ctx, reconcilePendingSet, projectID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("resolve reconcile entry: %w", err)
	}
	return nil
}

// PublishSettled emits a settlement event for listeners (dashboards, the
// marketplace UI). Best-effort: delivery failures only log.
func (q *Queue) PublishSettled(ctx context.Context, e ReconcileEntry) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := q.client.Publish(ctx, settledChannel, data).Err(); err != nil {
		log.Printf("[settlement] publish event failed project=%s err=%v", e.ProjectID, err)
	}
}
