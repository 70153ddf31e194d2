package settlement

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewQueue(client), mr
}

func TestQueueEnqueueListResolve(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	entry := ReconcileEntry{ProjectID: "p1", Kind: KindRelease, Signature: "sig1"}
	require.NoError(t, q.Enqueue(ctx, entry))
	require.NoError(t, q.Enqueue(ctx, ReconcileEntry{ProjectID: "p2", Kind: KindRefund, Signature: "sig2", LastValidBlockHeight: 321}))

	pending, err := q.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, q.Resolve(ctx, "p1"))

	pending, err = q.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "p2", pending[0].ProjectID)
	assert.Equal(t, KindRefund, pending[0].Kind)
	assert.Equal(t, "sig2", pending[0].Signature)
	assert.Equal(t, uint64(321), pending[0].LastValidBlockHeight, "the expiry height must survive the round trip")
}

func TestQueueEnqueueOverwritesSameProject(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, ReconcileEntry{ProjectID: "p1", Kind: KindRelease, Signature: "old"}))
	require.NoError(t, q.Enqueue(ctx, ReconcileEntry{ProjectID: "p1", Kind: KindRelease, Signature: "new"}))

	pending, err := q.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "new", pending[0].Signature)
}

func TestQueueListPendingDropsOrphans(t *testing.T) {
	q, mr := setupQueue(t)
	ctx := context.Background()

	// set member whose entry key is gone
	_, err := mr.SetAdd(reconcilePendingSet, "ghost")
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, ReconcileEntry{ProjectID: "p1", Kind: KindRelease, Signature: "sig1"}))

	pending, err := q.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "p1", pending[0].ProjectID)

	ok, err := mr.IsMember(reconcilePendingSet, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueueResolveIsIdempotent(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, ReconcileEntry{ProjectID: "p1", Kind: KindRelease, Signature: "sig1"}))
	require.NoError(t, q.Resolve(ctx, "p1"))
	require.NoError(t, q.Resolve(ctx, "p1"))

	pending, err := q.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
