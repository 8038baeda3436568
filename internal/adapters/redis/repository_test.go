package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/apengjers/joki-bot/internal/core"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*Repository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRepository(client, time.Hour), mr
}

func TestRepository_StateLifecycle(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()
	sender := "62811@s.whatsapp.net"

	state, err := repo.GetState(ctx, sender)
	require.NoError(t, err)
	require.True(t, state.IsIdle())

	require.NoError(t, repo.SetState(ctx, sender, core.AwaitingOrderForm("cdid_5m")))
	state, err = repo.GetState(ctx, sender)
	require.NoError(t, err)
	require.Equal(t, core.StateAwaitingOrderForm, state.Kind)
	require.Equal(t, "cdid_5m", state.ProductID)
	require.Equal(t, time.Hour, mr.TTL(StateKeyPrefix+sender))

	require.NoError(t, repo.ClearState(ctx, sender))
	require.False(t, mr.Exists(StateKeyPrefix+sender))
}

func TestRepository_SetIdleDeletesKey(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SetState(ctx, "a", core.AwaitingComplaintConfirmation()))
	require.True(t, mr.Exists(StateKeyPrefix+"a"))

	require.NoError(t, repo.SetState(ctx, "a", core.IdleState()))
	require.False(t, mr.Exists(StateKeyPrefix+"a"))
}

func TestRepository_StateExpires(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SetState(ctx, "a", core.AwaitingComplaintConfirmation()))
	mr.FastForward(2 * time.Hour)

	state, err := repo.GetState(ctx, "a")
	require.NoError(t, err)
	require.True(t, state.IsIdle())
}

func TestRepository_PendingOrders(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.GetOrder(ctx, "JOKI-1-00000000")
	require.ErrorIs(t, err, core.ErrOrderNotFound)

	draft := &core.OrderDraft{ID: "JOKI-1-00000000", Sender: "a", ProductID: "cdid_1m", Quantity: 3, TotalPrice: 3000, Status: core.OrderStatusPendingPayment}
	require.NoError(t, repo.PutOrder(ctx, draft))
	require.Equal(t, time.Duration(0), mr.TTL(PendingOrderKeyPrefix+draft.ID))

	got, err := repo.GetOrder(ctx, draft.ID)
	require.NoError(t, err)
	require.Equal(t, draft.ProductID, got.ProductID)
	require.Equal(t, draft.TotalPrice, got.TotalPrice)

	require.NoError(t, repo.RemoveOrder(ctx, draft.ID))
	_, err = repo.GetOrder(ctx, draft.ID)
	require.ErrorIs(t, err, core.ErrOrderNotFound)

	// removing twice is harmless
	require.NoError(t, repo.RemoveOrder(ctx, draft.ID))
}

func TestRepository_CommitDraftClearsState(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SetState(ctx, "a", core.AwaitingOrderForm("cdid_1m")))
	draft := &core.OrderDraft{ID: "JOKI-2-11111111", Sender: "a", Status: core.OrderStatusPendingPayment}

	require.NoError(t, repo.CommitDraft(ctx, draft))
	require.False(t, mr.Exists(StateKeyPrefix+"a"))
	require.True(t, mr.Exists(PendingOrderKeyPrefix+draft.ID))
}
