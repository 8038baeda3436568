package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apengjers/joki-bot/internal/core"
	"github.com/stretchr/testify/require"
)

func TestStore_StateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, time.Hour)
	require.NoError(t, err)

	state, err := s.GetState(ctx, "a")
	require.NoError(t, err)
	require.True(t, state.IsIdle())

	require.NoError(t, s.SetState(ctx, "a", core.AwaitingOrderForm("cdid_10m")))
	require.NoError(t, s.SetState(ctx, "b", core.AwaitingComplaintConfirmation()))

	reopened, err := Open(dir, time.Hour)
	require.NoError(t, err)

	state, err = reopened.GetState(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, core.StateAwaitingOrderForm, state.Kind)
	require.Equal(t, "cdid_10m", state.ProductID)

	require.NoError(t, reopened.ClearState(ctx, "b"))
	state, err = reopened.GetState(ctx, "b")
	require.NoError(t, err)
	require.True(t, state.IsIdle())
}

func TestStore_ExpiredStateIsIdle(t *testing.T) {
	s, err := Open(t.TempDir(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	require.NoError(t, s.SetState(ctx, "a", core.AwaitingComplaintConfirmation()))

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	state, err := s.GetState(ctx, "a")
	require.NoError(t, err)
	require.True(t, state.IsIdle())
}

func TestStore_PendingOrders(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := Open(dir, 0)
	require.NoError(t, err)

	_, err = s.GetOrder(ctx, "JOKI-1-AAAAAAAA")
	require.ErrorIs(t, err, core.ErrOrderNotFound)

	draft := &core.OrderDraft{ID: "JOKI-1-AAAAAAAA", Sender: "a", ProductID: "cdid_1m", Quantity: 2, TotalPrice: 2000}
	require.NoError(t, s.PutOrder(ctx, draft))

	// mutating the caller's copy must not leak into the store
	draft.Quantity = 99
	got, err := s.GetOrder(ctx, "JOKI-1-AAAAAAAA")
	require.NoError(t, err)
	require.Equal(t, 2, got.Quantity)

	reopened, err := Open(dir, 0)
	require.NoError(t, err)
	got, err = reopened.GetOrder(ctx, "JOKI-1-AAAAAAAA")
	require.NoError(t, err)
	require.Equal(t, int64(2000), got.TotalPrice)

	require.NoError(t, reopened.RemoveOrder(ctx, "JOKI-1-AAAAAAAA"))
	require.NoError(t, reopened.RemoveOrder(ctx, "JOKI-1-AAAAAAAA"))
	_, err = reopened.GetOrder(ctx, "JOKI-1-AAAAAAAA")
	require.ErrorIs(t, err, core.ErrOrderNotFound)
}

func TestStore_CommitDraft(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := Open(dir, 0)
	require.NoError(t, err)

	require.NoError(t, s.SetState(ctx, "a", core.AwaitingOrderForm("cdid_5m")))
	require.NoError(t, s.CommitDraft(ctx, &core.OrderDraft{ID: "JOKI-2-BBBBBBBB", Sender: "a"}))

	reopened, err := Open(dir, 0)
	require.NoError(t, err)
	state, err := reopened.GetState(ctx, "a")
	require.NoError(t, err)
	require.True(t, state.IsIdle())
	_, err = reopened.GetOrder(ctx, "JOKI-2-BBBBBBBB")
	require.NoError(t, err)
}

func TestStore_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := Open(dir, 0)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.SetState(ctx, "a", core.AwaitingComplaintConfirmation()))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotEqual(t, ".tmp", filepath.Ext(e.Name()), "leftover %s", e.Name())
	}
}

func TestOpen_RejectsCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, StateFileName), []byte("{not json"), 0o644))

	_, err := Open(dir, 0)
	require.Error(t, err)
}
