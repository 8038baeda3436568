package service

import (
	"context"
	"testing"
	"time"

	"github.com/apengjers/joki-bot/internal/core"
	"github.com/apengjers/joki-bot/internal/events"
	"github.com/stretchr/testify/require"
)

func TestOpsService_StartOrder(t *testing.T) {
	ledger := newFakeLedger()
	wa := &fakeWhatsApp{}
	pub := &fakePublisher{}
	svc := NewOpsService(ledger, wa, pub, "secret")
	ctx := context.Background()

	draft := &core.OrderDraft{ID: "JOKI-1-AAAAAAAA", Sender: testSender, Estimate: "4 Jam"}
	require.NoError(t, ledger.Record(ctx, core.NewLedgerEntry(draft, time.Now())))

	entry, err := svc.StartOrder(ctx, "JOKI-1-AAAAAAAA")
	require.NoError(t, err)
	require.Equal(t, core.LedgerStatusInProgress, entry.Status)
	require.NotNil(t, entry.StartedAt)
	require.Equal(t, []events.EventType{events.EventOrderStarted}, pub.types())
	require.Contains(t, wa.last().Text, "JOKI-1-AAAAAAAA")

	entry, err = svc.StartOrder(ctx, "JOKI-1-AAAAAAAA")
	require.ErrorIs(t, err, core.ErrOrderAlreadyStarted)
	require.Equal(t, core.LedgerStatusInProgress, entry.Status)
	require.Len(t, pub.types(), 1)

	_, err = svc.StartOrder(ctx, "JOKI-404-00000000")
	require.ErrorIs(t, err, core.ErrLedgerEntryNotFound)
}

func TestOpsService_StartOrderWithoutWhatsApp(t *testing.T) {
	ledger := newFakeLedger()
	svc := NewOpsService(ledger, nil, nil, "secret")
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, core.NewLedgerEntry(&core.OrderDraft{ID: "JOKI-2-BBBBBBBB", Sender: "x"}, time.Now())))
	_, err := svc.StartOrder(ctx, "JOKI-2-BBBBBBBB")
	require.NoError(t, err)
}

func TestOpsService_Tokens(t *testing.T) {
	svc := NewOpsService(newFakeLedger(), nil, nil, "secret")

	token, err := svc.IssueToken("andi", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateJWT(token)
	require.NoError(t, err)
	require.Equal(t, "andi", claims["sub"])
	require.Equal(t, "WORKER", claims["role"])

	other := NewOpsService(newFakeLedger(), nil, nil, "other-secret")
	_, err = other.ValidateJWT(token)
	require.Error(t, err)

	_, err = svc.IssueToken("", time.Hour)
	require.Error(t, err)
}

func TestOpsService_ExpiredToken(t *testing.T) {
	svc := NewOpsService(newFakeLedger(), nil, nil, "secret")
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := svc.IssueToken("andi", time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateJWT(token)
	require.Error(t, err)
}
