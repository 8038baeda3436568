package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/apengjers/joki-bot/internal/core"
	"github.com/stretchr/testify/require"
)

type stubOps struct {
	entries map[string]*core.LedgerEntry
	closed  bool
}

func (s *stubOps) StartOrder(_ context.Context, orderID string) (*core.LedgerEntry, error) {
	e, ok := s.entries[orderID]
	if !ok {
		return nil, core.ErrLedgerEntryNotFound
	}
	if e.Status != core.LedgerStatusQueued {
		return e, core.ErrOrderAlreadyStarted
	}
	started := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	e.Status = core.LedgerStatusInProgress
	e.StartedAt = &started
	return e, nil
}

func (s *stubOps) GetOrder(_ context.Context, orderID string) (*core.LedgerEntry, error) {
	e, ok := s.entries[orderID]
	if !ok {
		return nil, core.ErrLedgerEntryNotFound
	}
	return e, nil
}

func (s *stubOps) Queue(_ context.Context, limit int) ([]*core.LedgerEntry, error) {
	var out []*core.LedgerEntry
	for _, e := range s.entries {
		if e.Status == core.LedgerStatusQueued && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubIssuer struct{ ttl time.Duration }

func (s *stubIssuer) IssueToken(worker string, ttl time.Duration) (string, error) {
	s.ttl = ttl
	return "token-for-" + worker, nil
}

func run(t *testing.T, ops *stubOps, issuer *stubIssuer, args ...string) (string, error) {
	t.Helper()
	open := func(context.Context) (orderOps, func(), error) {
		return ops, func() { ops.closed = true }, nil
	}
	cmd := newRootCmd(open, func() (tokenIssuer, error) { return issuer, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func newStubOps() *stubOps {
	return &stubOps{entries: map[string]*core.LedgerEntry{
		"JOKI-1-AAAAAAAA": {
			OrderID:     "JOKI-1-AAAAAAAA",
			ProductName: "5M Uang CDID",
			Quantity:    2,
			Account:     "budi:rahasia",
			TotalPrice:  10000,
			Estimate:    "4 Jam",
			Status:      core.LedgerStatusQueued,
			PaidAt:      time.Date(2024, 5, 1, 2, 0, 0, 0, time.UTC),
		},
	}}
}

func TestStartCmd(t *testing.T) {
	ops := newStubOps()

	out, err := run(t, ops, nil, "start", "joki-1-aaaaaaaa")
	require.NoError(t, err)
	require.Contains(t, out, `Order JOKI-1-AAAAAAAA sekarang berstatus "Dalam Proses"`)
	require.Contains(t, out, "1/5/2024, 10.00.00")
	require.True(t, ops.closed)

	_, err = run(t, ops, nil, "start", "JOKI-1-AAAAAAAA")
	require.ErrorContains(t, err, `sudah dalam status "Dalam Proses"`)

	_, err = run(t, ops, nil, "start", "JOKI-404-00000000")
	require.ErrorContains(t, err, "tidak ditemukan")

	_, err = run(t, ops, nil, "start")
	require.Error(t, err)
}

func TestStatusCmd(t *testing.T) {
	out, err := run(t, newStubOps(), nil, "status", "JOKI-1-AAAAAAAA")
	require.NoError(t, err)
	require.Contains(t, out, "budi:rahasia")
	require.Contains(t, out, "Rp 10.000")
	require.Contains(t, out, "Mulai:     -")
}

func TestQueueCmd(t *testing.T) {
	ops := newStubOps()

	out, err := run(t, ops, nil, "queue")
	require.NoError(t, err)
	require.Contains(t, out, "JOKI-1-AAAAAAAA")

	ops.entries["JOKI-1-AAAAAAAA"].Status = core.LedgerStatusInProgress
	out, err = run(t, ops, nil, "queue", "-n", "5")
	require.NoError(t, err)
	require.Contains(t, out, "Tidak ada order")
}

func TestTokenCmd(t *testing.T) {
	issuer := &stubIssuer{}
	out, err := run(t, newStubOps(), issuer, "token", "rafi", "--ttl", "2h")
	require.NoError(t, err)
	require.Equal(t, "token-for-rafi\n", out)
	require.Equal(t, 2*time.Hour, issuer.ttl)
}

func TestOpenFailureIsReturned(t *testing.T) {
	boom := errors.New("db down")
	cmd := newRootCmd(func(context.Context) (orderOps, func(), error) { return nil, nil, boom }, nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"queue"})
	require.ErrorIs(t, cmd.Execute(), boom)
}
