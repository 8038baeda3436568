package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/apengjers/joki-bot/internal/core"
	"github.com/spf13/cobra"
)

type orderOps interface {
	StartOrder(ctx context.Context, orderID string) (*core.LedgerEntry, error)
	GetOrder(ctx context.Context, orderID string) (*core.LedgerEntry, error)
	Queue(ctx context.Context, limit int) ([]*core.LedgerEntry, error)
}

type tokenIssuer interface {
	IssueToken(worker string, ttl time.Duration) (string, error)
}

type opsOpener func(ctx context.Context) (orderOps, func(), error)

func newRootCmd(open opsOpener, issuer func() (tokenIssuer, error)) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "worker",
		Short:         "Fulfillment tools for APENGJERS joki workers",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(startCmd(open))
	rootCmd.AddCommand(statusCmd(open))
	rootCmd.AddCommand(queueCmd(open))
	rootCmd.AddCommand(tokenCmd(issuer))
	return rootCmd
}

// withOps runs fn against a freshly opened ledger connection
func withOps(cmd *cobra.Command, open opsOpener, fn func(ctx context.Context, ops orderOps) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	ops, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, ops)
}

func startCmd(open opsOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "start <ORDER_ID>",
		Short: `Move a paid order from "Segera Diproses" to "Dalam Proses"`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID := strings.ToUpper(strings.TrimSpace(args[0]))
			return withOps(cmd, open, func(ctx context.Context, ops orderOps) error {
				entry, err := ops.StartOrder(ctx, orderID)
				switch {
				case errors.Is(err, core.ErrLedgerEntryNotFound):
					return fmt.Errorf("order %s tidak ditemukan", orderID)
				case errors.Is(err, core.ErrOrderAlreadyStarted):
					return fmt.Errorf("order %s sudah dalam status %q, tidak dapat dimulai ulang", orderID, entry.Status)
				case err != nil:
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Sukses! Order %s sekarang berstatus %q (mulai %s)\n",
					entry.OrderID, entry.Status, formatTime(entry.StartedAt))
				return nil
			})
		},
	}
}

func statusCmd(open opsOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "status <ORDER_ID>",
		Short: "Show one ledger order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID := strings.ToUpper(strings.TrimSpace(args[0]))
			return withOps(cmd, open, func(ctx context.Context, ops orderOps) error {
				entry, err := ops.GetOrder(ctx, orderID)
				if errors.Is(err, core.ErrLedgerEntryNotFound) {
					return fmt.Errorf("order %s tidak ditemukan", orderID)
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Order:     %s\n", entry.OrderID)
				fmt.Fprintf(out, "Produk:    %s x%d\n", entry.ProductName, entry.Quantity)
				fmt.Fprintf(out, "Akun:      %s\n", entry.Account)
				fmt.Fprintf(out, "Payment:   %s\n", entry.PaymentMethod)
				fmt.Fprintf(out, "Total:     %s\n", core.FormatRupiah(entry.TotalPrice))
				fmt.Fprintf(out, "Estimasi:  %s\n", entry.Estimate)
				fmt.Fprintf(out, "Status:    %s\n", entry.Status)
				fmt.Fprintf(out, "Dibayar:   %s\n", formatTime(&entry.PaidAt))
				fmt.Fprintf(out, "Mulai:     %s\n", formatTime(entry.StartedAt))
				return nil
			})
		},
	}
}

func queueCmd(open opsOpener) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "queue",
		Short: `List orders waiting in "Segera Diproses"`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOps(cmd, open, func(ctx context.Context, ops orderOps) error {
				entries, err := ops.Queue(ctx, limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Tidak ada order dalam antrian.")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ORDER\tPRODUK\tJUMLAH\tESTIMASI\tDIBAYAR")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", e.OrderID, e.ProductName, e.Quantity, e.Estimate, formatTime(&e.PaidAt))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum orders to list")
	return cmd
}

func tokenCmd(issuer func() (tokenIssuer, error)) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <WORKER_NAME>",
		Short: "Mint a bearer token for the ops API and event feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			iss, err := issuer()
			if err != nil {
				return err
			}
			token, err := iss.IssueToken(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 7*24*time.Hour, "Token lifetime")
	return cmd
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return core.FormatJakartaTime(*t)
}
