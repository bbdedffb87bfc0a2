package main

import (
	"errors"
	"fmt"
	"math"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/listenupapp/library-server/internal/di/providers"
	"github.com/listenupapp/library-server/internal/dto"
	"github.com/listenupapp/library-server/internal/service"
	"github.com/listenupapp/library-server/internal/store"
)

const dateLayout = "2006-01-02"

func newSweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire READY reservations whose hold has lapsed",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command) error {
			reservations, err := invoke[*service.ReservationService](a)
			if err != nil {
				return err
			}

			expired, err := reservations.ProcessExpiredReservations(cmd.Context())
			if err != nil {
				return err
			}
			if expired == nil {
				expired = []*dto.Reservation{}
			}

			return newPrinter(cmd.OutOrStdout(), a.jsonOutput).emit(expired, func(tw *tabwriter.Writer) {
				row(tw, "RESERVATION", "USER", "BOOK", "EXPIRED")
				for _, r := range expired {
					row(tw, r.ID, r.UserName, r.BookTitle, formatDate(r.ExpiryDate))
				}
				row(tw, fmt.Sprintf("%d reservation(s) expired", len(expired)))
			})
		}),
	}
}

func newOverdueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List active loans past their due date",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command) error {
			loans, err := invoke[*service.LoanService](a)
			if err != nil {
				return err
			}

			list, err := loans.ListOverdueLoans(cmd.Context())
			if err != nil {
				return err
			}

			now := time.Now()
			return newPrinter(cmd.OutOrStdout(), a.jsonOutput).emit(list, func(tw *tabwriter.Writer) {
				row(tw, "LOAN", "USER", "BOOK", "LIBRARY", "DUE", "DAYS LATE")
				for _, l := range list.Loans {
					row(tw, l.ID, l.UserName, l.BookTitle, l.LibraryName, l.DueDate.Format(dateLayout), daysLate(l.DueDate, now))
				}
			})
		}),
	}
}

// ReindexResult reports a full rebuild of the search index.
type ReindexResult struct {
	Indexed  int    `json:"indexed"`
	Duration string `json:"duration"`
}

func newReindexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the full-text index from the catalog",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command) error {
			handle, err := invoke[*providers.SearchServiceHandle](a)
			if err != nil {
				return err
			}
			if handle.SearchService == nil {
				return errors.New("full-text search is disabled")
			}

			start := time.Now()
			n, err := handle.ReindexAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}

			result := ReindexResult{Indexed: n, Duration: time.Since(start).Round(time.Millisecond).String()}
			return newPrinter(cmd.OutOrStdout(), a.jsonOutput).emit(result, func(tw *tabwriter.Writer) {
				row(tw, fmt.Sprintf("Indexed %d book(s) in %s", result.Indexed, result.Duration))
			})
		}),
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-library holdings and circulation counts",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command) error {
			handle, err := invoke[*providers.StoreHandle](a)
			if err != nil {
				return err
			}

			stats, err := handle.LibraryStats(cmd.Context())
			if err != nil {
				return err
			}
			if stats == nil {
				stats = []store.LibraryStats{}
			}

			return newPrinter(cmd.OutOrStdout(), a.jsonOutput).emit(stats, func(tw *tabwriter.Writer) {
				row(tw, "LIBRARY", "BOOKS", "COPIES", "AVAILABLE", "ON LOAN", "WAITING")
				for _, s := range stats {
					row(tw, s.Name, s.Books, s.TotalCopies, s.AvailableCopies, s.ActiveLoans, s.PendingReservations)
				}
			})
		}),
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}

// daysLate counts whole days between due and now, never negative.
func daysLate(due, now time.Time) int {
	d := now.Sub(due).Hours() / 24
	if d <= 0 {
		return 0
	}
	return int(math.Floor(d))
}
