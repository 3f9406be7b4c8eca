// Command statuscheck prints which status values attendance logs actually hold.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/logging"
	"rollcall/internal/store"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.Production())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.NewDB(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := attendance.NewRepository(db.Client)
	counts, err := repo.StatusCounts(ctx)
	if err != nil {
		slog.Error("count statuses failed", "error", err)
		os.Exit(1)
	}
	latest, err := repo.LatestLog(ctx)
	if err != nil {
		slog.Error("load latest log failed", "error", err)
		os.Exit(1)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tLOGS")
	total := 0
	for _, sc := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", sc.Status, sc.Count)
		total += sc.Count
	}
	fmt.Fprintf(tw, "total\t%d\n", total)
	tw.Flush()

	if latest == nil {
		fmt.Println("\nno attendance logs yet")
		return
	}
	fmt.Printf("\nlatest scan: %s (attendee %s, session %s, status %s)\n",
		latest.ScannedAt.Format(time.RFC3339), latest.AttendeeID, latest.SessionID, latest.Status)
}
