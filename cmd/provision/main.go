package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"appointment-booking-api/internal/model"
	"appointment-booking-api/internal/provision"
	"appointment-booking-api/internal/store"
)

func main() {
	today := model.DateOf(time.Now())
	var (
		from         = flag.String("from", today.String(), "first day (YYYY-MM-DD)")
		to           = flag.String("to", today.AddDays(6).String(), "last day, inclusive (YYYY-MM-DD)")
		start        = flag.String("start", "09:00", "daily opening time (HH:MM)")
		end          = flag.String("end", "17:00", "daily closing time (HH:MM)")
		length       = flag.Duration("slot", time.Hour, "slot length")
		skipWeekends = flag.Bool("skip-weekends", false, "do not create slots on Saturday and Sunday")
		dryRun       = flag.Bool("dry-run", false, "print the slots instead of storing them")
	)
	flag.Parse()

	var w provision.Window
	var err error
	if w.From, err = model.ParseDate(*from); err != nil {
		fatalf("-from: %v", err)
	}
	if w.To, err = model.ParseDate(*to); err != nil {
		fatalf("-to: %v", err)
	}
	if w.Start, err = model.ParseTimeOfDay(*start); err != nil {
		fatalf("-start: %v", err)
	}
	if w.End, err = model.ParseTimeOfDay(*end); err != nil {
		fatalf("-end: %v", err)
	}
	w.Length = *length
	w.SkipWeekends = *skipWeekends

	if *dryRun {
		slots, err := provision.Slots(w)
		if err != nil {
			fatalf("%v", err)
		}
		for _, a := range slots {
			fmt.Printf("%s %s-%s\n", a.Date, a.StartTime, a.EndTime)
		}
		return
	}

	_ = godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		fatalf("DATABASE_URL environment variable is required")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fatalf("db: %v", err)
	}
	defer pool.Close()

	rep, err := provision.Run(ctx, store.New(pool), w, slog.Default())
	if err != nil {
		fatalf("provision: %v", err)
	}
	slog.Info("provisioned", "created", rep.Created, "skipped", rep.Skipped,
		"from", w.From, "to", w.To)
}

func fatalf(format string, args ...any) {
	slog.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
