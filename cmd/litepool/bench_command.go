package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/caasmo/litepool/migrations"
	"github.com/caasmo/litepool/pool"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const (
	benchInsert = "INSERT INTO bench_items (worker, value, created) VALUES (?, ?, ?)"
	benchSelect = "SELECT count(*), max(id) FROM bench_items WHERE worker = ?"
)

func benchFlags() (*pflag.FlagSet, CommandHelp) {
	fs := pflag.NewFlagSet("bench", pflag.ContinueOnError)
	fs.IntP("workers", "w", 8, "Number of concurrent workers")
	fs.IntP("ops", "n", 1000, "Operations per worker")
	fs.Int("write-percent", 10, "Share of operations that are writes, 0 to 100")
	return fs, CommandHelp{
		Usage: "litepool bench [options]",
		Description: "Creates the bench_items table and runs workers that insert into it and read from it concurrently.\n" +
			"Writes share the single writer session and reads spread over the reader sessions.\n" +
			"Prints the throughput, the pool state and the most used statements.",
		Options: fs,
		Examples: []string{
			"litepool --db bench.db bench",
			"litepool --db bench.db bench --workers 32 --ops 5000 --write-percent 50",
		},
	}
}

type benchResult struct {
	reads, writes atomic.Int64
	elapsed       time.Duration
}

func runBench(ctx context.Context, a *app, fs *pflag.FlagSet, stdout io.Writer) error {
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: bench takes no arguments", ErrTooManyArguments)
	}
	workers, _ := fs.GetInt("workers")
	ops, _ := fs.GetInt("ops")
	writePercent, _ := fs.GetInt("write-percent")
	if workers < 1 || ops < 1 || writePercent < 0 || writePercent > 100 {
		return fmt.Errorf("%w: workers and ops must be positive, write-percent within 0..100", ErrInvalidFlag)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.db.Migrate(ctx, migrations.Schema()); err != nil {
		return fmt.Errorf("failed to create bench schema: %w", err)
	}

	a.logger.Info("bench starting", "workers", workers, "ops", ops, "write_percent", writePercent,
		"topology", a.db.Stats().Topology)

	var res benchResult
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() error {
			return benchWorker(gctx, a, w, ops, writePercent, &res)
		})
	}
	err := g.Wait()
	res.elapsed = since(start)
	if err != nil {
		return fmt.Errorf("bench failed: %w", err)
	}

	a.logger.Info("bench completed", "reads", res.reads.Load(), "writes", res.writes.Load(), "elapsed", res.elapsed)
	if err := printBench(stdout, a, workers, &res); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}

// benchWorker spreads writes evenly over its operations.
func benchWorker(ctx context.Context, a *app, worker, ops, writePercent int, res *benchResult) error {
	value := "worker-" + strconv.Itoa(worker)
	for i := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		opCtx, cancel := a.operationContext(ctx)
		var err error
		if i%100 < writePercent {
			_, err = a.db.Exec(opCtx, benchInsert, worker, value, time.Now())
			res.writes.Add(1)
		} else {
			_, err = a.db.Query(opCtx, benchSelect, worker)
			res.reads.Add(1)
		}
		cancel()
		if err != nil {
			return fmt.Errorf("worker %d op %d: %w", worker, i, err)
		}
	}
	return nil
}

func printBench(w io.Writer, a *app, workers int, res *benchResult) error {
	total := res.reads.Load() + res.writes.Load()
	rate := float64(total)
	if secs := res.elapsed.Seconds(); secs > 0 {
		rate = float64(total) / secs
	}

	stats := a.db.Stats()
	if _, err := fmt.Fprintf(w, "bench: %d workers, %d ops (%d writes, %d reads) in %s, %.0f ops/s\n",
		workers, total, res.writes.Load(), res.reads.Load(), res.elapsed, rate); err != nil {
		return err
	}
	fmt.Fprintf(w, "topology: %s\n", stats.Topology)
	fmt.Fprintf(w, "writer: %s\n", formatStats(stats.Writer))
	if stats.Topology != pool.Single().String() {
		fmt.Fprintf(w, "reader: %s\n", formatStats(stats.Reader))
	}

	top := a.topStatements()
	if len(top) == 0 {
		return nil
	}
	fmt.Fprintln(w, "top statements:")
	for _, item := range top {
		fmt.Fprintf(w, "  %8d  %s\n", item.Count, item.SQL)
	}
	return nil
}

func formatStats(s pool.Stats) string {
	return fmt.Sprintf("capacity=%d size=%d in_use=%d waiting=%d", s.Capacity, s.Size, s.InUse, s.Waiting)
}
