package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/alloc"
	"github.com/joshuapare/memkit/internal/config"
	"github.com/joshuapare/memkit/internal/format"
	"github.com/joshuapare/memkit/internal/logger"
	"github.com/joshuapare/memkit/region"
)

var (
	benchIterations int
	benchPoolSize   string
)

const (
	// resetRounds caps the reset-vs-recreate comparison.
	resetRounds = 100_000

	// fillRounds is how many times the fill benchmark exhausts a region.
	fillRounds = 10

	// freeListWindow is how many free-list allocations stay live at once.
	freeListWindow = 64
)

// sink keeps payloads reachable so allocations are not optimized away.
var sink []byte

func init() {
	cmd := newBenchCmd()
	cmd.Flags().IntVar(&benchIterations, "iterations", 0, "Allocations per size and strategy (default from config)")
	cmd.Flags().StringVar(&benchPoolSize, "pool-size", "", "Region size per strategy, e.g. 64MiB (default from config)")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure allocation throughput against the Go heap",
		Long: `The bench command times bump, pool, stack and free-list allocation for
each configured size and compares them with make([]byte, n). It also
compares Reset with destroying and recreating a region, and measures how
fast a bump allocator can fill its region.

Example:
  memctl bench
  memctl bench --iterations 100000 --pool-size 8MiB
  memctl bench --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
	return cmd
}

type throughputRow struct {
	Size     int     `json:"size"`
	Bump     float64 `json:"bump_ops_per_sec"`
	Pool     float64 `json:"pool_ops_per_sec"`
	Stack    float64 `json:"stack_ops_per_sec"`
	FreeList float64 `json:"freelist_ops_per_sec"`
	Heap     float64 `json:"heap_ops_per_sec"`
	Speedup  float64 `json:"bump_speedup"`
}

type fillRow struct {
	Size          int     `json:"size"`
	AllocsPerFill int     `json:"allocs_per_fill"`
	GBPerSec      float64 `json:"gb_per_sec"`
}

type benchResult struct {
	Iterations int             `json:"iterations"`
	PoolSize   int             `json:"pool_size"`
	Throughput []throughputRow `json:"throughput"`
	ResetNs    float64         `json:"reset_ns"`
	RecreateNs float64         `json:"recreate_ns"`
	Fill       []fillRow       `json:"fill"`
}

func runBench() error {
	iters := cfg.Bench.Iterations
	if benchIterations != 0 {
		iters = benchIterations
	}
	if iters <= 0 {
		return fmt.Errorf("invalid --iterations: %d", iters)
	}
	poolBytes, err := cfg.Bench.PoolBytes()
	if err != nil {
		return err
	}
	if benchPoolSize != "" {
		poolBytes, err = config.ParseSize("--pool-size", benchPoolSize)
		if err != nil {
			return err
		}
	}
	for _, size := range cfg.Bench.Sizes {
		if size > poolBytes {
			return fmt.Errorf("allocation size %d exceeds pool size %d", size, poolBytes)
		}
	}

	res := benchResult{Iterations: iters, PoolSize: poolBytes}
	if !jsonOut {
		printInfo("=== Memory Allocator Benchmark ===\n\n")
		printInfo("Warming up...\n")
	}
	if err := warmup(poolBytes); err != nil {
		return err
	}

	if !jsonOut {
		printInfo("\n> Allocation Throughput (%s iterations, %s regions)\n",
			humanize.Comma(int64(iters)), humanize.IBytes(uint64(poolBytes)))
		printInfo("  %-8s %12s %12s %12s %12s %12s %9s\n",
			"Size", "Bump/s", "Pool/s", "Stack/s", "FreeList/s", "Heap/s", "Speedup")
	}
	for _, size := range cfg.Bench.Sizes {
		row, err := throughput(size, iters, poolBytes)
		if err != nil {
			return fmt.Errorf("size %d: %w", size, err)
		}
		res.Throughput = append(res.Throughput, row)
		if !jsonOut {
			printInfo("  %-8d %12s %12s %12s %12s %12s %8.1fx\n", row.Size,
				rate(row.Bump), rate(row.Pool), rate(row.Stack), rate(row.FreeList), rate(row.Heap),
				row.Speedup)
		}
	}

	res.ResetNs, res.RecreateNs, err = resetVsRecreate(min(iters, resetRounds), poolBytes)
	if err != nil {
		return err
	}
	if !jsonOut {
		printInfo("\n> Reset vs Recreate (%s iterations)\n", humanize.Comma(int64(min(iters, resetRounds))))
		printInfo("  %-30s %12.1f ns\n", "Reset()", res.ResetNs)
		printInfo("  %-30s %12.1f ns\n", "Destroy() + NewOwnedBump()", res.RecreateNs)
		if res.ResetNs > 0 {
			printInfo("  %-30s %12.1fx faster\n", "Speedup", res.RecreateNs/res.ResetNs)
		}
		printInfo("\n> Memory Throughput\n")
	}

	for _, size := range []int{64, 1024} {
		if size > poolBytes {
			continue
		}
		row, err := fillThroughput(size, poolBytes)
		if err != nil {
			return err
		}
		res.Fill = append(res.Fill, row)
		if !jsonOut {
			printInfo("\n  Fill Pattern (alloc size: %d bytes)\n", row.Size)
			printInfo("  %-30s %s\n", "Allocations per fill", humanize.Comma(int64(row.AllocsPerFill)))
			printInfo("  %-30s %.2f GB/s\n", "Throughput", row.GBPerSec)
		}
	}

	if jsonOut {
		return printJSON(res)
	}
	printInfo("\nBenchmark complete.\n")
	return nil
}

// rate formats ops/sec with an SI suffix, e.g. "152.34 M".
func rate(ops float64) string {
	return humanize.SIWithDigits(ops, 2, "")
}

func opsPerSec(n int, d time.Duration) float64 {
	if d <= 0 {
		d = time.Nanosecond
	}
	return float64(n) / d.Seconds()
}

func warmup(poolBytes int) error {
	if cfg.Bench.Warmup == 0 {
		return nil
	}
	b, err := alloc.NewOwnedBump(min(poolBytes, 1<<20), nil)
	if err != nil {
		return err
	}
	defer b.Destroy()
	for i := range cfg.Bench.Warmup {
		if _, p, err := b.Alloc(64); err == nil {
			sink = p
		}
		if i%1000 == 0 {
			b.Reset()
		}
		sink = make([]byte, 64)
	}
	return nil
}

func throughput(size, iters, poolBytes int) (throughputRow, error) {
	row := throughputRow{Size: size}
	var err error
	if row.Bump, err = benchBump(size, iters, poolBytes); err != nil {
		return row, fmt.Errorf("bump: %w", err)
	}
	if row.Pool, err = benchPool(size, iters, poolBytes); err != nil {
		return row, fmt.Errorf("pool: %w", err)
	}
	if row.Stack, err = benchStack(size, iters, poolBytes); err != nil {
		return row, fmt.Errorf("stack: %w", err)
	}
	if row.FreeList, err = benchFreeList(size, iters, poolBytes); err != nil {
		return row, fmt.Errorf("freelist: %w", err)
	}
	row.Heap = benchHeap(size, iters)
	if row.Heap > 0 {
		row.Speedup = row.Bump / row.Heap
	}
	logger.Debug("bench: throughput", "size", size, "bump", row.Bump, "heap", row.Heap)
	return row, nil
}

// benchBump allocates iters times, resetting whenever the region fills.
func benchBump(size, iters, poolBytes int) (float64, error) {
	b, err := alloc.NewOwnedBump(poolBytes, nil)
	if err != nil {
		return 0, err
	}
	defer b.Destroy()

	start := time.Now()
	for range iters {
		_, p, err := b.Alloc(size)
		if errors.Is(err, alloc.ErrNoSpace) {
			b.Reset()
			_, p, err = b.Alloc(size)
		}
		if err != nil {
			return 0, err
		}
		sink = p
	}
	return opsPerSec(iters, time.Since(start)), nil
}

// benchPool fills a pool of size-byte slots, resetting when exhausted.
func benchPool(size, iters, poolBytes int) (float64, error) {
	r, err := region.Reserve(poolBytes)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	p, err := alloc.NewPool(r, size, poolBytes/format.Align8(max(size, format.WordSize)), nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	for range iters {
		_, b, err := p.Alloc()
		if errors.Is(err, alloc.ErrExhausted) {
			p.Reset()
			_, b, err = p.Alloc()
		}
		if err != nil {
			return 0, err
		}
		sink = b
	}
	return opsPerSec(iters, time.Since(start)), nil
}

// benchStack allocates inside one scope and unwinds it when the region fills.
func benchStack(size, iters, poolBytes int) (float64, error) {
	r, err := region.Reserve(poolBytes)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	s, err := alloc.NewStack(r, nil)
	if err != nil {
		return 0, err
	}
	bottom := s.Marker()

	start := time.Now()
	for range iters {
		_, p, err := s.Alloc(size)
		if errors.Is(err, alloc.ErrNoSpace) {
			if err := s.FreeToMarker(bottom); err != nil {
				return 0, err
			}
			_, p, err = s.Alloc(size)
		}
		if err != nil {
			return 0, err
		}
		sink = p
	}
	return opsPerSec(iters, time.Since(start)), nil
}

// benchFreeList keeps a sliding window of live allocations, freeing the
// oldest as each new one is made.
func benchFreeList(size, iters, poolBytes int) (float64, error) {
	r, err := region.Reserve(poolBytes)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	fl, err := alloc.NewFreeList(r, nil)
	if err != nil {
		return 0, err
	}

	var window [freeListWindow]alloc.Ref
	start := time.Now()
	for i := range iters {
		slot := &window[i%freeListWindow]
		if err := fl.Free(*slot); err != nil {
			return 0, err
		}
		ref, p, err := fl.Alloc(size)
		if errors.Is(err, alloc.ErrNoFit) {
			fl.Reset()
			clear(window[:])
			ref, p, err = fl.Alloc(size)
		}
		if err != nil {
			return 0, err
		}
		*slot = ref
		sink = p
	}
	return opsPerSec(iters, time.Since(start)), nil
}

func benchHeap(size, iters int) float64 {
	start := time.Now()
	for range iters {
		sink = make([]byte, size)
	}
	return opsPerSec(iters, time.Since(start))
}

// resetVsRecreate returns the mean cost of Reset and of Destroy plus
// NewOwnedBump, in nanoseconds.
func resetVsRecreate(rounds, poolBytes int) (resetNs, recreateNs float64, err error) {
	b, err := alloc.NewOwnedBump(poolBytes, nil)
	if err != nil {
		return 0, 0, err
	}
	n := min(1024, poolBytes)
	start := time.Now()
	for range rounds {
		_, p, _ := b.Alloc(n)
		sink = p
		b.Reset()
	}
	resetNs = float64(time.Since(start).Nanoseconds()) / float64(rounds)
	if err := b.Destroy(); err != nil {
		return 0, 0, err
	}

	start = time.Now()
	for range rounds {
		b, err := alloc.NewOwnedBump(poolBytes, nil)
		if err != nil {
			return 0, 0, err
		}
		_, p, _ := b.Alloc(n)
		sink = p
		if err := b.Destroy(); err != nil {
			return 0, 0, err
		}
	}
	recreateNs = float64(time.Since(start).Nanoseconds()) / float64(rounds)
	return resetNs, recreateNs, nil
}

// fillThroughput measures how fast a bump allocator exhausts its region.
func fillThroughput(size, poolBytes int) (fillRow, error) {
	b, err := alloc.NewOwnedBump(poolBytes, nil)
	if err != nil {
		return fillRow{}, err
	}
	defer b.Destroy()

	perFill := poolBytes / format.Align8(size)
	start := time.Now()
	for range fillRounds {
		for range perFill {
			_, p, err := b.Alloc(size)
			if err != nil {
				return fillRow{}, err
			}
			sink = p
		}
		b.Reset()
	}
	elapsed := max(time.Since(start), time.Nanosecond)

	total := float64(poolBytes) * fillRounds
	return fillRow{
		Size:          size,
		AllocsPerFill: perFill,
		GBPerSec:      total / (1 << 30) / elapsed.Seconds(),
	}, nil
}
