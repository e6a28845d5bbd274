package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	benchfmtOutput   string
	benchfmtBaseline string
)

func init() {
	cmd := newBenchfmtCmd()
	cmd.Flags().StringVarP(&benchfmtOutput, "output", "o", "", "Write the markdown report here instead of stdout")
	cmd.Flags().StringVar(&benchfmtBaseline, "baseline", "GoHeap", "Strategy every other benchmark is compared with")
	rootCmd.AddCommand(cmd)
}

func newBenchfmtCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchfmt [file]",
		Short: "Turn go test -bench output into a markdown comparison",
		Long: `The benchfmt command reads the output of "go test -bench" (plain or
-json) for the alloc package and renders a markdown table comparing each
allocator benchmark with the Go heap baseline.

Benchmarks are named Benchmark<Strategy>_<Operation>, e.g.
BenchmarkPool_AllocFree. The input is read from stdin when no file is given.

Example:
  go test -bench . -benchmem ./alloc | memctl benchfmt
  memctl benchfmt bench.txt -o BENCHMARKS.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchfmt(args)
		},
	}
	return cmd
}

// benchLine is one parsed benchmark result.
type benchLine struct {
	Name        string // without the Benchmark prefix and -N suffix
	Strategy    string
	Operation   string
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// BenchmarkPool_AllocFree-8    10000000    12.45 ns/op    0 B/op    0 allocs/op
var benchLineRegex = regexp.MustCompile(
	`^Benchmark(\S+?)(?:-\d+)?\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+(\d+)\s+B/op)?(?:\s+(\d+)\s+allocs/op)?`,
)

func runBenchfmt(args []string) error {
	in := io.Reader(os.Stdin)
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	results, err := parseBenchLines(in)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no benchmark results found")
	}
	printVerbose("Parsed %d benchmark results\n", len(results))

	md := benchMarkdown(results, benchfmtBaseline)
	if benchfmtOutput != "" {
		if err := os.WriteFile(benchfmtOutput, []byte(md), 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		printInfo("Report written to %s\n", benchfmtOutput)
		return nil
	}
	fmt.Fprint(os.Stdout, md)
	return nil
}

// parseBenchLines extracts results from plain or test2json output.
func parseBenchLines(r io.Reader) ([]benchLine, error) {
	var results []benchLine
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		// Try to parse as JSON (from -json flag)
		var event struct{ Output string }
		if err := json.Unmarshal([]byte(line), &event); err == nil && event.Output != "" {
			line = event.Output
		}

		m := benchLineRegex.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		res := benchLine{Name: m[1]}
		res.Strategy, res.Operation, _ = strings.Cut(m[1], "_")
		res.Iterations, _ = strconv.Atoi(m[2])
		res.NsPerOp, _ = strconv.ParseFloat(m[3], 64)
		if m[4] != "" {
			res.BytesPerOp, _ = strconv.ParseInt(m[4], 10, 64)
		}
		if m[5] != "" {
			res.AllocsPerOp, _ = strconv.ParseInt(m[5], 10, 64)
		}
		results = append(results, res)
	}
	return results, scanner.Err()
}

// benchMarkdown renders results sorted by name, with a speedup column
// relative to the first result whose strategy is baseline.
func benchMarkdown(results []benchLine, baseline string) string {
	sorted := append([]benchLine(nil), results...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var base *benchLine
	for i := range sorted {
		if sorted[i].Strategy == baseline {
			base = &sorted[i]
			break
		}
	}

	var sb strings.Builder
	sb.WriteString("# Benchmark Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05")))
	if base != nil {
		sb.WriteString(fmt.Sprintf("Baseline: %s (%.2f ns/op)\n\n", base.Name, base.NsPerOp))
	} else {
		sb.WriteString(fmt.Sprintf("Baseline: *%s not found*\n\n", baseline))
	}

	sb.WriteString("| Benchmark | ns/op | Memory (B/op) | Allocs | vs baseline |\n")
	sb.WriteString("|-----------|-------|---------------|--------|-------------|\n")
	for _, r := range sorted {
		speedup := "*N/A*"
		switch {
		case base == nil:
		case r.Name == base.Name:
			speedup = "baseline"
		case r.NsPerOp > 0:
			ratio := base.NsPerOp / r.NsPerOp
			if ratio >= 1 {
				speedup = fmt.Sprintf("**%.2fx** ✓", ratio)
			} else {
				speedup = fmt.Sprintf("%.2fx ✗", ratio)
			}
		}
		sb.WriteString(fmt.Sprintf("| %s | %.2f | %s | %d | %s |\n",
			r.Name, r.NsPerOp, humanize.IBytes(uint64(max(r.BytesPerOp, 0))), r.AllocsPerOp, speedup))
	}

	sb.WriteString("\n## Notes\n\n")
	sb.WriteString("- **Speedup > 1.0**: the allocator is faster than the baseline ✓\n")
	sb.WriteString("- **Memory** and **Allocs** count Go heap use only: lower is better\n")
	return sb.String()
}
