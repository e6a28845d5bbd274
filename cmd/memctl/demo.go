package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/alloc"
	"github.com/joshuapare/memkit/internal/config"
	"github.com/joshuapare/memkit/report"
)

var (
	demoSize string
)

func init() {
	cmd := newDemoCmd()
	cmd.Flags().StringVar(&demoSize, "size", "", "Region size, e.g. 1KiB (default from config)")
	rootCmd.AddCommand(cmd)
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk a bump allocator through a few allocations",
		Long: `The demo command reserves a region from the operating system, makes a
series of bump allocations, and prints the allocator status after each
step. It then resets and destroys the allocator.

Example:
  memctl demo
  memctl demo --size 4KiB
  memctl demo --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo()
		},
	}
	return cmd
}

// demoStep is one entry of the JSON demo transcript.
type demoStep struct {
	Action  string          `json:"action"`
	Request int             `json:"request,omitempty"`
	Address string          `json:"address,omitempty"`
	Error   string          `json:"error,omitempty"`
	Status  report.Snapshot `json:"status"`
}

func runDemo() error {
	size, err := cfg.Demo.RegionBytes()
	if err != nil {
		return err
	}
	if demoSize != "" {
		size, err = config.ParseSize("--size", demoSize)
		if err != nil {
			return err
		}
	}

	b, err := alloc.NewOwnedBump(size, nil)
	if err != nil {
		return fmt.Errorf("failed to create allocator: %w", err)
	}
	defer b.Destroy()

	var steps []demoStep
	record := func(action string, request int, addr string, stepErr error) {
		step := demoStep{
			Action:  action,
			Request: request,
			Address: addr,
			Status:  report.NewSnapshot(b.Stats()),
		}
		if stepErr != nil {
			step.Error = stepErr.Error()
		}
		steps = append(steps, step)
		if !jsonOut {
			printStatus(b.Stats())
		}
	}

	if !jsonOut {
		printInfo("=== Simple Memory Allocator Demo ===\n\n")
		printInfo("Allocator created with %s bytes region\n\n", humanize.Comma(int64(size)))
	}
	record("create", 0, "", nil)

	for _, n := range cfg.Demo.Allocs {
		if !jsonOut {
			printInfo("\nAllocating %d bytes...\n", n)
		}
		ref, _, err := b.Alloc(n)
		addr := ""
		switch {
		case errors.Is(err, alloc.ErrNoSpace):
			if !jsonOut {
				printInfo("Allocation failed: %v\n\n", err)
			}
		case err != nil:
			return err
		default:
			addr = report.Address(b.Stats().Base + uintptr(ref.Off))
			if !jsonOut {
				printInfo("Allocated at: %s (offset %d)\n\n", addr, ref.Off)
			}
		}
		record("alloc", n, addr, err)
	}

	if !jsonOut {
		printInfo("\nResetting allocator...\n\n")
	}
	b.Reset()
	record("reset", 0, "", nil)

	if !jsonOut {
		printInfo("\nDestroying allocator...\n")
	}
	if err := b.Destroy(); err != nil {
		return fmt.Errorf("failed to destroy allocator: %w", err)
	}
	steps = append(steps, demoStep{Action: "destroy", Status: report.NewSnapshot(b.Stats())})

	if jsonOut {
		return printJSON(steps)
	}
	printInfo("Done!\n")
	return nil
}

// printStatus renders st unless quiet.
func printStatus(st alloc.Stats) {
	if quiet {
		return
	}
	if err := report.Write(os.Stdout, st, reportOptions()); err != nil {
		printVerbose("Warning: failed to write status: %v\n", err)
	}
}
