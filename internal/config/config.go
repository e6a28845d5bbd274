// Package config loads memctl settings from YAML.
//
// Every field has a default, so a file only needs the keys it changes:
//
//	demo:
//	  region_size: 4KiB
//	  allocs: [100, 256, 400]
//	bench:
//	  iterations: 200000
//	  pool_size: 16MiB
//	  sizes: [16, 64, 256]
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the root of a memctl configuration file.
type Config struct {
	Demo   Demo   `yaml:"demo"`
	Bench  Bench  `yaml:"bench"`
	Report Report `yaml:"report"`
}

// Demo configures `memctl demo`.
type Demo struct {
	RegionSize string `yaml:"region_size"` // humanized, e.g. "1KiB"
	Allocs     []int  `yaml:"allocs"`      // request sizes, in order
}

// Bench configures `memctl bench`.
type Bench struct {
	Iterations int    `yaml:"iterations"` // allocations timed per size and strategy
	Warmup     int    `yaml:"warmup"`     // untimed allocations before the first run
	PoolSize   string `yaml:"pool_size"`  // region size per strategy, humanized
	Sizes      []int  `yaml:"sizes"`      // allocation sizes to time
}

// Report configures status rendering.
type Report struct {
	BarWidth int `yaml:"bar_width"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Demo: Demo{
			RegionSize: "1KiB",
			Allocs:     []int{100, 256, 400},
		},
		Bench: Bench{
			Iterations: 1_000_000,
			Warmup:     10_000,
			PoolSize:   "64MiB",
			Sizes:      []int{8, 16, 32, 64, 128, 256, 512, 1024, 4096},
		},
		Report: Report{BarWidth: 40},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads YAML from r over the defaults and validates the result.
// An empty document yields the defaults.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and that every size string parses.
func (c *Config) Validate() error {
	if _, err := c.Demo.RegionBytes(); err != nil {
		return err
	}
	for _, n := range c.Demo.Allocs {
		if n <= 0 {
			return fmt.Errorf("%w: demo.allocs: %d is not positive", ErrInvalid, n)
		}
	}
	if c.Bench.Iterations <= 0 {
		return fmt.Errorf("%w: bench.iterations: %d is not positive", ErrInvalid, c.Bench.Iterations)
	}
	if c.Bench.Warmup < 0 {
		return fmt.Errorf("%w: bench.warmup: %d is negative", ErrInvalid, c.Bench.Warmup)
	}
	pool, err := c.Bench.PoolBytes()
	if err != nil {
		return err
	}
	if len(c.Bench.Sizes) == 0 {
		return fmt.Errorf("%w: bench.sizes is empty", ErrInvalid)
	}
	for _, n := range c.Bench.Sizes {
		if n <= 0 || n > pool {
			return fmt.Errorf("%w: bench.sizes: %d outside (0, %d]", ErrInvalid, n, pool)
		}
	}
	if c.Report.BarWidth <= 0 {
		return fmt.Errorf("%w: report.bar_width: %d is not positive", ErrInvalid, c.Report.BarWidth)
	}
	return nil
}

// RegionBytes parses RegionSize.
func (d Demo) RegionBytes() (int, error) {
	return ParseSize("demo.region_size", d.RegionSize)
}

// PoolBytes parses PoolSize.
func (b Bench) PoolBytes() (int, error) {
	return ParseSize("bench.pool_size", b.PoolSize)
}

// ParseSize parses a human-readable byte size ("64MiB", "1 KB") named by
// field into a positive int.
func ParseSize(field, s string) (int, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalid, field, err)
	}
	switch {
	case n == 0:
		return 0, fmt.Errorf("%w: %s: %q is zero", ErrInvalid, field, s)
	case n > math.MaxInt:
		return 0, fmt.Errorf("%w: %s too large: %q", ErrInvalid, field, s)
	}
	return int(n), nil
}
