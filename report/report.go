// Package report renders allocator status for humans and for JSON output.
//
// Everything is derived from alloc.Stats, so the package never touches an
// allocator's region.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/memkit/alloc"
)

// DefaultWidth is the bar width used when Options.Width is not positive.
const DefaultWidth = 40

var (
	lowColor   = lipgloss.Color("#04B575")
	midColor   = lipgloss.Color("#FFA500")
	highColor  = lipgloss.Color("#FF4B4B")
	mutedColor = lipgloss.Color("#666666")

	titleStyle = lipgloss.NewStyle().Bold(true)
)

// Options controls rendering. A nil *Options means defaults.
type Options struct {
	Width int  // bar cells between the brackets
	Color bool // color the filled cells by utilization
}

func (o *Options) width() int {
	if o == nil || o.Width <= 0 {
		return DefaultWidth
	}
	return o.Width
}

func (o *Options) color() bool {
	return o != nil && o.Color
}

// Snapshot is the JSON form of a status report.
type Snapshot struct {
	Kind        alloc.Kind `json:"kind"`
	Address     string     `json:"address"`
	Total       int        `json:"total_bytes"`
	Used        int        `json:"used_bytes"`
	Free        int        `json:"free_bytes"`
	Utilization float64    `json:"utilization"`
	Owned       bool       `json:"owned"`
}

// NewSnapshot converts st for JSON encoding.
func NewSnapshot(st alloc.Stats) Snapshot {
	return Snapshot{
		Kind:        st.Kind,
		Address:     Address(st.Base),
		Total:       st.Capacity,
		Used:        st.Used,
		Free:        st.Free(),
		Utilization: st.Utilization(),
		Owned:       st.Owned,
	}
}

// Address formats a region base, or "(none)" for a detached allocator.
func Address(base uintptr) string {
	if base == 0 {
		return "(none)"
	}
	return fmt.Sprintf("0x%x", base)
}

// Write renders the status block:
//
//	Allocator Status (bump)
//	  Address: 0xc000012000
//	  Total:   1,024 bytes (1.0 kB)
//	  Used:    104 bytes (104 B)
//	  Free:    920 bytes (920 B)
//	  Usage:   [####------------------------------------] 10.2%
func Write(w io.Writer, st alloc.Stats, opts *Options) error {
	p := message.NewPrinter(language.English)

	var sb strings.Builder
	title := fmt.Sprintf("Allocator Status (%s)", st.Kind)
	if opts.color() {
		title = titleStyle.Render(title)
	}
	sb.WriteString(title + "\n")
	fmt.Fprintf(&sb, "  Address: %s\n", Address(st.Base))
	sb.WriteString(p.Sprintf("  Total:   %d bytes (%s)\n", st.Capacity, humanize.Bytes(uint64(max(st.Capacity, 0)))))
	sb.WriteString(p.Sprintf("  Used:    %d bytes (%s)\n", st.Used, humanize.Bytes(uint64(max(st.Used, 0)))))
	sb.WriteString(p.Sprintf("  Free:    %d bytes (%s)\n", st.Free(), humanize.Bytes(uint64(max(st.Free(), 0)))))
	fmt.Fprintf(&sb, "  Usage:   %s %.1f%%\n", renderBar(st, opts), st.Utilization()*100)

	_, err := io.WriteString(w, sb.String())
	return err
}

// Bar returns a plain bar of width cells with '#' for used and '-' for free.
// The filled count is rounded down, and a non-empty allocator always shows at
// least one cell.
func Bar(used, capacity, width int) string {
	filled := filledCells(used, capacity, width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func filledCells(used, capacity, width int) int {
	if capacity <= 0 || used <= 0 || width <= 0 {
		return 0
	}
	if used >= capacity {
		return width
	}
	filled := int(int64(used) * int64(width) / int64(capacity))
	return max(filled, 1)
}

func renderBar(st alloc.Stats, opts *Options) string {
	width := opts.width()
	if !opts.color() {
		return Bar(st.Used, st.Capacity, width)
	}
	filled := filledCells(st.Used, st.Capacity, width)
	fill := lipgloss.NewStyle().Foreground(usageColor(st.Utilization()))
	rest := lipgloss.NewStyle().Foreground(mutedColor)
	return "[" + fill.Render(strings.Repeat("#", filled)) +
		rest.Render(strings.Repeat("-", width-filled)) + "]"
}

func usageColor(u float64) lipgloss.Color {
	switch {
	case u < 0.5:
		return lowColor
	case u < 0.85:
		return midColor
	default:
		return highColor
	}
}
