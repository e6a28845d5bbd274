package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/alloc"
)

func TestBar(t *testing.T) {
	tests := []struct {
		name     string
		used     int
		capacity int
		width    int
		want     string
	}{
		{"empty", 0, 1024, 10, "[----------]"},
		{"full", 1024, 1024, 10, "[##########]"},
		{"half", 512, 1024, 10, "[#####-----]"},
		{"rounds down", 1023, 1024, 10, "[#########-]"},
		{"tiny use still shows", 1, 1024, 10, "[#---------]"},
		{"no capacity", 0, 0, 4, "[----]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Bar(tt.used, tt.capacity, tt.width))
		})
	}
}

func TestWrite_Plain(t *testing.T) {
	st := alloc.Stats{
		Kind:     alloc.KindBump,
		Base:     0xc000010000,
		Capacity: 1024,
		Used:     360,
	}
	var out bytes.Buffer
	require.NoError(t, Write(&out, st, &Options{Width: 20}))

	got := out.String()
	assert.Contains(t, got, "Allocator Status (bump)")
	assert.Contains(t, got, "Address: 0xc000010000")
	assert.Contains(t, got, "Total:   1,024 bytes (1.0 kB)")
	assert.Contains(t, got, "Used:    360 bytes (360 B)")
	assert.Contains(t, got, "Free:    664 bytes (664 B)")
	assert.Contains(t, got, "[#######-------------] 35.2%")
	assert.NotContains(t, got, "\x1b[", "plain output has no escape codes")
}

func TestWrite_Detached(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Write(&out, alloc.Stats{Kind: alloc.KindStack}, nil))
	assert.Contains(t, out.String(), "Address: (none)")
	assert.Contains(t, out.String(), "["+strings.Repeat("-", DefaultWidth)+"] 0.0%")
}

func TestWrite_Color(t *testing.T) {
	st := alloc.Stats{Kind: alloc.KindPool, Base: 0x1000, Capacity: 100, Used: 90}
	var out bytes.Buffer
	require.NoError(t, Write(&out, st, &Options{Width: 10, Color: true}))
	// Escape codes depend on the terminal profile; the cell counts do not.
	got := out.String()
	assert.Equal(t, 9, strings.Count(got, "#"))
	assert.Contains(t, got, "90.0%")
}

func TestUsageColor(t *testing.T) {
	assert.Equal(t, lowColor, usageColor(0.1))
	assert.Equal(t, midColor, usageColor(0.5))
	assert.Equal(t, highColor, usageColor(0.99))
}

func TestSnapshot_JSON(t *testing.T) {
	st := alloc.Stats{Kind: alloc.KindFreeList, Base: 0x2000, Capacity: 1024, Used: 256, Owned: true}
	data, err := json.Marshal(NewSnapshot(st))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "freelist", got["kind"])
	assert.Equal(t, "0x2000", got["address"])
	assert.EqualValues(t, 768, got["free_bytes"])
	assert.InDelta(t, 0.25, got["utilization"], 1e-9)
	assert.Equal(t, true, got["owned"])
}
