package main

import (
	"runtime/debug"
	"testing"
)

func TestBuildVersion(t *testing.T) {
	stamped := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Path: "github.com/joshuapare/memkit", Version: "v0.3.1"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "abc123"},
				{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			},
		}, true
	}
	devel := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
	}
	missing := func() (*debug.BuildInfo, bool) { return nil, false }

	tests := []struct {
		name    string
		read    func() (*debug.BuildInfo, bool)
		ldflags bool
		want    [3]string
	}{
		{"stamped build", stamped, false, [3]string{"v0.3.1", "abc123", "2026-01-02T03:04:05Z"}},
		{"ldflags win", stamped, true, [3]string{"v1.0.0", "deadbeef", "today"}},
		{"devel build", devel, false, [3]string{"dev", "none", "unknown"}},
		{"no build info", missing, false, [3]string{"dev", "none", "unknown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldV, oldC, oldD := version, commit, date
			t.Cleanup(func() { version, commit, date = oldV, oldC, oldD })
			if tt.ldflags {
				version, commit, date = "v1.0.0", "deadbeef", "today"
			}

			v, c, d := buildVersion(tt.read)
			if got := [3]string{v, c, d}; got != tt.want {
				t.Errorf("buildVersion() = %v, want %v", got, tt.want)
			}
		})
	}
}
