package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Overridden with -ldflags "-X main.version=..." by release builds.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		v, c, d := buildVersion(debug.ReadBuildInfo)
		fmt.Printf("memctl %s\n", v)
		fmt.Printf("  commit: %s\n", c)
		fmt.Printf("  built: %s\n", d)
	},
}

// buildVersion fills whatever ldflags left at its default from the module
// and VCS stamps that go build embeds.
func buildVersion(read func() (*debug.BuildInfo, bool)) (v, c, d string) {
	v, c, d = version, commit, date
	info, ok := read()
	if !ok {
		return v, c, d
	}
	if v == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		v = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if c == "none" {
				c = s.Value
			}
		case "vcs.time":
			if d == "unknown" {
				d = s.Value
			}
		}
	}
	return v, c, d
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
