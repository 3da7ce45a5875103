package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

type buildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Go      string `json:"go"`
}

// currentBuild reports the hn version together with the VCS revision the
// binary was built from, when the toolchain recorded one.
func currentBuild() buildInfo {
	b := buildInfo{Version: Version, Go: runtime.Version()}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				b.Commit = s.Value[:7]
			}
		}
	}
	return b
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the hn version and build details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b := currentBuild()
			w := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(w, b)
			}
			if b.Commit != "" {
				fmt.Fprintf(w, "hn %s (%s, %s)\n", b.Version, b.Commit, b.Go)
				return nil
			}
			fmt.Fprintf(w, "hn %s (%s)\n", b.Version, b.Go)
			return nil
		},
	}
}
