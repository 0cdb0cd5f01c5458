package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/aradilov/lockless"
)

// Set by build scripts.
var (
	version   = "dev"
	gitCommit = "unknown"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show ringbench version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ringbench %s (%s)\n", version, gitCommit)
			fmt.Fprintf(out, "go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(out, "cache line: %d bytes\n", lockless.CacheLineSize)
		},
	}
}
