package cmd

import (
	"fmt"
	"runtime"

	"github.com/ginjaninja78/ci-load-engine/internal/emitter"
	"github.com/ginjaninja78/ci-load-engine/internal/generator"
	"github.com/spf13/cobra"
)

// These variables are set at build time using ldflags:
//   go build -ldflags "-X 'github.com/ginjaninja78/ci-load-engine/cmd.Version=1.2.0'"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "CI Load Engine")
		fmt.Fprintf(out, "Version:    %s\n", Version)
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
		fmt.Fprintf(out, "Dialects:   %v\n", emitter.Names())
		fmt.Fprintf(out, "Strategies: %v\n", generator.DefaultRegistry().Names())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
