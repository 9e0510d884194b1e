package cli

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the docmodel version",
	Run: func(cmd *cobra.Command, _ []string) {
		if versionShort {
			cmd.Printf("%s\n", version)
			return
		}
		cmd.Printf("docmodel version %s\n", version)
		cmd.Printf("  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		if rev := vcsRevision(); rev != "" {
			cmd.Printf("  revision: %s\n", rev)
		}
	},
}

// vcsRevision returns the commit the binary was built from, if stamped.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version string")
	rootCmd.AddCommand(versionCmd)
}
