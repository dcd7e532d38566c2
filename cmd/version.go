package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/conneroisu/walletgate/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("walletgate %s (%s, %s/%s)\n",
			version.Version, version.Commit, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
