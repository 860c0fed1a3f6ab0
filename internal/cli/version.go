package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the xpd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("xpd %s (%s %s/%s)\n", buildVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}
