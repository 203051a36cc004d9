package internal

import (
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "atlasbuild",
	Short: "atlasbuild compiles the ATLAS linear algebra library from source",
	Long: `atlasbuild drives the configure, build, test, install and verify steps
needed to compile the ATLAS linear algebra library from an unpacked source tree.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetOutputLevel(log.Ldebug)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
