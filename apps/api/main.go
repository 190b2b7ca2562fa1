package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// build is set at build time: go build -ldflags "-X main.build=1.2.0"
var build = "develop"

var rootCmd = &cobra.Command{
	Use:          "registrar",
	Short:        "Registrar API: edit the annual registers of students",
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the API server and its debug server (/debug/vars).
The server talks to the REST backend configured under backend.*,
or to an in-memory backend with demo data when demo is set.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		demo, err := cmd.Flags().GetBool("demo")
		if err != nil {
			return err
		}
		return serve(demo)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "registrar %s (%s)\n", build, runtime.Version())
	},
}

func init() {
	serveCmd.Flags().Bool("demo", false, "serve from the in-memory backend (overrides the demo config)")
	rootCmd.AddCommand(serveCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
