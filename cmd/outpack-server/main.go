// Command outpack-server is the CLI front end for the repository
// engine: initialising a repository, serving it over HTTP, and
// validating/inspecting query strings.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "outpack-server",
	Short: "Serve and inspect an outpack repository",
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startServerCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(gitMirrorCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
