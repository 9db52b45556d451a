package main

import (
	"errors"

	"github.com/spf13/cobra"
)

// gitMirrorCmd groups the git-mirror subcommands. The source system's
// behaviour around default-branch selection (main vs master vs
// configured) is inconsistent historically; resolving that is left to
// a dedicated git-mirror spec rather than guessed at here.
var gitMirrorCmd = &cobra.Command{
	Use:   "git",
	Short: "Git mirror operations (not implemented)",
}

var gitMirrorSubCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Git mirror operations (not implemented)",
}

var gitMirrorFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch updates from a git mirror",
	RunE: func(cmd *cobra.Command, args []string) error {
		return errNotImplemented
	},
}

var gitMirrorListBranchesCmd = &cobra.Command{
	Use:   "list-branches",
	Short: "List branches known to a git mirror",
	RunE: func(cmd *cobra.Command, args []string) error {
		return errNotImplemented
	},
}

var errNotImplemented = errors.New("git mirror support is not implemented")

func init() {
	gitMirrorSubCmd.AddCommand(gitMirrorFetchCmd)
	gitMirrorSubCmd.AddCommand(gitMirrorListBranchesCmd)
	gitMirrorCmd.AddCommand(gitMirrorSubCmd)
}
