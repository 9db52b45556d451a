package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mrc-ide/outpack-server/internal/config"
	"github.com/mrc-ide/outpack-server/internal/layout"
)

var (
	initPathArchive         string
	initUseFileStore        bool
	initRequireCompleteTree bool
)

var initCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Create a new outpack repository at <path>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]

		var pathArchive *string
		if initPathArchive != "" {
			pathArchive = &initPathArchive
		}

		cfg, err := config.New(pathArchive, initUseFileStore, initRequireCompleteTree)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(layout.OutpackDir(root), 0o755); err != nil {
			return err
		}
		return config.Write(root, cfg)
	},
}

func init() {
	initCmd.Flags().StringVar(&initPathArchive, "path-archive", "", "enable archive-mode storage under this path")
	initCmd.Flags().BoolVar(&initUseFileStore, "use-file-store", false, "enable the content-addressed file store")
	initCmd.Flags().BoolVar(&initRequireCompleteTree, "require-complete-tree", false, "require every packet's full dependency tree to be present")
}
