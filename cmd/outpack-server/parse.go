package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrc-ide/outpack-server/internal/query"
)

var parseCmd = &cobra.Command{
	Use:   "parse <query>",
	Short: "Parse a query string and print its normalised form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := query.Parse(args[0])
		if err != nil {
			return err
		}
		fmt.Println(query.Render(node))
		return nil
	},
}
