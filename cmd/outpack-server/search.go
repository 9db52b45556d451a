package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrc-ide/outpack-server/internal/metadata"
	"github.com/mrc-ide/outpack-server/internal/query"
)

var searchRoot string

// searchCmd validates its query argument against the query grammar and
// lists every packet id known to the repository. Evaluating the parsed
// AST against each packet's metadata is not implemented: the query
// parser is specified as pure (it only builds an AST), so there is no
// evaluator to drive a real filter through.
var searchCmd = &cobra.Command{
	Use:   "search --root R <query>",
	Short: "Validate a query against a repository and list its packets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := query.Parse(args[0]); err != nil {
			return err
		}

		ids, err := metadata.NewIndex(0).IDs(searchRoot, false)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchRoot, "root", "", "path to the outpack repository")
	_ = searchCmd.MarkFlagRequired("root")
}
