package main

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mrc-ide/outpack-server/internal/server"
)

var (
	startServerRoot   string
	startServerListen string
)

var startServerCmd = &cobra.Command{
	Use:   "start-server",
	Short: "Serve an outpack repository over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := server.NewApp(startServerRoot)
		if err != nil {
			return err
		}

		logrus.Infof("listening on %s", startServerListen)
		return http.ListenAndServe(startServerListen, app.Handler())
	},
}

func init() {
	startServerCmd.Flags().StringVar(&startServerRoot, "root", "", "path to the outpack repository")
	startServerCmd.Flags().StringVar(&startServerListen, "listen", "127.0.0.1:8000", "address to listen on")
	_ = startServerCmd.MarkFlagRequired("root")
}
