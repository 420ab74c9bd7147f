package main

import (
	"github.com/spf13/cobra"
)

// serveCmd runs the live simulator behind the HTTP and websocket feed.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the simulator and serve the live feed",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&pprofAddr, "pprof", "localhost:6060", "pprof listen address (empty disables)")
}

func runServe(cmd *cobra.Command, args []string) error {
	b, err := bootstrap(false)
	if err != nil {
		return err
	}
	defer b.Close()

	startPprof()

	ctx, stop := signalContext()
	defer stop()
	return b.Run(ctx)
}
