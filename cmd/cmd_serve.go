package cmd

import (
	"github.com/spf13/cobra"

	"shop-dedup/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web job server",
	Long: `Serves an authenticated JSON API that accepts a registry workbook, runs
match or audit in the background and returns the result workbook.

Credentials come from server.username, server.password and
server.session_secret (or SHOPDEDUP_SERVER_USERNAME and so on). Once logged
in, GET /log-level reports the log level and PUT /log-level changes it.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := cfg.ValidateServer(); err != nil {
			return err
		}
		return server.New(cfg, logger, server.WithLogLevel(logLevel)).Run()
	},
}

func init() {
	serveCmd.Flags().String("port", "9595", "listen port")
	bind("server.port", serveCmd, "port")
	rootCmd.AddCommand(serveCmd)
}
