// Command mesa runs and administers the restaurant order service.
//
//	mesa serve             # start the HTTP server
//	mesa migrate           # apply pending migrations
//	mesa migrate:rollback  # undo the last batch
//	mesa migrate:status
//	mesa seed              # load the demo catalog, tables and staff
//	mesa route:list
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/Artssj1234/mesa-y-pedidos-app/database/migrations"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "mesa",
	Short:         "Restaurant table ordering service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)
}
