package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Artssj1234/mesa-y-pedidos-app/config"
	"github.com/Artssj1234/mesa-y-pedidos-app/database/seeders"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/database"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/migration"
)

// withDB loads config, opens the database and closes it after fn.
func withDB(fn func(db *gorm.DB) error) error {
	if err := config.Load(); err != nil {
		return err
	}
	db, err := database.Connect(context.Background(), config.DatabaseDriver(), config.DatabaseDSN())
	if err != nil {
		return err
	}
	defer database.Close(db)
	return fn(db)
}

// mesa migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			n, err := migration.New(db, os.Stdout).Run()
			if err != nil {
				return err
			}
			fmt.Printf("%d migration(s) applied\n", n)
			return nil
		})
	},
}

// mesa migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			n, err := migration.New(db, os.Stdout).Rollback()
			if err != nil {
				return err
			}
			fmt.Printf("%d migration(s) rolled back\n", n)
			return nil
		})
	},
}

// mesa migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			rows, err := migration.New(db, nil).Status()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "MIGRATION\tBATCH\tRAN")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%d\t%v\n", r.Name, r.Batch, r.Ran)
			}
			return w.Flush()
		})
	},
}

// mesa seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run all database seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			if _, err := migration.New(db, os.Stdout).Run(); err != nil {
				return err
			}
			return seeders.RunAll(cmd.Context(), db, os.Stdout)
		})
	},
}
