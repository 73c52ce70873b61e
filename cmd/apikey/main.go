package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/PropKit/app/repository"
	"github.com/ManuelReschke/PropKit/internal/pkg/database"
	"github.com/ManuelReschke/PropKit/internal/pkg/env"
)

func main() {
	var store *repository.Store
	connect := func(cmd *cobra.Command, args []string) {
		env.SetupEnvFile()
		database.SetupDatabase()
		store = repository.NewStore(database.GetDB())
	}

	rootCmd := &cobra.Command{
		Use:              "apikey",
		Short:            "Manage API keys for existing users",
		PersistentPreRun: connect,
	}

	rootCmd.AddCommand(issueCmd(func() *repository.Store { return store }))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
