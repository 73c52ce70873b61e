package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/PropKit/app/repository"
	"github.com/ManuelReschke/PropKit/internal/pkg/database"
	"github.com/ManuelReschke/PropKit/internal/pkg/env"
	"github.com/ManuelReschke/PropKit/internal/pkg/intent"
)

func main() {
	var recorder *intent.Recorder
	connect := func(cmd *cobra.Command, args []string) {
		env.SetupEnvFile()
		database.SetupDatabase()
		recorder = intent.NewRecorder(repository.NewStore(database.GetDB()))
	}

	rootCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Inspect external calls whose local outcome was never recorded",
		Long: `Lists intents left behind by provider calls:
- orphaned: the provider call succeeded but the local write was rolled back
- stale: still pending long after the call started (process died mid-call)`,
		PersistentPreRun: connect,
	}

	rootCmd.AddCommand(orphanedCmd(func() *intent.Recorder { return recorder }))
	rootCmd.AddCommand(staleCmd(func() *intent.Recorder { return recorder }))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
