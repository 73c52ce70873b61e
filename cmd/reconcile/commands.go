package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/PropKit/app/models"
	"github.com/ManuelReschke/PropKit/internal/pkg/env"
	"github.com/ManuelReschke/PropKit/internal/pkg/intent"
)

const defaultStaleAfter = 30 * time.Minute

func orphanedCmd(recorder func() *intent.Recorder) *cobra.Command {
	return &cobra.Command{
		Use:   "orphaned",
		Short: "List provider side effects with no local record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			intents, err := recorder().ListOrphaned(cmd.Context())
			if err != nil {
				return err
			}
			printIntents(cmd.OutOrStdout(), intents)
			return nil
		},
	}
}

func staleCmd(recorder func() *intent.Recorder) *cobra.Command {
	var olderThan time.Duration
	var markFailed bool

	cmd := &cobra.Command{
		Use:   "stale",
		Short: "List pending intents older than --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if markFailed {
				n, err := recorder().MarkStaleFailed(cmd.Context(), olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "marked %d stale intent(s) as failed\n", n)
				return nil
			}

			intents, err := recorder().ListStale(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			printIntents(cmd.OutOrStdout(), intents)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", env.GetDuration("INTENT_STALE_AFTER", defaultStaleAfter), "Minimum age of a pending intent")
	cmd.Flags().BoolVar(&markFailed, "mark-failed", false, "Resolve the listed intents as failed")

	return cmd
}

func printIntents(w io.Writer, intents []models.ExternalCallIntent) {
	if len(intents) == 0 {
		fmt.Fprintln(w, "no intents found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tOPERATION\tSTATUS\tUSER\tSUBJECT\tEXTERNAL REF\tCREATED")
	for _, it := range intents {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			it.Key, it.Operation, it.Status, it.UserID, it.SubjectID,
			valueOrDash(it.ExternalRef), it.CreatedAt.UTC().Format(time.RFC3339))
	}
	tw.Flush()
}

func valueOrDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
