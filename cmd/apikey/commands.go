package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PropKit/app/repository"
)

func issueCmd(store func() *repository.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "issue <email>",
		Short: "Issue a new API key for a user, replacing any previous key",
		Long: `Generates a fresh API key and stores only its hash.
The raw key is printed once and cannot be recovered afterwards.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			users := store().Repositories(cmd.Context()).User

			user, err := users.GetByEmail(args[0])
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("no user with email %q", args[0])
			}
			if err != nil {
				return err
			}
			if !user.IsActive() {
				return fmt.Errorf("user %q is %s", user.Email, user.Status)
			}

			raw, err := user.IssueAPIKey()
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			if err := users.UpdateAPIKeyHash(user.ID, user.APIKeyHash); err != nil {
				return fmt.Errorf("store key: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "issued key for user %d (%s)\n", user.ID, user.Email)
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
}
