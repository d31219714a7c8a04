package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pairledger/internal/core"
)

func householdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "household",
		Short: "Create, join and manage the household",
	}

	cmd.AddCommand(createHouseholdCmd())
	cmd.AddCommand(joinHouseholdCmd())
	cmd.AddCommand(renameHouseholdCmd())
	cmd.AddCommand(inviteHouseholdCmd())
	cmd.AddCommand(showHouseholdCmd())

	return cmd
}

func createHouseholdCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a household with you as member A",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			h, err := a.entries.CreateHousehold(cmd.Context(), user, name)
			if err != nil {
				return fmt.Errorf("create household: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created household %q (%s)\n", h.Name, h.ID)
			fmt.Fprintf(out, "Invite code for your partner: %s\n", h.InviteCode)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "household name (default \""+core.DefaultHouseholdName+"\")")
	return cmd
}

func joinHouseholdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <invite-code>",
		Short: "Join a household as member B",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			h, err := a.entries.JoinHousehold(cmd.Context(), args[0], user)
			if err != nil {
				return fmt.Errorf("join household: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Joined household %q as member B\n", h.Name)
			return nil
		},
	}
}

func renameHouseholdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name>",
		Short: "Rename the household",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				if err := a.entries.RenameHousehold(ctx, h.ID, strings.Join(args, " ")); err != nil {
					return fmt.Errorf("rename household: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Household renamed")
				return nil
			})
		},
	}
}

func inviteHouseholdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invite",
		Short: "Issue a new invite code for the partner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHousehold(cmd, func(ctx context.Context, a *app, h core.Household, _ core.Member) error {
				code, err := a.entries.RegenerateInvite(ctx, h.ID)
				if err != nil {
					return fmt.Errorf("regenerate invite: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Invite code: %s\n", code)
				return nil
			})
		},
	}
}

func showHouseholdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the household and your role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHousehold(cmd, func(_ context.Context, _ *app, h core.Household, me core.Member) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Household: %s (%s)\n", h.Name, h.ID)
				fmt.Fprintf(out, "Member A:  %s\n", h.MemberA)
				if h.HasPartner() {
					fmt.Fprintf(out, "Member B:  %s\n", h.MemberB)
				} else {
					fmt.Fprintf(out, "Member B:  (waiting, invite code %s)\n", h.InviteCode)
				}
				fmt.Fprintf(out, "You are:   %s\n", me)
				return nil
			})
		},
	}
}
