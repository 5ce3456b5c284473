package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/parley-group/negotiation-cli/internal/model"
)

var clauseCmd = &cobra.Command{
	Use:   "clause",
	Short: "Work with clause positions and priorities",
}

var clausePositionsCmd = &cobra.Command{
	Use:   "positions <session-id>",
	Short: "Show both parties' clause positions and gaps",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		positions, err := e.service.Positions(ctx, args[0])
		if err != nil {
			return err
		}
		if len(positions) == 0 {
			fmt.Println("No clause positions; the session has not reached the foundation phase.")
			return nil
		}

		fmt.Printf("%-16s %-28s %9s %9s %5s\n", "Clause", "Name", "Provider", "Customer", "Gap")
		fmt.Println(strings.Repeat("-", 72))
		for _, p := range positions {
			fmt.Printf("%-16s %-28s %9d %9d %5d\n",
				p.ClauseID, p.ClauseName, p.ProviderPos, p.CustomerPos, p.Gap())
		}
		return nil
	},
}

var clauseSetCmd = &cobra.Command{
	Use:   "set <session-id> <clause-id> <position>",
	Short: "Move one party's stance on a clause",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		party, err := partyFlag(cmd)
		if err != nil {
			return err
		}
		value, err := strconv.Atoi(args[2])
		if err != nil {
			return eris.Errorf("clause: position must be an integer (got %q)", args[2])
		}

		if err := e.service.SetPosition(ctx, args[0], args[1], party, value); err != nil {
			return err
		}
		gap, err := e.store.Gap(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Clause %s: %s position set, gap now %d\n", args[1], party, gap)
		return nil
	},
}

var clausePrioritizeCmd = &cobra.Command{
	Use:   "prioritize <session-id> <clause-id> <weight>",
	Short: "Commit priority weight from a party's point budget to a clause",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		party, err := partyFlag(cmd)
		if err != nil {
			return err
		}
		weight, err := strconv.Atoi(args[2])
		if err != nil {
			return eris.Errorf("clause: weight must be an integer (got %q)", args[2])
		}

		if err := e.service.Prioritize(ctx, args[0], args[1], party, weight); err != nil {
			return err
		}
		committed, err := e.store.CommittedWeight(ctx, args[0], party)
		if err != nil {
			return err
		}
		fmt.Printf("Clause %s: %d points committed, %s total now %d\n", args[1], weight, party, committed)
		return nil
	},
}

var clausePrioritiesCmd = &cobra.Command{
	Use:   "priorities <session-id>",
	Short: "Show committed priorities",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		priorities, err := e.service.Priorities(ctx, args[0])
		if err != nil {
			return err
		}
		if len(priorities) == 0 {
			fmt.Println("No committed priorities.")
			return nil
		}

		fmt.Printf("%-16s %-10s %7s\n", "Clause", "Party", "Weight")
		fmt.Println(strings.Repeat("-", 36))
		for _, p := range priorities {
			fmt.Printf("%-16s %-10s %7d\n", p.ClauseID, p.Party, p.Weight)
		}
		return nil
	},
}

func partyFlag(cmd *cobra.Command) (model.Party, error) {
	raw, _ := cmd.Flags().GetString("party")
	party := model.Party(raw)
	if !party.Valid() {
		return "", eris.Errorf("clause: --party must be customer or provider (got %q)", raw)
	}
	return party, nil
}

func init() {
	clauseSetCmd.Flags().String("party", "", "acting party: customer or provider (required)")
	clausePrioritizeCmd.Flags().String("party", "", "acting party: customer or provider (required)")
	_ = clauseSetCmd.MarkFlagRequired("party")
	_ = clausePrioritizeCmd.MarkFlagRequired("party")

	clauseCmd.AddCommand(clausePositionsCmd, clauseSetCmd, clausePrioritizeCmd, clausePrioritiesCmd)
	rootCmd.AddCommand(clauseCmd)
}
