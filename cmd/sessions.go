package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parley-group/negotiation-cli/internal/model"
	"github.com/parley-group/negotiation-cli/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage negotiation sessions",
}

var sessionsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a new session in the preliminary assessment phase",
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

		deal := model.DealContext{}
		deal.ServiceCategory, _ = cmd.Flags().GetString("category")
		deal.EngagementModel, _ = cmd.Flags().GetString("engagement")
		deal.DurationMonths, _ = cmd.Flags().GetInt("duration")
		deal.TotalValue, _ = cmd.Flags().GetInt64("value")
		deal.PricingModel, _ = cmd.Flags().GetString("pricing")
		deal.GeographicScope, _ = cmd.Flags().GetString("scope")
		deal.CriticalityTier, _ = cmd.Flags().GetString("criticality")
		difficulty, _ := cmd.Flags().GetString("difficulty")

		sess, err := e.service.Create(ctx, deal, model.Difficulty(difficulty))
		if err != nil {
			return err
		}
		fmt.Printf("Created session %s (phase: %s, difficulty: %s)\n", sess.ID, sess.Phase, sess.Difficulty)
		return nil
	},
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
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

		phaseFlag, _ := cmd.Flags().GetString("phase")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.SessionFilter{Limit: limit}
		if phaseFlag != "" {
			p := model.Phase(phaseFlag)
			if !p.Valid() {
				return eris.Errorf("unknown phase %q (valid: %s)", phaseFlag, phaseNames())
			}
			filter.Phase = p
		}

		sessions, err := e.service.List(ctx, filter)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions.")
			return nil
		}

		fmt.Printf("%-36s %-24s %-12s %-10s %8s %8s\n", "ID", "Phase", "Difficulty", "Provider", "CustLev", "ProvLev")
		fmt.Println(strings.Repeat("-", 104))
		for _, s := range sessions {
			custLev, provLev := "-", "-"
			if s.Assessed() {
				custLev = fmt.Sprintf("%d", s.Assessment.Score.Customer)
				provLev = fmt.Sprintf("%d", s.Assessment.Score.Provider)
			}
			fmt.Printf("%-36s %-24s %-12s %-10s %8s %8s\n",
				s.ID, s.Phase, s.Difficulty, s.ProviderID, custLev, provLev)
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session as JSON",
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

		sess, err := e.service.Get(ctx, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	},
}

var sessionsProviderCmd = &cobra.Command{
	Use:   "select-provider <session-id> <provider-id>",
	Short: "Record the chosen provider (preliminary phase only)",
	Args:  cobra.ExactArgs(2),
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

		if err := e.service.SelectProvider(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Provider %s selected for session %s\n", args[1], args[0])
		return nil
	},
}

var sessionsAdvanceCmd = &cobra.Command{
	Use:   "advance <session-id>",
	Short: "Advance a session to its next phase",
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

		sess, rej, err := e.service.Advance(ctx, args[0])
		if err != nil {
			return err
		}
		if rej != nil {
			fmt.Println(rej.String())
			return nil
		}
		fmt.Printf("Session %s advanced to %s\n", sess.ID, sess.Phase)
		return nil
	},
}

var sessionsRecomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Re-run scoring for every session still in preliminary assessment",
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

		concurrency, _ := cmd.Flags().GetInt("concurrency")
		n, err := e.service.RecomputeAll(ctx, concurrency)
		if err != nil {
			return err
		}
		zap.L().Info("recompute done", zap.Int("sessions", n))
		fmt.Printf("Recomputed %d assessments.\n", n)
		return nil
	},
}

func phaseNames() string {
	names := make([]string, 0, len(model.Phases()))
	for _, p := range model.Phases() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

func init() {
	f := sessionsCreateCmd.Flags()
	f.String("category", "", "service category (e.g. managed_services)")
	f.String("engagement", "", "engagement model (e.g. retainer, project)")
	f.Int("duration", 0, "contract duration in months")
	f.Int64("value", 0, "total contract value")
	f.String("pricing", "", "pricing model (e.g. fixed, time_and_materials)")
	f.String("scope", "", "geographic scope")
	f.String("criticality", "", "criticality tier")
	f.String("difficulty", "", "training difficulty: standard, challenge, adversarial")

	sessionsListCmd.Flags().String("phase", "", "filter by phase")
	sessionsListCmd.Flags().Int("limit", 0, "maximum results")
	sessionsRecomputeCmd.Flags().Int("concurrency", 4, "parallel recompute workers")

	sessionsCmd.AddCommand(sessionsCreateCmd, sessionsListCmd, sessionsShowCmd,
		sessionsProviderCmd, sessionsAdvanceCmd, sessionsRecomputeCmd)
	rootCmd.AddCommand(sessionsCmd)
}
