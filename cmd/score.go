package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/parley-group/negotiation-cli/internal/engine"
	"github.com/parley-group/negotiation-cli/internal/model"
)

// assessmentInput is the YAML shape accepted by `score --input`.
type assessmentInput struct {
	Factors model.LeverageFactors `yaml:"factors"`
	Fit     model.FitInputs       `yaml:"fit"`
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score leverage from an assessment file",
	Long: `Runs the scoring pipeline on a YAML assessment file: party fit is
scored from the four base values and the categorical selections, the
customer leverage starts at the neutral prior and moves by the qualitative
factor adjustments plus the fit modifier, and both point budgets are
allocated from the final split.

Without --session the result is printed and nothing is stored. With
--session the assessment is saved on the session, which must still be in
the preliminary assessment phase.

Examples:
  # Score an assessment file
  negotiate score --input deal.yaml

  # Score and persist on a session
  negotiate score --input deal.yaml --session 3f2a...

  # Machine-readable output
  negotiate score --input deal.yaml --format json`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("input", "", "YAML assessment file (required)")
	f.String("session", "", "persist the assessment on this session")
	f.String("format", "table", "output format: table or json")
	_ = scoreCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inputPath, _ := cmd.Flags().GetString("input")
	sessionID, _ := cmd.Flags().GetString("session")
	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "json" {
		return eris.Errorf("score: --format must be table or json (got %q)", format)
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return eris.Wrapf(err, "score: read %s", inputPath)
	}
	var in assessmentInput
	if err := yaml.Unmarshal(data, &in); err != nil {
		return eris.Wrapf(err, "score: parse %s", inputPath)
	}

	var a model.Assessment
	if sessionID != "" {
		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := e.service.Assess(ctx, sessionID, in.Factors, in.Fit)
		if err != nil {
			return err
		}
		a = *res
	} else {
		a = engine.New(cfg.Engine).Assess(in.Factors, in.Fit)
	}

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	}

	printAssessment(a)
	return nil
}

func printAssessment(a model.Assessment) {
	fmt.Println("Party Fit")
	fmt.Printf("  Strategic:    %6.1f\n", a.FitScore.Strategic)
	fmt.Printf("  Capability:   %6.1f\n", a.FitScore.Capability)
	fmt.Printf("  Relationship: %6.1f\n", a.FitScore.Relationship)
	fmt.Printf("  Risk:         %6.1f\n", a.FitScore.Risk)
	fmt.Printf("  Overall:      %6.1f\n", a.FitScore.Overall)
	fmt.Println()
	fmt.Println("Leverage")
	fmt.Printf("  Customer: %3d\n", a.Score.Customer)
	fmt.Printf("  Provider: %3d\n", a.Score.Provider)
	fmt.Println()
	fmt.Println("Point Budgets")
	fmt.Printf("  Customer: %3d\n", a.Budget.CustomerPoints)
	fmt.Printf("  Provider: %3d\n", a.Budget.ProviderPoints)
}
