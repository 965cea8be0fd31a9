package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gocausal/adapters/dataio"
	"gocausal/app"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Optional .env for LOG_LEVEL and friends.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "causal",
		Short: "Estimate causal treatment effects from potential-outcomes data",
	}

	rootCmd.AddCommand(newEstimateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newEstimateCmd() *cobra.Command {
	var (
		file          string
		outcomeCol    string
		treatmentCol  string
		strataCol     string
		method        string
		experimental  bool
		matches       int
		matchesForVar int
		biasAdjust    bool
		rawWeights    bool
		folds         int
		fisherReps    int
		seed          int64
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Run an estimator over a CSV/XLSX dataset and print the inference record",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := dataio.NewReader(file).Read()
			if err != nil {
				return err
			}
			Y, err := ds.Column(outcomeCol)
			if err != nil {
				return err
			}
			Z, err := ds.Column(treatmentCol)
			if err != nil {
				return err
			}

			exclude := []string{outcomeCol, treatmentCol}
			if strataCol != "" {
				exclude = append(exclude, strataCol)
			}
			X, covNames, err := ds.Covariates(exclude...)
			if err != nil {
				return err
			}

			req := app.EstimationRequest{
				Estimator:     method,
				Y:             Y,
				Z:             Z,
				X:             X,
				Experimental:  experimental,
				Matches:       matches,
				MatchesForVar: matchesForVar,
				BiasAdjust:    biasAdjust,
				RawWeights:    rawWeights,
				Folds:         folds,
				FisherReps:    fisherReps,
				Seed:          seed,
			}
			if strataCol != "" {
				labels, err := ds.Column(strataCol)
				if err != nil {
					return err
				}
				req.Strata = make([]int, len(labels))
				for i, l := range labels {
					req.Strata[i] = int(l)
				}
			}

			result, err := app.NewEstimationService().Run(req)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "covariates: %s\n", strings.Join(covNames, ", "))
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV or XLSX dataset (header row required)")
	cmd.Flags().StringVar(&outcomeCol, "outcome", "Y", "outcome column name")
	cmd.Flags().StringVar(&treatmentCol, "treatment", "Z", "treatment column name")
	cmd.Flags().StringVar(&strataCol, "strata", "", "strata label column (strata estimator)")
	cmd.Flags().StringVar(&method, "estimator", "", "dm|strata|ancova|ipw|aipw|matching|dml (default: dispatch by data)")
	cmd.Flags().BoolVar(&experimental, "experimental", false, "treat data as randomized")
	cmd.Flags().IntVar(&matches, "matches", 0, "matching: neighbors for imputation")
	cmd.Flags().IntVar(&matchesForVar, "matches-for-var", 0, "matching: neighbors for variance")
	cmd.Flags().BoolVar(&biasAdjust, "bias-adjust", false, "matching: linear bias adjustment")
	cmd.Flags().BoolVar(&rawWeights, "raw-weights", false, "ipw: skip weight normalization")
	cmd.Flags().IntVar(&folds, "folds", 0, "dml: cross-fitting folds")
	cmd.Flags().IntVar(&fisherReps, "fisher-reps", 0, "dm: randomization test repetitions")
	cmd.Flags().Int64Var(&seed, "seed", 1, "seed for the randomization design")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
