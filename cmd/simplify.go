package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/parkmap/internal/collection"
	"github.com/sells-group/parkmap/internal/geometry"
	"github.com/sells-group/parkmap/internal/model"
)

var (
	simplifyIn        string
	simplifyOut       string
	simplifyTolerance float64
)

var simplifyCmd = &cobra.Command{
	Use:   "simplify",
	Short: "Reduce polygon vertex counts in a collection",
	Long:  "Applies topology-preserving Douglas-Peucker simplification to every named polygon and multipolygon. Points and unnamed features pass through unchanged.",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, out, tol := cfg.Output.Path, cfg.Simplify.Output, cfg.Simplify.Tolerance
		if cmd.Flags().Changed("in") {
			in = simplifyIn
		}
		if cmd.Flags().Changed("out") {
			out = simplifyOut
		}
		if cmd.Flags().Changed("tolerance") {
			if simplifyTolerance < 0 {
				return eris.Errorf("simplify: --tolerance must be >= 0, got %g", simplifyTolerance)
			}
			tol = simplifyTolerance
		}

		return trackRun(cmd.Context(), "simplify", out, func(ctx context.Context) (model.RunResult, error) {
			fc, err := collection.Load(in)
			if err != nil {
				return model.RunResult{}, err
			}

			simplified, report := collection.Simplify(fc, geometry.NewSimplifier(tol), cfg.Simplify.NameKeys)
			if err := collection.Save(out, simplified); err != nil {
				return model.RunResult{}, err
			}

			zap.L().Info("simplify complete",
				zap.String("in", in),
				zap.String("out", out),
				zap.Float64("tolerance", tol),
				zap.Int("simplified", report.Simplified),
				zap.Int("failed", report.Failed),
				zap.Int("vertices_before", report.VerticesBefore),
				zap.Int("vertices_after", report.VerticesAfter),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "simplified %d of %d features (%d -> %d vertices) into %s\n",
				report.Simplified, report.Total, report.VerticesBefore, report.VerticesAfter, out)
			return model.RunResult{Features: len(simplified.Features)}, nil
		})
	},
}

func init() {
	simplifyCmd.Flags().StringVar(&simplifyIn, "in", "", "input collection (default from output.path)")
	simplifyCmd.Flags().StringVar(&simplifyOut, "out", "", "output collection (default from simplify.output)")
	simplifyCmd.Flags().Float64Var(&simplifyTolerance, "tolerance", 0.005, "simplification tolerance in degrees (default from simplify.tolerance)")
	rootCmd.AddCommand(simplifyCmd)
}
