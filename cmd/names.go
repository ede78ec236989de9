package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/parkmap/internal/collection"
	"github.com/sells-group/parkmap/internal/model"
)

var (
	namesIn   string
	namesOut  string
	namesFrom string
	namesTo   string
)

var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "Copy a property into the name property of every feature",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cfg.Output.Path
		if cmd.Flags().Changed("in") {
			in = namesIn
		}
		out := namesOut
		if out == "" {
			out = in
		}

		return trackRun(cmd.Context(), "names", out, func(ctx context.Context) (model.RunResult, error) {
			fc, err := collection.Load(in)
			if err != nil {
				return model.RunResult{}, err
			}
			n, err := collection.PromoteName(fc, namesFrom, namesTo)
			if err != nil {
				return model.RunResult{}, err
			}
			if err := collection.Save(out, fc); err != nil {
				return model.RunResult{}, err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "named %d of %d features in %s\n", n, len(fc.Features), out)
			return model.RunResult{Features: len(fc.Features)}, nil
		})
	},
}

func init() {
	namesCmd.Flags().StringVar(&namesIn, "in", "", "input collection (default from output.path)")
	namesCmd.Flags().StringVar(&namesOut, "out", "", "output collection (default overwrites --in)")
	namesCmd.Flags().StringVar(&namesFrom, "from", "title", "property to copy from")
	namesCmd.Flags().StringVar(&namesTo, "to", "name", "property to copy into")
	rootCmd.AddCommand(namesCmd)
}
