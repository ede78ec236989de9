package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/parkmap/internal/collection"
	"github.com/sells-group/parkmap/internal/export"
	"github.com/sells-group/parkmap/internal/model"
)

var (
	exportIn      string
	exportOutBase string
	exportFormats string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a collection as shapefiles and a spreadsheet index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		in := exportIn
		if in == "" {
			in = cfg.Simplify.Output
		}
		base := exportOutBase
		if base == "" {
			base = strings.TrimSuffix(in, ".json")
		}
		formats, err := export.ParseFormats(splitAndTrim(exportFormats))
		if err != nil {
			return err
		}

		return trackRun(ctx, "export", base, func(ctx context.Context) (model.RunResult, error) {
			fc, err := collection.Load(in)
			if err != nil {
				return model.RunResult{}, err
			}
			files, err := export.Write(ctx, fc, base, formats)
			if err != nil {
				return model.RunResult{}, err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return model.RunResult{Features: len(fc.Features)}, nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportIn, "in", "", "input collection (default from simplify.output)")
	exportCmd.Flags().StringVar(&exportOutBase, "out-base", "", "output path without extension (default: --in without .json)")
	exportCmd.Flags().StringVar(&exportFormats, "formats", "shp,xlsx", "comma-separated formats: shp, xlsx")
	rootCmd.AddCommand(exportCmd)
}
