package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/briefing-cli/internal/apperr"
	"github.com/sells-group/briefing-cli/internal/budget"
	"github.com/sells-group/briefing-cli/internal/officecfg"
)

var calculateOpts calculateOptions

type calculateOptions struct {
	File         string
	EscritorioID string
	ConfigFile   string
	Save         bool
}

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Compute a budget from a briefing file",
	Long:  "Reads a budget request (JSON or YAML with nome, descricao and briefing), computes the budget and prints it as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("calculate"); err != nil {
			return err
		}
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		return runCalculate(cmd.Context(), env, calculateOpts, cmd.OutOrStdout())
	},
}

func runCalculate(ctx context.Context, env *appEnv, opts calculateOptions, w io.Writer) error {
	var req budget.Request
	if err := readDocument(opts.File, &req); err != nil {
		return err
	}
	if opts.EscritorioID != "" {
		req.EscritorioID = opts.EscritorioID
	}
	if req.EscritorioID == "" {
		return &apperr.InvalidInputError{Reason: "escritorio is required (--escritorio or escritorioId in the file)"}
	}
	if opts.ConfigFile != "" {
		override, _, err := officecfg.LoadFile(opts.ConfigFile)
		if err != nil {
			return err
		}
		req.Config = override
	}

	out, err := env.Engine.Calculate(ctx, req)
	if err != nil {
		zap.L().Error("calculate failed",
			zap.String("escritorio", req.EscritorioID),
			zap.String("code", apperr.CodeOf(err)),
			zap.Error(err),
		)
		return err
	}

	if !opts.Save {
		return printJSON(w, out.Budget)
	}
	rec, err := env.saveOutcome(ctx, req.EscritorioID, out)
	if err != nil {
		return eris.Wrap(err, "calculate")
	}
	return printJSON(w, rec)
}

func init() {
	calculateCmd.Flags().StringVarP(&calculateOpts.File, "file", "f", "", "budget request file (JSON or YAML, - for stdin)")
	calculateCmd.Flags().StringVar(&calculateOpts.EscritorioID, "escritorio", "", "office id (overrides the file)")
	calculateCmd.Flags().StringVar(&calculateOpts.ConfigFile, "config", "", "office configuration YAML used instead of the stored one")
	calculateCmd.Flags().BoolVar(&calculateOpts.Save, "save", false, "persist the budget and print the stored record")
	_ = calculateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(calculateCmd)
}
