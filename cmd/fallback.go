package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/briefing-cli/internal/model"
)

var fallbackFile string

var fallbackCmd = &cobra.Command{
	Use:   "fallback",
	Short: "Fill missing briefing fields without computing a budget",
	Long:  "Reads one briefing or a list of briefings and prints the inferred data with its audit trail. Lists run as one dispatcher batch.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("calculate"); err != nil {
			return err
		}
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		return runFallback(cmd.Context(), env, fallbackFile, cmd.OutOrStdout())
	},
}

func runFallback(ctx context.Context, env *appEnv, path string, w io.Writer) error {
	briefings, single, err := readBriefings(path)
	if err != nil {
		return err
	}
	results, err := env.Engine.Fallback().ApplyBatch(ctx, briefings)
	if err != nil {
		return err
	}
	if single {
		return printJSON(w, results[0])
	}
	return printJSON(w, results)
}

// readBriefings accepts either a single briefing object or a list.
func readBriefings(path string) ([]model.BriefingExtraction, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, eris.Wrapf(err, "read %s", path)
	}

	unmarshal := json.Unmarshal
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		unmarshal = yaml.Unmarshal
	}

	var list []model.BriefingExtraction
	if err := unmarshal(data, &list); err == nil {
		return list, false, nil
	}
	var one model.BriefingExtraction
	if err := unmarshal(data, &one); err != nil {
		return nil, false, eris.Wrapf(err, "parse briefings %s", path)
	}
	return []model.BriefingExtraction{one}, true, nil
}

func init() {
	fallbackCmd.Flags().StringVarP(&fallbackFile, "file", "f", "", "briefing file (JSON or YAML object or list)")
	_ = fallbackCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(fallbackCmd)
}
