package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/briefing-cli/internal/officecfg"
)

var (
	configEscritorio string
	configFile       string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage office pricing configurations",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate an office configuration YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigValidate(args[0], cmd.OutOrStdout())
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration of an office as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()
		return runConfigShow(cmd.Context(), env, configEscritorio, cmd.OutOrStdout())
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the configuration of an office from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()
		return runConfigSet(cmd.Context(), env, configEscritorio, configFile, cmd.OutOrStdout())
	},
}

func runConfigValidate(path string, w io.Writer) error {
	_, warnings, err := officecfg.LoadFile(path)
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: ok\n", path)
	return nil
}

func runConfigShow(ctx context.Context, env *appEnv, escritorioID string, w io.Writer) error {
	c, err := env.Configs.Get(ctx, escritorioID)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return eris.Wrap(err, "encode configuration")
	}
	return enc.Close()
}

func runConfigSet(ctx context.Context, env *appEnv, escritorioID, path string, w io.Writer) error {
	c, _, err := officecfg.LoadFile(path)
	if err != nil {
		return err
	}
	warnings, err := env.Configs.Put(ctx, escritorioID, c)
	if err != nil {
		return err
	}
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	fmt.Fprintf(w, "configuration of %s updated\n", escritorioID)
	return nil
}

func init() {
	configShowCmd.Flags().StringVar(&configEscritorio, "escritorio", "", "office id")
	_ = configShowCmd.MarkFlagRequired("escritorio")
	configSetCmd.Flags().StringVar(&configEscritorio, "escritorio", "", "office id")
	configSetCmd.Flags().StringVarP(&configFile, "file", "f", "", "configuration YAML file")
	_ = configSetCmd.MarkFlagRequired("escritorio")
	_ = configSetCmd.MarkFlagRequired("file")

	configCmd.AddCommand(configValidateCmd, configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
