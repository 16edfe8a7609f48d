package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/briefing-cli/internal/export"
	"github.com/sells-group/briefing-cli/internal/resilience"
)

var exportOpts exportOptions

type exportOptions struct {
	ID     string
	Output string
	Upload bool
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored budget as an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := "calculate"
		if exportOpts.Upload {
			mode = "export"
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		var uploader *export.Uploader
		if exportOpts.Upload {
			uploader, err = newUploader(cmd.Context())
			if err != nil {
				return err
			}
		}
		return runExport(cmd.Context(), env, uploader, exportOpts, cmd.OutOrStdout())
	},
}

func newUploader(ctx context.Context) (*export.Uploader, error) {
	e := cfg.Export
	client, err := export.NewMinioClient(export.StorageConfig{
		Endpoint:  e.Endpoint,
		AccessKey: e.AccessKey,
		SecretKey: e.SecretKey,
		Region:    e.Region,
		Bucket:    e.Bucket,
		UseSSL:    e.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	u := export.NewUploader(client, e.Bucket, e.Region, resilience.FromSettings(e.RetryAttempts, e.RetryBackoffMs))
	if err := u.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return u, nil
}

func runExport(ctx context.Context, env *appEnv, uploader *export.Uploader, opts exportOptions, w io.Writer) error {
	rec, err := env.Store.GetBudget(ctx, opts.ID)
	if err != nil {
		return err
	}

	if uploader != nil {
		key, err := uploader.Upload(ctx, rec)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "uploaded %s\n", key)
	}

	out := opts.Output
	if out == "" {
		if uploader != nil {
			return nil
		}
		out = export.FileName(rec)
	}
	f, err := os.Create(out)
	if err != nil {
		return eris.Wrapf(err, "create %s", out)
	}
	if err := export.WriteXLSX(f, rec); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "close %s", out)
	}
	fmt.Fprintf(w, "wrote %s\n", out)
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportOpts.ID, "id", "", "budget id")
	exportCmd.Flags().StringVarP(&exportOpts.Output, "output", "o", "", "output file (default <codigo>.xlsx)")
	exportCmd.Flags().BoolVar(&exportOpts.Upload, "upload", false, "upload the workbook to the export bucket")
	_ = exportCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(exportCmd)
}
