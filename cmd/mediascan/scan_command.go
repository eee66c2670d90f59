package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mediascan/internal/library"
	"mediascan/internal/preflight"
	"mediascan/internal/scanner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var noPrune bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Import the library tree into the catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if check := preflight.CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir, preflight.ReadOnly); !check.Passed {
				return fmt.Errorf("%s: %s", check.Name, check.Detail)
			}

			return ctx.withStore(func(store *library.Store) error {
				opts := scanner.OptionsFromConfig(cfg, logger)
				opts.Prune = !noPrune
				report, err := scanner.New(store, opts).Scan(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Scanned %s files in %s\n", humanize.Comma(int64(report.Seen)), report.Elapsed.Round(time.Millisecond))
				fmt.Fprint(out, renderTable(
					[]string{"Result", "Files"},
					[][]string{
						{"Added", humanize.Comma(int64(report.Added))},
						{"Updated", humanize.Comma(int64(report.Updated))},
						{"Unchanged", humanize.Comma(int64(report.Unchanged))},
						{"Skipped", humanize.Comma(int64(report.Skipped))},
						{"Removed", humanize.Comma(report.Removed)},
						{"Errors", humanize.Comma(int64(report.Errors))},
					},
					[]columnAlignment{alignLeft, alignRight},
				))
				fmt.Fprintf(out, "\n%d albums, %d with cover art\n", report.Albums, report.Covers)
				if report.Errors > 0 {
					fmt.Fprintln(out, "Some files could not be imported; stale entries were not pruned. See the log for details.")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noPrune, "no-prune", false, "Keep catalogue entries for files that no longer exist")
	return cmd
}
