package main

import (
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mediascan/internal/analysis"
	"mediascan/internal/library"
	"mediascan/internal/preflight"
	"mediascan/internal/textutil"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalogue totals and analysis coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *library.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Library: %s\n", cfg.Paths.LibraryDir)
				fmt.Fprintf(out, "Catalogue: %s\n", store.Path())
				fmt.Fprintf(out, "Files: %s (%s)\n", humanize.Comma(int64(stats.Files)), humanize.Bytes(uint64(max(stats.TotalBytes, 0))))
				fmt.Fprintf(out, "Albums: %s, cover art: %s\n\n", humanize.Comma(int64(stats.Albums)), humanize.Comma(int64(stats.CoverArt)))
				fmt.Fprint(out, renderTable(
					[]string{"Kind", "Analysed", "Failed", "Pending"},
					kindRows(stats),
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
				))
				fmt.Fprintln(out)

				if skipChecks {
					return nil
				}
				results := preflight.RunAll(cfg)
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{r.Name, textutil.Ternary(r.Passed, "ok", "FAIL"), r.Detail})
				}
				fmt.Fprintln(out)
				fmt.Fprint(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
				fmt.Fprintln(out)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&skipChecks, "no-checks", false, "Skip directory and dependency checks")
	return cmd
}

// kindRows lists every registered kind, plus any stored kind no longer
// registered, with pending counts relative to the catalogue size.
func kindRows(stats library.Stats) [][]string {
	byKind := make(map[string]library.KindStats, len(stats.Kinds))
	kinds := analysis.Kinds()
	for _, ks := range stats.Kinds {
		byKind[ks.Kind] = ks
		if !slices.Contains(kinds, ks.Kind) {
			kinds = append(kinds, ks.Kind)
		}
	}
	rows := make([][]string, 0, len(kinds))
	for _, kind := range kinds {
		ks := byKind[kind]
		pending := max(stats.Files-ks.Analyzed, 0)
		rows = append(rows, []string{
			kind,
			humanize.Comma(int64(ks.Analyzed)),
			humanize.Comma(int64(ks.Failed)),
			humanize.Comma(int64(pending)),
		})
	}
	return rows
}
