package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mediascan/internal/library"
)

func newGroupsCommand(ctx *commandContext) *cobra.Command {
	var column string

	cmd := &cobra.Command{
		Use:   "groups [GROUP...]",
		Short: "Count files per group, or list the albums in the given groups",
		Example: "  mediascan groups\n" +
			"  mediascan groups --by extension\n" +
			"  mediascan groups A B '#'",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *library.Store) error {
				out := cmd.OutOrStdout()
				if len(args) > 0 {
					groups, err := store.AlbumGroups(cmd.Context(), upperAll(args))
					if err != nil {
						return err
					}
					var rows [][]string
					for _, g := range groups {
						if len(g.Albums) == 0 {
							rows = append(rows, []string{g.Name, "(none)", "", "", ""})
							continue
						}
						for _, a := range g.Albums {
							rows = append(rows, []string{g.Name, a.Album.Name, a.Album.Artist, strconv.Itoa(len(a.FileIDs)), strconv.Itoa(len(a.CoverIDs))})
						}
					}
					fmt.Fprint(out, renderTable(
						[]string{"Group", "Album", "Artist", "Tracks", "Covers"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
					))
					fmt.Fprintln(out)
					return nil
				}

				counts, err := store.MediaFiles().CountGroupedBy(cmd.Context(), column)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(counts))
				for _, c := range counts {
					rows = append(rows, []string{c.Key, strconv.Itoa(c.Count)})
				}
				fmt.Fprint(out, renderTable([]string{column, "Files"}, rows, []columnAlignment{alignLeft, alignRight}))
				fmt.Fprintln(out)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&column, "by", "group_name", "Column to count files by (group_name, extension, directory, mime_type, sample_rate)")
	return cmd
}
